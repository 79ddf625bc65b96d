package rounds

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerCompletesExpiredStages(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	f.join(t, g.GameCode, "Pip")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewScheduler(f.manager, f.store)
	require.NoError(t, scheduler.Watch(ctx, g.GameCode))
	require.NoError(t, scheduler.Watch(ctx, g.GameCode))
	assert.True(t, scheduler.Watching(g.GameCode))

	stageIs := func(stage game.Stage) func() bool {
		return func() bool {
			current, err := f.store.Game(context.Background(), g.GameCode)
			return err == nil && current.CurrentStage == stage
		}
	}

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(5 * time.Second)
	require.Eventually(t, stageIs(game.StageGame), time.Second, 5*time.Millisecond)

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(29 * time.Second)
	assert.Never(t, stageIs(game.StageVoting), 50*time.Millisecond, 5*time.Millisecond)
	f.clock.Advance(time.Second)
	require.Eventually(t, stageIs(game.StageVoting), time.Second, 5*time.Millisecond)

	scheduler.Stop()
	assert.False(t, scheduler.Watching(g.GameCode))
}

func TestSchedulerLeavesEmptyGameAlone(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler := NewScheduler(f.manager, f.store)
	require.NoError(t, scheduler.Watch(ctx, g.GameCode))
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool { return !scheduler.Watching(g.GameCode) }, time.Second, 5*time.Millisecond)

	for i := 0; i < 40; i++ {
		f.clock.Advance(30 * time.Second)
	}
	current, err := f.store.Game(ctx, g.GameCode)
	require.NoError(t, err)
	assert.Equal(t, game.StagePrep, current.CurrentStage)
	assert.Equal(t, 1, current.CurrentRound)

	events, err := f.store.Events(ctx, g.GameCode)
	require.NoError(t, err)
	created := 0
	for _, event := range events {
		if event.Type == store.EventRoundCreated {
			created++
		}
	}
	assert.Equal(t, 1, created)

	f.join(t, g.GameCode, "Pip")
	require.NoError(t, scheduler.Watch(ctx, g.GameCode))
	require.Eventually(t, func() bool {
		current, err := f.store.Game(ctx, g.GameCode)
		return err == nil && current.CurrentStage == game.StageGame
	}, time.Second, 5*time.Millisecond)
	scheduler.Stop()
}

func TestSchedulerStopsWithoutAudience(t *testing.T) {
	f := newFixture(t)
	g := f.create(t)
	f.join(t, g.GameCode, "Pip")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var connected atomic.Int64
	connected.Store(1)
	scheduler := NewScheduler(f.manager, f.store, WithAudience(func(code string) int {
		return int(connected.Load())
	}))
	require.NoError(t, scheduler.Watch(ctx, g.GameCode))

	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(5 * time.Second)
	require.Eventually(t, func() bool {
		current, err := f.store.Game(ctx, g.GameCode)
		return err == nil && current.CurrentStage == game.StageGame
	}, time.Second, 5*time.Millisecond)

	connected.Store(0)
	require.NoError(t, f.clock.BlockUntilContext(ctx, 1))
	f.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return !scheduler.Watching(g.GameCode) }, time.Second, 5*time.Millisecond)

	current, err := f.store.Game(ctx, g.GameCode)
	require.NoError(t, err)
	assert.Equal(t, game.StageGame, current.CurrentStage)
}
