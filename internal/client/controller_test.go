package client

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/rounds"
	"party-rounds/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

type harness struct {
	t       *testing.T
	ctx     context.Context
	clock   *clockwork.FakeClock
	store   *store.Memory
	manager *rounds.Manager
	game    *game.Game
	players map[string]string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	clock := clockwork.NewFakeClockAt(start)
	mem := store.NewMemory(store.WithClock(clock))
	manager := rounds.NewManager(mem, rounds.WithClock(clock))
	g, err := manager.CreateGame(ctx, game.Content{})
	require.NoError(t, err)
	return &harness{t: t, ctx: ctx, clock: clock, store: mem, manager: manager, game: g, players: map[string]string{}}
}

// start joins name to the game and runs a controller for that player.
func (h *harness) start(name string, opts ...Option) (*Controller, *History) {
	h.t.Helper()
	player, err := h.manager.Join(h.ctx, h.game.GameCode, name)
	require.NoError(h.t, err)
	h.players[name] = player.ID
	history := &History{}
	opts = append([]Option{WithClock(h.clock), WithNavigator(history)}, opts...)
	c := NewController(h.game.GameCode, player.ID, h.store, h.manager, opts...)
	go func() {
		_ = c.Run(h.ctx)
	}()
	require.Eventually(h.t, func() bool { return !c.View().Loading }, time.Second, 5*time.Millisecond)
	return c, history
}

// pass waits for every controller's ticker, moves the clock on and waits
// for all of them to show stage.
func (h *harness) pass(d time.Duration, stage game.Stage, controllers ...*Controller) {
	h.t.Helper()
	require.NoError(h.t, h.clock.BlockUntilContext(h.ctx, len(controllers)))
	h.clock.Advance(d)
	for _, c := range controllers {
		require.Eventually(h.t, func() bool { return c.View().Stage == stage }, time.Second, 5*time.Millisecond)
	}
}

func (h *harness) stored() *game.Game {
	g, err := h.store.Game(context.Background(), h.game.GameCode)
	require.NoError(h.t, err)
	return g
}

func TestControllerFollowsStages(t *testing.T) {
	h := newHarness(t)
	c, history := h.start("p1")

	view := c.View()
	assert.Equal(t, game.StagePrep, view.Stage)
	assert.Equal(t, 5, view.TimeLeft)
	assert.Equal(t, 1, view.CurrentRound)
	assert.Equal(t, game.DefaultTheme, view.Theme)
	assert.Equal(t, []string{game.RoundPath(h.game.GameCode, h.game.RoundID)}, history.Paths())

	require.NoError(t, h.clock.BlockUntilContext(h.ctx, 1))
	h.clock.Advance(2 * time.Second)
	require.Eventually(t, func() bool { return c.View().TimeLeft == 3 }, time.Second, 5*time.Millisecond)

	h.pass(3*time.Second, game.StageGame, c)
	assert.Equal(t, 30, c.View().TimeLeft)
	h.pass(31*time.Second, game.StageVoting, c)
	assert.True(t, h.stored().TimerStart.Equal(start.Add(36*time.Second)))
	h.pass(15*time.Second, game.StageResults, c)
	h.pass(10*time.Second, game.StagePrep, c)

	stored := h.stored()
	assert.Equal(t, 2, stored.CurrentRound)
	assert.Equal(t, 2, c.View().CurrentRound)
	newPath := game.RoundPath(h.game.GameCode, stored.RoundID)
	require.Eventually(t, func() bool { return c.Location() == newPath }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !h.stored().ShouldRedirect }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(1), h.stored().RedirectVersion)
	assert.Equal(t, []string{game.RoundPath(h.game.GameCode, h.game.RoundID), newPath}, history.Paths())
}

func TestControllersRaceToOneRound(t *testing.T) {
	h := newHarness(t)
	a, historyA := h.start("p1")
	b, historyB := h.start("p2")

	h.pass(5*time.Second, game.StageGame, a, b)
	h.pass(30*time.Second, game.StageVoting, a, b)
	h.pass(15*time.Second, game.StageResults, a, b)
	h.pass(10*time.Second, game.StagePrep, a, b)

	stored := h.stored()
	assert.Equal(t, 2, stored.CurrentRound)
	newPath := game.RoundPath(h.game.GameCode, stored.RoundID)
	for _, c := range []*Controller{a, b} {
		require.Eventually(t, func() bool { return c.Location() == newPath }, time.Second, 5*time.Millisecond)
	}
	assert.Equal(t, []string{game.RoundPath(h.game.GameCode, h.game.RoundID), newPath}, historyA.Paths())
	assert.Equal(t, []string{game.RoundPath(h.game.GameCode, h.game.RoundID), newPath}, historyB.Paths())

	events, err := h.store.Events(context.Background(), h.game.GameCode)
	require.NoError(t, err)
	var created, issued, cleared int
	for _, event := range events {
		switch event.Type {
		case store.EventRoundCreated:
			created++
		case store.EventRedirectIssued:
			issued++
		case store.EventRedirectCleared:
			cleared++
		}
	}
	assert.Equal(t, 2, created)
	assert.Equal(t, 1, issued)
	require.Eventually(t, func() bool { return !h.stored().ShouldRedirect }, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, cleared, 1)
}

func TestControllerSubmission(t *testing.T) {
	h := newHarness(t)
	cache := NewMemoryCache()
	c, _ := h.start("p1", WithCache(cache))

	h.pass(5*time.Second, game.StageGame, c)
	require.NoError(t, c.SubmitAnswer(h.ctx, "   "))
	assert.False(t, c.View().Waiting)

	err := c.SubmitAnswer(h.ctx, strings.Repeat("y", game.MaxAnswerLength+1))
	require.ErrorIs(t, err, game.ErrAnswerTooLong)
	_, cachedLong := cache.Get("answer_" + h.game.GameCode + "_1")
	assert.False(t, cachedLong)
	assert.False(t, c.View().Waiting)

	require.NoError(t, c.SubmitAnswer(h.ctx, " Yo ho ho "))
	view := c.View()
	assert.True(t, view.Waiting)
	assert.Equal(t, "Yo ho ho", view.SubmittedAnswer)
	cached, ok := cache.Get("answer_" + h.game.GameCode + "_1")
	require.True(t, ok)
	assert.Equal(t, "Yo ho ho", cached)

	h.pass(30*time.Second, game.StageVoting, c)
	view = c.View()
	assert.False(t, view.ShowNoSubmissionAlert)
	assert.Equal(t, []string{"Yo ho ho"}, view.Answers)

	require.NoError(t, c.Vote(h.ctx, "Yo ho ho"))
	require.Eventually(t, func() bool { return c.View().Stage == game.StageResults }, time.Second, 5*time.Millisecond)
	round, err := h.store.Round(context.Background(), h.game.RoundID)
	require.NoError(t, err)
	assert.Equal(t, []game.Vote{{PlayerID: h.players["p1"], Choice: "Yo ho ho"}}, round.Votes)

	require.NoError(t, c.Next(h.ctx))
	require.Eventually(t, func() bool { return c.View().Stage == game.StagePrep }, time.Second, 5*time.Millisecond)
	h.pass(5*time.Second, game.StageGame, c)
	view = c.View()
	assert.False(t, view.Waiting)
	assert.Empty(t, view.SubmittedAnswer)
	assert.Equal(t, 2, view.CurrentRound)
}

func TestControllerShowsAlertWithoutSubmission(t *testing.T) {
	h := newHarness(t)
	c, _ := h.start("p1")
	h.pass(5*time.Second, game.StageGame, c)
	h.pass(30*time.Second, game.StageVoting, c)
	assert.True(t, c.View().ShowNoSubmissionAlert)
}

type feed struct {
	ch chan store.Snapshot
}

func (f *feed) Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error) {
	return f.ch, nil
}

type recordingDriver struct {
	mu      sync.Mutex
	cleared []int64
}

func (d *recordingDriver) CompleteStage(ctx context.Context, g *game.Game) (rounds.Outcome, error) {
	return rounds.Outcome{}, nil
}

func (d *recordingDriver) SubmitAnswer(ctx context.Context, code, playerID, answer string) (bool, error) {
	return true, nil
}

func (d *recordingDriver) CastVote(ctx context.Context, g *game.Game, playerID, choice string) (rounds.Outcome, error) {
	return rounds.Outcome{}, nil
}

func (d *recordingDriver) ClearRedirect(ctx context.Context, code string, version int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cleared = append(d.cleared, version)
	return nil
}

func (d *recordingDriver) clears() []int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int64(nil), d.cleared...)
}

func frozen(roundID string, redirect bool, version int64, revision int64) store.Snapshot {
	g := &game.Game{
		GameCode:        "ABC123",
		CurrentStage:    game.StagePrep,
		CurrentRound:    2,
		RoundID:         roundID,
		TimeLeft:        5,
		ShouldRedirect:  redirect,
		RedirectVersion: version,
		Version:         revision,
	}
	if redirect {
		g.RedirectTo = game.RoundPath("ABC123", roundID)
	}
	return store.Snapshot{Game: g}
}

func TestControllerRedirectOncePerVersion(t *testing.T) {
	updates := &feed{ch: make(chan store.Snapshot)}
	driver := &recordingDriver{}
	history := &History{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewController("ABC123", "p1", updates, driver,
		WithClock(clockwork.NewFakeClockAt(start)),
		WithNavigator(history),
		WithLocation(game.RoundPath("ABC123", "r1")),
	)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	updates.ch <- frozen("r2", true, 1, 10)
	updates.ch <- frozen("r2", true, 1, 11)
	updates.ch <- frozen("r2", false, 1, 12)
	updates.ch <- frozen("r3", true, 2, 13)
	updates.ch <- frozen("r3", true, 1, 14)

	require.Eventually(t, func() bool { return len(driver.clears()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{1, 2}, driver.clears())
	assert.Equal(t, []string{"/game/ABC123/play/r2", "/game/ABC123/play/r3"}, history.Paths())

	close(updates.ch)
	assert.ErrorIs(t, <-done, ErrSubscriptionClosed)
}

func TestControllerConvergesAfterMissedRedirect(t *testing.T) {
	updates := &feed{ch: make(chan store.Snapshot)}
	driver := &recordingDriver{}
	history := &History{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewController("ABC123", "p1", updates, driver,
		WithClock(clockwork.NewFakeClockAt(start)),
		WithNavigator(history),
		WithLocation(game.RoundPath("ABC123", "r1")),
	)
	go func() { _ = c.Run(ctx) }()

	updates.ch <- frozen("r2", false, 1, 10)
	require.Eventually(t, func() bool { return c.Location() == "/game/ABC123/play/r2" }, time.Second, 5*time.Millisecond)
	assert.Empty(t, driver.clears())
	assert.Equal(t, []string{"/game/ABC123/play/r2"}, history.Paths())
}

func TestControllerLoadingWithoutGame(t *testing.T) {
	updates := &feed{ch: make(chan store.Snapshot, 1)}
	var (
		mu    sync.Mutex
		views []View
	)
	ctx, cancel := context.WithCancel(context.Background())
	c := NewController("ABC123", "p1", updates, &recordingDriver{}, OnView(func(v View) {
		mu.Lock()
		views = append(views, v)
		mu.Unlock()
	}))
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	updates.ch <- store.Snapshot{}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(views) >= 2
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.View().Loading)
	assert.NoError(t, c.SubmitAnswer(ctx, "arr"))

	cancel()
	assert.NoError(t, <-done)
}

func TestControllerVoteAndNextSkipTimers(t *testing.T) {
	h := newHarness(t)
	c, history := h.start("p1")

	require.NoError(t, c.Vote(h.ctx, "too early"))
	require.NoError(t, c.Next(h.ctx))
	assert.Equal(t, game.StagePrep, h.stored().CurrentStage)

	h.pass(5*time.Second, game.StageGame, c)
	require.NoError(t, c.SubmitAnswer(h.ctx, "Parrot"))
	h.pass(30*time.Second, game.StageVoting, c)

	require.NoError(t, c.Vote(h.ctx, "Parrot"))
	require.Eventually(t, func() bool { return c.View().Stage == game.StageResults }, time.Second, 5*time.Millisecond)
	round, err := h.store.Round(context.Background(), h.game.RoundID)
	require.NoError(t, err)
	assert.Len(t, round.Votes, 1)

	require.NoError(t, c.Next(h.ctx))
	require.Eventually(t, func() bool { return c.View().CurrentRound == 2 }, time.Second, 5*time.Millisecond)
	stored := h.stored()
	assert.Equal(t, game.StagePrep, stored.CurrentStage)
	newPath := game.RoundPath(h.game.GameCode, stored.RoundID)
	require.Eventually(t, func() bool { return c.Location() == newPath }, time.Second, 5*time.Millisecond)
	assert.Len(t, history.Paths(), 2)
}
