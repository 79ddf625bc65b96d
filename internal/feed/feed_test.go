package feed

import (
	"context"
	"errors"
	"testing"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConn struct {
	subject string
	data    []byte
	err     error
}

func (c *captureConn) Publish(subject string, data []byte) error {
	c.subject = subject
	c.data = data
	return c.err
}

func snapshot(code string, version int64) store.Snapshot {
	return store.Snapshot{
		Game:  &game.Game{GameCode: code, CurrentStage: game.StageVoting, Version: version},
		Round: &game.Round{ID: "r1", RoundNumber: 1},
	}
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "rounds.games.ABC123", Subject("", "ABC123"))
	assert.Equal(t, "staging.games.ABC123", Subject("staging.games", "ABC123"))

	code, ok := codeFromSubject("", "rounds.games.ABC123")
	assert.True(t, ok)
	assert.Equal(t, "ABC123", code)
	_, ok = codeFromSubject("", "rounds.games.ABC.123")
	assert.False(t, ok)
	_, ok = codeFromSubject("", "other.ABC123")
	assert.False(t, ok)
}

func TestPublisherRelayHandOff(t *testing.T) {
	conn := &captureConn{}
	publisher := NewPublisher(conn, "", "instance-a")
	require.NoError(t, publisher.Notify(context.Background(), snapshot("ABC123", 4)))
	assert.Equal(t, "rounds.games.ABC123", conn.subject)

	var received []store.Snapshot
	sink := func(code string, snap store.Snapshot) bool {
		received = append(received, snap)
		return true
	}

	own := NewRelay("", "instance-a", sink)
	assert.False(t, own.handle(conn.subject, conn.data))
	assert.Empty(t, received)

	other := NewRelay("", "instance-b", sink)
	assert.True(t, other.handle(conn.subject, conn.data))
	require.Len(t, received, 1)
	assert.Equal(t, int64(4), received[0].Game.Version)
	assert.Equal(t, "r1", received[0].Round.ID)

	assert.False(t, other.handle("rounds.games.OTHER1", conn.data))
	assert.False(t, other.handle(conn.subject, []byte("{")))
}

func TestPublisherErrors(t *testing.T) {
	conn := &captureConn{err: errors.New("nats: connection closed")}
	publisher := NewPublisher(conn, "", "instance-a")
	assert.Error(t, publisher.Notify(context.Background(), snapshot("ABC123", 1)))
	assert.NoError(t, publisher.Notify(context.Background(), store.Snapshot{}))
}

func TestRelayFeedsHub(t *testing.T) {
	hub := store.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := hub.Subscribe(ctx, "ABC123", snapshot("ABC123", 2))
	<-updates

	conn := &captureConn{}
	require.NoError(t, NewPublisher(conn, "", "instance-a").Notify(ctx, snapshot("ABC123", 3)))
	relay := NewRelay("", "instance-b", hub.Publish)
	assert.True(t, relay.handle(conn.subject, conn.data))
	assert.Equal(t, int64(3), (<-updates).Game.Version)

	assert.False(t, relay.handle(conn.subject, conn.data), "replayed snapshot is not newer")
}
