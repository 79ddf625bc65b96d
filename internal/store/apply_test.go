package store

import (
	"strings"
	"testing"

	"party-rounds/internal/game"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestState(players ...game.Player) *txState {
	g := &game.Game{
		ID:           "game-1",
		GameCode:     "ABC123",
		CurrentStage: game.StageGame,
		CurrentRound: 2,
		RoundID:      "round-2",
		Players:      players,
	}
	rounds := map[string]*game.Round{"round-2": {ID: "round-2", GameID: "game-1", RoundNumber: 2}}
	return newTxState(g, testStart, func(id string) (*game.Round, error) {
		round, ok := rounds[id]
		if !ok {
			return nil, ErrNotFound
		}
		return round.Clone(), nil
	})
}

func TestTxStateKeepsSubmittedPlayersWithinPlayers(t *testing.T) {
	st := newTestState(game.Player{ID: "p1", Name: "Pip"})

	err := st.apply(Tx{Ops: []Op{AppendAnswer("p1", "arr"), AppendAnswer("ghost", "boo")}})
	assert.ErrorIs(t, err, ErrInvalid)

	st = newTestState(game.Player{ID: "p1", Name: "Pip"})
	require.NoError(t, st.apply(Tx{Ops: []Op{AppendAnswer("p1", "arr")}}))
	assert.Equal(t, []string{"p1"}, st.game.SubmittedPlayers)
	for _, id := range st.game.SubmittedPlayers {
		_, ok := st.game.FindPlayer(id)
		assert.True(t, ok, id)
	}
}

func TestTxStateRejectsVotesFromStrangers(t *testing.T) {
	st := newTestState()
	err := st.apply(Tx{Ops: []Op{AppendVote("ghost", "boo")}})
	assert.ErrorIs(t, err, ErrInvalid)
	assert.False(t, st.changed)
}

func TestTxStateGuardsStageAndRound(t *testing.T) {
	tests := []struct {
		name   string
		fields GameFields
		ok     bool
	}{
		{"next stage", GameFields{CurrentStage: Ptr(game.StageVoting)}, true},
		{"same round", GameFields{CurrentRound: Ptr(2)}, true},
		{"next round", GameFields{CurrentRound: Ptr(3)}, true},
		{"unknown stage", GameFields{CurrentStage: Ptr(game.Stage("LOBBY"))}, false},
		{"empty stage", GameFields{CurrentStage: Ptr(game.Stage(""))}, false},
		{"earlier round", GameFields{CurrentRound: Ptr(1)}, false},
		{"zero round", GameFields{CurrentRound: Ptr(0)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := newTestState().apply(Tx{Ops: []Op{UpdateGame(tt.fields)}})
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestTxStateRejectsOversizedPlayerID(t *testing.T) {
	st := newTestState()
	player := game.Player{ID: strings.Repeat("x", maxPlayerIDLength+1), Name: "Long"}
	assert.ErrorIs(t, st.apply(Tx{Ops: []Op{AddPlayer(player)}}), ErrInvalid)
	assert.Empty(t, st.game.Players)
}
