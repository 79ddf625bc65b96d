package game

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameCloneIsDeep(t *testing.T) {
	g := &Game{
		Answers:          []string{"arr"},
		SubmittedPlayers: []string{"p1"},
		Players:          []Player{{ID: "p1", Name: "Ada"}},
	}
	clone := g.Clone()
	clone.Answers[0] = "changed"
	clone.SubmittedPlayers = append(clone.SubmittedPlayers, "p2")
	clone.Players[0].Name = "Bob"

	assert.Equal(t, "arr", g.Answers[0])
	assert.Len(t, g.SubmittedPlayers, 1)
	assert.Equal(t, "Ada", g.Players[0].Name)
}

func TestCloneFillsEmptyCollections(t *testing.T) {
	clone := (&Round{}).Clone()
	assert.NotNil(t, clone.Answers)
	assert.NotNil(t, clone.SubmittedPlayers)
	assert.NotNil(t, clone.Votes)
	assert.Nil(t, (*Round)(nil).Clone())
}

func TestContentOr(t *testing.T) {
	assert.Equal(t, DefaultContent(), (&Game{}).ContentOr(DefaultContent()))
	got := (&Game{Theme: "Sea shanties"}).ContentOr(DefaultContent())
	assert.Equal(t, Content{Theme: "Sea shanties", Prompt: DefaultPrompt}, got)
}

func TestRoundNumberDefaultsToOne(t *testing.T) {
	assert.Equal(t, 1, (&Game{}).RoundNumber())
	assert.Equal(t, 1, (*Game)(nil).RoundNumber())
	assert.Equal(t, 4, (&Game{CurrentRound: 4}).RoundNumber())
}

func TestRoundPath(t *testing.T) {
	path := RoundPath("ABC123", "r-1")
	assert.Equal(t, "/game/ABC123/play/r-1", path)

	code, roundID, ok := ParseRoundPath(path)
	require.True(t, ok)
	assert.Equal(t, "ABC123", code)
	assert.Equal(t, "r-1", roundID)

	_, _, ok = ParseRoundPath("/game/ABC123/lobby/r-1")
	assert.False(t, ok)
	_, _, ok = ParseRoundPath("/play/r-1")
	assert.False(t, ok)
}

func TestNormalizeAnswer(t *testing.T) {
	_, ok := NormalizeAnswer("")
	assert.False(t, ok)
	_, ok = NormalizeAnswer("   ")
	assert.False(t, ok)

	answer, ok := NormalizeAnswer("  Big Booty Lagoon ")
	assert.True(t, ok)
	assert.Equal(t, "Big Booty Lagoon", answer)

	long := strings.Repeat("a", 200)
	kept, ok := NormalizeAnswer(long)
	assert.True(t, ok)
	assert.Equal(t, long, kept)
}

func TestAnswerTooLong(t *testing.T) {
	assert.False(t, AnswerTooLong(strings.Repeat("é", MaxAnswerLength)))
	assert.False(t, AnswerTooLong("  "+strings.Repeat("a", MaxAnswerLength)+"  "))
	assert.True(t, AnswerTooLong(strings.Repeat("a", MaxAnswerLength+1)))
}
