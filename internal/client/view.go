package client

import (
	"fmt"

	"party-rounds/internal/game"
)

// View is everything a stage screen renders.
type View struct {
	Loading      bool          `json:"loading"`
	Stage        game.Stage    `json:"stage,omitempty"`
	Waiting      bool          `json:"waiting"`
	CurrentRound int           `json:"current_round"`
	TimeLeft     int           `json:"time_left"`
	Theme        string        `json:"theme"`
	Prompt       string        `json:"prompt"`
	Players      []game.Player `json:"players"`
	// SubmittedAnswer is this player's own answer, read from the local cache.
	SubmittedAnswer       string   `json:"submitted_answer,omitempty"`
	Answers               []string `json:"answers,omitempty"`
	ShowNoSubmissionAlert bool     `json:"show_no_submission_alert"`
}

// AnswerKey is the local cache key for a player's answer in one round.
func AnswerKey(gameCode string, roundNumber int) string {
	return fmt.Sprintf("answer_%s_%d", gameCode, roundNumber)
}

func buildView(g *game.Game, timeLeft int, submitted bool, cached string) View {
	if g == nil {
		return View{Loading: true}
	}
	content := g.ContentOr(game.DefaultContent())
	view := View{
		Stage:           game.Normalize(g.CurrentStage),
		CurrentRound:    g.RoundNumber(),
		TimeLeft:        timeLeft,
		Theme:           content.Theme,
		Prompt:          content.Prompt,
		Players:         append([]game.Player{}, g.Players...),
		SubmittedAnswer: cached,
	}
	switch view.Stage {
	case game.StageGame:
		view.Waiting = submitted
	case game.StageVoting:
		view.Answers = append([]string{}, g.Answers...)
		view.ShowNoSubmissionAlert = !submitted
	case game.StageResults:
		view.Answers = append([]string{}, g.Answers...)
	}
	return view
}
