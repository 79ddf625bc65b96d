package store

import "time"

const (
	EventGameCreated     = "game_created"
	EventPlayerJoined    = "player_joined"
	EventStageAdvanced   = "stage_advanced"
	EventRoundCreated    = "round_created"
	EventAnswerSubmitted = "answer_submitted"
	EventVoteCast        = "vote_cast"
	EventRedirectIssued  = "redirect_issued"
	EventRedirectCleared = "redirect_cleared"
)

type Event struct {
	Type      string       `json:"type"`
	RoundID   string       `json:"round_id,omitempty"`
	Payload   EventPayload `json:"payload"`
	CreatedAt time.Time    `json:"created_at"`
}

type EventPayload struct {
	GameCode    string `json:"game_code,omitempty"`
	PlayerName  string `json:"player,omitempty"`
	PlayerID    string `json:"player_id,omitempty"`
	RoundID     string `json:"round_id,omitempty"`
	RoundNumber int    `json:"round_number,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	RedirectTo  string `json:"redirect_to,omitempty"`
	Version     int64  `json:"version,omitempty"`
}
