package game

import (
	"slices"
	"time"
)

const (
	DefaultTheme  = "Things a pirate would say"
	DefaultPrompt = "BBL"
)

type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Vote struct {
	PlayerID string `json:"player_id"`
	Choice   string `json:"choice"`
}

type Content struct {
	Theme  string `json:"theme"`
	Prompt string `json:"prompt"`
}

func DefaultContent() Content {
	return Content{Theme: DefaultTheme, Prompt: DefaultPrompt}
}

// Game is the shared record every client of a session observes.
// TimeLeft is the stage duration at TimerStart, not a live countdown.
type Game struct {
	ID               string    `json:"id"`
	GameCode         string    `json:"game_code"`
	CurrentStage     Stage     `json:"current_stage"`
	CurrentRound     int       `json:"current_round"`
	RoundID          string    `json:"round_id,omitempty"`
	TimerStart       time.Time `json:"timer_start"`
	TimeLeft         int       `json:"time_left"`
	IsTimerRunning   bool      `json:"is_timer_running"`
	Answers          []string  `json:"answers"`
	SubmittedPlayers []string  `json:"submitted_players"`
	Theme            string    `json:"theme,omitempty"`
	Prompt           string    `json:"prompt,omitempty"`
	Players          []Player  `json:"players"`
	ShouldRedirect   bool      `json:"should_redirect"`
	RedirectTo       string    `json:"redirect_to,omitempty"`
	RedirectVersion  int64     `json:"redirect_version"`
	Version          int64     `json:"version"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Round struct {
	ID               string    `json:"id"`
	GameID           string    `json:"game_id"`
	RoundNumber      int       `json:"round_number"`
	Answers          []string  `json:"answers"`
	SubmittedPlayers []string  `json:"submitted_players"`
	Votes            []Vote    `json:"votes"`
	Theme            string    `json:"theme"`
	Prompt           string    `json:"prompt"`
	CreatedAt        time.Time `json:"created_at"`
}

func (g *Game) Clone() *Game {
	if g == nil {
		return nil
	}
	out := *g
	out.Answers = cloneStrings(g.Answers)
	out.SubmittedPlayers = cloneStrings(g.SubmittedPlayers)
	out.Players = slices.Clone(g.Players)
	if out.Players == nil {
		out.Players = []Player{}
	}
	return &out
}

func (r *Round) Clone() *Round {
	if r == nil {
		return nil
	}
	out := *r
	out.Answers = cloneStrings(r.Answers)
	out.SubmittedPlayers = cloneStrings(r.SubmittedPlayers)
	out.Votes = slices.Clone(r.Votes)
	if out.Votes == nil {
		out.Votes = []Vote{}
	}
	return &out
}

// RoundNumber treats an unset counter as the first round.
func (g *Game) RoundNumber() int {
	if g == nil || g.CurrentRound < 1 {
		return 1
	}
	return g.CurrentRound
}

func (g *Game) ContentOr(fallback Content) Content {
	content := fallback
	if g == nil {
		return content
	}
	if g.Theme != "" {
		content.Theme = g.Theme
	}
	if g.Prompt != "" {
		content.Prompt = g.Prompt
	}
	return content
}

func (g *Game) HasSubmitted(playerID string) bool {
	if g == nil || playerID == "" {
		return false
	}
	return slices.Contains(g.SubmittedPlayers, playerID)
}

func (g *Game) FindPlayer(playerID string) (Player, bool) {
	if g == nil {
		return Player{}, false
	}
	for _, player := range g.Players {
		if player.ID == playerID {
			return player, true
		}
	}
	return Player{}, false
}

func (r *Round) HasVoted(playerID string) bool {
	if r == nil {
		return false
	}
	for _, vote := range r.Votes {
		if vote.PlayerID == playerID {
			return true
		}
	}
	return false
}

func cloneStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return slices.Clone(values)
}
