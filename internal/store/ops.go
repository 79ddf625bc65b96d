package store

import (
	"fmt"
	"time"

	"party-rounds/internal/game"
)

type OpKind string

const (
	OpCreateRound  OpKind = "create_round"
	OpUpdateGame   OpKind = "update_game"
	OpLinkRound    OpKind = "link_round"
	OpAddPlayer    OpKind = "add_player"
	OpAppendAnswer OpKind = "append_answer"
	OpAppendVote   OpKind = "append_vote"
)

// Op is one step of a transaction. Only the fields relevant to Kind are set.
type Op struct {
	Kind     OpKind       `json:"kind"`
	Round    *game.Round  `json:"round,omitempty"`
	Fields   *GameFields  `json:"fields,omitempty"`
	RoundID  string       `json:"round_id,omitempty"`
	Player   *game.Player `json:"player,omitempty"`
	PlayerID string       `json:"player_id,omitempty"`
	Answer   string       `json:"answer,omitempty"`
	Choice   string       `json:"choice,omitempty"`
}

func CreateRound(round game.Round) Op {
	return Op{Kind: OpCreateRound, Round: &round}
}

func UpdateGame(fields GameFields) Op {
	return Op{Kind: OpUpdateGame, Fields: &fields}
}

func LinkRound(roundID string) Op {
	return Op{Kind: OpLinkRound, RoundID: roundID}
}

func AddPlayer(player game.Player) Op {
	return Op{Kind: OpAddPlayer, Player: &player}
}

// AppendAnswer adds an answer to the game and its linked round. Repeat
// submissions from the same player are ignored.
func AppendAnswer(playerID, answer string) Op {
	return Op{Kind: OpAppendAnswer, PlayerID: playerID, Answer: answer}
}

// AppendVote records one vote per player on the linked round.
func AppendVote(playerID, choice string) Op {
	return Op{Kind: OpAppendVote, PlayerID: playerID, Choice: choice}
}

// GameFields is a partial update; nil fields are left untouched.
type GameFields struct {
	CurrentStage     *game.Stage `json:"current_stage,omitempty"`
	CurrentRound     *int        `json:"current_round,omitempty"`
	TimerStart       *time.Time  `json:"timer_start,omitempty"`
	TimeLeft         *int        `json:"time_left,omitempty"`
	IsTimerRunning   *bool       `json:"is_timer_running,omitempty"`
	Answers          *[]string   `json:"answers,omitempty"`
	SubmittedPlayers *[]string   `json:"submitted_players,omitempty"`
	Theme            *string     `json:"theme,omitempty"`
	Prompt           *string     `json:"prompt,omitempty"`
	ShouldRedirect   *bool       `json:"should_redirect,omitempty"`
	RedirectTo       *string     `json:"redirect_to,omitempty"`
	// BumpRedirect increments RedirectVersion, marking a new broadcast.
	BumpRedirect bool `json:"bump_redirect,omitempty"`
}

func (f GameFields) check(g *game.Game) error {
	if f.CurrentStage != nil && !f.CurrentStage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalid, *f.CurrentStage)
	}
	if f.CurrentRound != nil && (*f.CurrentRound < 1 || *f.CurrentRound < g.CurrentRound) {
		return fmt.Errorf("%w: round %d cannot follow round %d", ErrInvalid, *f.CurrentRound, g.CurrentRound)
	}
	if f.TimeLeft != nil && *f.TimeLeft < 0 {
		return fmt.Errorf("%w: negative time left", ErrInvalid)
	}
	return nil
}

func (f GameFields) apply(g *game.Game) {
	if f.CurrentStage != nil {
		g.CurrentStage = *f.CurrentStage
	}
	if f.CurrentRound != nil {
		g.CurrentRound = *f.CurrentRound
	}
	if f.TimerStart != nil {
		g.TimerStart = *f.TimerStart
	}
	if f.TimeLeft != nil {
		g.TimeLeft = *f.TimeLeft
	}
	if f.IsTimerRunning != nil {
		g.IsTimerRunning = *f.IsTimerRunning
	}
	if f.Answers != nil {
		g.Answers = append([]string{}, (*f.Answers)...)
	}
	if f.SubmittedPlayers != nil {
		g.SubmittedPlayers = append([]string{}, (*f.SubmittedPlayers)...)
	}
	if f.Theme != nil {
		g.Theme = *f.Theme
	}
	if f.Prompt != nil {
		g.Prompt = *f.Prompt
	}
	if f.ShouldRedirect != nil {
		g.ShouldRedirect = *f.ShouldRedirect
	}
	if f.RedirectTo != nil {
		g.RedirectTo = *f.RedirectTo
	}
	if f.BumpRedirect {
		g.RedirectVersion++
	}
}

// Expect is an optimistic precondition checked against the stored game
// before any op runs. Zero fields are not checked.
type Expect struct {
	Stage           game.Stage `json:"stage,omitempty"`
	TimerStart      *time.Time `json:"timer_start,omitempty"`
	RoundID         string     `json:"round_id,omitempty"`
	RedirectVersion *int64     `json:"redirect_version,omitempty"`
}

type Tx struct {
	Expect *Expect `json:"expect,omitempty"`
	Ops    []Op    `json:"ops"`
}

func Ptr[T any](value T) *T {
	return &value
}
