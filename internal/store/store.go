// Package store holds the shared Game and Round records and applies
// multi-operation transactions to them atomically.
package store

import (
	"context"
	"errors"

	"party-rounds/internal/game"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate game code")

	// ErrStale means a transaction precondition no longer holds: another
	// writer got there first.
	ErrStale = errors.New("stale transaction")

	// ErrInvalid marks a transaction the game rules reject.
	ErrInvalid = errors.New("invalid transaction")
)

type Snapshot struct {
	Game  *game.Game  `json:"game"`
	Round *game.Round `json:"round,omitempty"`
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{Game: s.Game.Clone(), Round: s.Round.Clone()}
}

type Summary struct {
	GameCode     string     `json:"game_code"`
	Stage        game.Stage `json:"stage"`
	CurrentRound int        `json:"current_round"`
	Players      int        `json:"players"`
}

type Store interface {
	CreateGame(ctx context.Context, g game.Game, first game.Round) error
	Game(ctx context.Context, code string) (*game.Game, error)
	Round(ctx context.Context, id string) (*game.Round, error)
	Snapshot(ctx context.Context, code string) (Snapshot, error)
	ListGames(ctx context.Context) ([]Summary, error)
	Events(ctx context.Context, code string) ([]Event, error)
	Subscribe(ctx context.Context, code string) (<-chan Snapshot, error)
	Transact(ctx context.Context, code string, tx Tx) error
	GenerateID() string
}

// Notifier receives every committed snapshot after local subscribers.
type Notifier interface {
	Notify(ctx context.Context, snap Snapshot) error
}
