package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"party-rounds/internal/game"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Memory is a process-local store. All mutation happens under one lock, so
// a transaction is observed by subscribers all at once or not at all.
type Memory struct {
	mu      sync.Mutex
	games   map[string]*game.Game
	rounds  map[string]*game.Round
	numbers map[string]map[int]string
	events  map[string][]Event
	opts    options
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{
		games:   make(map[string]*game.Game),
		rounds:  make(map[string]*game.Round),
		numbers: make(map[string]map[int]string),
		events:  make(map[string][]Event),
		opts:    buildOptions(opts),
	}
}

func (m *Memory) Hub() *Hub {
	return m.opts.hub
}

func (m *Memory) GenerateID() string {
	return uuid.NewString()
}

func (m *Memory) CreateGame(ctx context.Context, g game.Game, first game.Round) error {
	if g.ID == "" || g.GameCode == "" || first.ID == "" {
		return fmt.Errorf("game id, code and first round id are required")
	}
	now := m.opts.clock.Now().UTC()

	m.mu.Lock()
	if _, exists := m.games[g.GameCode]; exists {
		m.mu.Unlock()
		return ErrDuplicate
	}
	created := g.Clone()
	round := first.Clone()
	round.GameID = created.ID
	if round.CreatedAt.IsZero() {
		round.CreatedAt = now
	}
	created.RoundID = round.ID
	if created.Version == 0 {
		created.Version = 1
	}
	created.UpdatedAt = now
	m.games[created.GameCode] = created
	m.rounds[round.ID] = round
	m.numbers[created.ID] = map[int]string{round.RoundNumber: round.ID}
	m.events[created.GameCode] = append(m.events[created.GameCode],
		Event{Type: EventGameCreated, RoundID: round.ID, CreatedAt: now, Payload: EventPayload{GameCode: created.GameCode}},
		Event{Type: EventRoundCreated, RoundID: round.ID, CreatedAt: now, Payload: EventPayload{GameCode: created.GameCode, RoundID: round.ID, RoundNumber: round.RoundNumber}},
	)
	snap := Snapshot{Game: created.Clone(), Round: round.Clone()}
	m.opts.hub.Publish(created.GameCode, snap)
	m.mu.Unlock()

	m.notify(ctx, snap)
	return nil
}

func (m *Memory) Game(ctx context.Context, code string) (*game.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[code]
	if !ok {
		return nil, ErrNotFound
	}
	return g.Clone(), nil
}

func (m *Memory) Round(ctx context.Context, id string) (*game.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	round, ok := m.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return round.Clone(), nil
}

func (m *Memory) Snapshot(ctx context.Context, code string) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked(code)
}

func (m *Memory) ListGames(ctx context.Context) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := make([]Summary, 0, len(m.games))
	for _, g := range m.games {
		list = append(list, Summary{
			GameCode:     g.GameCode,
			Stage:        g.CurrentStage,
			CurrentRound: g.RoundNumber(),
			Players:      len(g.Players),
		})
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].GameCode < list[j].GameCode
	})
	return list, nil
}

func (m *Memory) Events(ctx context.Context, code string) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.games[code]; !ok {
		return nil, ErrNotFound
	}
	return append([]Event(nil), m.events[code]...), nil
}

func (m *Memory) Subscribe(ctx context.Context, code string) (<-chan Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, err := m.snapshotLocked(code)
	if err != nil {
		return nil, err
	}
	return m.opts.hub.Subscribe(ctx, code, snap), nil
}

func (m *Memory) Transact(ctx context.Context, code string, tx Tx) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	stored, ok := m.games[code]
	if !ok {
		m.mu.Unlock()
		return ErrNotFound
	}
	st := newTxState(stored.Clone(), m.opts.clock.Now().UTC(), func(id string) (*game.Round, error) {
		round, ok := m.rounds[id]
		if !ok || round.GameID != stored.ID {
			return nil, fmt.Errorf("%w: round %s", ErrNotFound, id)
		}
		return round.Clone(), nil
	})
	if err := st.apply(tx); err != nil {
		m.mu.Unlock()
		return err
	}
	if !st.changed {
		m.mu.Unlock()
		return nil
	}
	numbers := m.numbers[stored.ID]
	for _, round := range st.created {
		if taken, exists := numbers[round.RoundNumber]; exists && taken != round.ID {
			m.mu.Unlock()
			return fmt.Errorf("%w: round %d already exists", ErrStale, round.RoundNumber)
		}
	}

	if numbers == nil {
		numbers = make(map[int]string)
		m.numbers[stored.ID] = numbers
	}
	for _, round := range st.created {
		numbers[round.RoundNumber] = round.ID
	}
	for id, round := range st.rounds {
		if _, touched := st.touched[id]; touched || st.isCreated(id) {
			m.rounds[id] = round
		}
	}
	m.games[code] = st.game
	m.events[code] = append(m.events[code], st.events...)
	snap, _ := m.snapshotLocked(code)
	m.opts.hub.Publish(code, snap)
	m.mu.Unlock()

	m.notify(ctx, snap)
	return nil
}

func (m *Memory) snapshotLocked(code string) (Snapshot, error) {
	g, ok := m.games[code]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap := Snapshot{Game: g.Clone()}
	if round, ok := m.rounds[g.RoundID]; ok {
		snap.Round = round.Clone()
	}
	return snap, nil
}

func (m *Memory) notify(ctx context.Context, snap Snapshot) {
	if m.opts.notifier == nil {
		return
	}
	if err := m.opts.notifier.Notify(ctx, snap); err != nil {
		log.Warn().Err(err).Str("game_code", snap.Game.GameCode).Msg("change notification failed")
	}
}
