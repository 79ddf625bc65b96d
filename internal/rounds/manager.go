// Package rounds drives a game through its stages. Every client may call
// into it redundantly; optimistic preconditions make sure only the first
// writer of a transition wins.
package rounds

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const maxCodeAttempts = 8

// Store is the part of a round store the manager writes through.
type Store interface {
	Game(ctx context.Context, code string) (*game.Game, error)
	Transact(ctx context.Context, code string, tx store.Tx) error
	GenerateID() string
}

// GameCreator is implemented by stores that can create games.
type GameCreator interface {
	CreateGame(ctx context.Context, g game.Game, first game.Round) error
}

type Manager struct {
	store    Store
	clock    clockwork.Clock
	stages   game.StageTable
	fallback game.Content
	content  ContentSource
}

// Outcome describes what a completion attempt did. Advanced is false when
// another writer completed the stage first.
type Outcome struct {
	From     game.Stage
	To       game.Stage
	RoundID  string
	Advanced bool
	Redirect bool
}

func NewManager(s Store, opts ...Option) *Manager {
	m := &Manager{
		store:    s,
		clock:    clockwork.NewRealClock(),
		stages:   game.DefaultStageTable(),
		fallback: game.DefaultContent(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Stages() game.StageTable {
	return m.stages
}

func (m *Manager) Clock() clockwork.Clock {
	return m.clock
}

// now is truncated so timestamps survive storage and JSON round trips
// unchanged and still match in preconditions.
func (m *Manager) now() time.Time {
	return m.clock.Now().UTC().Truncate(time.Millisecond)
}

// CreateGame starts a new game in PREP with its first round linked.
func (m *Manager) CreateGame(ctx context.Context, content game.Content) (*game.Game, error) {
	creator, ok := m.store.(GameCreator)
	if !ok {
		return nil, errors.New("store cannot create games")
	}
	content = m.resolveContent(ctx, content)
	now := m.now()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		g := game.Game{
			ID:               m.store.GenerateID(),
			GameCode:         game.NewJoinCode(),
			CurrentStage:     game.StagePrep,
			CurrentRound:     1,
			TimerStart:       now,
			TimeLeft:         m.stages.Seconds(game.StagePrep),
			IsTimerRunning:   true,
			Answers:          []string{},
			SubmittedPlayers: []string{},
			Theme:            content.Theme,
			Prompt:           content.Prompt,
			Players:          []game.Player{},
		}
		first := game.Round{
			ID:               m.store.GenerateID(),
			GameID:           g.ID,
			RoundNumber:      1,
			Answers:          []string{},
			SubmittedPlayers: []string{},
			Votes:            []game.Vote{},
			Theme:            content.Theme,
			Prompt:           content.Prompt,
			CreatedAt:        now,
		}
		err := creator.CreateGame(ctx, g, first)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create game: %w", err)
		}
		log.Info().Str("game_code", g.GameCode).Str("round_id", first.ID).Msg("game created")
		return m.store.Game(ctx, g.GameCode)
	}
	return nil, errors.New("could not allocate a join code")
}

func (m *Manager) resolveContent(ctx context.Context, content game.Content) game.Content {
	content.Theme = strings.TrimSpace(content.Theme)
	content.Prompt = strings.TrimSpace(content.Prompt)
	if content.Theme == "" && content.Prompt == "" && m.content != nil {
		picked, ok, err := m.content.RandomContent(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("prompt library lookup failed")
		} else if ok {
			content = picked
		}
	}
	if content.Theme == "" {
		content.Theme = m.fallback.Theme
	}
	if content.Prompt == "" {
		content.Prompt = m.fallback.Prompt
	}
	return content
}

// Join adds a player to the game. A name already taken in the game returns
// the existing player.
func (m *Manager) Join(ctx context.Context, code, name string) (game.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return game.Player{}, errors.New("name is required")
	}
	player := game.Player{ID: m.store.GenerateID(), Name: name}
	if err := m.store.Transact(ctx, code, store.Tx{Ops: []store.Op{store.AddPlayer(player)}}); err != nil {
		return game.Player{}, err
	}
	g, err := m.store.Game(ctx, code)
	if err != nil {
		return game.Player{}, err
	}
	for _, existing := range g.Players {
		if strings.EqualFold(existing.Name, name) {
			return existing, nil
		}
	}
	return game.Player{}, fmt.Errorf("player %q missing after join", name)
}

// CompleteStage moves g to its next stage. g is the state the caller
// observed; if the stored game has moved on the call is a no-op.
func (m *Manager) CompleteStage(ctx context.Context, g *game.Game) (Outcome, error) {
	if g == nil {
		return Outcome{}, errors.New("game is required")
	}
	to := game.Advance(g.CurrentStage)
	var roundID string
	if game.StartsNewRound(g.CurrentStage, to) {
		roundID = m.store.GenerateID()
	}
	plan := PlanCompletion(g, m.stages, m.fallback, m.now(), roundID)
	outcome := Outcome{From: plan.From, To: plan.To, RoundID: plan.RoundID}

	if err := m.store.Transact(ctx, g.GameCode, plan.Advance); err != nil {
		if errors.Is(err, store.ErrStale) {
			return outcome, nil
		}
		return outcome, fmt.Errorf("complete %s: %w", plan.From, err)
	}
	outcome.Advanced = true
	log.Info().
		Str("game_code", g.GameCode).
		Str("from", string(plan.From)).
		Str("to", string(plan.To)).
		Msg("stage completed")

	if plan.Redirect == nil {
		return outcome, nil
	}
	if err := m.store.Transact(ctx, g.GameCode, *plan.Redirect); err != nil {
		if errors.Is(err, store.ErrStale) {
			return outcome, nil
		}
		return outcome, fmt.Errorf("redirect to round %s: %w", plan.RoundID, err)
	}
	outcome.Redirect = true
	log.Info().Str("game_code", g.GameCode).Str("round_id", plan.RoundID).Msg("redirect issued")
	return outcome, nil
}

// Advance completes the stage of the stored game if it still matches
// expect. It backs explicit completion requests from remote clients.
func (m *Manager) Advance(ctx context.Context, code string, expect store.Expect) (Outcome, error) {
	g, err := m.store.Game(ctx, code)
	if err != nil {
		return Outcome{}, err
	}
	if expect.Stage != "" && g.CurrentStage != expect.Stage {
		return Outcome{From: expect.Stage}, nil
	}
	if expect.TimerStart != nil && !g.TimerStart.Equal(*expect.TimerStart) {
		return Outcome{From: expect.Stage}, nil
	}
	return m.CompleteStage(ctx, g)
}

// SubmitAnswer records a player's answer for the current round. Blank
// answers are ignored and report false.
func (m *Manager) SubmitAnswer(ctx context.Context, code, playerID, answer string) (bool, error) {
	if _, ok := game.NormalizeAnswer(answer); !ok {
		return false, nil
	}
	if playerID == "" {
		return false, errors.New("player id is required")
	}
	tx := store.Tx{Ops: []store.Op{store.AppendAnswer(playerID, answer)}}
	if err := m.store.Transact(ctx, code, tx); err != nil {
		return false, fmt.Errorf("submit answer: %w", err)
	}
	return true, nil
}

// CastVote records a vote on the current round and then tries to close
// VOTING right away. Votes outside VOTING are dropped.
func (m *Manager) CastVote(ctx context.Context, g *game.Game, playerID, choice string) (Outcome, error) {
	if g == nil {
		return Outcome{}, errors.New("game is required")
	}
	if playerID == "" {
		return Outcome{}, errors.New("player id is required")
	}
	if g.CurrentStage != game.StageVoting {
		return Outcome{From: g.CurrentStage}, nil
	}
	tx := store.Tx{
		Expect: &store.Expect{Stage: game.StageVoting, TimerStart: store.Ptr(g.TimerStart)},
		Ops:    []store.Op{store.AppendVote(playerID, choice)},
	}
	if err := m.store.Transact(ctx, g.GameCode, tx); err != nil {
		if errors.Is(err, store.ErrStale) {
			return Outcome{From: g.CurrentStage}, nil
		}
		return Outcome{}, fmt.Errorf("cast vote: %w", err)
	}
	return m.CompleteStage(ctx, g)
}

// ClearRedirect lowers the redirect flag if it still belongs to version.
// A newer redirect is left in place.
func (m *Manager) ClearRedirect(ctx context.Context, code string, version int64) error {
	tx := store.Tx{
		Expect: &store.Expect{RedirectVersion: store.Ptr(version)},
		Ops: []store.Op{store.UpdateGame(store.GameFields{
			ShouldRedirect: store.Ptr(false),
			RedirectTo:     store.Ptr(""),
		})},
	}
	err := m.store.Transact(ctx, code, tx)
	if errors.Is(err, store.ErrStale) {
		return nil
	}
	return err
}
