package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"party-rounds/internal/game"
)

const maxPlayerIDLength = 64

type txState struct {
	game    *game.Game
	now     time.Time
	load    func(id string) (*game.Round, error)
	rounds  map[string]*game.Round
	created []*game.Round
	touched map[string]struct{}
	players []game.Player
	votes   map[string][]game.Vote
	events  []Event
	changed bool
}

func newTxState(g *game.Game, now time.Time, load func(id string) (*game.Round, error)) *txState {
	return &txState{
		game:    g,
		now:     now,
		load:    load,
		rounds:  make(map[string]*game.Round),
		touched: make(map[string]struct{}),
		votes:   make(map[string][]game.Vote),
	}
}

func (x *Expect) check(g *game.Game) error {
	if x == nil {
		return nil
	}
	if x.Stage != "" && g.CurrentStage != x.Stage {
		return fmt.Errorf("%w: stage is %s, expected %s", ErrStale, g.CurrentStage, x.Stage)
	}
	if x.TimerStart != nil && !g.TimerStart.Equal(*x.TimerStart) {
		return fmt.Errorf("%w: timer restarted", ErrStale)
	}
	if x.RoundID != "" && g.RoundID != x.RoundID {
		return fmt.Errorf("%w: round is %s, expected %s", ErrStale, g.RoundID, x.RoundID)
	}
	if x.RedirectVersion != nil && g.RedirectVersion != *x.RedirectVersion {
		return fmt.Errorf("%w: redirect version is %d, expected %d", ErrStale, g.RedirectVersion, *x.RedirectVersion)
	}
	return nil
}

func (st *txState) apply(tx Tx) error {
	if len(tx.Ops) == 0 {
		return fmt.Errorf("%w: no ops", ErrInvalid)
	}
	if err := tx.Expect.check(st.game); err != nil {
		return err
	}
	before := *st.game
	for i, op := range tx.Ops {
		if err := st.applyOp(op); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
	}
	if !st.changed {
		return nil
	}
	st.game.Version++
	st.game.UpdatedAt = st.now
	st.recordTransitions(before)
	return nil
}

func (st *txState) applyOp(op Op) error {
	switch op.Kind {
	case OpCreateRound:
		return st.createRound(op.Round)
	case OpUpdateGame:
		if op.Fields == nil {
			return fmt.Errorf("%w: missing fields", ErrInvalid)
		}
		if err := op.Fields.check(st.game); err != nil {
			return err
		}
		op.Fields.apply(st.game)
		st.changed = true
		return nil
	case OpLinkRound:
		if _, err := st.round(op.RoundID); err != nil {
			return err
		}
		st.game.RoundID = op.RoundID
		st.changed = true
		return nil
	case OpAddPlayer:
		return st.addPlayer(op.Player)
	case OpAppendAnswer:
		return st.appendAnswer(op.PlayerID, op.Answer)
	case OpAppendVote:
		return st.appendVote(op.PlayerID, op.Choice)
	default:
		return fmt.Errorf("%w: unknown op kind %q", ErrInvalid, op.Kind)
	}
}

func (st *txState) createRound(round *game.Round) error {
	if round == nil || round.ID == "" {
		return fmt.Errorf("%w: round id is required", ErrInvalid)
	}
	if _, err := st.round(round.ID); err == nil {
		return fmt.Errorf("%w: round %s already exists", ErrStale, round.ID)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	created := round.Clone()
	created.GameID = st.game.ID
	if created.CreatedAt.IsZero() {
		created.CreatedAt = st.now
	}
	st.rounds[created.ID] = created
	st.created = append(st.created, created)
	st.changed = true
	st.events = append(st.events, Event{
		Type:      EventRoundCreated,
		RoundID:   created.ID,
		CreatedAt: st.now,
		Payload: EventPayload{
			GameCode:    st.game.GameCode,
			RoundID:     created.ID,
			RoundNumber: created.RoundNumber,
		},
	})
	return nil
}

func (st *txState) addPlayer(player *game.Player) error {
	if player == nil || player.ID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalid)
	}
	if len(player.ID) > maxPlayerIDLength {
		return fmt.Errorf("%w: player id longer than %d bytes", ErrInvalid, maxPlayerIDLength)
	}
	name := strings.TrimSpace(player.Name)
	if name == "" {
		return fmt.Errorf("%w: player name is required", ErrInvalid)
	}
	for _, existing := range st.game.Players {
		if existing.ID == player.ID || strings.EqualFold(existing.Name, name) {
			return nil
		}
	}
	added := game.Player{ID: player.ID, Name: name}
	st.game.Players = append(st.game.Players, added)
	st.players = append(st.players, added)
	st.changed = true
	st.events = append(st.events, Event{
		Type:      EventPlayerJoined,
		CreatedAt: st.now,
		Payload: EventPayload{
			GameCode:   st.game.GameCode,
			PlayerID:   added.ID,
			PlayerName: added.Name,
		},
	})
	return nil
}

func (st *txState) appendAnswer(playerID, answer string) error {
	if err := st.requirePlayer(playerID); err != nil {
		return err
	}
	if game.AnswerTooLong(answer) {
		return fmt.Errorf("%w: %w", ErrInvalid, game.ErrAnswerTooLong)
	}
	text, ok := game.NormalizeAnswer(answer)
	if !ok || st.game.HasSubmitted(playerID) {
		return nil
	}
	st.game.Answers = append(st.game.Answers, text)
	st.game.SubmittedPlayers = append(st.game.SubmittedPlayers, playerID)
	if st.game.RoundID != "" {
		round, err := st.round(st.game.RoundID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if round != nil {
			round.Answers = append(round.Answers, text)
			round.SubmittedPlayers = append(round.SubmittedPlayers, playerID)
			st.touched[round.ID] = struct{}{}
		}
	}
	st.changed = true
	st.events = append(st.events, Event{
		Type:      EventAnswerSubmitted,
		RoundID:   st.game.RoundID,
		CreatedAt: st.now,
		Payload: EventPayload{
			GameCode:    st.game.GameCode,
			PlayerID:    playerID,
			RoundNumber: st.game.RoundNumber(),
		},
	})
	return nil
}

func (st *txState) appendVote(playerID, choice string) error {
	if err := st.requirePlayer(playerID); err != nil {
		return err
	}
	if st.game.RoundID == "" {
		return fmt.Errorf("%w: game has no round", ErrNotFound)
	}
	round, err := st.round(st.game.RoundID)
	if err != nil {
		return err
	}
	if round.HasVoted(playerID) {
		return nil
	}
	vote := game.Vote{PlayerID: playerID, Choice: strings.TrimSpace(choice)}
	round.Votes = append(round.Votes, vote)
	st.votes[round.ID] = append(st.votes[round.ID], vote)
	st.touched[round.ID] = struct{}{}
	st.changed = true
	st.events = append(st.events, Event{
		Type:      EventVoteCast,
		RoundID:   round.ID,
		CreatedAt: st.now,
		Payload: EventPayload{
			GameCode:    st.game.GameCode,
			PlayerID:    playerID,
			RoundNumber: round.RoundNumber,
		},
	})
	return nil
}

func (st *txState) requirePlayer(playerID string) error {
	if playerID == "" {
		return fmt.Errorf("%w: player id is required", ErrInvalid)
	}
	if _, ok := st.game.FindPlayer(playerID); !ok {
		return fmt.Errorf("%w: unknown player %s", ErrInvalid, playerID)
	}
	return nil
}

func (st *txState) round(id string) (*game.Round, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: round id is empty", ErrNotFound)
	}
	if round, ok := st.rounds[id]; ok {
		return round, nil
	}
	round, err := st.load(id)
	if err != nil {
		return nil, err
	}
	st.rounds[id] = round
	return round, nil
}

func (st *txState) isCreated(id string) bool {
	for _, round := range st.created {
		if round.ID == id {
			return true
		}
	}
	return false
}

func (st *txState) recordTransitions(before game.Game) {
	after := st.game
	if before.CurrentStage != after.CurrentStage {
		st.events = append(st.events, Event{
			Type:      EventStageAdvanced,
			RoundID:   after.RoundID,
			CreatedAt: st.now,
			Payload: EventPayload{
				GameCode:    after.GameCode,
				From:        string(before.CurrentStage),
				To:          string(after.CurrentStage),
				RoundNumber: after.RoundNumber(),
			},
		})
	}
	if after.RedirectVersion > before.RedirectVersion {
		st.events = append(st.events, Event{
			Type:      EventRedirectIssued,
			RoundID:   after.RoundID,
			CreatedAt: st.now,
			Payload: EventPayload{
				GameCode:   after.GameCode,
				RedirectTo: after.RedirectTo,
				Version:    after.RedirectVersion,
			},
		})
	}
	if before.ShouldRedirect && !after.ShouldRedirect {
		st.events = append(st.events, Event{
			Type:      EventRedirectCleared,
			RoundID:   after.RoundID,
			CreatedAt: st.now,
			Payload: EventPayload{
				GameCode: after.GameCode,
				Version:  after.RedirectVersion,
			},
		})
	}
}

func (st *txState) snapshot() Snapshot {
	snap := Snapshot{Game: st.game.Clone()}
	if st.game.RoundID != "" {
		if round, err := st.round(st.game.RoundID); err == nil {
			snap.Round = round.Clone()
		}
	}
	return snap
}
