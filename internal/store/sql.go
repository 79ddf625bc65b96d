package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"party-rounds/internal/db"
	"party-rounds/internal/game"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL keeps games in Postgres. Transactions lock the game row, so
// concurrent writers to one game are serialized by the database.
type SQL struct {
	db   *gorm.DB
	opts options
}

func NewSQL(conn *gorm.DB, opts ...Option) *SQL {
	return &SQL{db: conn, opts: buildOptions(opts)}
}

func (s *SQL) Hub() *Hub {
	return s.opts.hub
}

func (s *SQL) GenerateID() string {
	return uuid.NewString()
}

func (s *SQL) CreateGame(ctx context.Context, g game.Game, first game.Round) error {
	now := s.opts.clock.Now().UTC()
	first.GameID = g.ID
	if first.CreatedAt.IsZero() {
		first.CreatedAt = now
	}
	g.RoundID = first.ID
	if g.Version == 0 {
		g.Version = 1
	}
	g.UpdatedAt = now
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		record := gameRecord(&g)
		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return err
		}
		round := roundRecord(&first)
		if err := tx.Omit(clause.Associations).Create(&round).Error; err != nil {
			return err
		}
		return insertEvents(tx, g.ID, []Event{
			{Type: EventGameCreated, RoundID: first.ID, CreatedAt: now, Payload: EventPayload{GameCode: g.GameCode}},
			{Type: EventRoundCreated, RoundID: first.ID, CreatedAt: now, Payload: EventPayload{GameCode: g.GameCode, RoundID: first.ID, RoundNumber: first.RoundNumber}},
		})
	})
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	snap := Snapshot{Game: g.Clone(), Round: first.Clone()}
	s.publish(ctx, snap)
	return nil
}

func (s *SQL) Game(ctx context.Context, code string) (*game.Game, error) {
	return loadGame(s.db.WithContext(ctx), code, false)
}

func (s *SQL) Round(ctx context.Context, id string) (*game.Round, error) {
	var record db.Round
	err := s.db.WithContext(ctx).
		Preload("Votes", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("id = ?", id).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return roundFromRecord(record), nil
}

func (s *SQL) Snapshot(ctx context.Context, code string) (Snapshot, error) {
	g, err := s.Game(ctx, code)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{Game: g}
	if g.RoundID != "" {
		round, err := s.Round(ctx, g.RoundID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Snapshot{}, err
		}
		snap.Round = round
	}
	return snap, nil
}

func (s *SQL) ListGames(ctx context.Context) ([]Summary, error) {
	var rows []struct {
		JoinCode     string
		Stage        string
		CurrentRound int
		Players      int
	}
	err := s.db.WithContext(ctx).
		Model(&db.Game{}).
		Select("games.join_code, games.stage, games.current_round, COUNT(players.id) AS players").
		Joins("LEFT JOIN players ON players.game_id = games.id").
		Group("games.id").
		Order("games.updated_at DESC").
		Limit(50).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	list := make([]Summary, 0, len(rows))
	for _, row := range rows {
		list = append(list, Summary{
			GameCode:     row.JoinCode,
			Stage:        game.Stage(row.Stage),
			CurrentRound: row.CurrentRound,
			Players:      row.Players,
		})
	}
	return list, nil
}

func (s *SQL) Events(ctx context.Context, code string) ([]Event, error) {
	g, err := s.Game(ctx, code)
	if err != nil {
		return nil, err
	}
	var records []db.Event
	if err := s.db.WithContext(ctx).Where("game_id = ?", g.ID).Order("id").Find(&records).Error; err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(records))
	for _, record := range records {
		event := Event{Type: record.Type, CreatedAt: record.CreatedAt}
		if record.RoundID != nil {
			event.RoundID = *record.RoundID
		}
		if err := json.Unmarshal(record.Payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("decode event %d: %w", record.ID, err)
		}
		events = append(events, event)
	}
	return events, nil
}

func (s *SQL) Subscribe(ctx context.Context, code string) (<-chan Snapshot, error) {
	snap, err := s.Snapshot(ctx, code)
	if err != nil {
		return nil, err
	}
	ch := s.opts.hub.Subscribe(ctx, code, snap)
	// A commit may have landed between the read and the registration.
	if latest, err := s.Snapshot(ctx, code); err == nil && latest.Game.Version > snap.Game.Version {
		s.opts.hub.Publish(code, latest)
	}
	return ch, nil
}

func (s *SQL) Transact(ctx context.Context, code string, tx Tx) error {
	var snap Snapshot
	committed := false
	err := s.db.WithContext(ctx).Transaction(func(dbtx *gorm.DB) error {
		g, err := loadGame(dbtx, code, true)
		if err != nil {
			return err
		}
		existingPlayers := len(g.Players)
		st := newTxState(g, s.opts.clock.Now().UTC(), func(id string) (*game.Round, error) {
			return loadRound(dbtx, g.ID, id)
		})
		if err := st.apply(tx); err != nil {
			return err
		}
		if !st.changed {
			return nil
		}
		if err := writeBack(dbtx, st, existingPlayers); err != nil {
			return err
		}
		snap = st.snapshot()
		committed = true
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %v", ErrStale, err)
		}
		return err
	}
	if committed {
		s.publish(ctx, snap)
	}
	return nil
}

func (s *SQL) publish(ctx context.Context, snap Snapshot) {
	s.opts.hub.Publish(snap.Game.GameCode, snap)
	if s.opts.notifier == nil {
		return
	}
	if err := s.opts.notifier.Notify(ctx, snap); err != nil {
		log.Warn().Err(err).Str("game_code", snap.Game.GameCode).Msg("change notification failed")
	}
}

func writeBack(tx *gorm.DB, st *txState, existingPlayers int) error {
	g := st.game
	for _, round := range st.created {
		record := roundRecord(round)
		if err := tx.Omit(clause.Associations).Create(&record).Error; err != nil {
			return err
		}
	}
	for id := range st.touched {
		if st.isCreated(id) {
			continue
		}
		round := st.rounds[id]
		updates := map[string]any{
			"answers":           datatypes.JSONSlice[string](round.Answers),
			"submitted_players": datatypes.JSONSlice[string](round.SubmittedPlayers),
			"updated_at":        st.now,
		}
		if err := tx.Model(&db.Round{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
	}
	for roundID, votes := range st.votes {
		for _, vote := range votes {
			record := db.Vote{
				RoundID:   roundID,
				PlayerID:  vote.PlayerID,
				Choice:    vote.Choice,
				CreatedAt: st.now,
			}
			if err := tx.Create(&record).Error; err != nil {
				return err
			}
		}
	}
	for i, player := range st.players {
		record := db.Player{
			ID:       player.ID,
			GameID:   g.ID,
			Name:     player.Name,
			Position: existingPlayers + i,
			JoinedAt: st.now,
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	if err := tx.Model(&db.Game{}).Where("id = ?", g.ID).Updates(gameUpdates(g)).Error; err != nil {
		return err
	}
	return insertEvents(tx, g.ID, st.events)
}

func loadGame(conn *gorm.DB, code string, lock bool) (*game.Game, error) {
	query := conn.Where("join_code = ?", code)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var record db.Game
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var players []db.Player
	if err := conn.Where("game_id = ?", record.ID).Order("position").Find(&players).Error; err != nil {
		return nil, err
	}
	return gameFromRecord(record, players), nil
}

func loadRound(conn *gorm.DB, gameID, id string) (*game.Round, error) {
	var record db.Round
	err := conn.
		Preload("Votes", func(tx *gorm.DB) *gorm.DB { return tx.Order("id") }).
		Where("id = ? AND game_id = ?", id, gameID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: round %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return roundFromRecord(record), nil
}

func insertEvents(tx *gorm.DB, gameID string, events []Event) error {
	for _, event := range events {
		data, err := json.Marshal(event.Payload)
		if err != nil {
			return err
		}
		record := db.Event{
			GameID:    gameID,
			Type:      event.Type,
			Payload:   datatypes.JSON(data),
			CreatedAt: event.CreatedAt,
		}
		if event.RoundID != "" {
			roundID := event.RoundID
			record.RoundID = &roundID
		}
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
