package store

import (
	"party-rounds/internal/db"
	"party-rounds/internal/game"

	"gorm.io/datatypes"
)

func gameFromRecord(record db.Game, players []db.Player) *game.Game {
	g := &game.Game{
		ID:               record.ID,
		GameCode:         record.JoinCode,
		CurrentStage:     game.Stage(record.Stage),
		CurrentRound:     record.CurrentRound,
		TimerStart:       record.TimerStart.UTC(),
		TimeLeft:         record.TimeLeft,
		IsTimerRunning:   record.TimerRunning,
		Answers:          append([]string{}, record.Answers...),
		SubmittedPlayers: append([]string{}, record.SubmittedPlayers...),
		Theme:            record.Theme,
		Prompt:           record.Prompt,
		Players:          make([]game.Player, 0, len(players)),
		ShouldRedirect:   record.ShouldRedirect,
		RedirectTo:       record.RedirectTo,
		RedirectVersion:  record.RedirectVersion,
		Version:          record.Version,
		UpdatedAt:        record.UpdatedAt.UTC(),
	}
	if record.RoundID != nil {
		g.RoundID = *record.RoundID
	}
	for _, player := range players {
		g.Players = append(g.Players, game.Player{ID: player.ID, Name: player.Name})
	}
	return g
}

func gameRecord(g *game.Game) db.Game {
	record := db.Game{
		ID:               g.ID,
		JoinCode:         g.GameCode,
		Stage:            string(g.CurrentStage),
		CurrentRound:     g.CurrentRound,
		TimerStart:       g.TimerStart,
		TimeLeft:         g.TimeLeft,
		TimerRunning:     g.IsTimerRunning,
		Answers:          datatypes.JSONSlice[string](nonNil(g.Answers)),
		SubmittedPlayers: datatypes.JSONSlice[string](nonNil(g.SubmittedPlayers)),
		Theme:            g.Theme,
		Prompt:           g.Prompt,
		ShouldRedirect:   g.ShouldRedirect,
		RedirectTo:       g.RedirectTo,
		RedirectVersion:  g.RedirectVersion,
		Version:          g.Version,
		UpdatedAt:        g.UpdatedAt,
	}
	if g.RoundID != "" {
		roundID := g.RoundID
		record.RoundID = &roundID
	}
	return record
}

// gameUpdates lists every mutable column so zero values are written too.
func gameUpdates(g *game.Game) map[string]any {
	var roundID any
	if g.RoundID != "" {
		roundID = g.RoundID
	}
	return map[string]any{
		"stage":             string(g.CurrentStage),
		"current_round":     g.CurrentRound,
		"round_id":          roundID,
		"timer_start":       g.TimerStart,
		"time_left":         g.TimeLeft,
		"timer_running":     g.IsTimerRunning,
		"answers":           datatypes.JSONSlice[string](nonNil(g.Answers)),
		"submitted_players": datatypes.JSONSlice[string](nonNil(g.SubmittedPlayers)),
		"theme":             g.Theme,
		"prompt":            g.Prompt,
		"should_redirect":   g.ShouldRedirect,
		"redirect_to":       g.RedirectTo,
		"redirect_version":  g.RedirectVersion,
		"version":           g.Version,
		"updated_at":        g.UpdatedAt,
	}
}

func roundFromRecord(record db.Round) *game.Round {
	round := &game.Round{
		ID:               record.ID,
		GameID:           record.GameID,
		RoundNumber:      record.Number,
		Answers:          append([]string{}, record.Answers...),
		SubmittedPlayers: append([]string{}, record.SubmittedPlayers...),
		Votes:            make([]game.Vote, 0, len(record.Votes)),
		Theme:            record.Theme,
		Prompt:           record.Prompt,
		CreatedAt:        record.CreatedAt.UTC(),
	}
	for _, vote := range record.Votes {
		round.Votes = append(round.Votes, game.Vote{PlayerID: vote.PlayerID, Choice: vote.Choice})
	}
	return round
}

func roundRecord(round *game.Round) db.Round {
	return db.Round{
		ID:               round.ID,
		GameID:           round.GameID,
		Number:           round.RoundNumber,
		Answers:          datatypes.JSONSlice[string](nonNil(round.Answers)),
		SubmittedPlayers: datatypes.JSONSlice[string](nonNil(round.SubmittedPlayers)),
		Theme:            round.Theme,
		Prompt:           round.Prompt,
		CreatedAt:        round.CreatedAt,
		UpdatedAt:        round.CreatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
