package db

import (
	"time"

	"gorm.io/datatypes"
)

type Game struct {
	ID               string                      `gorm:"primaryKey;size:36"`
	JoinCode         string                      `gorm:"size:12;uniqueIndex;not null"`
	Stage            string                      `gorm:"size:16;not null"`
	CurrentRound     int                         `gorm:"not null;default:1"`
	RoundID          *string                     `gorm:"size:36"`
	TimerStart       time.Time                   `gorm:"not null"`
	TimeLeft         int                         `gorm:"not null;default:0"`
	TimerRunning     bool                        `gorm:"not null;default:false"`
	Answers          datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	SubmittedPlayers datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Theme            string                      `gorm:"size:140;not null;default:''"`
	Prompt           string                      `gorm:"size:140;not null;default:''"`
	ShouldRedirect   bool                        `gorm:"not null;default:false"`
	RedirectTo       string                      `gorm:"size:200;not null;default:''"`
	RedirectVersion  int64                       `gorm:"not null;default:0"`
	Version          int64                       `gorm:"not null;default:0"`
	CreatedAt        time.Time                   `gorm:"not null"`
	UpdatedAt        time.Time                   `gorm:"not null"`
	Players          []Player
	Rounds           []Round
	Events           []Event
}

type Player struct {
	ID        string    `gorm:"primaryKey;size:64"`
	GameID    string    `gorm:"size:36;index;not null;uniqueIndex:idx_players_game_name"`
	Name      string    `gorm:"size:64;not null;uniqueIndex:idx_players_game_name"`
	Position  int       `gorm:"not null;default:0"`
	JoinedAt  time.Time `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Round struct {
	ID               string                      `gorm:"primaryKey;size:36"`
	GameID           string                      `gorm:"size:36;index;not null;uniqueIndex:idx_rounds_game_number"`
	Number           int                         `gorm:"not null;uniqueIndex:idx_rounds_game_number"`
	Answers          datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	SubmittedPlayers datatypes.JSONSlice[string] `gorm:"type:jsonb;not null"`
	Theme            string                      `gorm:"size:140;not null;default:''"`
	Prompt           string                      `gorm:"size:140;not null;default:''"`
	CreatedAt        time.Time                   `gorm:"not null"`
	UpdatedAt        time.Time                   `gorm:"not null"`
	Votes            []Vote
}

type Vote struct {
	ID        uint      `gorm:"primaryKey"`
	RoundID   string    `gorm:"size:36;index;not null;uniqueIndex:idx_votes_round_player"`
	PlayerID  string    `gorm:"size:64;not null;uniqueIndex:idx_votes_round_player"`
	Choice    string    `gorm:"size:140;not null;default:''"`
	CreatedAt time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	GameID    string         `gorm:"size:36;index;not null"`
	RoundID   *string        `gorm:"size:36;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type PromptLibrary struct {
	ID        uint      `gorm:"primaryKey"`
	Theme     string    `gorm:"size:140;not null;uniqueIndex:idx_prompt_library_theme_text"`
	Text      string    `gorm:"size:140;not null;uniqueIndex:idx_prompt_library_theme_text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
