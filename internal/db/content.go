package db

import (
	"context"

	"party-rounds/internal/game"

	"gorm.io/gorm"
)

// PromptSource hands out random theme/prompt pairs from the prompt library.
type PromptSource struct {
	conn *gorm.DB
}

func NewPromptSource(conn *gorm.DB) *PromptSource {
	return &PromptSource{conn: conn}
}

func (p *PromptSource) RandomContent(ctx context.Context) (game.Content, bool, error) {
	entry, ok, err := RandomPrompt(ctx, p.conn)
	if err != nil || !ok {
		return game.Content{}, false, err
	}
	return game.Content{Theme: entry.Theme, Prompt: entry.Text}, true, nil
}
