package rounds

import (
	"context"

	"party-rounds/internal/game"

	"github.com/jonboulle/clockwork"
)

// ContentSource supplies theme and prompt for new games created without one.
type ContentSource interface {
	RandomContent(ctx context.Context) (game.Content, bool, error)
}

type Option func(*Manager)

func WithClock(clock clockwork.Clock) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithStages(stages game.StageTable) Option {
	return func(m *Manager) {
		m.stages = stages
	}
}

// WithFallback sets the content used when a game carries no theme or prompt.
func WithFallback(content game.Content) Option {
	return func(m *Manager) {
		if content.Theme != "" {
			m.fallback.Theme = content.Theme
		}
		if content.Prompt != "" {
			m.fallback.Prompt = content.Prompt
		}
	}
}

func WithContentSource(source ContentSource) Option {
	return func(m *Manager) {
		m.content = source
	}
}
