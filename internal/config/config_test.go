package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"party-rounds/internal/game"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, game.DefaultStageTable(), cfg.Stages)
	assert.Equal(t, game.DefaultContent(), cfg.Fallback())
	assert.True(t, cfg.ServerTimers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("GAME_SECONDS", "45")
	t.Setenv("VOTING_SECONDS", "-3")
	t.Setenv("FALLBACK_PROMPT", "Parrots")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("SERVER_TIMERS", "false")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "120")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 45, cfg.Stages.Game)
	assert.Equal(t, 15, cfg.Stages.Voting)
	assert.Equal(t, "Parrots", cfg.Fallback().Prompt)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.ServerTimers)
	assert.Equal(t, float64(120), cfg.Pool().ConnMaxLifetime.Seconds())
}

func TestLoadRejectsOverlongFallback(t *testing.T) {
	t.Setenv("FALLBACK_THEME", strings.Repeat("t", maxFallbackLength+1))
	t.Setenv("FALLBACK_PROMPT", "  "+strings.Repeat("p", maxFallbackLength)+"  ")

	cfg := Load()
	assert.Equal(t, game.DefaultTheme, cfg.FallbackTheme)
	assert.Equal(t, strings.Repeat("p", maxFallbackLength), cfg.FallbackPrompt)
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), ".env")))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PARTY_ROUNDS_A=file\nPARTY_ROUNDS_B=file\n"), 0o600))
	t.Setenv("PARTY_ROUNDS_A", "env")
	t.Setenv("PARTY_ROUNDS_B", "")
	require.NoError(t, os.Unsetenv("PARTY_ROUNDS_B"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "env", os.Getenv("PARTY_ROUNDS_A"))
	assert.Equal(t, "file", os.Getenv("PARTY_ROUNDS_B"))
}

func TestLoadStages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stages.yaml")
	require.NoError(t, os.WriteFile(path, []byte("game: 60\nresults: 0\n"), 0o600))

	stages, err := LoadStages(path, game.DefaultStageTable())
	require.NoError(t, err)
	assert.Equal(t, game.StageTable{Prep: 5, Game: 60, Voting: 15, Results: 10}, stages)

	require.NoError(t, os.WriteFile(path, []byte("voting: -1\n"), 0o600))
	_, err = LoadStages(path, game.DefaultStageTable())
	assert.Error(t, err)

	_, err = LoadStages(filepath.Join(t.TempDir(), "missing.yaml"), game.DefaultStageTable())
	assert.Error(t, err)

	cfg := Default()
	require.NoError(t, os.WriteFile(path, []byte("prep: 3\n"), 0o600))
	cfg.StagesFile = path
	require.NoError(t, ApplyStagesFile(&cfg))
	assert.Equal(t, 3, cfg.Stages.Prep)
}

func TestSetupLoggingJSON(t *testing.T) {
	previous := log.Logger
	defer func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}()

	var buf bytes.Buffer
	SetupLoggingTo(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("game_code", "ABC123").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"game_code":"ABC123"`)
}
