package config

import (
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"party-rounds/internal/db"
	"party-rounds/internal/game"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Port                     string
	DatabaseURL              string
	NATSURL                  string
	NATSPrefix               string
	LogLevel                 string
	LogFormat                string
	Stages                   game.StageTable
	StagesFile               string
	FallbackTheme            string
	FallbackPrompt           string
	AllowedOrigins           []string
	RateLimitPerMinute       int
	ServerTimers             bool
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Port:                     "8080",
		NATSPrefix:               "rounds.games",
		LogLevel:                 "info",
		LogFormat:                "console",
		Stages:                   game.DefaultStageTable(),
		FallbackTheme:            game.DefaultTheme,
		FallbackPrompt:           game.DefaultPrompt,
		AllowedOrigins:           []string{"*"},
		RateLimitPerMinute:       30,
		ServerTimers:             true,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("PORT"); raw != "" {
		cfg.Port = raw
	}
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		cfg.DatabaseURL = raw
	}
	if raw := os.Getenv("NATS_URL"); raw != "" {
		cfg.NATSURL = raw
	}
	if raw := os.Getenv("NATS_PREFIX"); raw != "" {
		cfg.NATSPrefix = raw
	}
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("LOG_FORMAT"); raw != "" {
		cfg.LogFormat = raw
	}
	if raw := os.Getenv("PREP_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Stages.Prep = value
		}
	}
	if raw := os.Getenv("GAME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Stages.Game = value
		}
	}
	if raw := os.Getenv("VOTING_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Stages.Voting = value
		}
	}
	if raw := os.Getenv("RESULTS_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.Stages.Results = value
		}
	}
	if raw := os.Getenv("STAGES_FILE"); raw != "" {
		cfg.StagesFile = raw
	}
	cfg.FallbackTheme = fallbackText("FALLBACK_THEME", cfg.FallbackTheme)
	cfg.FallbackPrompt = fallbackText("FALLBACK_PROMPT", cfg.FallbackPrompt)
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		cfg.AllowedOrigins = splitList(raw)
	}
	if raw := os.Getenv("RATE_LIMIT_PER_MINUTE"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RateLimitPerMinute = value
		}
	}
	if raw := os.Getenv("SERVER_TIMERS"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.ServerTimers = value
		}
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	return cfg
}

// maxFallbackLength matches the theme and prompt columns.
const maxFallbackLength = 140

func fallbackText(key, current string) string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return current
	}
	if n := utf8.RuneCountInString(raw); n > maxFallbackLength {
		log.Warn().Str("key", key).Int("length", n).Int("max", maxFallbackLength).Msg("fallback text too long; keeping default")
		return current
	}
	return raw
}

func (c Config) Fallback() game.Content {
	return game.Content{Theme: c.FallbackTheme, Prompt: c.FallbackPrompt}
}

func (c Config) Pool() db.PoolConfig {
	return db.PoolConfig{
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: time.Duration(c.DBConnMaxLifetimeSeconds) * time.Second,
		ConnMaxIdleTime: time.Duration(c.DBConnMaxIdleTimeSeconds) * time.Second,
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
