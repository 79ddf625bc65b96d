package main

import (
	"flag"

	"party-rounds/internal/config"
	"party-rounds/internal/db"

	"github.com/rs/zerolog/log"
)

func main() {
	filePath := flag.String("file", "prompts.csv", "path to a theme,prompt csv")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Open(cfg.DatabaseURL, cfg.Pool())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	inserted, err := db.LoadPromptLibrary(conn, *filePath)
	if err != nil {
		log.Fatal().Err(err).Int("inserted", inserted).Msg("failed to load prompts")
	}
	log.Info().Int("count", inserted).Str("file", *filePath).Msg("loaded prompts")
}
