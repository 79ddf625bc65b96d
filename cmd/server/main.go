package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"party-rounds/internal/config"
	"party-rounds/internal/db"
	"party-rounds/internal/feed"
	"party-rounds/internal/server"
	"party-rounds/internal/store"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	if err := config.ApplyStagesFile(&cfg); err != nil {
		log.Fatal().Err(err).Str("path", cfg.StagesFile).Msg("failed to load stage durations")
	}

	hub := store.NewHub()
	storeOpts := []store.Option{store.WithHub(hub)}
	var serverOpts []server.Option

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		feedCfg := feed.DefaultConfig()
		feedCfg.URL = cfg.NATSURL
		feedCfg.Prefix = cfg.NATSPrefix
		conn, err := feed.Connect(feedCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("snapshot feed unavailable")
		}
		nc = conn
		origin := feed.NewOrigin()
		storeOpts = append(storeOpts, store.WithNotifier(feed.NewPublisher(nc, feedCfg.Prefix, origin)))
		if _, err := feed.NewRelay(feedCfg.Prefix, origin, hub.Publish).Start(nc); err != nil {
			log.Fatal().Err(err).Msg("snapshot relay failed")
		}
		log.Info().Str("url", cfg.NATSURL).Str("prefix", feedCfg.Prefix).Msg("snapshot feed connected")
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL, cfg.Pool())
		if err != nil {
			log.Fatal().Err(err).Msg("database connection failed")
		}
		st = store.NewSQL(conn, storeOpts...)
		serverOpts = append(serverOpts, server.WithContentSource(db.NewPromptSource(conn)))
		log.Info().Msg("using postgres store")
	} else {
		st = store.NewMemory(storeOpts...)
		log.Info().Msg("DATABASE_URL not set; using in-memory store")
	}

	srv := server.New(st, cfg, serverOpts...)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("party-rounds server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	srv.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown failed")
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			log.Warn().Err(err).Msg("NATS drain failed")
		}
	}
}
