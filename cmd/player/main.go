package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"party-rounds/internal/client"
	"party-rounds/internal/config"
	"party-rounds/internal/game"
	"party-rounds/internal/remote"
	"party-rounds/internal/rounds"

	"github.com/rs/zerolog/log"
)

func main() {
	serverURL := flag.String("server", "http://localhost:8080", "rounds server base url")
	code := flag.String("code", "", "game code to join; a new game is created when empty")
	name := flag.String("name", "bot", "player name")
	answer := flag.String("answer", "", "answer to submit each round; defaults to one built from the prompt")
	maxRounds := flag.Int("rounds", 3, "rounds to play before leaving; 0 plays forever")
	skipResults := flag.Bool("skip-results", false, "end the results screen early")
	cachePath := flag.String("cache", "", "yaml file that keeps submitted answers across restarts")
	flag.Parse()

	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("failed to load .env")
	}
	cfg := config.Load()
	config.SetupLogging(cfg.LogLevel, cfg.LogFormat)
	if err := config.ApplyStagesFile(&cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to load stage durations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := remote.NewClient(*serverURL)
	gameCode := *code
	location := ""
	if gameCode == "" {
		created, err := api.NewGame(ctx, game.Content{})
		if err != nil {
			log.Fatal().Err(err).Msg("create game failed")
		}
		gameCode = created.GameCode
		location = created.RedirectTo
		log.Info().Str("game_code", gameCode).Msg("created game")
	}
	player, err := api.Join(ctx, gameCode, *name)
	if err != nil {
		log.Fatal().Err(err).Str("game_code", gameCode).Msg("join failed")
	}

	var cache client.AnswerCache = client.NewMemoryCache()
	if *cachePath != "" {
		fileCache, err := client.OpenFileCache(*cachePath)
		if err != nil {
			log.Fatal().Err(err).Msg("open answer cache")
		}
		cache = fileCache
	}

	manager := rounds.NewManager(api,
		rounds.WithStages(cfg.Stages),
		rounds.WithFallback(cfg.Fallback()),
	)
	views := make(chan client.View, 1)
	opts := []client.Option{
		client.WithCache(cache),
		client.WithNavigator(client.NavigatorFunc(func(path string) error {
			log.Info().Str("path", path).Msg("moved to round")
			return nil
		})),
		client.OnView(func(v client.View) {
			select {
			case <-views:
			default:
			}
			views <- v
		}),
	}
	if location != "" {
		opts = append(opts, client.WithLocation(location))
	}
	controller := client.NewController(gameCode, player.ID, api, manager, opts...)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- controller.Run(runCtx)
	}()

	b := bot{
		controller:  controller,
		answer:      *answer,
		maxRounds:   *maxRounds,
		skipResults: *skipResults,
	}
	log.Info().Str("game_code", gameCode).Str("player_id", player.ID).Msg("playing")
	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Fatal().Err(err).Msg("controller stopped")
			}
			return
		case v := <-views:
			if b.act(runCtx, v) {
				log.Info().Int("rounds", b.played).Msg("done playing")
				cancel()
			}
		}
	}
}

type bot struct {
	controller  *client.Controller
	answer      string
	maxRounds   int
	skipResults bool

	firstRound int
	played     int
	lastStage  game.Stage
}

// act reacts to one view and reports whether the bot is finished.
func (b *bot) act(ctx context.Context, v client.View) bool {
	if v.Loading {
		return false
	}
	if b.firstRound == 0 {
		b.firstRound = v.CurrentRound
	}
	b.played = v.CurrentRound - b.firstRound
	if b.maxRounds > 0 && b.played >= b.maxRounds {
		return true
	}
	if v.Stage != b.lastStage {
		log.Info().Str("stage", string(v.Stage)).Int("round", v.CurrentRound).Int("time_left", v.TimeLeft).Msg("stage")
		b.lastStage = v.Stage
	}

	var err error
	switch v.Stage {
	case game.StageGame:
		if !v.Waiting {
			err = b.controller.SubmitAnswer(ctx, b.answerFor(v))
		}
	case game.StageVoting:
		if len(v.Answers) > 0 {
			err = b.controller.Vote(ctx, v.Answers[0])
		}
	case game.StageResults:
		if b.skipResults {
			err = b.controller.Next(ctx)
		}
	}
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Str("stage", string(v.Stage)).Msg("action failed")
	}
	return false
}

func (b *bot) answerFor(v client.View) string {
	if b.answer != "" {
		return b.answer
	}
	return fmt.Sprintf("%s #%d", v.Theme, v.CurrentRound)
}
