package server

import (
	"context"
	"net/http"
	"time"

	"party-rounds/internal/config"
	"party-rounds/internal/rounds"
	"party-rounds/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Server struct {
	store     store.Store
	manager   *rounds.Manager
	scheduler *rounds.Scheduler
	ws        *wsHub
	cfg       config.Config
	limiter   *rateLimiter
	ctx       context.Context
	cancel    context.CancelFunc
}

type Option func(*options)

type options struct {
	clock   clockwork.Clock
	content rounds.ContentSource
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithContentSource picks theme and prompt for games created without one.
func WithContentSource(source rounds.ContentSource) Option {
	return func(o *options) {
		o.content = source
	}
}

func New(st store.Store, cfg config.Config, opts ...Option) *Server {
	o := options{clock: clockwork.NewRealClock()}
	for _, opt := range opts {
		opt(&o)
	}
	managerOpts := []rounds.Option{
		rounds.WithClock(o.clock),
		rounds.WithStages(cfg.Stages),
		rounds.WithFallback(cfg.Fallback()),
	}
	if o.content != nil {
		managerOpts = append(managerOpts, rounds.WithContentSource(o.content))
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		store:   st,
		manager: rounds.NewManager(st, managerOpts...),
		ws:      newWSHub(),
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerMinute, o.clock),
		ctx:     ctx,
		cancel:  cancel,
	}
	if cfg.ServerTimers {
		s.scheduler = rounds.NewScheduler(s.manager, st, rounds.WithAudience(s.ws.Count))
	}
	return s
}

func (s *Server) Manager() *rounds.Manager {
	return s.manager
}

// Close stops server-side timers and drops websocket connections.
func (s *Server) Close() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.ws.CloseAll()
}

func (s *Server) Handler() http.Handler {
	registerValidators()
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	router.Use(cors.New(corsConfig(s.cfg.AllowedOrigins)))

	router.GET("/", s.handleHome)
	router.GET("/health", s.handleHealth)
	router.GET("/game/:code/play/:round", s.handlePlayView)

	api := router.Group("/api")
	api.GET("/games", s.handleListGames)
	api.POST("/games", s.handleCreateGame)
	api.GET("/games/:code", s.handleGetGame)
	api.GET("/games/:code/events", s.handleEvents)
	api.POST("/games/:code/join", s.handleJoin)
	api.POST("/games/:code/transact", s.handleTransact)
	api.POST("/games/:code/answers", s.handleAnswers)
	api.POST("/games/:code/votes", s.handleVotes)
	api.POST("/games/:code/advance", s.handleAdvance)
	api.POST("/games/:code/redirect/clear", s.handleClearRedirect)
	api.GET("/rounds/:id", s.handleGetRound)

	router.GET("/ws/games/:code", s.handleWebsocket)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Upgrade",
			"Connection",
			"Sec-WebSocket-Key",
			"Sec-WebSocket-Version",
			"Sec-WebSocket-Extensions",
			"Sec-WebSocket-Protocol",
		},
		MaxAge: 12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	return cfg
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		event := log.Debug()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(started)).
			Msg("request")
	}
}

// watch makes sure the server drives the countdown of code.
func (s *Server) watch(code string) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.Watch(s.ctx, code); err != nil {
		log.Warn().Err(err).Str("game_code", code).Msg("scheduler watch failed")
	}
}
