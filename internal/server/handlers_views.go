package server

import (
	"errors"
	"net/http"

	"party-rounds/internal/store"
	"party-rounds/internal/web"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type playURI struct {
	Code  string `uri:"code" binding:"required,gamecode"`
	Round string `uri:"round" binding:"required,max=64"`
}

func (s *Server) handleHome(c *gin.Context) {
	templ.Handler(web.Home(s.homeSummaries(c))).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) handlePlayView(c *gin.Context) {
	var uri playURI
	if !bindURI(c, &uri) {
		return
	}
	g, err := s.store.Game(c.Request.Context(), uri.Code)
	if err != nil {
		writeStoreError(c, err, "load game")
		return
	}
	round, err := s.store.Round(c.Request.Context(), uri.Round)
	if err != nil {
		writeStoreError(c, err, "load round")
		return
	}
	if round.GameID != g.ID {
		writeError(c, http.StatusNotFound, "not found")
		return
	}
	templ.Handler(web.Play(g.GameCode, round.ID)).ServeHTTP(c.Writer, c.Request)
}

func (s *Server) homeSummaries(c *gin.Context) []web.GameSummary {
	games, err := s.store.ListGames(c.Request.Context())
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		log.Warn().Err(err).Msg("list games failed")
	}
	summaries := make([]web.GameSummary, 0, len(games))
	for _, g := range games {
		summaries = append(summaries, web.GameSummary{
			GameCode:     g.GameCode,
			Stage:        string(g.Stage),
			CurrentRound: g.CurrentRound,
			Players:      g.Players,
		})
	}
	return summaries
}
