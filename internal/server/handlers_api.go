package server

import (
	"net/http"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/rounds"
	"party-rounds/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type gameURI struct {
	Code string `uri:"code" binding:"required,gamecode"`
}

type roundURI struct {
	ID string `uri:"id" binding:"required,max=64"`
}

type createGameRequest struct {
	Theme  string `json:"theme" binding:"omitempty,content"`
	Prompt string `json:"prompt" binding:"omitempty,content"`
}

type joinRequest struct {
	Name string `json:"name" binding:"required,name"`
}

type answerRequest struct {
	PlayerID string `json:"player_id" binding:"required,max=64"`
	Answer   string `json:"answer" binding:"answer"`
}

type voteRequest struct {
	PlayerID string `json:"player_id" binding:"required,max=64"`
	Choice   string `json:"choice" binding:"required,choice"`
}

type advanceRequest struct {
	Stage      game.Stage `json:"stage" binding:"required,stage"`
	TimerStart *time.Time `json:"timer_start"`
}

type clearRedirectRequest struct {
	Version int64 `json:"version" binding:"required,min=1"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleCreateGame(c *gin.Context) {
	if !s.enforceRateLimit(c, "create") {
		return
	}
	var req createGameRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, bindMessages{
			"Theme":  {"content": "invalid theme"},
			"Prompt": {"content": "invalid prompt"},
		}, "invalid game settings") {
			return
		}
	}
	content := game.Content{Theme: normalizeText(req.Theme), Prompt: normalizeText(req.Prompt)}
	g, err := s.manager.CreateGame(c.Request.Context(), content)
	if err != nil {
		writeStoreError(c, err, "create game")
		return
	}
	s.watch(g.GameCode)
	c.JSON(http.StatusCreated, gin.H{
		"game_id":     g.ID,
		"game_code":   g.GameCode,
		"round_id":    g.RoundID,
		"redirect_to": game.RoundPath(g.GameCode, g.RoundID),
	})
}

func (s *Server) handleListGames(c *gin.Context) {
	games, err := s.store.ListGames(c.Request.Context())
	if err != nil {
		writeStoreError(c, err, "list games")
		return
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (s *Server) handleGetGame(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	snap, err := s.store.Snapshot(c.Request.Context(), uri.Code)
	if err != nil {
		writeStoreError(c, err, "load game")
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleGetRound(c *gin.Context) {
	var uri roundURI
	if !bindURI(c, &uri) {
		return
	}
	round, err := s.store.Round(c.Request.Context(), uri.ID)
	if err != nil {
		writeStoreError(c, err, "load round")
		return
	}
	c.JSON(http.StatusOK, round)
}

func (s *Server) handleEvents(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	events, err := s.store.Events(c.Request.Context(), uri.Code)
	if err != nil {
		writeStoreError(c, err, "load events")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"game_code": uri.Code,
		"events":    events,
	})
}

func (s *Server) handleJoin(c *gin.Context) {
	if !s.enforceRateLimit(c, "join") {
		return
	}
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var req joinRequest
	if !bindJSON(c, &req, bindMessages{
		"Name": {
			"required": "name is required",
			"name":     "name must be 20 characters or fewer",
		},
	}, "invalid name") {
		return
	}
	player, err := s.manager.Join(c.Request.Context(), uri.Code, normalizeText(req.Name))
	if err != nil {
		writeStoreError(c, err, "join game")
		return
	}
	s.watch(uri.Code)
	log.Info().Str("game_code", uri.Code).Str("player_id", player.ID).Msg("player joined")
	c.JSON(http.StatusOK, gin.H{
		"game_code": uri.Code,
		"player_id": player.ID,
		"name":      player.Name,
	})
}

// handleTransact applies a raw store transaction on behalf of a remote
// client.
func (s *Server) handleTransact(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var tx store.Tx
	if !bindJSON(c, &tx, nil, "invalid transaction") {
		return
	}
	if len(tx.Ops) == 0 {
		writeError(c, http.StatusBadRequest, "transaction has no ops")
		return
	}
	if err := s.store.Transact(c.Request.Context(), uri.Code, tx); err != nil {
		writeStoreError(c, err, "apply transaction")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleAnswers(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var req answerRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required"},
		"Answer":   {"answer": game.ErrAnswerTooLong.Error()},
	}, "invalid answer") {
		return
	}
	submitted, err := s.manager.SubmitAnswer(c.Request.Context(), uri.Code, req.PlayerID, req.Answer)
	if err != nil {
		writeStoreError(c, err, "submit answer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"submitted": submitted})
}

func (s *Server) handleVotes(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var req voteRequest
	if !bindJSON(c, &req, bindMessages{
		"PlayerID": {"required": "player_id is required"},
		"Choice":   {"required": "choice is required", "choice": "choice must be 140 characters or fewer"},
	}, "invalid vote") {
		return
	}
	g, err := s.store.Game(c.Request.Context(), uri.Code)
	if err != nil {
		writeStoreError(c, err, "load game")
		return
	}
	outcome, err := s.manager.CastVote(c.Request.Context(), g, req.PlayerID, normalizeText(req.Choice))
	if err != nil && !outcome.Advanced {
		writeStoreError(c, err, "cast vote")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("game_code", uri.Code).Msg("vote completion incomplete")
	}
	c.JSON(http.StatusOK, outcomeJSON(outcome))
}

func (s *Server) handleAdvance(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var req advanceRequest
	if !bindJSON(c, &req, bindMessages{
		"Stage": {"required": "stage is required", "stage": "unknown stage"},
	}, "invalid advance request") {
		return
	}
	outcome, err := s.manager.Advance(c.Request.Context(), uri.Code, store.Expect{Stage: req.Stage, TimerStart: req.TimerStart})
	if err != nil && !outcome.Advanced {
		writeStoreError(c, err, "advance stage")
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("game_code", uri.Code).Msg("advance incomplete")
	}
	c.JSON(http.StatusOK, outcomeJSON(outcome))
}

func (s *Server) handleClearRedirect(c *gin.Context) {
	var uri gameURI
	if !bindURI(c, &uri) {
		return
	}
	var req clearRedirectRequest
	if !bindJSON(c, &req, nil, "version is required") {
		return
	}
	if err := s.manager.ClearRedirect(c.Request.Context(), uri.Code, req.Version); err != nil {
		writeStoreError(c, err, "clear redirect")
		return
	}
	c.Status(http.StatusNoContent)
}

func outcomeJSON(outcome rounds.Outcome) gin.H {
	return gin.H{
		"advanced": outcome.Advanced,
		"from":     outcome.From,
		"to":       outcome.To,
		"round_id": outcome.RoundID,
		"redirect": outcome.Redirect,
	}
}
