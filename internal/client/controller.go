// Package client runs one player's view of a game: it follows the shared
// record, keeps the local countdown, completes expired stages and follows
// redirects to new rounds.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/rounds"
	"party-rounds/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

var ErrSubscriptionClosed = errors.New("subscription closed")

type Subscriber interface {
	Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error)
}

// Driver performs the writes a player can trigger. *rounds.Manager is the
// usual implementation.
type Driver interface {
	CompleteStage(ctx context.Context, g *game.Game) (rounds.Outcome, error)
	SubmitAnswer(ctx context.Context, code, playerID, answer string) (bool, error)
	CastVote(ctx context.Context, g *game.Game, playerID, choice string) (rounds.Outcome, error)
	ClearRedirect(ctx context.Context, code string, version int64) error
}

type Option func(*Controller)

func WithClock(clock clockwork.Clock) Option {
	return func(c *Controller) {
		c.clock = clock
	}
}

func WithNavigator(nav Navigator) Option {
	return func(c *Controller) {
		c.nav = nav
	}
}

func WithCache(cache AnswerCache) Option {
	return func(c *Controller) {
		c.cache = cache
	}
}

// WithLocation sets the path the player starts on.
func WithLocation(path string) Option {
	return func(c *Controller) {
		c.location = path
	}
}

// OnView registers a callback that receives every recomputed view.
func OnView(fn func(View)) Option {
	return func(c *Controller) {
		c.onView = fn
	}
}

type Controller struct {
	code     string
	playerID string
	subs     Subscriber
	driver   Driver
	clock    clockwork.Clock
	nav      Navigator
	cache    AnswerCache
	onView   func(View)

	mu           sync.Mutex
	game         *game.Game
	round        *game.Round
	location     string
	redirected   int64
	hasSubmitted bool
	timeLeft     int
	view         View
}

func NewController(code, playerID string, subs Subscriber, driver Driver, opts ...Option) *Controller {
	c := &Controller{
		code:     code,
		playerID: playerID,
		subs:     subs,
		driver:   driver,
		clock:    clockwork.NewRealClock(),
		nav:      &History{},
		cache:    NewMemoryCache(),
		view:     View{Loading: true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run follows the game until ctx ends or the subscription closes.
func (c *Controller) Run(ctx context.Context) error {
	updates, err := c.subs.Subscribe(ctx, c.code)
	if err != nil {
		return err
	}
	c.publish()

	var (
		ticker  clockwork.Ticker
		key     game.TimerKey
		keySeen bool
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker = nil
		}
	}
	defer stopTicker()

	for {
		var tick <-chan time.Time
		if ticker != nil {
			tick = ticker.Chan()
		}
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrSubscriptionClosed
			}
			c.apply(ctx, snap)
			if snap.Game == nil {
				stopTicker()
				keySeen = false
				continue
			}
			if next := game.KeyOf(snap.Game); !keySeen || next != key {
				key, keySeen = next, true
				stopTicker()
				if snap.Game.IsTimerRunning {
					ticker = c.clock.NewTicker(time.Second)
				}
				if c.tick(ctx) {
					stopTicker()
				}
			}
		case <-tick:
			if c.tick(ctx) {
				stopTicker()
			}
		}
	}
}

// tick recomputes the countdown and completes the stage once it reaches
// zero. It reports whether the countdown for this stage is done.
func (c *Controller) tick(ctx context.Context) bool {
	c.mu.Lock()
	g := c.game.Clone()
	if g == nil {
		c.mu.Unlock()
		return false
	}
	c.timeLeft = game.ComputeRemaining(g, c.clock.Now())
	remaining := c.timeLeft
	c.mu.Unlock()
	c.publish()

	if !g.IsTimerRunning || remaining > 0 {
		return false
	}
	outcome, err := c.driver.CompleteStage(ctx, g)
	if err != nil {
		log.Warn().Err(err).Str("game_code", c.code).Str("stage", string(g.CurrentStage)).Msg("stage completion failed")
		return outcome.Advanced
	}
	if outcome.Advanced {
		log.Debug().Str("game_code", c.code).Str("from", string(outcome.From)).Str("to", string(outcome.To)).Msg("completed stage")
	}
	return true
}

func (c *Controller) apply(ctx context.Context, snap store.Snapshot) {
	c.mu.Lock()
	g := snap.Game
	if g == nil {
		c.game, c.round = nil, nil
		c.mu.Unlock()
		c.publish()
		return
	}
	var previous game.Stage
	if c.game != nil {
		previous = c.game.CurrentStage
	}
	if g.CurrentStage == game.StageGame && previous != game.StageGame {
		c.hasSubmitted = false
	}
	c.game = g.Clone()
	c.round = snap.Round.Clone()
	c.timeLeft = game.ComputeRemaining(g, c.clock.Now())

	var redirect string
	version := g.RedirectVersion
	if g.ShouldRedirect && g.RedirectTo != "" && version > c.redirected {
		c.redirected = version
		redirect = g.RedirectTo
	}
	derived := ""
	if g.RoundID != "" {
		derived = game.RoundPath(g.GameCode, g.RoundID)
	}
	c.mu.Unlock()

	if redirect != "" {
		c.navigate(redirect)
		if err := c.driver.ClearRedirect(ctx, c.code, version); err != nil {
			log.Warn().Err(err).Str("game_code", c.code).Int64("redirect_version", version).Msg("redirect clear failed")
		}
	}
	if derived != "" {
		c.navigate(derived)
	}
	c.publish()
}

// navigate moves the player unless they are already there. A failed
// navigation is retried on the next update.
func (c *Controller) navigate(path string) {
	c.mu.Lock()
	if path == c.location {
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if err := c.nav.NavigateTo(path); err != nil {
		log.Warn().Err(err).Str("game_code", c.code).Str("path", path).Msg("navigation failed")
		return
	}
	c.mu.Lock()
	c.location = path
	c.mu.Unlock()
	log.Debug().Str("game_code", c.code).Str("path", path).Msg("navigated")
}

func (c *Controller) publish() {
	c.mu.Lock()
	var cached string
	if c.game != nil {
		cached, _ = c.cache.Get(AnswerKey(c.code, c.game.RoundNumber()))
	}
	view := buildView(c.game, c.timeLeft, c.submittedLocked(), cached)
	c.view = view
	fn := c.onView
	c.mu.Unlock()
	if fn != nil {
		fn(view)
	}
}

func (c *Controller) submittedLocked() bool {
	return c.hasSubmitted || c.game.HasSubmitted(c.playerID)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) Location() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.location
}

func (c *Controller) Game() *game.Game {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.game.Clone()
}

// SubmitAnswer caches and submits the player's answer. Blank answers are
// ignored; over-long ones are refused before anything is cached.
func (c *Controller) SubmitAnswer(ctx context.Context, answer string) error {
	g := c.Game()
	if g == nil {
		return nil
	}
	text, ok := game.NormalizeAnswer(answer)
	if !ok {
		return nil
	}
	if game.AnswerTooLong(text) {
		return game.ErrAnswerTooLong
	}
	c.cache.Set(AnswerKey(c.code, g.RoundNumber()), text)
	submitted, err := c.driver.SubmitAnswer(ctx, c.code, c.playerID, text)
	if err != nil {
		return err
	}
	if submitted {
		c.mu.Lock()
		c.hasSubmitted = true
		c.mu.Unlock()
	}
	c.publish()
	return nil
}

// Vote records the player's choice, which also closes voting.
func (c *Controller) Vote(ctx context.Context, choice string) error {
	g := c.Game()
	if g == nil || g.CurrentStage != game.StageVoting {
		return nil
	}
	_, err := c.driver.CastVote(ctx, g, c.playerID, choice)
	return err
}

// Next ends the results screen early.
func (c *Controller) Next(ctx context.Context) error {
	g := c.Game()
	if g == nil || g.CurrentStage != game.StageResults {
		return nil
	}
	_, err := c.driver.CompleteStage(ctx, g)
	return err
}
