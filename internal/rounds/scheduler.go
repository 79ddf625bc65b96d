package rounds

import (
	"context"
	"sync"
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const retryDelay = time.Second

type Subscriber interface {
	Subscribe(ctx context.Context, code string) (<-chan store.Snapshot, error)
}

// Scheduler completes stages on the server when their countdown runs out,
// alongside whatever clients are connected. A game nobody plays or watches
// is left alone until it is watched again.
type Scheduler struct {
	manager  *Manager
	subs     Subscriber
	audience func(code string) int

	mu       sync.Mutex
	watching map[string]context.CancelFunc
	wg       sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

// WithAudience reports how many clients are connected to a game.
func WithAudience(fn func(code string) int) SchedulerOption {
	return func(s *Scheduler) {
		s.audience = fn
	}
}

func NewScheduler(manager *Manager, subs Subscriber, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		manager:  manager,
		subs:     subs,
		watching: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) idle(code string, g *game.Game) bool {
	if len(g.Players) == 0 {
		return true
	}
	return s.audience != nil && s.audience(code) == 0
}

// Watch starts the countdown loop for code. Watching a code twice is a no-op.
func (s *Scheduler) Watch(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watching[code]; ok {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	updates, err := s.subs.Subscribe(ctx, code)
	if err != nil {
		cancel()
		return err
	}
	s.watching[code] = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, code, updates)
		s.mu.Lock()
		delete(s.watching, code)
		s.mu.Unlock()
		cancel()
	}()
	return nil
}

func (s *Scheduler) Watching(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.watching[code]
	return ok
}

// Stop cancels every loop and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	for _, cancel := range s.watching {
		cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, code string, updates <-chan store.Snapshot) {
	clock := s.manager.Clock()
	var (
		timer  clockwork.Timer
		key    game.TimerKey
		latest *game.Game
	)
	schedule := func(d time.Duration) {
		if timer != nil {
			timer.Stop()
		}
		if d < 0 {
			d = 0
		}
		timer = clock.NewTimer(d)
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.Chan()
		}
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.Game == nil {
				continue
			}
			latest = snap.Game
			next := game.KeyOf(latest)
			if next == key && timer != nil {
				continue
			}
			key = next
			deadline, running := game.Deadline(latest)
			if !running {
				if timer != nil {
					timer.Stop()
					timer = nil
				}
				continue
			}
			schedule(deadline.Sub(clock.Now()))
		case <-fire:
			timer = nil
			if !game.Expired(latest, clock.Now()) {
				deadline, _ := game.Deadline(latest)
				schedule(deadline.Sub(clock.Now()))
				continue
			}
			if s.idle(code, latest) {
				log.Info().Str("game_code", code).Msg("game idle; countdown stopped")
				return
			}
			if _, err := s.manager.CompleteStage(ctx, latest); err != nil {
				log.Warn().Err(err).Str("game_code", code).Msg("scheduled completion failed")
				schedule(retryDelay)
			}
		}
	}
}
