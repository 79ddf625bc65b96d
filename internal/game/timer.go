package game

import "time"

// ComputeRemaining derives the live countdown for the current stage. A frozen
// timer reports the stored TimeLeft. Clock skew that puts now before
// TimerStart counts as zero elapsed time, so the result never exceeds
// TimeLeft and never drops below zero.
func ComputeRemaining(g *Game, now time.Time) int {
	if g == nil {
		return 0
	}
	if !g.IsTimerRunning {
		return g.TimeLeft
	}
	elapsed := int(now.Sub(g.TimerStart) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := g.TimeLeft - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

func Expired(g *Game, now time.Time) bool {
	return g != nil && g.IsTimerRunning && ComputeRemaining(g, now) == 0
}

// Deadline is the instant the running countdown reaches zero.
func Deadline(g *Game) (time.Time, bool) {
	if g == nil || !g.IsTimerRunning {
		return time.Time{}, false
	}
	return g.TimerStart.Add(time.Duration(g.TimeLeft) * time.Second), true
}

// TimerKey identifies one countdown. A change of key means the countdown
// was restarted, resized or frozen.
type TimerKey struct {
	Start    int64
	TimeLeft int
	Running  bool
}

func KeyOf(g *Game) TimerKey {
	if g == nil {
		return TimerKey{}
	}
	return TimerKey{Start: g.TimerStart.UnixNano(), TimeLeft: g.TimeLeft, Running: g.IsTimerRunning}
}
