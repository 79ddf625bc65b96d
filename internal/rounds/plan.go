package rounds

import (
	"time"

	"party-rounds/internal/game"
	"party-rounds/internal/store"
)

// Plan is the set of writes that complete the current stage of a game.
type Plan struct {
	From    game.Stage
	To      game.Stage
	RoundID string
	// Advance moves the game to the next stage, creating and linking a new
	// round when the cycle restarts.
	Advance store.Tx
	// Redirect broadcasts the new round location. It is nil unless a round
	// was created.
	Redirect *store.Tx
}

// PlanCompletion computes the transactions that move g to its next stage at
// now. newRoundID is only used when the transition opens a new round.
func PlanCompletion(g *game.Game, stages game.StageTable, fallback game.Content, now time.Time, newRoundID string) Plan {
	from := g.CurrentStage
	to := game.Advance(from)
	plan := Plan{From: from, To: to}
	expect := &store.Expect{Stage: from, TimerStart: store.Ptr(g.TimerStart)}

	fields := store.GameFields{
		CurrentStage:   store.Ptr(to),
		TimerStart:     store.Ptr(now),
		TimeLeft:       store.Ptr(stages.Seconds(to)),
		IsTimerRunning: store.Ptr(true),
	}
	if !game.StartsNewRound(from, to) {
		plan.Advance = store.Tx{Expect: expect, Ops: []store.Op{store.UpdateGame(fields)}}
		return plan
	}

	next := g.RoundNumber() + 1
	content := g.ContentOr(fallback)
	fields.CurrentRound = store.Ptr(next)
	fields.Answers = store.Ptr([]string{})
	fields.SubmittedPlayers = store.Ptr([]string{})
	fields.Theme = store.Ptr(content.Theme)
	fields.Prompt = store.Ptr(content.Prompt)

	plan.RoundID = newRoundID
	plan.Advance = store.Tx{
		Expect: expect,
		Ops: []store.Op{
			store.CreateRound(game.Round{
				ID:               newRoundID,
				GameID:           g.ID,
				RoundNumber:      next,
				Answers:          []string{},
				SubmittedPlayers: []string{},
				Votes:            []game.Vote{},
				Theme:            content.Theme,
				Prompt:           content.Prompt,
				CreatedAt:        now,
			}),
			store.LinkRound(newRoundID),
			store.UpdateGame(fields),
		},
	}
	plan.Redirect = &store.Tx{
		Expect: &store.Expect{RoundID: newRoundID},
		Ops: []store.Op{store.UpdateGame(store.GameFields{
			ShouldRedirect: store.Ptr(true),
			RedirectTo:     store.Ptr(game.RoundPath(g.GameCode, newRoundID)),
			BumpRedirect:   true,
		})},
	}
	return plan
}
