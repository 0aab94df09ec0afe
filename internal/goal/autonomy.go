package goal

import (
	"context"
	"log"
	"time"
)

// Autonomy reclassifies goal status and applies target adjustments without
// human intervention. One pass scans every goal of every known user.
type Autonomy struct {
	store *Store
}

// NewAutonomy creates the autonomous adjustment engine
func NewAutonomy(store *Store) *Autonomy {
	return &Autonomy{store: store}
}

// RunPass applies the adjustment rules to all goals and returns the number
// of adjustments made. A failure on one goal is logged and skipped so the
// rest of the scan continues.
func (a *Autonomy) RunPass(ctx context.Context) (int, error) {
	userIDs, err := a.store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	adjusted := 0
	for _, userID := range userIDs {
		goals, err := a.store.ListForUser(ctx, userID)
		if err != nil {
			log.Printf("[Autonomy] skipping user %s: %v", userID, err)
			continue
		}
		for i := range goals {
			did, err := a.adjustGoal(ctx, &goals[i])
			if err != nil {
				log.Printf("[Autonomy] skipping goal %s/%s: %v", userID, goals[i].GoalType, err)
				continue
			}
			if did {
				adjusted++
			}
		}
	}
	if adjusted > 0 {
		log.Printf("[Autonomy] pass complete: %d adjustment(s)", adjusted)
	}
	return adjusted, nil
}

// adjustGoal applies at most one rule to a single goal:
//   - AHEAD and running past 120% of target: raise the target by 1.2x
//   - STAGNANT and untouched for over a week: lower the target by 0.8x
//
// The upsert re-derives status from the new rate and appends to the audit
// trail, so a goal adjusted out of AHEAD/STAGNANT is left alone next pass.
func (a *Autonomy) adjustGoal(ctx context.Context, g *Goal) (bool, error) {
	rate := RawCompletionRate(g.CurrentValue, g.TargetValue)
	daysSinceUpdate := time.Since(g.LastUpdated).Hours() / 24

	var newTarget float64
	var reason string
	switch {
	case g.Status == StatusAhead && rate > 120:
		newTarget = g.TargetValue * 1.2
		reason = ReasonExceeding
	case g.Status == StatusStagnant && daysSinceUpdate > 7:
		newTarget = g.TargetValue * 0.8
		reason = ReasonStagnant
	default:
		return false, nil
	}

	if _, err := a.store.Upsert(ctx, g.UserID, g.GoalType, newTarget, g.CurrentValue, reason); err != nil {
		return false, err
	}
	log.Printf("[Autonomy] %s/%s target %.1f -> %.1f (%s)",
		g.UserID, g.GoalType, g.TargetValue, newTarget, reason)
	return true, nil
}
