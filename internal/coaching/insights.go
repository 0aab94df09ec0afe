package coaching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fitagent/internal/goal"
	"fitagent/internal/pattern"
)

// GoalTrend summarizes one goal's trajectory
type GoalTrend struct {
	GoalType         string  `json:"goal_type"`
	CompletionRate   float64 `json:"completion_rate"`
	Status           string  `json:"status"`
	ImprovementRate  float64 `json:"improvement_rate"`
	ConsistencyScore float64 `json:"consistency_score"`
}

// ChangeIndicator flags a strong behavior pattern
type ChangeIndicator struct {
	Pattern   string  `json:"pattern"`
	Strength  float64 `json:"strength"`
	Frequency int     `json:"frequency"`
	Impact    string  `json:"impact"`
}

// Effectiveness aggregates how well the coaching is landing
type Effectiveness struct {
	EngagementRate          float64 `json:"engagement_rate"`
	GoalCompletionAverage   float64 `json:"goal_completion_average"`
	BehaviorPatternStrength float64 `json:"behavior_pattern_strength"`
}

// Insights is the full behavioral report for one user
type Insights struct {
	UserID                   string            `json:"user_id"`
	TotalInteractions        int               `json:"total_interactions"`
	BehaviorChangeIndicators []ChangeIndicator `json:"behavior_change_indicators"`
	GoalAchievementTrends    []GoalTrend       `json:"goal_achievement_trends"`
	CoachingEffectiveness    Effectiveness     `json:"coaching_effectiveness"`
	Recommendations          []string          `json:"recommendations"`
}

// BehavioralInsights builds the full report: per-goal trends, strong
// pattern indicators, and aggregate coaching effectiveness
func (e *Engine) BehavioralInsights(ctx context.Context, userID string) (*Insights, error) {
	prof, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("insights for %s failed: %w", userID, err)
	}
	goals, err := e.goals.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("insights for %s failed: %w", userID, err)
	}
	patterns, err := e.patterns.Analyze(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("insights for %s failed: %w", userID, err)
	}

	out := &Insights{
		UserID:                   userID,
		TotalInteractions:        prof.TotalInteractions,
		BehaviorChangeIndicators: []ChangeIndicator{},
		GoalAchievementTrends:    []GoalTrend{},
		Recommendations:          []string{},
	}

	for i := range goals {
		g := &goals[i]
		consistency, err := e.consistencyScore(ctx, userID, g.GoalType)
		if err != nil {
			return nil, fmt.Errorf("insights for %s failed: %w", userID, err)
		}
		out.GoalAchievementTrends = append(out.GoalAchievementTrends, GoalTrend{
			GoalType:         g.GoalType,
			CompletionRate:   goal.CompletionRate(g.CurrentValue, g.TargetValue),
			Status:           string(g.Status),
			ImprovementRate:  improvementRate(g),
			ConsistencyScore: consistency,
		})
	}

	for _, p := range patterns {
		if p.Confidence <= 0.7 {
			continue
		}
		impact := "needs_attention"
		if strings.Contains(p.Type, "positive") {
			impact = "positive"
		}
		out.BehaviorChangeIndicators = append(out.BehaviorChangeIndicators, ChangeIndicator{
			Pattern:   p.Type,
			Strength:  p.Confidence,
			Frequency: p.Frequency,
			Impact:    impact,
		})
	}

	out.CoachingEffectiveness = effectiveness(prof.TotalInteractions, goals, patterns)
	return out, nil
}

// improvementRate is the completion-rate trend over the last five history
// entries. Fewer than two entries carries no trend.
func improvementRate(g *goal.Goal) float64 {
	history, err := g.History()
	if err != nil || len(history) < 2 {
		return 0
	}
	if len(history) > 5 {
		history = history[len(history)-5:]
	}
	first := history[0].CompletionRate
	last := history[len(history)-1].CompletionRate
	return (last - first) / float64(len(history))
}

// consistencyScore measures how regularly the user engages with a goal
// type, from the gaps between their last matching interactions. Weekly
// engagement scores zero; daily engagement approaches one.
func (e *Engine) consistencyScore(ctx context.Context, userID, goalType string) (float64, error) {
	timestamps, err := e.interactions.TimestampsMatching(ctx, userID, goalType, 30)
	if err != nil {
		return 0, err
	}
	if len(timestamps) < 3 {
		return 0, nil
	}

	// Newest first; gaps in whole days
	var totalDays float64
	for i := 0; i < len(timestamps)-1; i++ {
		gap := timestamps[i].Sub(timestamps[i+1])
		totalDays += float64(int(gap / (24 * time.Hour)))
	}
	avgGap := totalDays / float64(len(timestamps)-1)

	consistency := 1 - avgGap/7
	if consistency < 0 {
		return 0, nil
	}
	if consistency > 1 {
		return 1, nil
	}
	return consistency, nil
}

func effectiveness(totalInteractions int, goals []goal.Goal, patterns []pattern.Pattern) Effectiveness {
	eff := Effectiveness{
		EngagementRate: float64(totalInteractions) / 30,
	}
	if eff.EngagementRate > 1 {
		eff.EngagementRate = 1
	}
	if len(goals) > 0 {
		var sum float64
		for i := range goals {
			sum += goal.CompletionRate(goals[i].CurrentValue, goals[i].TargetValue)
		}
		eff.GoalCompletionAverage = sum / float64(len(goals))
	}
	if len(patterns) > 0 {
		var sum float64
		for _, p := range patterns {
			sum += p.Confidence
		}
		eff.BehaviorPatternStrength = sum / float64(len(patterns))
	}
	return eff
}
