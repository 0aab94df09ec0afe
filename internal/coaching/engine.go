package coaching

import (
	"context"
	"fmt"
	"log"
	"time"

	"fitagent/internal/conversation"
	"fitagent/internal/goal"
	"fitagent/internal/interaction"
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
)

// Generator produces coaching text from a system message and a prompt.
// Satisfied by the Venice AI client; tests plug in stubs.
type Generator interface {
	Generate(ctx context.Context, systemMessage, prompt string) (string, error)
}

// Response is one complete coaching answer
type Response struct {
	ConversationID string `json:"conversation_id"`
	CoachingStyle  string `json:"coaching_style"`
	Payload
}

// Engine orchestrates one coaching request end to end: profile, patterns,
// style, generation, and the write-back of conversation and interaction
// state.
type Engine struct {
	profiles       *profile.Store
	goals          *goal.Store
	interactions   *interaction.Log
	patterns       *pattern.Analyzer
	conversations  *conversation.Manager
	autonomy       *goal.Autonomy
	generator      Generator
	genTimeout     time.Duration
	proactiveAfter time.Duration
}

// NewEngine wires the coaching engine. genTimeout bounds each generator
// call; proactiveAfter is the inactivity threshold for check-ins.
func NewEngine(
	profiles *profile.Store,
	goals *goal.Store,
	interactions *interaction.Log,
	patterns *pattern.Analyzer,
	conversations *conversation.Manager,
	generator Generator,
	genTimeout time.Duration,
	proactiveAfter time.Duration,
) *Engine {
	if genTimeout <= 0 {
		genTimeout = 30 * time.Second
	}
	if proactiveAfter <= 0 {
		proactiveAfter = 24 * time.Hour
	}
	return &Engine{
		profiles:       profiles,
		goals:          goals,
		interactions:   interactions,
		patterns:       patterns,
		conversations:  conversations,
		autonomy:       goal.NewAutonomy(goals),
		generator:      generator,
		genTimeout:     genTimeout,
		proactiveAfter: proactiveAfter,
	}
}

// PersonalizedResponse answers one user query. Generator trouble degrades
// to a fallback payload; only storage failures surface as errors.
func (e *Engine) PersonalizedResponse(ctx context.Context, userID, query, conversationID string) (*Response, error) {
	prof, err := e.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("coaching request for %s failed: %w", userID, err)
	}
	conv, err := e.conversations.GetOrCreate(ctx, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("coaching request for %s failed: %w", userID, err)
	}

	patterns, err := e.patterns.Analyze(ctx, userID)
	if err != nil {
		log.Printf("[CoachingEngine] pattern analysis for %s failed, continuing without: %v", userID, err)
		patterns = nil
	}
	style := SelectStyle(prof, patterns)

	goals, err := e.goals.ListForUser(ctx, userID)
	if err != nil {
		log.Printf("[CoachingEngine] goal load for %s failed, continuing without: %v", userID, err)
		goals = nil
	}
	turns, err := conv.Turns()
	if err != nil {
		log.Printf("[CoachingEngine] %v, continuing with empty history", err)
		turns = nil
	}

	payload := e.generate(ctx, style, prof, goals, patterns, conv, len(turns), query)

	turn := conversation.Turn{
		Timestamp:     time.Now(),
		Query:         query,
		Response:      payload.Analysis,
		CoachingStyle: string(style),
	}
	if err := e.conversations.AppendTurn(ctx, conv, turn); err != nil {
		return nil, fmt.Errorf("coaching request for %s failed: %w", userID, err)
	}
	if _, err := e.interactions.Append(ctx, userID, conv.ConversationID, query, payload.Analysis, payload.VPTokensEarned, payloadMeta(payload)); err != nil {
		return nil, fmt.Errorf("coaching request for %s failed: %w", userID, err)
	}

	return &Response{
		ConversationID: conv.ConversationID,
		CoachingStyle:  string(style),
		Payload:        payload,
	}, nil
}

func (e *Engine) generate(ctx context.Context, style Style, prof *profile.UserProfile, goals []goal.Goal, patterns []pattern.Pattern, conv *conversation.Conversation, turnCount int, query string) Payload {
	genCtx, cancel := context.WithTimeout(ctx, e.genTimeout)
	defer cancel()

	system := buildSystemMessage(style, prof, goals, patterns, conv, turnCount)
	raw, err := e.generator.Generate(genCtx, system, buildUserPrompt(query))
	if err != nil {
		log.Printf("[CoachingEngine] generator failed for %s: %v", prof.UserID, err)
		return FallbackPayload(fmt.Sprintf("AI analysis temporarily unavailable: %v", err))
	}
	return ParsePayload(raw)
}

func payloadMeta(p Payload) map[string]interface{} {
	return map[string]interface{}{
		"analysis":          p.Analysis,
		"recommendations":   p.Recommendations,
		"vp_tokens_earned":  p.VPTokensEarned,
		"progress_update":   p.ProgressUpdate,
		"next_steps":        p.NextSteps,
		"behavior_insights": p.BehaviorInsights,
	}
}

// RecordGoalProgress upserts one goal measurement and returns the stored
// goal with its recomputed status
func (e *Engine) RecordGoalProgress(ctx context.Context, userID, goalType string, targetValue, currentValue float64) (*goal.Goal, error) {
	if _, err := e.profiles.GetOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("goal progress for %s failed: %w", userID, err)
	}
	return e.goals.Upsert(ctx, userID, goalType, targetValue, currentValue, "progress_update")
}

// GoalsForUser lists the user's goals ordered by priority
func (e *Engine) GoalsForUser(ctx context.Context, userID string) ([]goal.Goal, error) {
	return e.goals.ListForUser(ctx, userID)
}

// RunAutonomyPass sweeps all goals once, applying autonomous target
// adjustments. Returns how many goals were adjusted.
func (e *Engine) RunAutonomyPass(ctx context.Context) (int, error) {
	return e.autonomy.RunPass(ctx)
}

// ProactiveEngagement checks in on users inactive past the threshold. Each
// check-in is generated and logged as a regular interaction so later
// analysis sees it. Per-user failures are logged and skipped.
func (e *Engine) ProactiveEngagement(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-e.proactiveAfter)
	inactive, err := e.profiles.ListInactiveSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("proactive sweep failed: %w", err)
	}

	engaged := 0
	for _, prof := range inactive {
		hoursInactive := time.Since(*prof.LastInteraction).Hours()
		goals, err := e.goals.ListForUser(ctx, prof.UserID)
		if err != nil {
			log.Printf("[CoachingEngine] proactive goal load for %s failed: %v", prof.UserID, err)
			continue
		}

		genCtx, cancel := context.WithTimeout(ctx, e.genTimeout)
		message, err := e.generator.Generate(genCtx, "", buildProactivePrompt(hoursInactive, goals))
		cancel()
		if err != nil {
			log.Printf("[CoachingEngine] proactive generation for %s failed: %v", prof.UserID, err)
			continue
		}

		meta := map[string]interface{}{
			"type":           "proactive",
			"hours_inactive": hoursInactive,
		}
		if _, err := e.interactions.Append(ctx, prof.UserID, "", "Proactive coaching check-in", message, 0, meta); err != nil {
			log.Printf("[CoachingEngine] proactive log for %s failed: %v", prof.UserID, err)
			continue
		}
		log.Printf("[CoachingEngine] sent proactive check-in to %s after %.1f hours", prof.UserID, hoursInactive)
		engaged++
	}
	return engaged, nil
}
