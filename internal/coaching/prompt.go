package coaching

import (
	"fmt"
	"strings"

	"fitagent/internal/conversation"
	"fitagent/internal/goal"
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
)

var statusMarkers = map[goal.Status]string{
	goal.StatusOnTrack:  "✅",
	goal.StatusAhead:    "🚀",
	goal.StatusBehind:   "⚠️",
	goal.StatusStagnant: "😴",
}

func formatGoals(goals []goal.Goal) string {
	if len(goals) == 0 {
		return "No specific goals set"
	}
	lines := make([]string, 0, len(goals))
	for _, g := range goals {
		marker, ok := statusMarkers[g.Status]
		if !ok {
			marker = "📊"
		}
		lines = append(lines, fmt.Sprintf("%s %s: %.1f/%.1f (%.1f%%)",
			marker, g.GoalType, g.CurrentValue, g.TargetValue, goal.CompletionRate(g.CurrentValue, g.TargetValue)))
	}
	return strings.Join(lines, "\n")
}

func formatPatterns(patterns []pattern.Pattern) string {
	if len(patterns) == 0 {
		return "No significant patterns detected yet"
	}
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		lines = append(lines, fmt.Sprintf("- %s: %.1f%% confidence, %d occurrences",
			p.Type, p.Confidence*100, p.Frequency))
	}
	return strings.Join(lines, "\n")
}

// buildSystemMessage assembles the full personalization context for one
// coaching request
func buildSystemMessage(style Style, prof *profile.UserProfile, goals []goal.Goal, patterns []pattern.Pattern, conv *conversation.Conversation, turnCount int) string {
	return fmt.Sprintf(`You are FitAgent, an advanced AI nutrition coach with deep personalization capabilities.

COACHING STYLE: %s

USER PROFILE:
- Total Interactions: %d
- Success Rate: %.1f%%
- Preferred Style: %s

CURRENT GOALS:
%s

BEHAVIOR PATTERNS:
%s

CONVERSATION CONTEXT:
- Topic: %s
- Previous Messages: %d
- Sentiment: %s

INSTRUCTIONS:
1. Adapt your response to the user's coaching style preference
2. Reference their specific goals and progress
3. Consider behavior patterns in your recommendations
4. Maintain conversation continuity
5. Provide actionable, personalized advice
6. Calculate appropriate VP token rewards (10-50 based on engagement quality)`,
		style.Describe(),
		prof.TotalInteractions,
		prof.SuccessRate*100,
		prof.CoachingStyle,
		formatGoals(goals),
		formatPatterns(patterns),
		conv.Topic,
		turnCount,
		conv.Sentiment)
}

// buildUserPrompt wraps the raw query with the response contract
func buildUserPrompt(query string) string {
	return fmt.Sprintf(`User Query: %s

Provide a comprehensive coaching response that includes:
1. Personalized analysis based on their profile
2. Specific recommendations aligned with their goals
3. Behavioral insights and pattern recognition
4. VP token calculation with reasoning
5. Next steps that build on previous interactions

Respond in JSON format with: analysis, recommendations, vp_tokens_earned, progress_update, next_steps, behavior_insights`, query)
}

// buildProactivePrompt is the check-in prompt for users inactive past the
// engagement threshold
func buildProactivePrompt(hoursInactive float64, goals []goal.Goal) string {
	return fmt.Sprintf(`Generate a motivational check-in message for a user who hasn't logged nutrition data in %.1f hours.

User Goals:
%s

Create an encouraging message that:
1. Acknowledges their goals
2. Provides a gentle reminder
3. Offers specific, actionable advice
4. Mentions VP token earning opportunities

Keep it positive and supportive, not pushy.`, hoursInactive, formatGoals(goals))
}
