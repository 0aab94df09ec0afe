package coaching

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"fitagent/internal/conversation"
	"fitagent/internal/goal"
	"fitagent/internal/interaction"
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
)

type stubGenerator struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (s *stubGenerator) Generate(ctx context.Context, systemMessage, prompt string) (string, error) {
	s.calls++
	s.lastSystem = systemMessage
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type testEnv struct {
	db           *gorm.DB
	engine       *Engine
	profiles     *profile.Store
	interactions *interaction.Log
}

func newTestEnv(t *testing.T, gen Generator, scorer interaction.SentimentScorer) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&profile.UserProfile{},
		&goal.Goal{},
		&interaction.Record{},
		&pattern.BehaviorPattern{},
		&conversation.Conversation{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	profiles := profile.NewStore(db)
	goals := goal.NewStore(db)
	interactions := interaction.NewLog(db, nil, profiles, scorer)
	analyzer := pattern.NewAnalyzer(db, interactions, interaction.RecentWindow)
	conversations := conversation.NewManager(db)

	engine := NewEngine(profiles, goals, interactions, analyzer, conversations, gen, 5*time.Second, 24*time.Hour)
	return &testEnv{db: db, engine: engine, profiles: profiles, interactions: interactions}
}

func TestPersonalizedResponse_NewUserWithFailingGenerator(t *testing.T) {
	gen := &stubGenerator{err: errors.New("connection refused")}
	env := newTestEnv(t, gen, nil)
	ctx := context.Background()

	resp, err := env.engine.PersonalizedResponse(ctx, "new-user", "How am I doing?", "")
	if err != nil {
		t.Fatalf("PersonalizedResponse returned error: %v", err)
	}
	if resp.VPTokensEarned != 15 {
		t.Errorf("expected fallback reward 15, got %d", resp.VPTokensEarned)
	}
	if !strings.Contains(resp.Analysis, "AI analysis temporarily unavailable") {
		t.Errorf("expected unavailable notice, got %q", resp.Analysis)
	}
	if resp.CoachingStyle != "motivational" {
		t.Errorf("expected motivational default for a new user, got %s", resp.CoachingStyle)
	}
	if !strings.HasPrefix(resp.ConversationID, "new-user_") {
		t.Errorf("expected a minted conversation id, got %s", resp.ConversationID)
	}

	prof, err := env.profiles.Get(ctx, "new-user")
	if err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	if prof.TotalInteractions != 1 {
		t.Errorf("expected interaction counter 1, got %d", prof.TotalInteractions)
	}
	recent, err := env.interactions.Recent(ctx, "new-user", 10)
	if err != nil {
		t.Fatalf("recent lookup failed: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected one recorded interaction, got %d", len(recent))
	}
	if recent[0].VPTokensEarned != 15 {
		t.Errorf("expected recorded reward 15, got %d", recent[0].VPTokensEarned)
	}
}

func TestPersonalizedResponse_EngagedUserGetsChallenged(t *testing.T) {
	reply := `{
		"analysis": "You are crushing your protein targets",
		"recommendations": ["Raise your target by 10g"],
		"vp_tokens_earned": 20,
		"progress_update": {"status": "ahead"},
		"next_steps": ["Try a harder goal"],
		"behavior_insights": "Strong engagement pattern"
	}`
	gen := &stubGenerator{reply: reply}
	env := newTestEnv(t, gen, func(query, response string) float64 { return 0.8 })
	ctx := context.Background()

	if _, err := env.profiles.GetOrCreate(ctx, "engaged-user"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	for i := 0; i < 5; i++ {
		if _, err := env.interactions.Append(ctx, "engaged-user", "c1", "logged meal", "nice", 10, nil); err != nil {
			t.Fatalf("failed to seed interaction %d: %v", i, err)
		}
	}

	resp, err := env.engine.PersonalizedResponse(ctx, "engaged-user", "What next?", "")
	if err != nil {
		t.Fatalf("PersonalizedResponse returned error: %v", err)
	}
	if resp.CoachingStyle != "challenging" {
		t.Errorf("expected challenging style from engagement pattern, got %s", resp.CoachingStyle)
	}
	if resp.VPTokensEarned != 20 {
		t.Errorf("expected generator reward passed through, got %d", resp.VPTokensEarned)
	}
	if resp.Analysis != "You are crushing your protein targets" {
		t.Errorf("unexpected analysis: %q", resp.Analysis)
	}
	if !strings.Contains(gen.lastSystem, "direct, goal-oriented") {
		t.Errorf("expected system message phrased for the challenging style, got %q", gen.lastSystem)
	}
	if !strings.Contains(gen.lastPrompt, "What next?") {
		t.Errorf("expected user query in prompt, got %q", gen.lastPrompt)
	}
}

func TestPersonalizedResponse_ResumesConversation(t *testing.T) {
	gen := &stubGenerator{reply: "plain text answer"}
	env := newTestEnv(t, gen, nil)
	ctx := context.Background()

	first, err := env.engine.PersonalizedResponse(ctx, "chatty-user", "hello", "")
	if err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	second, err := env.engine.PersonalizedResponse(ctx, "chatty-user", "more please", first.ConversationID)
	if err != nil {
		t.Fatalf("second request failed: %v", err)
	}
	if second.ConversationID != first.ConversationID {
		t.Errorf("expected resumed conversation, got %s then %s", first.ConversationID, second.ConversationID)
	}
	if !strings.Contains(gen.lastSystem, "Previous Messages: 1") {
		t.Errorf("expected prior turn count in system message, got %q", gen.lastSystem)
	}
}

func TestRecordGoalProgress_CreatesProfileAndGoal(t *testing.T) {
	env := newTestEnv(t, &stubGenerator{reply: "ok"}, nil)
	ctx := context.Background()

	g, err := env.engine.RecordGoalProgress(ctx, "goal-user", "daily_protein", 100, 85)
	if err != nil {
		t.Fatalf("RecordGoalProgress returned error: %v", err)
	}
	if g.Status != goal.StatusOnTrack {
		t.Errorf("expected on_track at 85%%, got %s", g.Status)
	}
	if _, err := env.profiles.Get(ctx, "goal-user"); err != nil {
		t.Errorf("expected profile created alongside the goal: %v", err)
	}
}

func TestProactiveEngagement_ChecksInOnInactiveUsers(t *testing.T) {
	gen := &stubGenerator{reply: "Time for a healthy check-in!"}
	env := newTestEnv(t, gen, nil)
	ctx := context.Background()

	for _, userID := range []string{"idle-user", "active-user"} {
		if _, err := env.engine.PersonalizedResponse(ctx, userID, "hi", ""); err != nil {
			t.Fatalf("seed request for %s failed: %v", userID, err)
		}
	}
	stale := time.Now().Add(-25 * time.Hour)
	if err := env.db.Model(&profile.UserProfile{}).Where("user_id = ?", "idle-user").
		Update("last_interaction", stale).Error; err != nil {
		t.Fatalf("failed to backdate profile: %v", err)
	}

	engaged, err := env.engine.ProactiveEngagement(ctx)
	if err != nil {
		t.Fatalf("ProactiveEngagement returned error: %v", err)
	}
	if engaged != 1 {
		t.Fatalf("expected exactly one check-in, got %d", engaged)
	}

	recent, err := env.interactions.Recent(ctx, "idle-user", 10)
	if err != nil {
		t.Fatalf("recent lookup failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected seeded plus proactive interactions, got %d", len(recent))
	}
	checkIn := recent[0]
	if checkIn.Query != "Proactive coaching check-in" {
		t.Errorf("unexpected check-in query: %q", checkIn.Query)
	}
	var meta map[string]interface{}
	if err := json.Unmarshal(checkIn.Context, &meta); err != nil {
		t.Fatalf("failed to decode check-in context: %v", err)
	}
	if meta["type"] != "proactive" {
		t.Errorf("expected proactive marker, got %v", meta["type"])
	}
	if meta["hours_inactive"].(float64) < 24 {
		t.Errorf("expected hours_inactive >= 24, got %v", meta["hours_inactive"])
	}
}

func TestProactiveEngagement_SkipsUserOnGeneratorFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("down")}
	env := newTestEnv(t, gen, nil)
	ctx := context.Background()

	if _, err := env.profiles.GetOrCreate(ctx, "idle-user"); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := env.db.Model(&profile.UserProfile{}).Where("user_id = ?", "idle-user").
		Update("last_interaction", stale).Error; err != nil {
		t.Fatalf("failed to backdate profile: %v", err)
	}

	engaged, err := env.engine.ProactiveEngagement(ctx)
	if err != nil {
		t.Fatalf("ProactiveEngagement returned error: %v", err)
	}
	if engaged != 0 {
		t.Errorf("expected no check-ins when the generator is down, got %d", engaged)
	}
}

func TestBehavioralInsights_Report(t *testing.T) {
	gen := &stubGenerator{reply: "ok"}
	env := newTestEnv(t, gen, func(query, response string) float64 { return 0.8 })
	ctx := context.Background()

	if _, err := env.engine.RecordGoalProgress(ctx, "insight-user", "daily_protein", 100, 60); err != nil {
		t.Fatalf("goal seed failed: %v", err)
	}
	if _, err := env.engine.RecordGoalProgress(ctx, "insight-user", "daily_protein", 100, 90); err != nil {
		t.Fatalf("goal update failed: %v", err)
	}
	for i := 0; i < 6; i++ {
		if _, err := env.interactions.Append(ctx, "insight-user", "c1", "daily_protein check", "good", 10, nil); err != nil {
			t.Fatalf("interaction seed failed: %v", err)
		}
	}

	insights, err := env.engine.BehavioralInsights(ctx, "insight-user")
	if err != nil {
		t.Fatalf("BehavioralInsights returned error: %v", err)
	}
	if insights.UserID != "insight-user" {
		t.Errorf("unexpected user id %s", insights.UserID)
	}
	if insights.TotalInteractions != 6 {
		t.Errorf("expected 6 interactions, got %d", insights.TotalInteractions)
	}
	if len(insights.GoalAchievementTrends) != 1 {
		t.Fatalf("expected one goal trend, got %d", len(insights.GoalAchievementTrends))
	}
	trend := insights.GoalAchievementTrends[0]
	if trend.GoalType != "daily_protein" || trend.CompletionRate != 90 {
		t.Errorf("unexpected trend: %+v", trend)
	}
	if trend.ImprovementRate != 15 {
		t.Errorf("expected improvement rate (90-60)/2 = 15, got %v", trend.ImprovementRate)
	}
	// Same-day interactions mean daily-or-better engagement
	if trend.ConsistencyScore != 1 {
		t.Errorf("expected full consistency for same-day interactions, got %v", trend.ConsistencyScore)
	}

	found := false
	for _, ind := range insights.BehaviorChangeIndicators {
		if ind.Pattern == pattern.TypePositiveEngagement {
			found = true
			if ind.Impact != "positive" {
				t.Errorf("expected positive impact, got %s", ind.Impact)
			}
		}
	}
	if !found {
		t.Error("expected a positive_engagement change indicator")
	}
	eff := insights.CoachingEffectiveness
	if eff.EngagementRate != float64(6)/30 {
		t.Errorf("expected engagement rate 0.2, got %v", eff.EngagementRate)
	}
	if eff.GoalCompletionAverage != 90 {
		t.Errorf("expected completion average 90, got %v", eff.GoalCompletionAverage)
	}
}
