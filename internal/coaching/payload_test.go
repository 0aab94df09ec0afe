package coaching

import "testing"

func TestParsePayload_StructuredOutput(t *testing.T) {
	raw := `{
		"analysis": "Great protein intake today",
		"recommendations": ["Add more fiber"],
		"vp_tokens_earned": 25,
		"progress_update": {"status": "on_track"},
		"next_steps": ["Plan tomorrow's meals"],
		"behavior_insights": "Morning logging is working well"
	}`
	p := ParsePayload(raw)
	if p.Analysis != "Great protein intake today" {
		t.Errorf("unexpected analysis: %q", p.Analysis)
	}
	if p.VPTokensEarned != 25 {
		t.Errorf("expected 25 tokens, got %d", p.VPTokensEarned)
	}
	if len(p.Recommendations) != 1 || p.Recommendations[0] != "Add more fiber" {
		t.Errorf("unexpected recommendations: %v", p.Recommendations)
	}
}

func TestParsePayload_PlainTextBecomesAnalysis(t *testing.T) {
	raw := "Keep up the good work with your meal logging!"
	p := ParsePayload(raw)
	if p.Analysis != raw {
		t.Errorf("expected raw text as analysis, got %q", p.Analysis)
	}
	if p.VPTokensEarned != 15 {
		t.Errorf("expected fallback reward 15, got %d", p.VPTokensEarned)
	}
	if len(p.Recommendations) != 2 || p.Recommendations[0] != "Continue tracking your nutrition" {
		t.Errorf("unexpected fallback recommendations: %v", p.Recommendations)
	}
	if p.BehaviorInsights != "Keep building healthy habits!" {
		t.Errorf("unexpected fallback insights: %q", p.BehaviorInsights)
	}
}

func TestParsePayload_PartialObjectFilled(t *testing.T) {
	raw := `{"analysis": "Solid progress", "vp_tokens_earned": 30}`
	p := ParsePayload(raw)
	if p.Analysis != "Solid progress" {
		t.Errorf("expected parsed analysis kept, got %q", p.Analysis)
	}
	if p.VPTokensEarned != 30 {
		t.Errorf("expected parsed reward kept, got %d", p.VPTokensEarned)
	}
	if len(p.NextSteps) == 0 {
		t.Error("expected next steps filled from defaults")
	}
	if p.ProgressUpdate["status"] != "processed" {
		t.Errorf("expected default progress update, got %v", p.ProgressUpdate)
	}
}

func TestFallbackPayload_Shape(t *testing.T) {
	p := FallbackPayload("service down")
	if p.Analysis != "service down" {
		t.Errorf("unexpected analysis: %q", p.Analysis)
	}
	if p.VPTokensEarned != 15 {
		t.Errorf("expected reward 15, got %d", p.VPTokensEarned)
	}
	if len(p.NextSteps) != 2 || p.NextSteps[0] != "Log your next meal" {
		t.Errorf("unexpected next steps: %v", p.NextSteps)
	}
}

func TestParseStyle(t *testing.T) {
	if _, err := ParseStyle("supportive"); err != nil {
		t.Errorf("expected supportive to parse: %v", err)
	}
	if _, err := ParseStyle("sarcastic"); err == nil {
		t.Error("expected unknown style to be rejected")
	}
}
