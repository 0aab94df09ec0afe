package coaching

import "encoding/json"

// Payload is the structured coaching response returned to clients. Every
// request produces one, whether the generator cooperated or not.
type Payload struct {
	Analysis         string                 `json:"analysis"`
	Recommendations  []string               `json:"recommendations"`
	VPTokensEarned   int                    `json:"vp_tokens_earned"`
	ProgressUpdate   map[string]interface{} `json:"progress_update"`
	NextSteps        []string               `json:"next_steps"`
	BehaviorInsights string                 `json:"behavior_insights"`
}

// FallbackPayload is returned when the generator is unreachable or its
// output is unusable. analysis carries whatever text is available.
func FallbackPayload(analysis string) Payload {
	return Payload{
		Analysis:         analysis,
		Recommendations:  []string{"Continue tracking your nutrition", "Stay consistent with your goals"},
		VPTokensEarned:   15,
		ProgressUpdate:   map[string]interface{}{"status": "processed"},
		NextSteps:        []string{"Log your next meal", "Check your progress"},
		BehaviorInsights: "Keep building healthy habits!",
	}
}

// ParsePayload decodes generator output. Output that is not a JSON object
// becomes a fallback payload carrying the raw text as the analysis, so a
// chatty model still yields a usable response.
func ParsePayload(raw string) Payload {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return FallbackPayload(raw)
	}
	// Partial objects keep whatever fields parsed; fill the rest
	fallback := FallbackPayload(raw)
	if p.Analysis == "" {
		p.Analysis = raw
	}
	if p.Recommendations == nil {
		p.Recommendations = fallback.Recommendations
	}
	if p.VPTokensEarned <= 0 {
		p.VPTokensEarned = fallback.VPTokensEarned
	}
	if p.ProgressUpdate == nil {
		p.ProgressUpdate = fallback.ProgressUpdate
	}
	if p.NextSteps == nil {
		p.NextSteps = fallback.NextSteps
	}
	if p.BehaviorInsights == "" {
		p.BehaviorInsights = fallback.BehaviorInsights
	}
	return p
}
