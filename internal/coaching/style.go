package coaching

import "fmt"

// Style is the coaching voice used for a response
type Style string

const (
	StyleMotivational Style = "motivational"
	StyleAnalytical   Style = "analytical"
	StyleSupportive   Style = "supportive"
	StyleChallenging  Style = "challenging"
	StyleEducational  Style = "educational"
)

// styleDescriptions phrases each style for the generation prompt
var styleDescriptions = map[Style]string{
	StyleMotivational: "encouraging, energetic, focus on achievements",
	StyleAnalytical:   "data-driven, detailed, focus on metrics",
	StyleSupportive:   "empathetic, understanding, focus on emotional support",
	StyleChallenging:  "direct, goal-oriented, focus on pushing limits",
	StyleEducational:  "informative, explanatory, focus on learning",
}

// ParseStyle validates a stored or client-supplied style string
func ParseStyle(s string) (Style, error) {
	style := Style(s)
	if _, ok := styleDescriptions[style]; !ok {
		return "", fmt.Errorf("unknown coaching style %q", s)
	}
	return style, nil
}

// Describe returns the prompt phrasing for a style
func (s Style) Describe() string {
	return styleDescriptions[s]
}
