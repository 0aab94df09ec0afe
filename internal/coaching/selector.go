package coaching

import (
	"fitagent/internal/pattern"
	"fitagent/internal/profile"
)

// SelectStyle picks the coaching style for one response. Fresh behavior
// patterns override the stored preference; the scan stops at the first
// qualifying pattern in slice order, so pattern order decides ties. Without
// a qualifying pattern the profile's preference wins, falling back to
// motivational when the stored value is unknown.
func SelectStyle(prof *profile.UserProfile, patterns []pattern.Pattern) Style {
	for _, p := range patterns {
		if p.Type == pattern.TypePositiveEngagement && p.Confidence > 0.8 {
			return StyleChallenging
		}
		if p.Type == pattern.TypeNeedsSupport && p.Confidence > 0.7 {
			return StyleSupportive
		}
	}
	if prof != nil {
		if style, err := ParseStyle(prof.CoachingStyle); err == nil {
			return style
		}
	}
	return StyleMotivational
}
