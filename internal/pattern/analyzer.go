package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"fitagent/internal/interaction"
)

// Pattern types mined from the interaction log
const (
	TypePeakActivity       = "peak_activity_time"
	TypePositiveEngagement = "positive_engagement"
	TypeNeedsSupport       = "needs_support"
)

// MinSignal is the minimum interaction count before any pattern is emitted.
// Below it the analyzer returns an empty set, which is not an error.
const MinSignal = 5

// BehaviorPattern is the durable record, upserted replace-by-type. It is
// derived and always recomputable from the interaction log, so losing these
// rows degrades personalization but never correctness.
type BehaviorPattern struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	UserID          string         `gorm:"size:64;not null;uniqueIndex:idx_user_pattern_type" json:"user_id"`
	PatternType     string         `gorm:"size:64;not null;uniqueIndex:idx_user_pattern_type" json:"pattern_type"`
	Confidence      float64        `gorm:"not null" json:"confidence"`
	Frequency       int            `gorm:"not null" json:"frequency"`
	LastOccurrence  time.Time      `gorm:"not null" json:"last_occurrence"`
	Triggers        datatypes.JSON `gorm:"not null;default:'[]'" json:"triggers"`
	Recommendations datatypes.JSON `gorm:"not null;default:'[]'" json:"recommendations"`
}

// TableName specifies the table name for GORM
func (BehaviorPattern) TableName() string {
	return "behavior_patterns"
}

// Pattern is one freshly computed behavior pattern
type Pattern struct {
	Type            string    `json:"pattern_type"`
	Confidence      float64   `json:"confidence"`
	Frequency       int       `json:"frequency"`
	LastOccurrence  time.Time `json:"last_occurrence"`
	Triggers        []string  `json:"triggers"`
	Recommendations []string  `json:"recommendations"`
}

// Analyzer mines recurring structure from a user's recent interactions
type Analyzer struct {
	db           *gorm.DB
	interactions *interaction.Log
	window       int
}

// NewAnalyzer creates a pattern analyzer reading up to window recent
// interactions per run
func NewAnalyzer(db *gorm.DB, interactions *interaction.Log, window int) *Analyzer {
	if window <= 0 {
		window = interaction.RecentWindow
	}
	return &Analyzer{db: db, interactions: interactions, window: window}
}

// Analyze recomputes the user's behavior patterns and persists each one
// replace-by-type. It returns only the freshly computed set, in a stable
// order: timing pattern first, then the sentiment pattern if any.
func (a *Analyzer) Analyze(ctx context.Context, userID string) ([]Pattern, error) {
	recs, err := a.interactions.Recent(ctx, userID, a.window)
	if err != nil {
		return nil, fmt.Errorf("pattern analysis read failed for %s: %w", userID, err)
	}
	if len(recs) < MinSignal {
		return []Pattern{}, nil
	}

	latest := recs[0].Timestamp
	for _, r := range recs {
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
	}

	patterns := []Pattern{a.timingPattern(recs, latest)}
	if p, ok := a.sentimentPattern(recs, latest); ok {
		patterns = append(patterns, p)
	}

	// Persistence is best-effort: the records are recomputable, so a store
	// hiccup here must not fail the request
	for _, p := range patterns {
		if err := a.upsert(ctx, userID, p); err != nil {
			log.Printf("[PatternAnalyzer] upsert %s for %s failed: %v", p.Type, userID, err)
		}
	}
	return patterns, nil
}

// timingPattern buckets interactions by hour of day and reports the peak.
// Tied hours resolve to the earliest, keeping the result deterministic.
func (a *Analyzer) timingPattern(recs []interaction.Record, latest time.Time) Pattern {
	var hourCounts [24]int
	for _, r := range recs {
		hourCounts[r.Timestamp.Hour()]++
	}
	peakHour, peakCount := 0, 0
	for hour, count := range hourCounts {
		if count > peakCount {
			peakHour, peakCount = hour, count
		}
	}
	return Pattern{
		Type:            TypePeakActivity,
		Confidence:      0.8,
		Frequency:       peakCount,
		LastOccurrence:  latest,
		Triggers:        []string{fmt.Sprintf("hour_%d", peakHour)},
		Recommendations: []string{fmt.Sprintf("Schedule coaching reminders around %d:00", peakHour)},
	}
}

// sentimentPattern reports engagement from the mean sentiment score. A mean
// inside [0.4, 0.6] carries no sentiment signal and emits nothing.
func (a *Analyzer) sentimentPattern(recs []interaction.Record, latest time.Time) (Pattern, bool) {
	var sum float64
	above, below := 0, 0
	for _, r := range recs {
		sum += r.Sentiment
		if r.Sentiment > 0.6 {
			above++
		}
		if r.Sentiment < 0.4 {
			below++
		}
	}
	mean := sum / float64(len(recs))

	switch {
	case mean > 0.6:
		return Pattern{
			Type:            TypePositiveEngagement,
			Confidence:      0.9,
			Frequency:       above,
			LastOccurrence:  latest,
			Triggers:        []string{"positive_feedback", "goal_achievement"},
			Recommendations: []string{"Continue motivational coaching style", "Increase goal challenges"},
		}, true
	case mean < 0.4:
		return Pattern{
			Type:            TypeNeedsSupport,
			Confidence:      0.8,
			Frequency:       below,
			LastOccurrence:  latest,
			Triggers:        []string{"goal_struggles", "negative_feedback"},
			Recommendations: []string{"Switch to supportive coaching style", "Lower goal targets temporarily"},
		}, true
	default:
		return Pattern{}, false
	}
}

func (a *Analyzer) upsert(ctx context.Context, userID string, p Pattern) error {
	triggers, err := json.Marshal(p.Triggers)
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(p.Recommendations)
	if err != nil {
		return err
	}
	row := BehaviorPattern{
		UserID:          userID,
		PatternType:     p.Type,
		Confidence:      p.Confidence,
		Frequency:       p.Frequency,
		LastOccurrence:  p.LastOccurrence,
		Triggers:        datatypes.JSON(triggers),
		Recommendations: datatypes.JSON(recommendations),
	}
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "pattern_type"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"confidence", "frequency", "last_occurrence", "triggers", "recommendations",
		}),
	}).Create(&row).Error
}

// StoredForUser returns the persisted pattern rows for a user
func (a *Analyzer) StoredForUser(ctx context.Context, userID string) ([]BehaviorPattern, error) {
	var rows []BehaviorPattern
	if err := a.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("pattern_type").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load patterns for %s: %w", userID, err)
	}
	return rows, nil
}
