package goal

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Status defines the derived achievement state of a goal
type Status string

const (
	StatusOnTrack   Status = "on_track"
	StatusBehind    Status = "behind"
	StatusAhead     Status = "ahead"
	StatusStagnant  Status = "stagnant"
	StatusImproving Status = "improving"
)

// statusEncodings is the v1 string-encoding table used at the storage
// boundary. Unknown strings are rejected on read, never defaulted.
var statusEncodings = map[string]Status{
	"on_track":  StatusOnTrack,
	"behind":    StatusBehind,
	"ahead":     StatusAhead,
	"stagnant":  StatusStagnant,
	"improving": StatusImproving,
}

// ParseStatus decodes a stored status string
func ParseStatus(s string) (Status, error) {
	status, ok := statusEncodings[s]
	if !ok {
		return "", fmt.Errorf("unknown goal status %q", s)
	}
	return status, nil
}

// Adjustment reasons used by the autonomy engine
const (
	ReasonExceeding = "Consistently exceeding target"
	ReasonStagnant  = "Goal appears stagnant, making it more achievable"
)

// Adjustment is one entry in a goal's append-only audit trail
type Adjustment struct {
	Timestamp      time.Time `json:"timestamp"`
	OldTarget      float64   `json:"old_target"`
	NewTarget      float64   `json:"new_target"`
	Reason         string    `json:"reason"`
	CompletionRate float64   `json:"completion_rate"`
}

// Goal represents one tracked metric for one user. A user has at most one
// goal per goal type, enforced by the composite unique index.
type Goal struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	UserID            string         `gorm:"size:64;not null;uniqueIndex:idx_user_goal_type" json:"user_id"`
	GoalType          string         `gorm:"size:64;not null;uniqueIndex:idx_user_goal_type" json:"goal_type"`
	TargetValue       float64        `gorm:"not null" json:"target_value"`
	CurrentValue      float64        `gorm:"not null" json:"current_value"`
	Deadline          *time.Time     `json:"deadline"`
	Priority          int            `gorm:"not null;default:3" json:"priority"` // 1-5, 5 highest
	Status            Status         `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	LastUpdated       time.Time      `gorm:"not null" json:"last_updated"`
	AdjustmentHistory datatypes.JSON `gorm:"not null;default:'[]'" json:"adjustment_history"`
}

// TableName specifies the table name for GORM
func (Goal) TableName() string {
	return "user_goals"
}

// CompletionRate is the derived completion percentage, clamped to [0, 100].
// A zero target always yields zero, guarding the division.
func CompletionRate(current, target float64) float64 {
	if target == 0 {
		return 0
	}
	rate := (current / target) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// RawCompletionRate is the unclamped ratio. The autonomy engine needs it to
// see how far past the target a user actually is.
func RawCompletionRate(current, target float64) float64 {
	if target == 0 {
		return 0
	}
	return (current / target) * 100
}

// ClassifyStatus maps a completion rate to a status using fixed thresholds
func ClassifyStatus(rate float64) Status {
	switch {
	case rate >= 100:
		return StatusAhead
	case rate >= 80:
		return StatusOnTrack
	case rate >= 50:
		return StatusBehind
	default:
		return StatusStagnant
	}
}

// History decodes the adjustment audit trail
func (g *Goal) History() ([]Adjustment, error) {
	var history []Adjustment
	if len(g.AdjustmentHistory) == 0 {
		return history, nil
	}
	if err := unmarshalHistory(g.AdjustmentHistory, &history); err != nil {
		return nil, fmt.Errorf("corrupt adjustment history for goal %d: %w", g.ID, err)
	}
	return history, nil
}
