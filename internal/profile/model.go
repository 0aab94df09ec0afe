package profile

import (
	"time"

	"gorm.io/datatypes"
)

// DefaultCoachingStyle is assigned to profiles created on first contact.
const DefaultCoachingStyle = "motivational"

// UserProfile is the durable per-user coaching record. Created lazily on
// first reference, never deleted.
type UserProfile struct {
	UserID            string         `gorm:"primaryKey;size:64" json:"user_id"`
	CoachingStyle     string         `gorm:"type:varchar(20);not null;default:'motivational'" json:"coaching_style"`
	Preferences       datatypes.JSON `gorm:"not null;default:'{}'" json:"preferences"`
	CreatedAt         time.Time      `json:"created_at"`
	LastInteraction   *time.Time     `json:"last_interaction"`
	TotalInteractions int            `gorm:"not null;default:0" json:"total_interactions"`
	SuccessRate       float64        `gorm:"not null;default:0" json:"success_rate"`
}

// TableName specifies the table name for GORM
func (UserProfile) TableName() string {
	return "user_profiles"
}
