package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fitagent/internal/profile"
)

// DefaultTopic labels every conversation until topic detection exists
const DefaultTopic = "nutrition_coaching"

// Turn is one completed exchange inside a conversation
type Turn struct {
	Timestamp     time.Time `json:"timestamp"`
	Query         string    `json:"query"`
	Response      string    `json:"response"`
	CoachingStyle string    `json:"coaching_style"`
}

// Conversation is one multi-turn coaching session. Messages holds the full
// ordered turn log as JSON.
type Conversation struct {
	ConversationID string         `gorm:"primaryKey;size:128" json:"conversation_id"`
	UserID         string         `gorm:"size:64;not null;index" json:"user_id"`
	Topic          string         `gorm:"size:64;not null" json:"topic"`
	CoachingStyle  string         `gorm:"type:varchar(20);not null" json:"coaching_style"`
	Sentiment      string         `gorm:"size:20;not null;default:'neutral'" json:"sentiment"`
	Messages       datatypes.JSON `gorm:"not null;default:'[]'" json:"messages"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActive     time.Time      `json:"last_active"`
}

// TableName specifies the table name for GORM
func (Conversation) TableName() string {
	return "conversations"
}

// Turns decodes the stored turn log
func (c *Conversation) Turns() ([]Turn, error) {
	var turns []Turn
	if len(c.Messages) == 0 {
		return turns, nil
	}
	if err := json.Unmarshal(c.Messages, &turns); err != nil {
		return nil, fmt.Errorf("corrupt message log on conversation %s: %w", c.ConversationID, err)
	}
	return turns, nil
}

// Manager owns conversation lifecycle and turn persistence
type Manager struct {
	db *gorm.DB
}

// NewManager creates a conversation manager
func NewManager(db *gorm.DB) *Manager {
	return &Manager{db: db}
}

// GetOrCreate resolves the conversation to continue. A known conversationID
// resumes that session; an empty or unknown one mints a fresh session bound
// to the user, so a stale client id never errors out a coaching request.
func (m *Manager) GetOrCreate(ctx context.Context, userID, conversationID string) (*Conversation, error) {
	if conversationID != "" {
		var conv Conversation
		err := m.db.WithContext(ctx).
			Where("conversation_id = ? AND user_id = ?", conversationID, userID).
			First(&conv).Error
		if err == nil {
			return &conv, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
		}
	}

	now := time.Now()
	conv := Conversation{
		ConversationID: fmt.Sprintf("%s_%d", userID, now.UnixNano()),
		UserID:         userID,
		Topic:          DefaultTopic,
		CoachingStyle:  profile.DefaultCoachingStyle,
		Sentiment:      "neutral",
		Messages:       datatypes.JSON("[]"),
		CreatedAt:      now,
		LastActive:     now,
	}
	if err := m.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, fmt.Errorf("failed to create conversation for %s: %w", userID, err)
	}
	return &conv, nil
}

// AppendTurn adds one exchange to the conversation and persists the full
// log together with the refreshed activity time. The passed conversation is
// updated in place so callers keep a current view.
func (m *Manager) AppendTurn(ctx context.Context, conv *Conversation, turn Turn) error {
	turns, err := conv.Turns()
	if err != nil {
		return err
	}
	turns = append(turns, turn)
	encoded, err := json.Marshal(turns)
	if err != nil {
		return fmt.Errorf("failed to encode message log: %w", err)
	}

	now := time.Now()
	res := m.db.WithContext(ctx).Model(&Conversation{}).
		Where("conversation_id = ?", conv.ConversationID).
		Updates(map[string]interface{}{
			"messages":       datatypes.JSON(encoded),
			"coaching_style": turn.CoachingStyle,
			"sentiment":      conv.Sentiment,
			"last_active":    now,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ConversationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("conversation %s vanished", conv.ConversationID)
	}
	conv.Messages = datatypes.JSON(encoded)
	conv.CoachingStyle = turn.CoachingStyle
	conv.LastActive = now
	return nil
}
