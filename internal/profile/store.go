package profile

import (
	"context"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store handles persistence for user profiles
type Store struct {
	db *gorm.DB
}

// NewStore creates a new profile store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// GetOrCreate returns the profile for userID, creating it with defaults on
// first contact. The insert uses ON CONFLICT DO NOTHING so concurrent calls
// for the same user never produce duplicate rows.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*UserProfile, error) {
	fresh := UserProfile{
		UserID:        userID,
		CoachingStyle: DefaultCoachingStyle,
		Preferences:   datatypes.JSON([]byte("{}")),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&fresh).Error; err != nil {
		return nil, fmt.Errorf("failed to upsert profile %s: %w", userID, err)
	}

	var p UserProfile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("failed to load profile %s: %w", userID, err)
	}
	return &p, nil
}

// Get returns an existing profile without creating one
func (s *Store) Get(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	if err := s.db.WithContext(ctx).First(&p, "user_id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("profile not found for %s: %w", userID, err)
	}
	return &p, nil
}

// TouchInteraction bumps the interaction counter and refreshes the
// last-interaction timestamp. The increment runs as a SQL expression so
// concurrent interactions never lose a count. Callers pass the transaction
// the interaction insert runs in, keeping both writes atomic.
func (s *Store) TouchInteraction(tx *gorm.DB, userID string, now time.Time) error {
	res := tx.Model(&UserProfile{}).Where("user_id = ?", userID).Updates(map[string]interface{}{
		"total_interactions": gorm.Expr("total_interactions + ?", 1),
		"last_interaction":   now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to touch profile %s: %w", userID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no profile to touch for %s", userID)
	}
	return nil
}

// UpdatePreferences replaces the free-form preference blob
func (s *Store) UpdatePreferences(ctx context.Context, userID string, prefs datatypes.JSON) error {
	if err := s.db.WithContext(ctx).Model(&UserProfile{}).
		Where("user_id = ?", userID).
		Update("preferences", prefs).Error; err != nil {
		return fmt.Errorf("failed to update preferences for %s: %w", userID, err)
	}
	return nil
}

// ListInactiveSince returns profiles whose last interaction is older than
// cutoff. Users who never interacted are skipped: there is nothing to nudge
// them about yet.
func (s *Store) ListInactiveSince(ctx context.Context, cutoff time.Time) ([]UserProfile, error) {
	var profiles []UserProfile
	if err := s.db.WithContext(ctx).
		Where("last_interaction IS NOT NULL AND last_interaction < ?", cutoff).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to list inactive profiles: %w", err)
	}
	return profiles, nil
}
