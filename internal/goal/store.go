package goal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func unmarshalHistory(raw []byte, out *[]Adjustment) error {
	return json.Unmarshal(raw, out)
}

// Store handles persistence for user goals
type Store struct {
	db *gorm.DB
}

// NewStore creates a new goal store
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Upsert creates or updates the (userID, goalType) goal, reclassifies its
// status from the completion rate and appends one adjustment-history entry.
// The read-modify-write runs in a transaction, row-locked on postgres, so
// concurrent submissions never lose a history entry or create a second row.
func (s *Store) Upsert(ctx context.Context, userID, goalType string, target, current float64, reason string) (*Goal, error) {
	var result *Goal

	// A concurrent creator can win the insert race; the retry lands on the
	// update path against the surviving row.
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.upsertOnce(ctx, userID, goalType, target, current, reason)
		if err == nil || !isDuplicateErr(err) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert goal %s/%s: %w", userID, goalType, err)
	}
	return result, nil
}

func (s *Store) upsertOnce(ctx context.Context, userID, goalType string, target, current float64, reason string) (*Goal, error) {
	now := time.Now()
	rate := RawCompletionRate(current, target)
	status := ClassifyStatus(rate)
	var out Goal

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Where("user_id = ? AND goal_type = ?", userID, goalType)
		if tx.Dialector.Name() == "postgres" {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var g Goal
		err := q.First(&g).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			entry := Adjustment{
				Timestamp:      now,
				OldTarget:      target,
				NewTarget:      target,
				Reason:         reason,
				CompletionRate: rate,
			}
			historyJSON, merr := json.Marshal([]Adjustment{entry})
			if merr != nil {
				return merr
			}
			g = Goal{
				UserID:            userID,
				GoalType:          goalType,
				TargetValue:       target,
				CurrentValue:      current,
				Status:            status,
				LastUpdated:       now,
				AdjustmentHistory: datatypes.JSON(historyJSON),
			}
			if err := tx.Create(&g).Error; err != nil {
				return err
			}
			out = g
			return nil
		}
		if err != nil {
			return err
		}

		var history []Adjustment
		if err := unmarshalHistory(g.AdjustmentHistory, &history); err != nil {
			// Unreadable history is still append-only: keep the raw bytes
			// out of harm's way by refusing the write.
			return fmt.Errorf("corrupt adjustment history: %w", err)
		}
		history = append(history, Adjustment{
			Timestamp:      now,
			OldTarget:      g.TargetValue,
			NewTarget:      target,
			Reason:         reason,
			CompletionRate: rate,
		})
		historyJSON, merr := json.Marshal(history)
		if merr != nil {
			return merr
		}

		updates := map[string]interface{}{
			"target_value":       target,
			"current_value":      current,
			"status":             string(status),
			"last_updated":       now,
			"adjustment_history": datatypes.JSON(historyJSON),
		}
		if err := tx.Model(&Goal{}).Where("id = ?", g.ID).Updates(updates).Error; err != nil {
			return err
		}

		g.TargetValue = target
		g.CurrentValue = current
		g.Status = status
		g.LastUpdated = now
		g.AdjustmentHistory = datatypes.JSON(historyJSON)
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// ListForUser returns all goals for a user
func (s *Store) ListForUser(ctx context.Context, userID string) ([]Goal, error) {
	var goals []Goal
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("failed to list goals for %s: %w", userID, err)
	}
	return goals, nil
}

// Get returns one goal by (userID, goalType)
func (s *Store) Get(ctx context.Context, userID, goalType string) (*Goal, error) {
	var g Goal
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND goal_type = ?", userID, goalType).
		First(&g).Error; err != nil {
		return nil, fmt.Errorf("goal not found for %s/%s: %w", userID, goalType, err)
	}
	return &g, nil
}

// ListUserIDs returns every user id with at least one goal
func (s *Store) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := s.db.WithContext(ctx).Model(&Goal{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list goal owners: %w", err)
	}
	return ids, nil
}
