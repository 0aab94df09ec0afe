package interaction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"fitagent/internal/profile"
)

// RecentWindow is how many interactions the fast-access cache retains per
// user. Durable rows are never deleted; only the cache is trimmed.
const RecentWindow = 50

// Record is one immutable user exchange. Append-only: the source of truth
// for all behavior analysis.
type Record struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         string         `gorm:"size:64;not null;index:idx_interaction_user_time" json:"user_id"`
	ConversationID string         `gorm:"size:128;not null" json:"conversation_id"`
	Query          string         `gorm:"type:text;not null" json:"query"`
	Response       string         `gorm:"type:text;not null" json:"response"`
	Sentiment      float64        `gorm:"not null" json:"sentiment"`
	VPTokensEarned int            `gorm:"not null;default:0" json:"vp_tokens_earned"`
	Timestamp      time.Time      `gorm:"not null;index:idx_interaction_user_time" json:"timestamp"`
	Context        datatypes.JSON `gorm:"not null;default:'{}'" json:"context"`
}

// TableName specifies the table name for GORM
func (Record) TableName() string {
	return "interactions"
}

// SentimentScorer derives a sentiment score from one exchange. The scorer is
// injectable so a real classifier can be plugged in later.
type SentimentScorer func(query, response string) float64

// DefaultSentiment returns the fixed neutral-positive score used until a
// real classifier exists.
func DefaultSentiment(query, response string) float64 {
	return 0.7
}

// Log is the append-only interaction log with a redis-backed recent window
type Log struct {
	db       *gorm.DB
	rdb      *redis.Client
	profiles *profile.Store
	scorer   SentimentScorer
}

// NewLog creates the interaction log. rdb may be nil; the log then reads
// straight from the durable store.
func NewLog(db *gorm.DB, rdb *redis.Client, profiles *profile.Store, scorer SentimentScorer) *Log {
	if scorer == nil {
		scorer = DefaultSentiment
	}
	return &Log{db: db, rdb: rdb, profiles: profiles, scorer: scorer}
}

// Append persists one exchange with a server-side timestamp and bumps the
// owning profile's interaction counter in the same transaction, so the
// counter can never drift from the log.
func (l *Log) Append(ctx context.Context, userID, conversationID, query, response string, vpTokens int, meta map[string]interface{}) (*Record, error) {
	if meta == nil {
		meta = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal interaction context: %w", err)
	}

	now := time.Now()
	rec := Record{
		UserID:         userID,
		ConversationID: conversationID,
		Query:          query,
		Response:       response,
		Sentiment:      l.scorer(query, response),
		VPTokensEarned: vpTokens,
		Timestamp:      now,
		Context:        datatypes.JSON(metaJSON),
	}

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		return l.profiles.TouchInteraction(tx, userID, now)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append interaction for %s: %w", userID, err)
	}

	l.cachePush(ctx, &rec)
	return &rec, nil
}

// Recent returns the most recent limit interactions, newest first. The redis
// window answers when it can prove completeness; otherwise the durable store
// does.
func (l *Log) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	if recs, ok := l.cachedRecent(ctx, userID, limit); ok {
		return recs, nil
	}

	var recs []Record
	if err := l.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load recent interactions for %s: %w", userID, err)
	}
	return recs, nil
}

// TimestampsMatching returns timestamps of recent interactions whose query
// or context mentions term, newest first. Used for consistency scoring.
func (l *Log) TimestampsMatching(ctx context.Context, userID, term string, limit int) ([]time.Time, error) {
	like := "%" + term + "%"
	var ts []time.Time
	if err := l.db.WithContext(ctx).Model(&Record{}).
		Where("user_id = ? AND (query LIKE ? OR CAST(context AS TEXT) LIKE ?)", userID, like, like).
		Order("timestamp DESC").
		Limit(limit).
		Pluck("timestamp", &ts).Error; err != nil {
		return nil, fmt.Errorf("failed to match interactions for %s: %w", userID, err)
	}
	return ts, nil
}

func cacheKey(userID string) string {
	return "interactions:recent:" + userID
}

// cachePush is best-effort: a cache miss degrades to a DB read, never an error
func (l *Log) cachePush(ctx context.Context, rec *Record) {
	if l.rdb == nil {
		return
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	pipe := l.rdb.Pipeline()
	pipe.LPush(ctx, cacheKey(rec.UserID), raw)
	pipe.LTrim(ctx, cacheKey(rec.UserID), 0, RecentWindow-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("[InteractionLog] cache push failed for %s: %v", rec.UserID, err)
	}
}

func (l *Log) cachedRecent(ctx context.Context, userID string, limit int) ([]Record, bool) {
	if l.rdb == nil || limit <= 0 || limit > RecentWindow {
		return nil, false
	}
	vals, err := l.rdb.LRange(ctx, cacheKey(userID), 0, int64(limit-1)).Result()
	if err != nil || len(vals) < limit {
		// A short window cannot prove there is nothing older in the store
		return nil, false
	}
	recs := make([]Record, 0, len(vals))
	for _, v := range vals {
		var rec Record
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, false
		}
		recs = append(recs, rec)
	}
	return recs, true
}
