package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	sessionKeyPrefix = "session:"
	sessionExpiryKey = "sessions:expiry"
)

// SessionRepository keeps sessions in Redis as JSON with a TTL matching their expiry.
// A sorted set indexed by expiry lets operators count and purge stale sessions.
type SessionRepository struct {
	client *redis.Client
	logger *logrus.Logger
	now    func() time.Time
}

func NewSessionRepository(client *redis.Client, logger *logrus.Logger) *SessionRepository {
	return &SessionRepository{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

// Save writes the session and removes the id it was rotated away from, if any.
func (r *SessionRepository) Save(ctx context.Context, s *models.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, s.ID)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	previous := s.PreviousID()
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(s.ID), data, ttl)
		pipe.ZAdd(ctx, sessionExpiryKey, redis.Z{Score: float64(s.ExpiresAt.Unix()), Member: s.ID})
		if previous != "" {
			pipe.Del(ctx, sessionKey(previous))
			pipe.ZRem(ctx, sessionExpiryKey, previous)
		}
		return nil
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store session in Redis")
		return fmt.Errorf("failed to store session: %w", err)
	}

	s.MarkStored()
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.WithError(err).Error("Failed to get session from Redis")
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s models.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if !s.ExpiresAt.After(r.now()) {
		return nil, ErrNotFound
	}
	s.MarkStored()
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(id))
		pipe.ZRem(ctx, sessionExpiryKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanExpired returns the ids of sessions that expired at or before now and,
// unless dryRun is set, deletes them along with their index entries.
func (r *SessionRepository) CleanExpired(ctx context.Context, now time.Time, dryRun bool) ([]string, error) {
	ids, err := r.client.ZRangeByScore(ctx, sessionExpiryKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list expired sessions: %w", err)
	}
	if dryRun || len(ids) == 0 {
		return ids, nil
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.Del(ctx, sessionKey(id))
			pipe.ZRem(ctx, sessionExpiryKey, id)
		}
		return nil
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to delete expired sessions")
		return nil, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return ids, nil
}
