package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/heritage-trails/admin-api/internal/model"
)

const sessionKeyPrefix = "session:"

// SessionStore persists staff sessions.
type SessionStore interface {
	Create(ctx context.Context, session *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
	// DeleteForStaff removes every session of one staff member.
	DeleteForStaff(ctx context.Context, staffID string) error
	// DeleteOthersForStaff removes every session of staffID except keepID.
	DeleteOthersForStaff(ctx context.Context, staffID, keepID string) error
}

// RedisSessionStore keeps sessions as JSON under session:<id>, expiring
// with the session itself. A per-staff set indexes the live session ids.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a session store on client.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func staffSessionsKey(staffID string) string {
	return "staff_sessions:" + staffID
}

func (s *RedisSessionStore) Create(ctx context.Context, session *model.Session) error {
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, sessionKey(session.ID), data, ttl)
	pipe.SAdd(ctx, staffSessionsKey(session.StaffID), session.ID)
	pipe.Expire(ctx, staffSessionsKey(session.StaffID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, id string) (*model.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var session model.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	session, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, sessionKey(id))
	pipe.SRem(ctx, staffSessionsKey(session.StaffID), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisSessionStore) DeleteForStaff(ctx context.Context, staffID string) error {
	ids, err := s.client.SMembers(ctx, staffSessionsKey(staffID)).Result()
	if err != nil {
		return fmt.Errorf("listing staff sessions: %w", err)
	}

	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionKey(id))
	}
	keys = append(keys, staffSessionsKey(staffID))
	return s.client.Del(ctx, keys...).Err()
}

func (s *RedisSessionStore) DeleteOthersForStaff(ctx context.Context, staffID, keepID string) error {
	ids, err := s.client.SMembers(ctx, staffSessionsKey(staffID)).Result()
	if err != nil {
		return fmt.Errorf("listing staff sessions: %w", err)
	}

	var stale []any
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == keepID {
			continue
		}
		keys = append(keys, sessionKey(id))
		stale = append(stale, id)
	}
	if len(keys) == 0 {
		return nil
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, keys...)
	pipe.SRem(ctx, staffSessionsKey(staffID), stale...)
	_, err = pipe.Exec(ctx)
	return err
}
