package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/yashrajoria/pharmacy-agent/models"
)

var (
	ErrSessionExists   = errors.New("checkout session already active")
	ErrSessionNotFound = errors.New("checkout session not found")
)

// SessionRepository holds at most one checkout session per conversation.
type SessionRepository interface {
	// Get returns nil, nil when the conversation has no session.
	Get(ctx context.Context, conversationID string) (*models.CheckoutSession, error)
	// Create fails with ErrSessionExists if the slot is taken.
	Create(ctx context.Context, s *models.CheckoutSession) error
	// Save overwrites an existing session. Returns ErrSessionNotFound.
	Save(ctx context.Context, s *models.CheckoutSession) error
	// Claim removes the conversation's session only if it is still
	// sessionID. Exactly one caller wins; the rest get ErrSessionNotFound.
	Claim(ctx context.Context, conversationID, sessionID string) error
}

type RedisSessionRepository struct {
	client *redis.Client
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

func sessionKey(conversationID string) string {
	return fmt.Sprintf("checkout:conversation:%s", conversationID)
}

func (r *RedisSessionRepository) Get(ctx context.Context, conversationID string) (*models.CheckoutSession, error) {
	val, err := r.client.Get(ctx, sessionKey(conversationID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s models.CheckoutSession
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionRepository) Create(ctx context.Context, s *models.CheckoutSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.ConversationID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setnx session: %w", err)
	}
	if !ok {
		return ErrSessionExists
	}
	return nil
}

func (r *RedisSessionRepository) Save(ctx context.Context, s *models.CheckoutSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := r.client.SetXX(ctx, sessionKey(s.ConversationID), data, 0).Result()
	if err != nil {
		return fmt.Errorf("redis setxx session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// Claim runs GET and DEL under WATCH, so a concurrent claim or save on
// another replica aborts this one.
func (r *RedisSessionRepository) Claim(ctx context.Context, conversationID, sessionID string) error {
	key := sessionKey(conversationID)
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		val, err := tx.Get(ctx, key).Result()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return fmt.Errorf("redis get session: %w", err)
		}
		var s models.CheckoutSession
		if err := json.Unmarshal([]byte(val), &s); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if s.ID != sessionID {
			return ErrSessionNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return ErrSessionNotFound
	}
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("redis claim session: %w", err)
	}
	return err
}

// MemorySessionRepository is used when REDIS_URL is unset.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.CheckoutSession
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string]models.CheckoutSession)}
}

func (r *MemorySessionRepository) Get(ctx context.Context, conversationID string) (*models.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conversationID]
	if !ok {
		return nil, nil
	}
	return cloneSession(s), nil
}

func (r *MemorySessionRepository) Create(ctx context.Context, s *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ConversationID]; ok {
		return ErrSessionExists
	}
	r.sessions[s.ConversationID] = *cloneSession(*s)
	return nil
}

func (r *MemorySessionRepository) Save(ctx context.Context, s *models.CheckoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ConversationID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[s.ConversationID] = *cloneSession(*s)
	return nil
}

func (r *MemorySessionRepository) Claim(ctx context.Context, conversationID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[conversationID]
	if !ok || s.ID != sessionID {
		return ErrSessionNotFound
	}
	delete(r.sessions, conversationID)
	return nil
}

func cloneSession(s models.CheckoutSession) *models.CheckoutSession {
	s.Trace = append([]models.TraceEvent(nil), s.Trace...)
	return &s
}
