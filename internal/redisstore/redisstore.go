// Package redisstore keeps firm sessions in Redis instead of the
// firm_sessions table.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lupy1233/cozyhomeV1/internal/database"
	"github.com/lupy1233/cozyhomeV1/internal/models"
)

const keyPrefix = "firm_session:"

// NewClient parses a redis:// or rediss:// URL and checks the server is
// reachable.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.PoolTimeout = 4 * time.Second
	opts.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// SessionStore stores each session as a JSON value under its token hash.
// Keys carry a TTL matching the session lifetime, so Redis drops expired
// sessions on its own.
type SessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a session store on client.
func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

func key(tokenHash string) string {
	return keyPrefix + tokenHash
}

// Create stores session. A token hash that already exists is reported as a
// *database.DuplicateError.
func (s *SessionStore) Create(ctx context.Context, session *models.Session) error {
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return errors.New("redisstore: session already expired")
	}
	payload, err := json.Marshal(record(session))
	if err != nil {
		return err
	}
	// Keep the key a little past expiry; the service decides validity.
	ok, err := s.client.SetNX(ctx, key(session.TokenHash), payload, ttl+time.Minute).Result()
	if err != nil {
		return fmt.Errorf("redisstore: create: %w", err)
	}
	if !ok {
		return &database.DuplicateError{Field: "session_token_hash"}
	}
	return nil
}

// GetByTokenHash returns the session or nil when none is stored.
func (s *SessionStore) GetByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, key(tokenHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get: %w", err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("redisstore: decode: %w", err)
	}
	session := rec.session()
	session.TokenHash = tokenHash
	return session, nil
}

// Touch records at as the last access time without changing the key's TTL.
func (s *SessionStore) Touch(ctx context.Context, tokenHash string, at time.Time) error {
	session, err := s.GetByTokenHash(ctx, tokenHash)
	if err != nil || session == nil {
		return err
	}
	session.LastAccessed = at
	payload, err := json.Marshal(record(session))
	if err != nil {
		return err
	}
	err = s.client.SetArgs(ctx, key(tokenHash), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: touch: %w", err)
	}
	return nil
}

// DeleteByTokenHash removes the session. Missing keys are not an error.
func (s *SessionStore) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if err := s.client.Del(ctx, key(tokenHash)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis evicts keys when their TTL runs out.
func (s *SessionStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// sessionRecord is the stored form. The token hash is the key and is not
// repeated in the value.
type sessionRecord struct {
	ID           string    `json:"id"`
	FirmUserID   string    `json:"firm_user_id"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	LastAccessed time.Time `json:"last_accessed"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
}

func record(s *models.Session) sessionRecord {
	return sessionRecord{
		ID:           s.ID,
		FirmUserID:   s.FirmUserID,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		LastAccessed: s.LastAccessed,
		IPAddress:    s.IPAddress,
		UserAgent:    s.UserAgent,
	}
}

func (r sessionRecord) session() *models.Session {
	return &models.Session{
		ID:           r.ID,
		FirmUserID:   r.FirmUserID,
		CreatedAt:    r.CreatedAt,
		ExpiresAt:    r.ExpiresAt,
		LastAccessed: r.LastAccessed,
		IPAddress:    r.IPAddress,
		UserAgent:    r.UserAgent,
	}
}
