package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garnizeh/labbook/internal/config"
	"github.com/garnizeh/labbook/pkg/models"
	"github.com/garnizeh/labbook/pkg/repository"
	goredis "github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "labbook:session:"

// NewClient creates a Redis client from configuration.
func NewClient(cfg config.RedisConfig) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// Ping checks the connection to Redis.
func Ping(ctx context.Context, client *goredis.Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// SessionStore keeps admin sessions in Redis, one key per session with a
// TTL matching the session expiry.
type SessionStore struct {
	client *goredis.Client
	prefix string
	now    func() time.Time
}

var _ repository.SessionRepo = (*SessionStore)(nil)

func NewSessionStore(client *goredis.Client, prefix string) *SessionStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &SessionStore{client: client, prefix: prefix, now: time.Now}
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}

func (s *SessionStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess == nil {
		return fmt.Errorf("session is nil")
	}

	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", sess.ID)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err := s.client.Set(ctx, s.key(sess.ID), data, ttl).Err(); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &sess, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions is a no-op: Redis expires keys on its own.
func (s *SessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}
