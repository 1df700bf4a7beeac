package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"login-system/internal/domain"
)

type redisKVClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisSessionRepository guarda sesiones en Redis usando el TTL nativo.
type RedisSessionRepository struct {
	client redisKVClient
	prefix string
	now    func() time.Time
}

type redisSession struct {
	UserID    string    `json:"uid"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	if client == nil {
		return nil
	}
	return newRedisSessionRepository(client)
}

func newRedisSessionRepository(client redisKVClient) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: "session:",
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisSessionRepository) Create(ctx context.Context, session domain.Session) (string, error) {
	var ttl time.Duration
	if !session.ExpiresAt.IsZero() {
		ttl = session.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return "", fmt.Errorf("create session: expiry %s is in the past", session.ExpiresAt)
		}
	}

	token, tokenHash, err := newSessionToken()
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(redisSession{
		UserID:    session.UserID,
		Username:  session.Username,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}

	ok, err := r.client.SetNX(ctx, r.prefix+tokenHash, payload, ttl).Result()
	if err != nil {
		return "", storageErr("create session", err)
	}
	if !ok {
		return "", storageErr("create session", errors.New("token collision"))
	}
	return token, nil
}

func (r *RedisSessionRepository) Lookup(ctx context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, domain.ErrNotFound
	}
	raw, err := r.client.Get(ctx, r.prefix+hashSessionToken(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, storageErr("lookup session", err)
	}

	var stored redisSession
	if err := json.Unmarshal(raw, &stored); err != nil {
		return domain.Session{}, storageErr("decode session", err)
	}
	session := domain.Session{
		Token:     token,
		UserID:    stored.UserID,
		Username:  stored.Username,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}
	if session.Expired(r.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return session, nil
}

func (r *RedisSessionRepository) Destroy(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := r.client.Del(ctx, r.prefix+hashSessionToken(token)).Err(); err != nil {
		return storageErr("destroy session", err)
	}
	return nil
}
