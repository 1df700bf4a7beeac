package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"login-system/internal/domain"
)

// SessionRepository persiste sesiones indexadas por token opaco.
type SessionRepository interface {
	// Create genera el token, persiste la sesion y devuelve el token.
	Create(ctx context.Context, session domain.Session) (string, error)
	// Lookup devuelve domain.ErrNotFound si el token no existe o ya expiro.
	Lookup(ctx context.Context, token string) (domain.Session, error)
	// Destroy es idempotente.
	Destroy(ctx context.Context, token string) error
}

type PgSessionRepository struct {
	pool pgxQuerier
	now  func() time.Time
}

func NewPgSessionRepository(pool pgxQuerier) *PgSessionRepository {
	return &PgSessionRepository{
		pool: pool,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (r *PgSessionRepository) Create(ctx context.Context, session domain.Session) (string, error) {
	token, tokenHash, err := newSessionToken()
	if err != nil {
		return "", err
	}

	var expiresAt *time.Time
	if !session.ExpiresAt.IsZero() {
		expiresAt = &session.ExpiresAt
	}

	const query = `
		INSERT INTO sessions (token_hash, user_id, username, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err = r.pool.Exec(ctx, query,
		tokenHash,
		session.UserID,
		session.Username,
		session.CreatedAt,
		expiresAt,
	)
	if err != nil {
		return "", storageErr("create session", err)
	}
	return token, nil
}

func (r *PgSessionRepository) Lookup(ctx context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, domain.ErrNotFound
	}

	const query = `
		SELECT user_id, username, created_at, expires_at
		FROM sessions
		WHERE token_hash = $1 AND (expires_at IS NULL OR expires_at > $2)
	`
	var (
		session   domain.Session
		expiresAt *time.Time
	)
	err := r.pool.QueryRow(ctx, query, hashSessionToken(token), r.now()).Scan(
		&session.UserID,
		&session.Username,
		&session.CreatedAt,
		&expiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Session{}, storageErr("lookup session", err)
	}
	if expiresAt != nil {
		session.ExpiresAt = *expiresAt
	}
	session.Token = token
	return session, nil
}

func (r *PgSessionRepository) Destroy(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	const query = `DELETE FROM sessions WHERE token_hash = $1`
	if _, err := r.pool.Exec(ctx, query, hashSessionToken(token)); err != nil {
		return storageErr("destroy session", err)
	}
	return nil
}

// PurgeExpired borra sesiones vencidas y devuelve cuantas elimino.
func (r *PgSessionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at <= $1`
	tag, err := r.pool.Exec(ctx, query, r.now())
	if err != nil {
		return 0, storageErr("purge sessions", err)
	}
	return tag.RowsAffected(), nil
}

type memorySessionRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Session
	now   func() time.Time
}

// NewMemorySessionRepository crea un store de sesiones en memoria.
// No sobrevive reinicios del proceso.
func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{
		items: make(map[string]domain.Session),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *memorySessionRepository) Create(_ context.Context, session domain.Session) (string, error) {
	token, tokenHash, err := newSessionToken()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	session.Token = ""
	r.items[tokenHash] = session
	return token, nil
}

func (r *memorySessionRepository) Lookup(_ context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, domain.ErrNotFound
	}
	key := hashSessionToken(token)
	r.mu.RLock()
	session, ok := r.items[key]
	r.mu.RUnlock()
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	if session.Expired(r.now()) {
		r.mu.Lock()
		delete(r.items, key)
		r.mu.Unlock()
		return domain.Session{}, domain.ErrNotFound
	}
	session.Token = token
	return session, nil
}

func (r *memorySessionRepository) Destroy(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, hashSessionToken(token))
	return nil
}
