package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"login-system/internal/domain"
)

// CredentialRepository define el contrato de persistencia para credenciales.
type CredentialRepository interface {
	FindByUsername(ctx context.Context, username string) (domain.Credential, error)
	// Create falla con domain.ErrAlreadyExists si el username ya existe.
	Create(ctx context.Context, cred domain.Credential) error
}

// PgCredentialRepository implementa CredentialRepository usando pgx.
type PgCredentialRepository struct {
	pool pgxQuerier
}

func NewPgCredentialRepository(pool pgxQuerier) *PgCredentialRepository {
	return &PgCredentialRepository{pool: pool}
}

func (r *PgCredentialRepository) FindByUsername(ctx context.Context, username string) (domain.Credential, error) {
	const query = `
		SELECT id, username, password_hash, created_at
		FROM credentials
		WHERE username = $1
	`
	var c domain.Credential
	err := r.pool.QueryRow(ctx, query, username).Scan(
		&c.ID,
		&c.Username,
		&c.PasswordHash,
		&c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Credential{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Credential{}, storageErr("find credential", err)
	}
	return c, nil
}

func (r *PgCredentialRepository) Create(ctx context.Context, cred domain.Credential) error {
	const query = `
		INSERT INTO credentials (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`
	tag, err := r.pool.Exec(ctx, query,
		cred.ID,
		cred.Username,
		cred.PasswordHash,
		cred.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrAlreadyExists
		}
		return storageErr("create credential", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

type memoryCredentialRepository struct {
	mu    sync.RWMutex
	items map[string]domain.Credential
}

// NewMemoryCredentialRepository crea un repositorio en memoria (tests y desarrollo).
func NewMemoryCredentialRepository() CredentialRepository {
	return &memoryCredentialRepository{
		items: make(map[string]domain.Credential),
	}
}

func (r *memoryCredentialRepository) FindByUsername(_ context.Context, username string) (domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[username]
	if !ok {
		return domain.Credential{}, domain.ErrNotFound
	}
	return c, nil
}

func (r *memoryCredentialRepository) Create(_ context.Context, cred domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[cred.Username]; ok {
		return domain.ErrAlreadyExists
	}
	r.items[cred.Username] = cred
	return nil
}
