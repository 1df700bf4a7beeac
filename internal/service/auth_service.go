package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"login-system/internal/domain"
	"login-system/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = fmt.Errorf("username taken: %w", domain.ErrAlreadyExists)
)

// AuthService coordina registro, login, logout y autorizacion.
type AuthService struct {
	logger      *zap.Logger
	credentials repository.CredentialRepository
	sessions    repository.SessionRepository
	hasher      PasswordHasher
	sessionTTL  time.Duration
	now         func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService recibe los stores ya inicializados; sessionTTL en cero desactiva la expiracion.
func NewAuthService(
	logger *zap.Logger,
	credentials repository.CredentialRepository,
	sessions repository.SessionRepository,
	hasher PasswordHasher,
	sessionTTL time.Duration,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if hasher == nil {
		hasher = NewBcryptHasher(DefaultBcryptCost)
	}
	return &AuthService{
		logger:      logger,
		credentials: credentials,
		sessions:    sessions,
		hasher:      hasher,
		sessionTTL:  sessionTTL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Identity es el resultado de Authorize: Authenticated o Anonymous.
type Identity struct {
	Authenticated bool
	UserID        string
	Username      string
}

// Anonymous es la identidad sin sesion valida.
var Anonymous = Identity{}

func (s *AuthService) Register(ctx context.Context, username, password string) (domain.Credential, error) {
	if s.credentials == nil {
		return domain.Credential{}, errors.New("auth service not configured")
	}

	username = strings.TrimSpace(username)
	if err := validateRegistration(username, password); err != nil {
		return domain.Credential{}, err
	}

	if _, err := s.credentials.FindByUsername(ctx, username); err == nil {
		return domain.Credential{}, ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		s.logger.Error("register: lookup credential failed", zap.Error(err), zap.String("username", username))
		return domain.Credential{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("hash password: %w", err)
	}

	cred := domain.Credential{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	// La unicidad la garantiza el store; perder la carrera tambien es ErrAlreadyExists.
	if err := s.credentials.Create(ctx, cred); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Credential{}, ErrUsernameTaken
		}
		s.logger.Error("register: create credential failed", zap.Error(err), zap.String("username", username))
		return domain.Credential{}, err
	}

	s.logger.Info("user registered", zap.String("user_id", cred.ID), zap.String("username", cred.Username))
	return cred, nil
}

// Login devuelve la sesion creada, con el token que la capa de transporte debe guardar.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Session, error) {
	if s.credentials == nil || s.sessions == nil {
		return domain.Session{}, errors.New("auth service not configured")
	}

	username = strings.TrimSpace(username)
	cred, err := s.credentials.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Mismo costo de bcrypt que un password incorrecto.
			s.hasher.Verify(password, s.dummyPasswordHash())
			return domain.Session{}, ErrInvalidCredentials
		}
		s.logger.Error("login: lookup credential failed", zap.Error(err), zap.String("username", username))
		return domain.Session{}, err
	}
	if !s.hasher.Verify(password, cred.PasswordHash) {
		return domain.Session{}, ErrInvalidCredentials
	}

	now := s.now()
	session := domain.Session{
		UserID:    cred.ID,
		Username:  cred.Username,
		CreatedAt: now,
	}
	if s.sessionTTL > 0 {
		session.ExpiresAt = now.Add(s.sessionTTL)
	}

	token, err := s.sessions.Create(ctx, session)
	if err != nil {
		s.logger.Error("login: create session failed", zap.Error(err), zap.String("user_id", cred.ID))
		return domain.Session{}, err
	}
	session.Token = token
	return session, nil
}

// Logout es idempotente: tokens vacios, invalidos o ya destruidos no son error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if s.sessions == nil || strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		s.logger.Error("logout: destroy session failed", zap.Error(err))
		return err
	}
	return nil
}

// Authorize no muta estado; un token desconocido o vencido es Anonymous sin error.
func (s *AuthService) Authorize(ctx context.Context, token string) (Identity, error) {
	if s.sessions == nil || strings.TrimSpace(token) == "" {
		return Anonymous, nil
	}
	session, err := s.sessions.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Anonymous, nil
		}
		s.logger.Error("authorize: lookup session failed", zap.Error(err))
		return Anonymous, err
	}
	return Identity{
		Authenticated: true,
		UserID:        session.UserID,
		Username:      session.Username,
	}, nil
}

func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		b := make([]byte, 16)
		_, _ = rand.Read(b)
		hash, err := s.hasher.Hash(hex.EncodeToString(b))
		if err != nil {
			s.logger.Warn("dummy password hash failed", zap.Error(err))
			return
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
