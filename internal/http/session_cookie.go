package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var errInvalidSessionCookie = errors.New("invalid session cookie")

// SessionCookie firma el token de sesion (HS256) antes de enviarlo al cliente.
type SessionCookie struct {
	name   string
	secret []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewSessionCookie(name, secret string, ttl time.Duration, secure bool) *SessionCookie {
	if name == "" {
		name = "connect.sid"
	}
	return &SessionCookie{
		name:   name,
		secret: []byte(secret),
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
	}
}

func (sc *SessionCookie) Name() string {
	return sc.name
}

func (sc *SessionCookie) Encode(token string) (string, error) {
	if len(sc.secret) == 0 || token == "" {
		return "", errInvalidSessionCookie
	}
	now := sc.now()
	claims := jwt.RegisteredClaims{
		ID:       token,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if sc.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(sc.ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sc.secret)
}

// Decode valida la firma y devuelve el token de sesion.
func (sc *SessionCookie) Decode(value string) (string, error) {
	if len(sc.secret) == 0 || value == "" {
		return "", errInvalidSessionCookie
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(value, claims, func(*jwt.Token) (any, error) {
		return sc.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(sc.now),
	)
	if err != nil {
		return "", errors.Join(errInvalidSessionCookie, err)
	}
	if claims.ID == "" {
		return "", errInvalidSessionCookie
	}
	return claims.ID, nil
}

// Set escribe la cookie httpOnly con el token firmado.
func (sc *SessionCookie) Set(c *gin.Context, token string) error {
	value, err := sc.Encode(token)
	if err != nil {
		return err
	}
	maxAge := 0
	if sc.ttl > 0 {
		maxAge = int(sc.ttl.Seconds())
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.name, value, maxAge, "/", "", sc.secure, true)
	return nil
}

func (sc *SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sc.name, "", -1, "/", "", sc.secure, true)
}
