package domain

import "time"

// Session representa un login exitoso, referenciado por un token opaco.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	// ExpiresAt en cero significa que la sesion no expira.
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Expired reporta si la sesion ya vencio en el instante dado.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
