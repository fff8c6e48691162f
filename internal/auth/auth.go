package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName carries the signed session token in the browser.
const SessionCookieName = "dashboard_session"

// Session is the browser-facing identity the BFF holds for a signed-in user.
type Session struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Email         string    `json:"email"`
	DiscordUserID *string   `json:"discord_user_id"`
	Username      string    `json:"username,omitempty"`
	Discriminator string    `json:"discriminator,omitempty"`
	Avatar        string    `json:"avatar,omitempty"`
	Name          string    `json:"name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// SessionStore resolves the session of an incoming request. A request
// without a usable session yields (nil, nil).
type SessionStore interface {
	GetSession(r *http.Request) (*Session, error)
}

// Claims is the payload of the session cookie. The cookie only names the
// session; its contents live server side.
type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token expired")
	ErrSessionNotFound = errors.New("session not found")
)
