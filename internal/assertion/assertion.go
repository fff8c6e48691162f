package assertion

import (
	"errors"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

// Transport header names. Both must be present for an assertion to be considered.
const (
	HeaderPayload   = "X-Dashboard-Assertion"
	HeaderSignature = "X-Dashboard-Signature"
)

var (
	// ErrSignature means the signature did not verify against the received
	// payload. Nothing from the payload may be trusted.
	ErrSignature = errors.New("assertion: signature mismatch")
	// ErrExpired means the signature verified but the assertion is stale.
	ErrExpired = errors.New("assertion: expired")
	// ErrMalformed means the payload verified but could not be deserialized.
	ErrMalformed = errors.New("assertion: malformed payload")
	// ErrEmptySecret is returned when encoding or decoding without a key.
	ErrEmptySecret = errors.New("assertion: empty signing secret")
)

// Assertion is the identity and permission statement the front-end signs for
// the backend. Field order is the canonical serialization order; do not
// reorder without rotating every issuer and verifier together.
type Assertion struct {
	UserID          string             `json:"userId"`
	Email           string             `json:"email"`
	DiscordUserID   *string            `json:"discordUserId"`
	SelectedGuildID string             `json:"selectedGuildId,omitempty"`
	Permissions     permission.Bitflag `json:"permissions"`
	SessionID       string             `json:"sessionId"`
	ExpiresAt       time.Time          `json:"expiresAt"`
	Timestamp       int64              `json:"timestamp"`

	// Display-only. Never consult these for authorization.
	Username      string `json:"username,omitempty"`
	Discriminator string `json:"discriminator,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	Name          string `json:"name,omitempty"`
}

// IssuedAt returns the issuance timestamp.
func (a *Assertion) IssuedAt() time.Time {
	return time.UnixMilli(a.Timestamp)
}

// Freshness bounds how old (and how far in the future) an issuance timestamp may be.
type Freshness struct {
	MaxAge    time.Duration
	ClockSkew time.Duration
}

// DefaultFreshness is used by verifiers that are not configured explicitly.
var DefaultFreshness = Freshness{MaxAge: 5 * time.Minute, ClockSkew: 30 * time.Second}

// CheckFreshness returns ErrExpired when the declared session has ended or
// the issuance timestamp falls outside the window.
func (a *Assertion) CheckFreshness(now time.Time, f Freshness) error {
	if a.ExpiresAt.IsZero() || !now.Before(a.ExpiresAt) {
		return ErrExpired
	}
	issued := a.IssuedAt()
	if f.MaxAge > 0 && now.Sub(issued) > f.MaxAge {
		return ErrExpired
	}
	if issued.Sub(now) > f.ClockSkew {
		return ErrExpired
	}
	return nil
}
