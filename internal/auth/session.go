package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix = "dashboard:session:"
	stateKeyPrefix   = "dashboard:oauth_state:"
	stateTTL         = 10 * time.Minute
)

var _ SessionStore = (*RedisSessionStore)(nil)

// RedisSessionStore keeps session records in Redis and hands the browser a
// signed token naming the record.
type RedisSessionStore struct {
	client *redis.Client
	tokens *TokenSigner
	ttl    time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

func NewRedisSessionStore(client *redis.Client, tokens *TokenSigner, ttl time.Duration, secure bool, logger *slog.Logger) *RedisSessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisSessionStore{
		client: client,
		tokens: tokens,
		ttl:    ttl,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// Create opens a session for u and returns it with its cookie token.
func (s *RedisSessionStore) Create(ctx context.Context, u *user.User, account *user.DiscordAccount) (*Session, string, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if account != nil {
		discordUserID := account.DiscordUserID
		sess.DiscordUserID = &discordUserID
		sess.Username = account.Username
		sess.Discriminator = account.Discriminator
		sess.Avatar = account.Avatar
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return nil, "", fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+sess.ID, data, s.ttl).Err(); err != nil {
		return nil, "", fmt.Errorf("store session: %w", err)
	}

	token, err := s.tokens.Sign(sess.ID, sess.UserID, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// GetSession implements SessionStore. Missing, forged, expired and revoked
// sessions all resolve to (nil, nil); only storage failures are errors.
func (s *RedisSessionStore) GetSession(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	claims, err := s.tokens.Validate(cookie.Value)
	if err != nil {
		s.logger.Debug("ignoring unusable session cookie", "error", err)
		return nil, nil
	}

	sess, err := s.Load(r.Context(), claims.SessionID)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject || !s.now().Before(sess.ExpiresAt) {
		return nil, nil
	}
	return sess, nil
}

func (s *RedisSessionStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, sessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+sessionID).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// IssueState stores a single-use OAuth state value.
func (s *RedisSessionStore) IssueState(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.client.Set(ctx, stateKeyPrefix+state, "1", stateTTL).Err(); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return state, nil
}

// ConsumeState reports whether state was issued and not yet used.
func (s *RedisSessionStore) ConsumeState(ctx context.Context, state string) (bool, error) {
	if state == "" {
		return false, nil
	}
	err := s.client.GetDel(ctx, stateKeyPrefix+state).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("consume oauth state: %w", err)
	}
	return true, nil
}

func (s *RedisSessionStore) SetCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *RedisSessionStore) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
