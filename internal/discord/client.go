package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	discordtypes "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/discord"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"golang.org/x/oauth2"
)

// ErrUpstream wraps every failure to obtain data from Discord: transport
// errors, timeouts, non-2xx answers and undecodable bodies.
var ErrUpstream = errors.New("discord: upstream request failed")

const (
	DefaultAPIBaseURL   = "https://discord.com/api/v10"
	DefaultAuthorizeURL = "https://discord.com/oauth2/authorize"
)

// Scopes requested at login: profile, email and the guild list.
var Scopes = []string{"identify", "email", "guilds"}

type (
	Guild       = discordtypes.PartialGuild
	CurrentUser = discordtypes.CurrentUser
)

type Config struct {
	APIBaseURL   string
	AuthorizeURL string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Timeout      time.Duration
}

type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	oauth      *oauth2.Config
	metrics    *observability.Metrics
	logger     *slog.Logger
}

func NewClient(config Config, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if config.APIBaseURL == "" {
		config.APIBaseURL = DefaultAPIBaseURL
	}
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = DefaultAuthorizeURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(config.APIBaseURL, "/")

	return &Client{
		baseURL:    baseURL,
		timeout:    config.Timeout,
		httpClient: &http.Client{Timeout: config.Timeout},
		oauth: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthorizeURL,
				TokenURL:  baseURL + "/oauth2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		metrics: metrics,
		logger:  logger,
	}
}

// AuthCodeURL is where the browser is sent to authorize the dashboard.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("prompt", "none"))
}

// Exchange trades an authorization code for a token.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		c.logger.Warn("discord code exchange failed", "error", err)
		return nil, fmt.Errorf("%w: code exchange: %v", ErrUpstream, err)
	}
	return token, nil
}

func (c *Client) FetchCurrentUser(ctx context.Context, accessToken string) (*CurrentUser, error) {
	var u CurrentUser
	if err := c.get(ctx, "/users/@me", accessToken, &u); err != nil {
		return nil, err
	}
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return &u, nil
}

// FetchGuilds lists the guilds the token's owner belongs to, with the
// owner flag and permission bitmask Discord computes for that member.
func (c *Client) FetchGuilds(ctx context.Context, accessToken string) ([]Guild, error) {
	start := time.Now()
	var guilds []Guild
	err := c.get(ctx, "/users/@me/guilds", accessToken, &guilds)
	if err != nil {
		c.metrics.ObserveGuildFetch("error", time.Since(start))
		return nil, err
	}
	c.metrics.ObserveGuildFetch("ok", time.Since(start))

	valid := guilds[:0]
	for _, g := range guilds {
		if err := g.Validate(); err != nil {
			c.logger.Warn("skipping malformed guild entry", "error", err)
			continue
		}
		valid = append(valid, g)
	}
	c.logger.Debug("fetched discord guilds", "count", len(valid), "duration_ms", time.Since(start).Milliseconds())
	return valid, nil
}

func (c *Client) get(ctx context.Context, path, accessToken string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s timed out after %s", ErrUpstream, path, c.timeout)
		}
		return fmt.Errorf("%w: %s: %v", ErrUpstream, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr discordtypes.APIError
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(body, &apiErr)
		c.logger.Warn("discord api error",
			"path", path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
			"retry_after", apiErr.RetryAfter)
		return &StatusError{Path: path, StatusCode: resp.StatusCode, Message: apiErr.Message}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUpstream, path, err)
	}
	return nil
}

// StatusError is a non-2xx answer from Discord.
type StatusError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%v: %s returned %d: %s", ErrUpstream, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%v: %s returned %d", ErrUpstream, e.Path, e.StatusCode)
}

func (e *StatusError) Unwrap() error { return ErrUpstream }
