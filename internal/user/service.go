package user

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type RepositoryAPI interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Upsert(ctx context.Context, u *User) error
	GetDiscordAccount(ctx context.Context, userID string) (*DiscordAccount, error)
	GetDiscordAccountByDiscordID(ctx context.Context, discordUserID string) (*DiscordAccount, error)
	UpsertDiscordAccount(ctx context.Context, a *DiscordAccount) error
	SaveGuildSnapshot(ctx context.Context, userID string, guilds []GuildSnapshot, fetchedAt time.Time) error
}

// LinkInput is what an OAuth callback learns about a Discord identity.
type LinkInput struct {
	DiscordUserID  string
	Email          string
	Username       string
	GlobalName     string
	Discriminator  string
	Avatar         string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) GetByID(ctx context.Context, userID string) (*User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if u == nil {
		return nil, ErrNotFound
	}
	return u, nil
}

func (s *Service) GetDiscordAccount(ctx context.Context, userID string) (*DiscordAccount, error) {
	a, err := s.repo.GetDiscordAccount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get discord account: %w", err)
	}
	if a == nil {
		return nil, ErrAccountNotFound
	}
	return a, nil
}

// LinkDiscordAccount finds or creates the user behind a Discord identity and
// stores the latest profile and tokens on its account.
func (s *Service) LinkDiscordAccount(ctx context.Context, in LinkInput) (*User, *DiscordAccount, error) {
	existing, err := s.repo.GetDiscordAccountByDiscordID(ctx, in.DiscordUserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up discord account: %w", err)
	}

	now := s.now().UTC()
	u := &User{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      displayName(in),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing != nil {
		u.ID = existing.UserID
	}
	if err := s.repo.Upsert(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	account := &DiscordAccount{
		UserID:        u.ID,
		DiscordUserID: in.DiscordUserID,
		Username:      in.Username,
		Discriminator: in.Discriminator,
		Avatar:        in.Avatar,
		AccessToken:   in.AccessToken,
		RefreshToken:  in.RefreshToken,
	}
	if !in.TokenExpiresAt.IsZero() {
		expires := in.TokenExpiresAt.UTC()
		account.TokenExpiresAt = &expires
	}
	if existing != nil {
		account.Guilds = existing.Guilds
		account.GuildsFetchedAt = existing.GuildsFetchedAt
	}
	if err := s.repo.UpsertDiscordAccount(ctx, account); err != nil {
		return nil, nil, fmt.Errorf("failed to upsert discord account: %w", err)
	}

	s.logger.Info("discord account linked", "user_id", u.ID, "discord_user_id", in.DiscordUserID, "new_user", existing == nil)
	return u, account, nil
}

func (s *Service) SaveGuildSnapshot(ctx context.Context, userID string, guilds []GuildSnapshot, fetchedAt time.Time) error {
	if err := s.repo.SaveGuildSnapshot(ctx, userID, guilds, fetchedAt); err != nil {
		return fmt.Errorf("failed to save guild snapshot: %w", err)
	}
	return nil
}

func displayName(in LinkInput) string {
	if in.GlobalName != "" {
		return in.GlobalName
	}
	return in.Username
}
