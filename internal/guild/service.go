package guild

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/guild-dashboard/internal/permission"
)

type RepositoryAPI interface {
	GetGuild(ctx context.Context, id string) (*Guild, error)
	EnsureGuild(ctx context.Context, g *Guild) error
	UpdateOwner(ctx context.Context, guildID, ownerDiscordID, name string) error
	SetBotInstalled(ctx context.Context, guildID string, installed bool) error

	EnsureDefaultRoles(ctx context.Context, guildID string) error
	GetRoleByName(ctx context.Context, guildID, name string) (*Role, error)
	GetDefaultRole(ctx context.Context, guildID string) (*Role, error)
	ListRoles(ctx context.Context, guildID string) ([]*Role, error)

	GetAssignment(ctx context.Context, guildID, discordUserID string) (*RoleAssignment, error)
	GetAssignedRole(ctx context.Context, guildID, discordUserID string) (*Role, error)
	AssignRole(ctx context.Context, role *Role, discordUserID string) (bool, error)
	ReplaceAssignment(ctx context.Context, role *Role, discordUserID string) error
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ResolvePermissions returns the bitflag of the role assigned to
// discordUserID in guildID, falling back to the guild's default role. No
// guild context, or a guild without a default role, resolves to None.
func (s *Service) ResolvePermissions(ctx context.Context, guildID, discordUserID string) (permission.Bitflag, error) {
	if guildID == "" {
		return permission.None, nil
	}

	if discordUserID != "" {
		role, err := s.repo.GetAssignedRole(ctx, guildID, discordUserID)
		if err != nil {
			return permission.None, fmt.Errorf("lookup assigned role: %w", err)
		}
		if role != nil {
			return role.Permissions, nil
		}
	}

	role, err := s.repo.GetDefaultRole(ctx, guildID)
	if err != nil {
		return permission.None, fmt.Errorf("lookup default role: %w", err)
	}
	if role == nil {
		return permission.None, nil
	}
	return role.Permissions, nil
}

// InstallBot records that the bot joined a guild and ensures its baseline roles.
func (s *Service) InstallBot(ctx context.Context, g *Guild) error {
	if err := s.repo.EnsureGuild(ctx, g); err != nil {
		return fmt.Errorf("ensure guild: %w", err)
	}
	if err := s.repo.SetBotInstalled(ctx, g.ID, true); err != nil {
		return fmt.Errorf("mark installed: %w", err)
	}
	if err := s.repo.EnsureDefaultRoles(ctx, g.ID); err != nil {
		return fmt.Errorf("ensure default roles: %w", err)
	}
	s.logger.Info("bot installed in guild", "guild_id", g.ID, "name", g.Name)
	return nil
}

func (s *Service) GetGuild(ctx context.Context, id string) (*Guild, error) {
	g, err := s.repo.GetGuild(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

func (s *Service) ListRoles(ctx context.Context, guildID string) ([]*Role, error) {
	if _, err := s.GetGuild(ctx, guildID); err != nil {
		return nil, err
	}
	return s.repo.ListRoles(ctx, guildID)
}
