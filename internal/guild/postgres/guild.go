package postgres

import (
	"context"
	"errors"

	guildDatamodel "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/guild"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GuildRepository struct {
	db *gorm.DB
}

func NewGuildRepository(db *gorm.DB) guild.RepositoryAPI {
	return &GuildRepository{db: db}
}

func (r *GuildRepository) GetGuild(ctx context.Context, id string) (*guild.Guild, error) {
	var g guildDatamodel.Guild
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return guild.GuildFromDataModel(&g), nil
}

// EnsureGuild inserts the guild when it is unknown and leaves an existing row untouched.
func (r *GuildRepository) EnsureGuild(ctx context.Context, g *guild.Guild) error {
	model := guild.GuildToDataModel(g)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(model).Error
}

func (r *GuildRepository) UpdateOwner(ctx context.Context, guildID, ownerDiscordID, name string) error {
	updates := map[string]interface{}{"owner_discord_id": ownerDiscordID}
	if name != "" {
		updates["name"] = name
	}
	return r.db.WithContext(ctx).
		Model(&guildDatamodel.Guild{}).
		Where("id = ?", guildID).
		Updates(updates).Error
}

func (r *GuildRepository) SetBotInstalled(ctx context.Context, guildID string, installed bool) error {
	return r.db.WithContext(ctx).
		Model(&guildDatamodel.Guild{}).
		Where("id = ?", guildID).
		Update("bot_installed", installed).Error
}

// EnsureDefaultRoles creates any missing baseline role. Roles that already
// exist keep their edited permissions.
func (r *GuildRepository) EnsureDefaultRoles(ctx context.Context, guildID string) error {
	roles := make([]*guildDatamodel.Role, 0, len(guild.DefaultRoles))
	for _, tmpl := range guild.DefaultRoles {
		roles = append(roles, tmpl.DataModel(guildID))
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&roles).Error
}

func (r *GuildRepository) GetRoleByName(ctx context.Context, guildID, name string) (*guild.Role, error) {
	return r.firstRole(r.db.WithContext(ctx).Where("guild_id = ? AND name = ?", guildID, name))
}

func (r *GuildRepository) GetDefaultRole(ctx context.Context, guildID string) (*guild.Role, error) {
	return r.firstRole(r.db.WithContext(ctx).Where("guild_id = ? AND is_default = ?", guildID, true).Order("id ASC"))
}

func (r *GuildRepository) ListRoles(ctx context.Context, guildID string) ([]*guild.Role, error) {
	var models []*guildDatamodel.Role
	if err := r.db.WithContext(ctx).Where("guild_id = ?", guildID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	roles := make([]*guild.Role, 0, len(models))
	for _, m := range models {
		roles = append(roles, guild.RoleFromDataModel(m))
	}
	return roles, nil
}

func (r *GuildRepository) GetAssignment(ctx context.Context, guildID, discordUserID string) (*guild.RoleAssignment, error) {
	var a guildDatamodel.RoleAssignment
	err := r.db.WithContext(ctx).
		Where("guild_id = ? AND discord_user_id = ?", guildID, discordUserID).
		First(&a).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return guild.AssignmentFromDataModel(&a), nil
}

func (r *GuildRepository) GetAssignedRole(ctx context.Context, guildID, discordUserID string) (*guild.Role, error) {
	return r.firstRole(r.db.WithContext(ctx).
		Joins("JOIN role_assignments ON role_assignments.role_id = roles.id").
		Where("role_assignments.guild_id = ? AND role_assignments.discord_user_id = ?", guildID, discordUserID))
}

// AssignRole gives discordUserID the role unless the user already holds a
// role in that guild. It reports whether a row was written.
func (r *GuildRepository) AssignRole(ctx context.Context, role *guild.Role, discordUserID string) (bool, error) {
	a := &guildDatamodel.RoleAssignment{
		GuildID:       role.GuildID,
		RoleID:        role.ID,
		DiscordUserID: discordUserID,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "discord_user_id"}},
			DoNothing: true,
		}).
		Create(a)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ReplaceAssignment sets the user's role in the guild, overwriting any previous one.
func (r *GuildRepository) ReplaceAssignment(ctx context.Context, role *guild.Role, discordUserID string) error {
	a := &guildDatamodel.RoleAssignment{
		GuildID:       role.GuildID,
		RoleID:        role.ID,
		DiscordUserID: discordUserID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "guild_id"}, {Name: "discord_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role_id", "updated_at"}),
		}).
		Create(a).Error
}

func (r *GuildRepository) firstRole(q *gorm.DB) (*guild.Role, error) {
	var role guildDatamodel.Role
	if err := q.First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return guild.RoleFromDataModel(&role), nil
}
