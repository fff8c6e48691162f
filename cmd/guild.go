package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/frahmantamala/guild-dashboard/internal/core/common/validation"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var guildCmd = &cobra.Command{
	Use:   "guild",
	Short: "Manage guild records",
}

var (
	installName  string
	installOwner string
)

var guildInstallCmd = &cobra.Command{
	Use:   "install <guild-id>",
	Short: "Record the bot as installed in a guild and create its default roles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuildService(func(ctx context.Context, svc *guild.Service, repo guild.RepositoryAPI) error {
			return installGuild(ctx, svc, repo, args[0], installName, installOwner)
		})
	},
}

var guildRolesCmd = &cobra.Command{
	Use:   "roles <guild-id>",
	Short: "List the dashboard roles of a guild",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withGuildService(func(ctx context.Context, svc *guild.Service, _ guild.RepositoryAPI) error {
			roles, err := svc.ListRoles(ctx, args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDEFAULT\tPERMISSIONS\tGRANTS")
			for _, r := range roles {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%v\n", r.Name, r.IsDefault, r.Permissions.String(), r.Permissions.Names())
			}
			return tw.Flush()
		})
	},
}

func init() {
	guildInstallCmd.Flags().StringVar(&installName, "name", "", "guild display name")
	guildInstallCmd.Flags().StringVar(&installOwner, "owner", "", "discord user id of the guild owner; receives the admin role")

	guildCmd.AddCommand(guildInstallCmd)
	guildCmd.AddCommand(guildRolesCmd)
}

func withGuildService(fn func(ctx context.Context, svc *guild.Service, repo guild.RepositoryAPI) error) error {
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	db, err := openStores(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	return fn(context.Background(), guild.NewService(db.guilds, logger.LoggerWrapper()), db.guilds)
}

func installGuild(ctx context.Context, svc *guild.Service, repo guild.RepositoryAPI, id, name, owner string) error {
	v := validation.NewValidator()
	v.Field("guild_id", id).Required().Snowflake()
	v.Field("owner", owner).Snowflake()
	v.Field("name", name).MaxLength(validation.MaxGuildNameLength)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if name == "" {
		name = id
	}

	if err := svc.InstallBot(ctx, &guild.Guild{ID: id, Name: name, OwnerDiscordID: owner}); err != nil {
		return err
	}
	if owner == "" {
		return nil
	}

	admin, err := repo.GetRoleByName(ctx, id, guild.RoleAdmin)
	if err != nil {
		return err
	}
	if admin == nil {
		return guild.ErrRoleNotFound
	}
	if err := repo.ReplaceAssignment(ctx, admin, owner); err != nil {
		return fmt.Errorf("assign owner: %w", err)
	}
	logger.LoggerWrapper().Info("owner assigned admin role", "guild_id", id, "discord_user_id", owner)
	return nil
}
