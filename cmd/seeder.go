package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

const (
	demoGuildID     = "100000000000000001"
	demoOwnerID     = "200000000000000002"
	demoSupporterID = "200000000000000003"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long: `Seed a demo guild with its default roles, an owner holding admin and a
supporter holding the support role. Safe to run repeatedly.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := bootstrap()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		lg := logger.LoggerWrapper()

		db, err := openStores(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		users := user.NewService(db.users, lg)

		people := []user.LinkInput{
			{DiscordUserID: demoOwnerID, Email: "owner@example.com", Username: "demo-owner", GlobalName: "Demo Owner"},
			{DiscordUserID: demoSupporterID, Email: "support@example.com", Username: "demo-support", GlobalName: "Demo Support"},
		}
		for _, p := range people {
			u, _, err := users.LinkDiscordAccount(ctx, p)
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", p.Username, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		svc := guild.NewService(db.guilds, lg)
		if err := installGuild(ctx, svc, db.guilds, demoGuildID, "Demo Support Server", demoOwnerID); err != nil {
			return fmt.Errorf("failed to seed guild: %w", err)
		}
		fmt.Println("Seeded guild:", demoGuildID)

		support, err := db.guilds.GetRoleByName(ctx, demoGuildID, guild.RoleSupport)
		if err != nil || support == nil {
			return fmt.Errorf("support role missing after install: %v", err)
		}
		assigned, err := db.guilds.AssignRole(ctx, support, demoSupporterID)
		if err != nil {
			return fmt.Errorf("failed to assign support role: %w", err)
		}
		if assigned {
			fmt.Println("Granted support role to:", demoSupporterID)
		}

		return nil
	},
}
