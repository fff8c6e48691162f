package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/frahmantamala/guild-dashboard/internal/discord"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/reconcile"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/frahmantamala/guild-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var reconcileUserID string

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Re-run role reconciliation for one user",
	Long: `Fetch the user's guilds from Discord with the stored access token and
bring their dashboard roles in line, exactly as a login would.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile(cmd.Context())
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileUserID, "user", "", "dashboard user id")
	_ = reconcileCmd.MarkFlagRequired("user")
}

func runReconcile(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := bootstrap()
	if err != nil {
		return err
	}
	lg := logger.LoggerWrapper()

	db, err := openStores(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	users := user.NewService(db.users, lg)
	account, err := users.GetDiscordAccount(ctx, reconcileUserID)
	if errors.Is(err, user.ErrAccountNotFound) {
		return fmt.Errorf("user %s has no linked discord account", reconcileUserID)
	}
	if err != nil {
		return err
	}
	if account.AccessToken == "" {
		return fmt.Errorf("user %s has no stored access token; they must log in again", reconcileUserID)
	}

	metrics := observability.NewMetrics()
	client := discord.NewClient(discord.Config{
		APIBaseURL: cfg.Discord.APIBaseURL,
		Timeout:    cfg.Discord.FetchTimeout,
	}, metrics, lg)

	report := reconcile.New(db.guilds, client, users, reconcile.Config{
		Concurrency:  cfg.Reconcile.Concurrency,
		FetchTimeout: cfg.Discord.FetchTimeout,
	}, metrics, lg).Reconcile(ctx, reconcile.Input{
		UserID:        account.UserID,
		DiscordUserID: account.DiscordUserID,
		AccessToken:   account.AccessToken,
	})

	if report.FetchErr != nil {
		if report.IsUpstream() {
			return fmt.Errorf("discord unavailable: %w", report.FetchErr)
		}
		return report.FetchErr
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GUILD\tNAME\tOWNER\tSTATUS\tROLE\tASSIGNED")
	for _, r := range report.Results {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%t\n", r.GuildID, r.Name, r.Owner, r.Status, r.Role, r.Assigned)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("fetched %d guilds, reconciled %d, failed %d\n",
		report.Fetched, report.Count(reconcile.StatusReconciled), len(report.Failed()))

	if n := len(report.Failed()); n > 0 {
		return fmt.Errorf("%d guild(s) failed to reconcile", n)
	}
	return nil
}
