package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/guild-dashboard/internal"
	"github.com/frahmantamala/guild-dashboard/internal/discord"
	"github.com/frahmantamala/guild-dashboard/internal/guild"
	"github.com/frahmantamala/guild-dashboard/internal/observability"
	"github.com/frahmantamala/guild-dashboard/internal/permission"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusReconciled          Status = "reconciled"
	StatusSkippedMissing      Status = "skipped_missing"
	StatusSkippedNotInstalled Status = "skipped_not_installed"
	StatusFailed              Status = "failed"
)

const statusFetchFailed = "fetch_failed"

type GuildFetcher interface {
	FetchGuilds(ctx context.Context, accessToken string) ([]discord.Guild, error)
}

type SnapshotStore interface {
	SaveGuildSnapshot(ctx context.Context, userID string, guilds []user.GuildSnapshot, fetchedAt time.Time) error
}

type Input struct {
	UserID        string
	DiscordUserID string
	AccessToken   string
}

// GuildResult is the outcome for one admin-capable guild.
type GuildResult struct {
	GuildID  string
	Name     string
	Owner    bool
	Status   Status
	Role     string
	Assigned bool
	Err      error
}

type Report struct {
	UserID      string
	FetchedAt   time.Time
	Fetched     int
	FetchErr    error
	SnapshotErr error
	Results     []GuildResult
}

// Failed returns the guilds that could not be reconciled.
func (r *Report) Failed() []GuildResult {
	var failed []GuildResult
	for _, res := range r.Results {
		if res.Status == StatusFailed {
			failed = append(failed, res)
		}
	}
	return failed
}

func (r *Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

type Config struct {
	Concurrency  int
	FetchTimeout time.Duration
	// Timeout bounds a reconciliation started from an event.
	Timeout time.Duration
}

type Reconciler struct {
	guilds    guild.RepositoryAPI
	fetcher   GuildFetcher
	snapshots SnapshotStore
	config    Config
	metrics   *observability.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func New(guilds guild.RepositoryAPI, fetcher GuildFetcher, snapshots SnapshotStore, cfg Config, metrics *observability.Metrics, logger *slog.Logger) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		guilds:    guilds,
		fetcher:   fetcher,
		snapshots: snapshots,
		config:    cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Reconcile brings the stored roles of one Discord identity in line with the
// guilds Discord reports it can administer. It never fails as a whole: fetch
// and per-guild problems are recorded on the Report.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) *Report {
	report := &Report{UserID: in.UserID}
	lg := r.logger.With("user_id", in.UserID, "discord_user_id", in.DiscordUserID)

	fetchCtx, cancel := internal.WithTimeout(ctx, r.config.FetchTimeout)
	guilds, err := r.fetcher.FetchGuilds(fetchCtx, in.AccessToken)
	cancel()
	if err != nil {
		report.FetchErr = err
		r.metrics.ObserveReconcile(statusFetchFailed)
		lg.Warn("guild fetch failed, skipping reconciliation", "error", err)
		return report
	}
	report.FetchedAt = r.now().UTC()
	report.Fetched = len(guilds)

	if r.snapshots != nil {
		if err := r.snapshots.SaveGuildSnapshot(ctx, in.UserID, snapshot(guilds), report.FetchedAt); err != nil {
			report.SnapshotErr = err
			lg.Error("failed to store guild snapshot", "error", err)
		}
	}

	candidates := r.adminCapable(guilds, lg)
	report.Results = make([]GuildResult, len(candidates))

	var g errgroup.Group
	g.SetLimit(r.config.Concurrency)
	for i, dg := range candidates {
		g.Go(func() error {
			res := r.reconcileGuild(ctx, in, dg)
			report.Results[i] = res
			r.metrics.ObserveReconcile(string(res.Status))
			if res.Err != nil {
				lg.Error("guild reconciliation failed", "guild_id", res.GuildID, "error", res.Err)
			}
			return nil
		})
	}
	_ = g.Wait()

	lg.Info("reconciliation finished",
		"fetched", report.Fetched,
		"candidates", len(candidates),
		"reconciled", report.Count(StatusReconciled),
		"failed", report.Count(StatusFailed))
	return report
}

func (r *Reconciler) adminCapable(guilds []discord.Guild, lg *slog.Logger) []discord.Guild {
	var out []discord.Guild
	for _, dg := range guilds {
		perms := permission.ParseDiscordPermissions(dg.Permissions)
		if perms.IsAdministrator() && !perms.CanManageGuild() {
			lg.Warn("administrator bit present without manage guild", "guild_id", dg.ID, "permissions", dg.Permissions)
		}
		if dg.Owner || perms.CanManageGuild() {
			out = append(out, dg)
		}
	}
	return out
}

// reconcileGuild runs ensure roles, owner update and assignment in that order.
func (r *Reconciler) reconcileGuild(ctx context.Context, in Input, dg discord.Guild) GuildResult {
	res := GuildResult{GuildID: dg.ID, Name: dg.Name, Owner: dg.Owner}
	fail := func(err error) GuildResult {
		res.Status = StatusFailed
		res.Err = err
		return res
	}

	stored, err := r.guilds.GetGuild(ctx, dg.ID)
	if err != nil {
		return fail(fmt.Errorf("load guild: %w", err))
	}
	if stored == nil {
		res.Status = StatusSkippedMissing
		return res
	}
	if !stored.BotInstalled {
		res.Status = StatusSkippedNotInstalled
		return res
	}

	if err := r.guilds.EnsureDefaultRoles(ctx, dg.ID); err != nil {
		return fail(fmt.Errorf("ensure default roles: %w", err))
	}

	if dg.Owner && stored.OwnerDiscordID != in.DiscordUserID {
		if err := r.guilds.UpdateOwner(ctx, dg.ID, in.DiscordUserID, dg.Name); err != nil {
			return fail(fmt.Errorf("update owner: %w", err))
		}
		r.logger.Info("guild owner updated", "guild_id", dg.ID, "previous_owner", stored.OwnerDiscordID, "owner", in.DiscordUserID)
	}

	res.Role = guild.RoleViewer
	if dg.Owner {
		res.Role = guild.RoleAdmin
	}
	role, err := r.guilds.GetRoleByName(ctx, dg.ID, res.Role)
	if err != nil {
		return fail(fmt.Errorf("load %s role: %w", res.Role, err))
	}
	if role == nil {
		return fail(fmt.Errorf("%s: %w", res.Role, guild.ErrRoleNotFound))
	}

	if dg.Owner {
		if err := r.guilds.ReplaceAssignment(ctx, role, in.DiscordUserID); err != nil {
			return fail(fmt.Errorf("assign owner role: %w", err))
		}
		res.Assigned = true
	} else {
		created, err := r.guilds.AssignRole(ctx, role, in.DiscordUserID)
		if err != nil {
			return fail(fmt.Errorf("assign role: %w", err))
		}
		res.Assigned = created
	}

	res.Status = StatusReconciled
	return res
}

func snapshot(guilds []discord.Guild) []user.GuildSnapshot {
	out := make([]user.GuildSnapshot, 0, len(guilds))
	for _, g := range guilds {
		out = append(out, user.GuildSnapshot{
			ID:          g.ID,
			Name:        g.Name,
			Icon:        g.Icon,
			Owner:       g.Owner,
			Permissions: g.Permissions,
			Features:    g.Features,
		})
	}
	return out
}

// IsUpstream reports whether the report failed because Discord could not be reached.
func (r *Report) IsUpstream() bool {
	return r.FetchErr != nil && errors.Is(r.FetchErr, discord.ErrUpstream)
}
