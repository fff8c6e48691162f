package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	userDatamodel "github.com/frahmantamala/guild-dashboard/internal/core/datamodel/user"
	"github.com/frahmantamala/guild-dashboard/internal/user"
	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) user.RepositoryAPI {
	return &UserRepository{db: db}
}

const accountColumns = `id, user_id, discord_user_id, username, discriminator, avatar,
	access_token, refresh_token, token_expires_at, guilds_snapshot, guilds_fetched_at,
	created_at, updated_at`

func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	var u userDatamodel.User
	query := r.db.Rebind(`SELECT id, email, name, created_at, updated_at FROM users WHERE id = ?`)
	if err := r.db.GetContext(ctx, &u, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user.FromDataModel(&u), nil
}

func (r *UserRepository) Upsert(ctx context.Context, u *user.User) error {
	m := user.ToDataModel(u)
	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now

	query := r.db.Rebind(`
INSERT INTO users (id, email, name, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	email = EXCLUDED.email,
	name = EXCLUDED.name,
	updated_at = EXCLUDED.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, m.ID, m.Email, m.Name, m.CreatedAt, m.UpdatedAt); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetDiscordAccount(ctx context.Context, userID string) (*user.DiscordAccount, error) {
	return r.getAccount(ctx, "user_id", userID)
}

func (r *UserRepository) GetDiscordAccountByDiscordID(ctx context.Context, discordUserID string) (*user.DiscordAccount, error) {
	return r.getAccount(ctx, "discord_user_id", discordUserID)
}

func (r *UserRepository) getAccount(ctx context.Context, column, value string) (*user.DiscordAccount, error) {
	var a userDatamodel.DiscordAccount
	query := r.db.Rebind(`SELECT ` + accountColumns + ` FROM discord_accounts WHERE ` + column + ` = ?`)
	if err := r.db.GetContext(ctx, &a, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get discord account: %w", err)
	}
	return user.AccountFromDataModel(&a), nil
}

// UpsertDiscordAccount refreshes profile and tokens for a known Discord
// identity. The guild snapshot is only written by SaveGuildSnapshot.
func (r *UserRepository) UpsertDiscordAccount(ctx context.Context, a *user.DiscordAccount) error {
	m := user.AccountToDataModel(a)
	now := time.Now().UTC()

	query := r.db.Rebind(`
INSERT INTO discord_accounts (user_id, discord_user_id, username, discriminator, avatar,
	access_token, refresh_token, token_expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (discord_user_id) DO UPDATE SET
	username = EXCLUDED.username,
	discriminator = EXCLUDED.discriminator,
	avatar = EXCLUDED.avatar,
	access_token = EXCLUDED.access_token,
	refresh_token = EXCLUDED.refresh_token,
	token_expires_at = EXCLUDED.token_expires_at,
	updated_at = EXCLUDED.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		m.UserID, m.DiscordUserID, m.Username, m.Discriminator, m.Avatar,
		m.AccessToken, m.RefreshToken, m.TokenExpiresAt, now, now)
	if err != nil {
		return fmt.Errorf("upsert discord account: %w", err)
	}
	return nil
}

func (r *UserRepository) SaveGuildSnapshot(ctx context.Context, userID string, guilds []user.GuildSnapshot, fetchedAt time.Time) error {
	snapshot := userDatamodel.GuildSnapshots(guilds)
	if snapshot == nil {
		snapshot = userDatamodel.GuildSnapshots{}
	}
	fetched := fetchedAt.UTC()

	query := r.db.Rebind(`
UPDATE discord_accounts
SET guilds_snapshot = ?, guilds_fetched_at = ?, updated_at = ?
WHERE user_id = ?`)
	res, err := r.db.ExecContext(ctx, query, snapshot, fetched, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("save guild snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return user.ErrAccountNotFound
	}
	return nil
}
