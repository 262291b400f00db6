package store

import (
	"context"
	"time"

	"github.com/DanstheMan1981/allrails/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const profileColumns = `id::text, user_id, username, display_name, avatar, bio, created_at, updated_at`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.UserID, &p.Username, &p.DisplayName, &p.Avatar, &p.Bio, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProfileByUserID returns the caller's profile, or ErrNotFound when none was saved yet.
func (r *PostgresRepository) GetProfileByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`
	profile, err := scanProfile(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, wrap("failed to get profile", err)
	}
	return profile, nil
}

// GetProfileByUsername matches usernames case-insensitively.
func (r *PostgresRepository) GetProfileByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE LOWER(username) = LOWER($1)`
	profile, err := scanProfile(r.db.QueryRow(ctx, query, username))
	if err != nil {
		return nil, wrap("failed to get profile by username", err)
	}
	return profile, nil
}

// UpsertProfile creates or replaces the caller's profile and enqueues profile.upserted.
func (r *PostgresRepository) UpsertProfile(ctx context.Context, userID string, input domain.UpsertProfileInput) (*domain.Profile, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, wrap("failed to begin profile upsert", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO profiles (user_id, username, display_name, avatar, bio)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id)
		DO UPDATE SET
			username = EXCLUDED.username,
			display_name = EXCLUDED.display_name,
			avatar = EXCLUDED.avatar,
			bio = EXCLUDED.bio,
			updated_at = NOW()
		RETURNING ` + profileColumns
	profile, err := scanProfile(tx.QueryRow(ctx, query, userID, input.Username, input.DisplayName, input.Avatar, input.Bio))
	if err != nil {
		return nil, wrap("failed to upsert profile", err)
	}

	event := domain.ProfileUpsertedEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		ProfileID:  profile.ID,
		Username:   profile.Username,
		OccurredAt: time.Now().UTC(),
	}
	if err := enqueueEventTx(ctx, tx, r.exchange, domain.RoutingKeyProfileUpserted, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, wrap("failed to commit profile upsert", err)
	}
	return profile, nil
}
