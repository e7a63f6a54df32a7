// AngelaMos | 2026
// repository.go

package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/carterperez-dev/poin-lunak/internal/core"
)

type Repository interface {
	Create(ctx context.Context, token *RefreshToken) error
	Rotate(ctx context.Context, consumedID string, next *RefreshToken) error
	FindByHash(ctx context.Context, tokenHash string) (*RefreshToken, error)
	FindByID(ctx context.Context, id string) (*RefreshToken, error)
	RevokeByID(ctx context.Context, id string) error
	RevokeByFamilyID(ctx context.Context, familyID string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	GetActiveSessionsForUser(
		ctx context.Context,
		userID string,
	) ([]RefreshToken, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const tokenColumns = `id, user_id, token_hash, family_id, expires_at, created_at,
		       is_used, used_at, revoked_at, replaced_by_id, user_agent, ip_address`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, token *RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`

	err := r.db.GetContext(ctx, &token.CreatedAt, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.FamilyID,
		token.ExpiresAt,
		token.UserAgent,
		token.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("create refresh token: %w", err)
	}

	return nil
}

// Rotate consumes the token consumedID and stores next in one statement.
// When the old token was already consumed or revoked nothing is written
// and core.ErrConflict is returned, so two concurrent refreshes with the
// same token cannot both succeed.
func (r *repository) Rotate(
	ctx context.Context,
	consumedID string,
	next *RefreshToken,
) error {
	query := `
		WITH consumed AS (
			UPDATE refresh_tokens
			SET is_used = true, used_at = NOW(), replaced_by_id = $1::uuid
			WHERE id = $8::uuid AND is_used = false AND revoked_at IS NULL
			RETURNING id
		)
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, family_id, expires_at,
			user_agent, ip_address
		)
		SELECT $1::uuid, $2::uuid, $3::text, $4::uuid, $5::timestamptz, $6::text, $7::text
		FROM consumed
		RETURNING created_at`

	err := r.db.GetContext(ctx, &next.CreatedAt, query,
		next.ID,
		next.UserID,
		next.TokenHash,
		next.FamilyID,
		next.ExpiresAt,
		next.UserAgent,
		next.IPAddress,
		consumedID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("rotate refresh token: %w", core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("rotate refresh token: %w", err)
	}

	return nil
}

func (r *repository) FindByHash(
	ctx context.Context,
	tokenHash string,
) (*RefreshToken, error) {
	return r.findOne(ctx, "token_hash", tokenHash)
}

func (r *repository) FindByID(
	ctx context.Context,
	id string,
) (*RefreshToken, error) {
	return r.findOne(ctx, "id", id)
}

// findOne is only called with fixed column names.
func (r *repository) findOne(
	ctx context.Context,
	column, value string,
) (*RefreshToken, error) {
	//nolint:gosec // G201: column is a constant chosen by the caller
	query := fmt.Sprintf(`SELECT %s FROM refresh_tokens WHERE %s = $1`, tokenColumns, column)

	var token RefreshToken
	err := r.db.GetContext(ctx, &token, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find refresh token: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	return &token, nil
}

func (r *repository) RevokeByID(ctx context.Context, id string) error {
	rows, err := r.revoke(ctx, "id = $1", id)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("revoke refresh token: %w", core.ErrNotFound)
	}
	return nil
}

func (r *repository) RevokeByFamilyID(
	ctx context.Context,
	familyID string,
) error {
	if _, err := r.revoke(ctx, "family_id = $1", familyID); err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}
	return nil
}

func (r *repository) RevokeAllForUser(
	ctx context.Context,
	userID string,
) error {
	if _, err := r.revoke(ctx, "user_id = $1", userID); err != nil {
		return fmt.Errorf("revoke all user tokens: %w", err)
	}
	return nil
}

func (r *repository) revoke(
	ctx context.Context,
	where string,
	arg string,
) (int64, error) {
	//nolint:gosec // G202: where is a constant chosen by the caller
	query := `UPDATE refresh_tokens SET revoked_at = NOW()
		WHERE revoked_at IS NULL AND ` + where

	result, err := r.db.ExecContext(ctx, query, arg)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *repository) GetActiveSessionsForUser(
	ctx context.Context,
	userID string,
) ([]RefreshToken, error) {
	query := `SELECT ` + tokenColumns + `
		FROM refresh_tokens
		WHERE user_id = $1
			AND revoked_at IS NULL
			AND is_used = false
			AND expires_at > NOW()
		ORDER BY created_at DESC`

	var tokens []RefreshToken
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("get active sessions: %w", err)
	}

	return tokens, nil
}

// DeleteExpired removes every token that expired before the cutoff.
func (r *repository) DeleteExpired(
	ctx context.Context,
	before time.Time,
) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < $1`,
		before,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}

	return rows, nil
}
