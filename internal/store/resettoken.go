package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pinvent/apiserver/types"
)

// ResetTokenRepository handles persistence for password reset tickets.
type ResetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

func (r *ResetTokenRepository) Create(ctx context.Context, token types.ResetToken) (types.ResetToken, error) {
	const query = `
		INSERT INTO reset_tokens (user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		token.UserID,
		token.TokenHash,
		token.CreatedAt,
		token.ExpiresAt,
	).Scan(&token.ID); err != nil {
		return types.ResetToken{}, err
	}
	return token, nil
}

// GetValidByHash resolves a ticket by digest. Expired tickets are
// filtered out here rather than swept in the background, so a consumed,
// expired and never-issued token all surface as ErrNotFound.
func (r *ResetTokenRepository) GetValidByHash(ctx context.Context, tokenHash string, now time.Time) (types.ResetToken, error) {
	const query = `
		SELECT id, user_id, token_hash, created_at, expires_at
		FROM reset_tokens
		WHERE token_hash = $1 AND expires_at > $2`
	var token types.ResetToken
	err := r.db.QueryRowContext(ctx, query, tokenHash, now).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.CreatedAt,
		&token.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ResetToken{}, ErrNotFound
		}
		return types.ResetToken{}, err
	}
	return token, nil
}

// DeleteByUser removes every ticket bound to the user. Deleting nothing
// is not an error; the common case is a user with no live ticket.
func (r *ResetTokenRepository) DeleteByUser(ctx context.Context, userID int) error {
	const query = `DELETE FROM reset_tokens WHERE user_id = $1`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *ResetTokenRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM reset_tokens WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
