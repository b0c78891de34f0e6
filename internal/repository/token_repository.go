package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// TokenRepository stores hashed bearer tokens in the access_tokens table.
type TokenRepository struct {
	db *sqlx.DB
}

// NewTokenRepository creates a new token repository.
func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Save stores a token hash for the user.
func (r *TokenRepository) Save(ctx context.Context, userID int64, hash string) error {
	_, err := r.db.ExecContext(ctx, "INSERT INTO access_tokens (user_id, token_hash) VALUES ($1, $2)", userID, hash)
	if err != nil {
		return fmt.Errorf("save token: %w", translate(err))
	}
	return nil
}

// UserID resolves a token hash to its owner and records the use.
func (r *TokenRepository) UserID(ctx context.Context, hash string) (int64, error) {
	var userID int64
	err := r.db.GetContext(ctx, &userID,
		"UPDATE access_tokens SET last_used_at=now() WHERE token_hash=$1 RETURNING user_id", hash)
	if err != nil {
		return 0, translate(err)
	}
	return userID, nil
}

// Delete revokes exactly one token.
func (r *TokenRepository) Delete(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM access_tokens WHERE token_hash=$1", hash)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return expectAffected(res)
}
