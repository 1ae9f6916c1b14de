package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"metacatalog/internal/repository"
)

type tokenDAO struct {
	tx *sql.Tx
}

// Insert stores a hashed token
func (d *tokenDAO) Insert(ctx context.Context, token *repository.Token) error {
	_, err := d.tx.ExecContext(ctx, `
		INSERT INTO user_token (id, user_id, hash, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, token.ID.String(), token.UserID.String(), token.Hash, timePtrToNull(token.ExpiresAt), token.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert token: %w", err)
	}
	return nil
}

// Get retrieves a token by id
func (d *tokenDAO) Get(ctx context.Context, id uuid.UUID) (*repository.Token, error) {
	row := d.tx.QueryRowContext(ctx, `
		SELECT id, user_id, hash, expires_at, created_at FROM user_token WHERE id = ?
	`, id.String())

	token, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return token, nil
}

// ListByUser returns the tokens issued to a user, newest first
func (d *tokenDAO) ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Token, error) {
	rows, err := d.tx.QueryContext(ctx, `
		SELECT id, user_id, hash, expires_at, created_at FROM user_token
		WHERE user_id = ? ORDER BY created_at DESC
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	var tokens []repository.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}
	return tokens, nil
}

// DeleteByUser revokes every token of a user
func (d *tokenDAO) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	if _, err := d.tx.ExecContext(ctx, `DELETE FROM user_token WHERE user_id = ?`, userID.String()); err != nil {
		return fmt.Errorf("failed to delete tokens: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(s scanner) (*repository.Token, error) {
	var (
		id, userID string
		hash       []byte
		expiresAt  sql.NullInt64
		createdAt  int64
	)
	if err := s.Scan(&id, &userID, &hash, &expiresAt, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan token: %w", err)
	}

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid token id %q: %w", id, err)
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid token user id %q: %w", userID, err)
	}

	return &repository.Token{
		ID:        tokenID,
		UserID:    owner,
		Hash:      hash,
		ExpiresAt: nullToTimePtr(expiresAt),
		CreatedAt: time.UnixMilli(createdAt).UTC(),
	}, nil
}
