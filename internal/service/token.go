package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"metacatalog/internal/apperror"
	"metacatalog/internal/domain"
	"metacatalog/internal/repository"
)

const tokenSecretBytes = 32

// IssuedToken is returned once when a token is created; the raw token is not
// stored and cannot be recovered later
type IssuedToken struct {
	ID        uuid.UUID  `json:"id"`
	Token     string     `json:"token"`
	UserID    uuid.UUID  `json:"userId"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// TokenService issues and verifies user API tokens. A raw token has the
// form "<token id>.<secret>"; only the bcrypt hash of the secret is stored.
type TokenService struct {
	c *Catalog
}

// Issue creates a new token for the user. A zero ttl never expires.
func (s *TokenService) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (*IssuedToken, error) {
	secret := make([]byte, tokenSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(secret)
	hash, err := bcrypt.GenerateFromPassword([]byte(encoded), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal("failed to hash token", err)
	}

	token := &repository.Token{
		ID:        uuid.New(),
		UserID:    userID,
		Hash:      hash,
		CreatedAt: s.c.now(),
	}
	if ttl > 0 {
		expires := token.CreatedAt.Add(ttl)
		token.ExpiresAt = &expires
	}

	err = s.c.store.InTx(ctx, func(tx repository.Tx) error {
		if _, err := s.c.entityReference(ctx, tx, domain.EntityUser, userID); err != nil {
			return err
		}
		return tx.Tokens().Insert(ctx, token)
	})
	if err != nil {
		return nil, storeError("issue token", err)
	}

	s.c.logger.Info("token issued",
		zap.String("user", userID.String()),
		zap.String("token", token.ID.String()))
	return &IssuedToken{
		ID:        token.ID,
		Token:     token.ID.String() + "." + encoded,
		UserID:    userID,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Verify checks a raw token and returns the name of the user it belongs to
func (s *TokenService) Verify(ctx context.Context, raw string) (string, error) {
	idPart, secret, ok := strings.Cut(raw, ".")
	if !ok || secret == "" {
		return "", apperror.Unauthorized("malformed token")
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return "", apperror.Unauthorized("malformed token")
	}

	var name string
	err = s.c.store.InTx(ctx, func(tx repository.Tx) error {
		token, err := tx.Tokens().Get(ctx, id)
		if err != nil {
			return err
		}
		if token == nil {
			return apperror.Unauthorized("unknown token")
		}
		if token.ExpiresAt != nil && s.c.now().After(*token.ExpiresAt) {
			return apperror.Unauthorized("token expired")
		}
		if err := bcrypt.CompareHashAndPassword(token.Hash, []byte(secret)); err != nil {
			return apperror.Unauthorized("invalid token")
		}
		user, err := s.c.entityReference(ctx, tx, domain.EntityUser, token.UserID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.Unauthorized("token owner no longer exists")
			}
			return err
		}
		name = user.Name
		return nil
	})
	if err != nil {
		return "", storeError("verify token", err)
	}
	return name, nil
}

// Revoke deletes every token of the user
func (s *TokenService) Revoke(ctx context.Context, userID uuid.UUID) error {
	err := s.c.store.InTx(ctx, func(tx repository.Tx) error {
		return tx.Tokens().DeleteByUser(ctx, userID)
	})
	if err != nil {
		return storeError("revoke tokens", err)
	}
	return nil
}
