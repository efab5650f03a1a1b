package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
)

const (
	// TokenPrefix identifies bearer tokens issued by this service
	TokenPrefix = "inv_"
	// TokenLength is the number of random bytes per token
	TokenLength = 32
)

// GenerateTokenKey creates a new bearer token value.
// Format: inv_<base64url(32 random bytes)>
func GenerateTokenKey() (string, error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return TokenPrefix + base64.RawURLEncoding.EncodeToString(randomBytes), nil
}

// TokenStore persists bearer tokens, one per principal
type TokenStore struct {
	db *sql.DB
}

// NewTokenStore creates a new token store
func NewTokenStore(db *sql.DB) *TokenStore {
	return &TokenStore{db: db}
}

// GetOrCreate returns the principal's bearer token, issuing one on first
// use. Repeat logins reuse the existing token value; there is no
// rotation or expiry.
func (s *TokenStore) GetOrCreate(ctx context.Context, userID int64) (*Token, error) {
	token := &Token{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token, created_at FROM auth_tokens WHERE user_id = $1
	`, userID).Scan(&token.ID, &token.UserID, &token.Key, &token.CreatedAt)
	if err == nil {
		return token, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up token: %w", err)
	}

	key, err := GenerateTokenKey()
	if err != nil {
		return nil, err
	}

	token = &Token{UserID: userID, Key: key}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO auth_tokens (user_id, token) VALUES ($1, $2)
		RETURNING id, created_at
	`, userID, key).Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create token: %w", err)
	}
	return token, nil
}

// GetPrincipalByKey resolves a bearer token value to its active principal
func (s *TokenStore) GetPrincipalByKey(ctx context.Context, key string) (*Principal, error) {
	p := &Principal{}
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.username, p.first_name, p.last_name, p.email, p.is_active, p.is_staff, p.created_at, p.updated_at
		FROM principals p
		JOIN auth_tokens t ON t.user_id = p.id
		WHERE t.token = $1
	`, key).Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName, &p.Email,
		&p.IsActive, &p.IsStaff, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}
