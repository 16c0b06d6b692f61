package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"incasso-core/internal/domain"
)

type PersonalAccessTokenRepository struct {
	db *sql.DB
}

func NewPersonalAccessTokenRepository(db *sql.DB) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{db: db}
}

// FindTokenByPlainToken resolves an operator token of the form "<id>|<secret>"
// (the id prefix is optional) by comparing the sha256 of the secret against
// the stored hash.
func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.PersonalAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	var (
		tokenID   *int64
		tokenPart string
	)

	if idx := strings.Index(plainToken, "|"); idx > 0 {
		if id, err := strconv.ParseInt(plainToken[:idx], 10, 64); err == nil {
			tokenID = &id
		}
		tokenPart = plainToken[idx+1:]
	} else {
		tokenPart = plainToken
	}

	sum := sha256.Sum256([]byte(tokenPart))
	hashStr := fmt.Sprintf("%x", sum)

	var pat domain.PersonalAccessToken

	if tokenID != nil {
		query := `
			SELECT id, token, user_id, tenant_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1
			  AND (expires_at IS NULL OR expires_at > $2)
		`

		err := r.db.QueryRowContext(ctx, query, *tokenID, time.Now()).Scan(
			&pat.ID, &pat.TokenHash, &pat.UserID, &pat.TenantID, &pat.Abilities, &pat.ExpiresAt,
		)
		if err == nil && pat.TokenHash == hashStr {
			return &pat, nil
		}
	}

	query := `
		SELECT id, token, user_id, tenant_id, abilities, expires_at
		FROM personal_access_tokens
		WHERE token = $1
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, hashStr, time.Now()).Scan(
		&pat.ID, &pat.TokenHash, &pat.UserID, &pat.TenantID, &pat.Abilities, &pat.ExpiresAt,
	)
	if err != nil {
		return nil, errors.New("token not found")
	}

	return &pat, nil
}
