package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	"supplement-program-api/models"

	"gorm.io/gorm"
)

const (
	tokenBytes         = 24 // 32 url-safe characters
	fallbackTokenBytes = 32 // 43 url-safe characters
	tokenMintAttempts  = 6
)

// TokenExistsFunc reports whether a token is already in use.
type TokenExistsFunc func(ctx context.Context, token string) (bool, error)

// TokenMinter produces unguessable package tokens. The public package endpoint trusts the
// token alone, so tokens come from crypto/rand and are checked for global uniqueness.
type TokenMinter struct {
	Exists   TokenExistsFunc
	Rand     io.Reader
	Attempts int
}

// NewSupplyTokenMinter checks uniqueness against monthly_supplies through tx, so tokens
// minted earlier in the same transaction are seen.
func NewSupplyTokenMinter(tx *gorm.DB) *TokenMinter {
	return &TokenMinter{
		Exists: func(ctx context.Context, token string) (bool, error) {
			var count int64
			if err := tx.WithContext(ctx).Model(&models.MonthlySupply{}).Where("token = ?", token).Count(&count).Error; err != nil {
				return false, err
			}
			return count > 0, nil
		},
	}
}

// Mint returns a token not present in the store. After Attempts collisions it returns a
// longer token without checking it.
func (m *TokenMinter) Mint(ctx context.Context) (string, error) {
	attempts := m.Attempts
	if attempts <= 0 {
		attempts = tokenMintAttempts
	}
	for i := 0; i < attempts; i++ {
		token, err := m.random(tokenBytes)
		if err != nil {
			return "", err
		}
		if m.Exists == nil {
			return token, nil
		}
		taken, err := m.Exists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("check token uniqueness: %w", err)
		}
		if !taken {
			return token, nil
		}
	}
	return m.random(fallbackTokenBytes)
}

func (m *TokenMinter) random(n int) (string, error) {
	src := m.Rand
	if src == nil {
		src = rand.Reader
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(src, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
