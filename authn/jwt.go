// TenantGuard - Tenant-Aware Authentication and Authorization for Go
// Copyright 2026 TenantGuard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tenantguard/tenantguard

package authn

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tenantguard/tenantguard/models"
)

var (
	// ErrNoToken indicates the request carried no bearer token.
	ErrNoToken = errors.New("no bearer token")

	// ErrInvalidToken indicates the token failed signature, structure,
	// or expiry validation.
	ErrInvalidToken = errors.New("invalid token")
)

// Claims are the JWT claims TenantGuard issues and accepts.
type Claims struct {
	Username  string `json:"username"`
	Superuser bool   `json:"superuser,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and validates HS256-signed bearer tokens carrying
// the user contract.
type TokenManager struct {
	secret  []byte
	timeout time.Duration
}

// NewTokenManager builds a TokenManager. The secret must be at least 32
// bytes; tokens expire after timeout.
func NewTokenManager(secret string, timeout time.Duration) (*TokenManager, error) {
	if len(secret) < 32 {
		return nil, errors.New("authn: JWT secret must be at least 32 characters")
	}
	if timeout <= 0 {
		timeout = 24 * time.Hour
	}
	return &TokenManager{
		secret:  []byte(secret),
		timeout: timeout,
	}, nil
}

// GenerateToken signs a token for an authenticated user. The user's ID
// becomes the subject claim.
func (m *TokenManager) GenerateToken(user models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username:  user.DisplayName(),
		Superuser: user.Superuser(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("authn: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature, algorithm, and expiry, returning
// the user the token identifies.
func (m *TokenManager) ValidateToken(tokenString string) (models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return models.UserInfo{
		UserID:   claims.Subject,
		Name:     claims.Username,
		IsAuthed: true,
		IsSuper:  claims.Superuser,
	}, nil
}

// UserFromRequest extracts and validates a bearer token from the
// Authorization header. Shaped to plug into middleware.UserFunc:
//
//	middleware.WithTenantUser(checker, func(r *http.Request) models.User {
//	    u, _ := tokens.UserFromRequest(r)
//	    return u
//	})
func (m *TokenManager) UserFromRequest(r *http.Request) (models.User, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrNoToken
	}
	tokenString, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || tokenString == "" {
		return nil, ErrNoToken
	}
	return m.ValidateToken(tokenString)
}
