// Rookery - Chess Game Import and Opening Attribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rookery

package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// minSecretLength is the shortest HS256 secret accepted.
const minSecretLength = 32

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret []byte
}

// NewJWTManager creates a token manager for the HS256 secret.
//
// Returns an error if the secret is shorter than 32 characters.
func NewJWTManager(secret string) (*JWTManager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("JWT secret must be at least %d characters", minSecretLength)
	}
	return &JWTManager{secret: []byte(secret)}, nil
}

// GenerateToken creates a signed token whose subject is userID and which
// expires after ttl.
//
// Example:
//
//	token, err := jwtManager.GenerateToken("user-42", 24*time.Hour)
//	if err != nil {
//	    return fmt.Errorf("token generation failed: %w", err)
//	}
func (m *JWTManager) GenerateToken(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and time claims of tokenString and
// returns its subject.
//
// Security:
//   - Rejects tokens with an unexpected signing algorithm (RS256, none, etc.)
//   - Rejects tokens without a "sub" claim
func (m *JWTManager) ValidateToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub := strings.TrimSpace(claims.Subject)
	if sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
