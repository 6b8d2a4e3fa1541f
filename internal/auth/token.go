package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenIssuer   = "schoolboard-api"
	tokenAudience = "schoolboard-client"
)

// DefaultTokenTTL bounds bearer tokens; sessions carry long-lived logins.
const DefaultTokenTTL = 2 * time.Hour

// TokenClaims are the JWT claims issued at login.
type TokenClaims struct {
	UserID    string `json:"uid"`
	StudentID string `json:"sno"`
	Name      string `json:"name"`
	IsAdmin   bool   `json:"adm,omitempty"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer returns an issuer for secret. A zero ttl uses DefaultTokenTTL.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token for p.
func (t *TokenIssuer) Issue(p Principal) (string, error) {
	if len(t.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}
	now := t.now()
	claims := TokenClaims{
		UserID:    p.UserID,
		StudentID: p.StudentID,
		Name:      p.Name,
		IsAdmin:   p.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(p.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8]),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse validates a token and returns its principal.
func (t *TokenIssuer) Parse(token string) (Principal, error) {
	var claims TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !parsed.Valid {
		return Principal{}, fmt.Errorf("invalid or expired token: %w", err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || id == 0 {
		return Principal{}, errors.New("invalid token subject")
	}
	return Principal{
		ID:        uint(id),
		UserID:    claims.UserID,
		StudentID: claims.StudentID,
		Name:      claims.Name,
		IsAdmin:   claims.IsAdmin,
	}, nil
}
