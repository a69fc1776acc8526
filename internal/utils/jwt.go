package utils

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Claims struct {
	ID   uint `json:"id"`
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenSigner signs and verifies tokens for exactly one role with its own secret.
// User and admin tokens come from two separate signers and never cross-verify.
type TokenSigner struct {
	role   Role
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenSigner(role Role, secret string, ttl time.Duration) *TokenSigner {
	return &TokenSigner{role: role, secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *TokenSigner) Role() Role { return s.role }

func (s *TokenSigner) Sign(id uint) (string, error) {
	now := s.now()
	claims := Claims{
		ID:   id,
		Role: s.role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatUint(uint64(id), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *TokenSigner) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Role != s.role || claims.ID == 0 {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Remaining reports how long the token stays valid, zero once it has expired.
func (s *TokenSigner) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	if left := claims.ExpiresAt.Time.Sub(s.now()); left > 0 {
		return left
	}
	return 0
}

// ExtractToken reads the bearer token from the Authorization header.
// A bare token without the "Bearer " prefix is accepted too.
func ExtractToken(c *fiber.Ctx) (string, error) {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == "" {
		return "", errors.New("missing authorization token")
	}
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		header = strings.TrimSpace(header[7:])
	}
	if header == "" {
		return "", errors.New("missing authorization token")
	}
	return header, nil
}
