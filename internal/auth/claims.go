package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/nanacaring/cmsportal/internal/api"
)

const issuer = "cmsportal"

// Claims are the portal's JWT claims.
type Claims struct {
	jwt.StandardClaims
	Role     api.Role `json:"role,omitempty"`
	Username string   `json:"username,omitempty"`
}

// Expiry returns the expiry time, or the zero time when none is set.
func (c *Claims) Expiry() time.Time {
	if c.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(c.ExpiresAt, 0)
}

// ParseClaims decodes a token's claims without verifying its signature.
// Backend tokens are verified by the backend; the portal only reads them.
func ParseClaims(token string) (*Claims, error) {
	claims := new(Claims)
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}

// Signer issues and verifies HS256 tokens for locally authenticated users.
type Signer struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func (s Signer) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Sign issues a token for u.
func (s Signer) Sign(u api.User) (string, time.Time, error) {
	if len(s.Secret) == 0 {
		return "", time.Time{}, fmt.Errorf("sign token: empty secret")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 8 * time.Hour
	}
	now := s.now()
	expires := now.Add(ttl)

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(u.ID, 10),
			IssuedAt:  now.Unix(),
			ExpiresAt: expires.Unix(),
		},
		Role:     u.Role,
		Username: u.Username,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, time.Unix(expires.Unix(), 0), nil
}

// Verify checks a token's signature and expiry.
func (s Signer) Verify(token string) (*Claims, error) {
	claims := new(Claims)
	parser := &jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}, SkipClaimsValidation: true}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.Secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if !claims.VerifyExpiresAt(s.now().Unix(), true) {
		return nil, fmt.Errorf("verify token: expired")
	}
	return claims, nil
}
