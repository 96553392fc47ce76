// Package auth issues and checks the gateway's session tokens.
//
// A session token is an HS256 JWT that carries the oned login token of the
// user. Requests authenticated with it are forwarded to oned with the session
// string "user:one_token", so the gateway itself stores no session state.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"evalgo.org/fireedge/internal/config"
	"evalgo.org/fireedge/internal/opennebula"
)

const issuer = "fireedge"

var (
	// ErrInvalidToken is returned when a JWT token is invalid
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a JWT token has expired
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidCredentials is returned when oned rejects the login
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Claims represents JWT custom claims
type Claims struct {
	User     string `json:"user"`
	UID      int    `json:"uid"`
	OneToken string `json:"one_token"`
	Zone     string `json:"zone,omitempty"`
	jwt.RegisteredClaims
}

// Session returns the oned credential string for the claims.
func (c *Claims) Session() string {
	return opennebula.Session(c.User, c.OneToken)
}

// JWTService signs and validates session tokens.
type JWTService struct {
	secret        []byte
	expiration    time.Duration
	maxExpiration time.Duration
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg *config.Config) *JWTService {
	return &JWTService{
		secret:        []byte(cfg.Security.JWTSecret),
		expiration:    cfg.Security.JWTExpiration,
		maxExpiration: cfg.Security.JWTMaxExpiration,
	}
}

// Lifetime clamps a requested token lifetime. Zero selects the configured
// default.
func (s *JWTService) Lifetime(requested time.Duration) time.Duration {
	if requested <= 0 {
		return s.expiration
	}
	if s.maxExpiration > 0 && requested > s.maxExpiration {
		return s.maxExpiration
	}
	return requested
}

// IssueToken signs a session token for an oned user.
func (s *JWTService) IssueToken(user string, uid int, oneToken, zone string, ttl time.Duration) (string, time.Time, error) {
	if user == "" || oneToken == "" {
		return "", time.Time{}, fmt.Errorf("user and oned token are required")
	}

	now := time.Now()
	expiresAt := now.Add(s.Lifetime(ttl))

	claims := Claims{
		User:     user,
		UID:      uid,
		OneToken: oneToken,
		Zone:     zone,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   user,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.OneToken == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
