package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// SessionCookie carries a session token for browser clients
	SessionCookie = "session"

	principalKey = "principal"
)

var (
	ErrNoSecret     = errors.New("session secret is not configured")
	ErrInvalidToken = errors.New("invalid session token")
)

// Claims are the session token claims. Subject names the principal.
type Claims struct {
	jwt.RegisteredClaims
}

// Sessions issues and validates HS256 session tokens
type Sessions struct {
	secret []byte
}

// NewSessions creates a session validator for secret
func NewSessions(secret string) (*Sessions, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	return &Sessions{secret: []byte(secret)}, nil
}

// Issue signs a token for subject valid for ttl
func (s *Sessions) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("subject is required")
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and returns its claims
func (s *Sessions) Validate(tokenString string) (*Claims, error) {
	if s == nil {
		return nil, ErrNoSecret
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequireSession rejects requests without a valid session and records the
// principal for later handlers.
func RequireSession(sessions *Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie(SessionCookie)
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "login required",
			})
			return
		}

		claims, err := sessions.Validate(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "Unauthorized",
				"message": "invalid or expired session",
			})
			return
		}

		c.Set(principalKey, claims.Subject)
		c.Next()
	}
}

// Principal returns the authenticated subject for the request, if any
func Principal(c *gin.Context) string {
	return c.GetString(principalKey)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
