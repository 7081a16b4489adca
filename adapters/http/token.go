package http

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/satriahrh/client-talk/domain"
)

const (
	tokenIssuer  = "client-talk"
	tokenSubject = "session-watch"
)

// WatchClaims scope a token to a single session's event stream.
type WatchClaims struct {
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// WatchTokens issues and verifies HS256 watch tokens.
type WatchTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewWatchTokens(secret string, ttl time.Duration) *WatchTokens {
	return &WatchTokens{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a token for sessionID.
func (w *WatchTokens) Issue(sessionID string) (string, error) {
	now := w.now()
	claims := &WatchClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(w.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   tokenSubject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(w.secret)
	if err != nil {
		return "", fmt.Errorf("signing watch token: %w", err)
	}
	return signed, nil
}

// Verify returns the session id a valid token grants access to.
func (w *WatchTokens) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("missing token: %w", domain.ErrUnauthorized)
	}

	token, err := jwt.ParseWithClaims(tokenString, &WatchClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return w.secret, nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(tokenSubject),
		jwt.WithTimeFunc(w.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*WatchClaims)
	if !ok || !token.Valid || claims.SessionID == "" {
		return "", fmt.Errorf("invalid token claims: %w", domain.ErrUnauthorized)
	}
	return claims.SessionID, nil
}
