package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/roomledger/roomledger/internal/config"
	"github.com/sirupsen/logrus"
)

const sessionTokenType = "session"

// SessionTokenService signs session ids into the cookie value so a client
// cannot present an id the server never issued.
type SessionTokenService struct {
	secretKey []byte
	logger    *logrus.Logger
}

func NewSessionTokenService(cfg *config.SessionConfig, logger *logrus.Logger) (*SessionTokenService, error) {
	secretKey := []byte(cfg.SecretKey)
	if len(secretKey) < 32 {
		return nil, fmt.Errorf("secret key must be at least 32 bytes")
	}

	return &SessionTokenService{
		secretKey: secretKey,
		logger:    logger,
	}, nil
}

type SessionClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// NewSessionID returns a fresh random session id.
func NewSessionID() string {
	return uuid.New().String()
}

func (s *SessionTokenService) Sign(sessionID string, expiresAt time.Time) (string, error) {
	claims := &SessionClaims{
		Type: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		s.logger.WithError(err).Error("Failed to sign session token")
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify returns the session id carried by a valid, unexpired token.
func (s *SessionTokenService) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	if claims.Type != sessionTokenType || claims.ID == "" {
		return "", fmt.Errorf("invalid token type")
	}
	return claims.ID, nil
}
