package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/dkoval/ragchat/pkg/errors"
)

// Config drives session token behavior.
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Session identifies one browser conversation.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Claims are extracted from a session token.
type Claims struct {
	SessionID uuid.UUID
	ExpiresAt time.Time
}

// Service issues and validates signed session tokens. Sessions carry no
// account identity, they only pin a conversation to one client.
type Service struct {
	cfg    Config
	logger *slog.Logger
}

func NewService(cfg Config, logger *slog.Logger) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.Secret == "" {
		// Tokens minted with a random secret do not survive a restart.
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err == nil {
			cfg.Secret = hex.EncodeToString(buf)
			logger.Warn("session secret not configured, generated ephemeral secret")
		}
	}
	return &Service{cfg: cfg, logger: logger.With("component", "session.service")}
}

// Create mints a new session with a signed token.
func (s *Service) Create() (Session, error) {
	id := uuid.New()
	now := time.Now()
	expiresAt := now.Add(s.cfg.TokenTTL)

	claims := tokenClaims{
		SessionID: id.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return Session{}, apperrors.Wrap(apperrors.CodeUnauthorized, "failed to sign session token", err)
	}

	s.logger.Info("session created", "session_id", id)
	return Session{ID: id, Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate parses a session token and returns its claims.
func (s *Service) Validate(token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "session token missing", nil)
	}
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "session token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "session token invalid", nil)
	}
	if claims.ExpiresAt == nil || claims.ExpiresAt.Time.Before(time.Now()) {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "session token expired", nil)
	}
	id, err := uuid.Parse(claims.SessionID)
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeUnauthorized, "session id malformed", err)
	}
	return Claims{SessionID: id, ExpiresAt: claims.ExpiresAt.Time}, nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sessionId"`
}
