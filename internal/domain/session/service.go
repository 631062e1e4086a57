package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"
)

// tokenPrefix makes leaked tokens recognizable in scanners and logs.
const tokenPrefix = "ssk_"

// Servicer issues and validates API tokens.
type Servicer interface {
	// Issue creates a token for the user and returns its raw value once.
	Issue(ctx context.Context, userID int, name string, ttl time.Duration) (raw string, token *Token, err error)

	// Validate resolves a raw bearer token to its owner.
	Validate(ctx context.Context, raw string) (*Token, error)

	Revoke(ctx context.Context, id string, userID int) error
	List(ctx context.Context, userID int) ([]*Token, error)
}

type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

func NewService(repo Repository, log *slog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.With(slog.String("component", "session")),
		now:  time.Now,
	}
}

func (s *Service) Issue(ctx context.Context, userID int, name string, ttl time.Duration) (string, *Token, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	raw := tokenPrefix + hex.EncodeToString(buf)

	token := &Token{
		UserID:    userID,
		Name:      name,
		TokenHash: hashToken(raw),
		CreatedAt: s.now(),
	}
	if ttl > 0 {
		exp := s.now().Add(ttl)
		token.ExpiresAt = &exp
	}

	saved, err := s.repo.Save(ctx, token)
	if err != nil {
		return "", nil, fmt.Errorf("save token: %w", err)
	}
	s.log.Info("token issued", "user_id", userID, "name", name)
	return raw, saved, nil
}

func (s *Service) Validate(ctx context.Context, raw string) (*Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, tokenPrefix) {
		return nil, ErrInvalidToken
	}

	token, err := s.repo.GetByHash(ctx, hashToken(raw))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}
	if token.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	if err := s.repo.Touch(ctx, token.ID, s.now()); err != nil {
		s.log.Warn("failed to touch token", "token_id", token.ID, "error", err)
	}
	return token, nil
}

func (s *Service) Revoke(ctx context.Context, id string, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}

func (s *Service) List(ctx context.Context, userID int) ([]*Token, error) {
	return s.repo.ListByUser(ctx, userID)
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
