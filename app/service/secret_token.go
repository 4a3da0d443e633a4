package service

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/config"
)

type secretTokenRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Account, error)
	SetActivationToken(ctx context.Context, id, token string, now time.Time) error
	SetPasswordResetToken(ctx context.Context, id, token string, now time.Time) error
	ConsumeActivationToken(ctx context.Context, id, token, passwordHash string, now time.Time) (bool, error)
	ConsumeResetToken(ctx context.Context, id, token, passwordHash string, now time.Time) (bool, error)
}

// SecretTokenService manages the single-use activation and password reset tokens stored on accounts.
type SecretTokenService interface {
	// PrepareActivation mints an activation token onto an account that has not been persisted yet.
	PrepareActivation(account *entity.Account) (string, error)
	IssueActivation(ctx context.Context, account *entity.Account) (string, error)
	IssueReset(ctx context.Context, account *entity.Account) (string, error)
	ConsumeActivation(ctx context.Context, raw, newPassword string) (*entity.Account, error)
	ConsumeReset(ctx context.Context, raw, newPassword string) (*entity.Account, error)
}

type SecretTokenServiceOption func(*secretTokenService)

func WithSecretTokenClock(now func() time.Time) SecretTokenServiceOption {
	return func(s *secretTokenService) {
		s.now = now
	}
}

type secretTokenService struct {
	codec *token.Codec
	repo  secretTokenRepository
	cfg   *config.Config
	now   func() time.Time
}

func NewSecretTokenService(codec *token.Codec, repo secretTokenRepository, cfg *config.Config, opts ...SecretTokenServiceOption) SecretTokenService {
	s := &secretTokenService{
		codec: codec,
		repo:  repo,
		cfg:   cfg,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *secretTokenService) PrepareActivation(account *entity.Account) (string, error) {
	raw, err := s.mint(token.KindActivation, account.ID, s.cfg.Tokens.ActivationTTL)
	if err != nil {
		return "", err
	}
	account.ActivationToken = sql.NullString{String: raw, Valid: true}
	return raw, nil
}

func (s *secretTokenService) IssueActivation(ctx context.Context, account *entity.Account) (string, error) {
	raw, err := s.mint(token.KindActivation, account.ID, s.cfg.Tokens.ActivationTTL)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetActivationToken(ctx, account.ID, raw, s.now().UTC()); err != nil {
		return "", err
	}
	account.ActivationToken = sql.NullString{String: raw, Valid: true}
	return raw, nil
}

func (s *secretTokenService) IssueReset(ctx context.Context, account *entity.Account) (string, error) {
	raw, err := s.mint(token.KindPasswordReset, account.ID, s.cfg.Tokens.ResetTTL)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPasswordResetToken(ctx, account.ID, raw, s.now().UTC()); err != nil {
		return "", err
	}
	account.PasswordResetToken = sql.NullString{String: raw, Valid: true}
	return raw, nil
}

func (s *secretTokenService) ConsumeActivation(ctx context.Context, raw, newPassword string) (*entity.Account, error) {
	account, hash, err := s.prepareConsume(ctx, token.KindActivation, raw, newPassword, func(a *entity.Account) sql.NullString {
		return a.ActivationToken
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ok, err := s.repo.ConsumeActivationToken(ctx, account.ID, raw, hash, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	account.PasswordHash = sql.NullString{String: hash, Valid: true}
	account.ActivationToken = sql.NullString{}
	account.UpdatedAt = now
	return account, nil
}

func (s *secretTokenService) ConsumeReset(ctx context.Context, raw, newPassword string) (*entity.Account, error) {
	account, hash, err := s.prepareConsume(ctx, token.KindPasswordReset, raw, newPassword, func(a *entity.Account) sql.NullString {
		return a.PasswordResetToken
	})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ok, err := s.repo.ConsumeResetToken(ctx, account.ID, raw, hash, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidToken
	}

	account.PasswordHash = sql.NullString{String: hash, Valid: true}
	account.PasswordResetToken = sql.NullString{}
	account.UpdatedAt = now
	return account, nil
}

// prepareConsume checks everything that can be checked before the conditional update and returns the
// account with the new password hash. Every token failure collapses into ErrInvalidToken.
func (s *secretTokenService) prepareConsume(
	ctx context.Context,
	kind token.Kind,
	raw, newPassword string,
	stored func(*entity.Account) sql.NullString,
) (*entity.Account, string, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		logrus.WithError(err).WithField("kind", kind).Debug("Secret token rejected")
		return nil, "", ErrInvalidToken
	}
	if claims.Kind != kind {
		logrus.WithField("kind", kind).WithField("presented", claims.Kind).Debug("Secret token kind mismatch")
		return nil, "", ErrInvalidToken
	}

	account, err := s.repo.FindByID(ctx, claims.Identity())
	if err != nil {
		return nil, "", err
	}
	if account == nil {
		return nil, "", ErrInvalidToken
	}

	current := stored(account)
	if !current.Valid || subtle.ConstantTimeCompare([]byte(current.String), []byte(raw)) != 1 {
		return nil, "", ErrInvalidToken
	}

	if err := s.cfg.Password.Policy.Validate(newPassword); err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrWeakPassword, err.Error())
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	return account, string(hash), nil
}

func (s *secretTokenService) mint(kind token.Kind, identity string, ttl time.Duration) (string, error) {
	return s.codec.Encode(token.NewClaims(kind, identity, s.now(), ttl))
}
