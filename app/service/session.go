package service

import (
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-todo/app/revocation"
	"github.com/vibast-solutions/ms-go-todo/app/token"
	"github.com/vibast-solutions/ms-go-todo/config"
)

// SessionService issues, verifies and renews session tokens.
type SessionService interface {
	Issue(identity string) (string, *token.Claims, error)
	Verify(raw string) (*token.Claims, error)
	// MaybeRenew returns a fresh token when the presented one has aged past the renewal throttle,
	// or "" when the caller should keep using the current token.
	MaybeRenew(claims *token.Claims) (string, *token.Claims, error)
	Revoke(raw string, claims *token.Claims)
	Lifetime() time.Duration
}

type SessionServiceOption func(*sessionService)

func WithSessionClock(now func() time.Time) SessionServiceOption {
	return func(s *sessionService) {
		s.now = now
	}
}

type sessionService struct {
	codec    *token.Codec
	registry revocation.Registry
	cfg      config.SessionConfig
	now      func() time.Time
}

func NewSessionService(codec *token.Codec, registry revocation.Registry, cfg config.SessionConfig, opts ...SessionServiceOption) SessionService {
	s := &sessionService{
		codec:    codec,
		registry: registry,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *sessionService) Issue(identity string) (string, *token.Claims, error) {
	claims := token.NewClaims(token.KindSession, identity, s.now(), s.cfg.Lifetime)
	raw, err := s.codec.Encode(claims)
	if err != nil {
		return "", nil, err
	}
	return raw, claims, nil
}

func (s *sessionService) Verify(raw string) (*token.Claims, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Kind != token.KindSession {
		return nil, fmt.Errorf("%w: unexpected kind %q", token.ErrMalformed, claims.Kind)
	}
	if s.registry.IsRevoked(raw) {
		return nil, ErrRevoked
	}
	return claims, nil
}

func (s *sessionService) MaybeRenew(claims *token.Claims) (string, *token.Claims, error) {
	if !s.cfg.AutoRenew {
		return "", nil, nil
	}

	remaining := claims.Expiry().Sub(s.now())
	if remaining >= s.cfg.Lifetime-s.cfg.RenewalThrottle {
		return "", nil, nil
	}

	return s.Issue(claims.Identity())
}

func (s *sessionService) Revoke(raw string, claims *token.Claims) {
	s.registry.Revoke(raw, claims.Expiry())
}

func (s *sessionService) Lifetime() time.Duration {
	return s.cfg.Lifetime
}
