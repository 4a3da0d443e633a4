package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

var (
	ErrInvalidInternalAPIKey    = errors.New("invalid or expired internal api key")
	ErrServiceHasActiveAPIKey   = errors.New("service already has an active api key")
	ErrServiceHasNoActiveAPIKey = errors.New("service has no active api key")
	ErrServiceNameRequired      = errors.New("service name is required")
)

const (
	apiKeyPrefix     = "mstodo_"
	apiKeySecretSize = 32
	apiKeyLifetime   = 100 * 365 * 24 * time.Hour
)

type apiKeyRepository interface {
	Create(ctx context.Context, key *entity.InternalAPIKey) error
	FindActiveByHash(ctx context.Context, keyHash string, now time.Time) (*entity.InternalAPIKey, error)
	FindActiveByServiceName(ctx context.Context, serviceName string, now time.Time) ([]*entity.InternalAPIKey, error)
	Deactivate(ctx context.Context, id string, now time.Time) error
}

// InternalAuthService manages the API keys other services present to the internal gRPC API.
// Only the SHA-256 of a key is stored.
type InternalAuthService interface {
	// ValidateInternalAPIKey returns the name of the service owning apiKey.
	ValidateInternalAPIKey(ctx context.Context, apiKey string) (string, error)
	GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error)
	DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error)
}

type internalAuthService struct {
	keys apiKeyRepository
	now  func() time.Time
}

func NewInternalAuthService(keys apiKeyRepository) InternalAuthService {
	return &internalAuthService{
		keys: keys,
		now:  time.Now,
	}
}

func (s *internalAuthService) ValidateInternalAPIKey(ctx context.Context, apiKey string) (string, error) {
	apiKey = strings.TrimSpace(apiKey)
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return "", ErrInvalidInternalAPIKey
	}

	key, err := s.keys.FindActiveByHash(ctx, apiKeyHash(apiKey), s.now().UTC())
	switch {
	case err != nil:
		return "", err
	case key == nil:
		return "", ErrInvalidInternalAPIKey
	}
	return key.ServiceName, nil
}

// GenerateInternalAPIKey returns the raw key. It is never retrievable again.
func (s *internalAuthService) GenerateInternalAPIKey(ctx context.Context, serviceName string) (string, error) {
	serviceName, active, err := s.activeKeys(ctx, serviceName)
	if err != nil {
		return "", err
	}
	if len(active) > 0 {
		return "", ErrServiceHasActiveAPIKey
	}

	secret := make([]byte, apiKeySecretSize)
	if _, err = rand.Read(secret); err != nil {
		return "", err
	}
	raw := apiKeyPrefix + hex.EncodeToString(secret)

	now := s.now().UTC()
	err = s.keys.Create(ctx, &entity.InternalAPIKey{
		ServiceName: serviceName,
		KeyHash:     apiKeyHash(raw),
		IsActive:    true,
		ExpiresAt:   now.Add(apiKeyLifetime),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return "", err
	}

	logrus.WithField("service_name", serviceName).Info("Internal API key generated")
	return raw, nil
}

func (s *internalAuthService) DeactivateInternalAPIKeys(ctx context.Context, serviceName string) (int, error) {
	serviceName, active, err := s.activeKeys(ctx, serviceName)
	if err != nil {
		return 0, err
	}
	if len(active) == 0 {
		return 0, ErrServiceHasNoActiveAPIKey
	}

	now := s.now().UTC()
	for _, key := range active {
		if err = s.keys.Deactivate(ctx, key.ID, now); err != nil {
			return 0, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"service_name": serviceName,
		"count":        len(active),
	}).Info("Internal API keys deactivated")
	return len(active), nil
}

func (s *internalAuthService) activeKeys(ctx context.Context, serviceName string) (string, []*entity.InternalAPIKey, error) {
	serviceName = strings.TrimSpace(serviceName)
	if serviceName == "" {
		return "", nil, ErrServiceNameRequired
	}
	active, err := s.keys.FindActiveByServiceName(ctx, serviceName, s.now().UTC())
	if err != nil {
		return "", nil, err
	}
	return serviceName, active, nil
}

func apiKeyHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
