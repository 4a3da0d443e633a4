package entity

import "time"

// InternalAPIKey authenticates a service calling the internal gRPC API. Only the hash is stored.
type InternalAPIKey struct {
	ID          string
	ServiceName string
	KeyHash     string
	IsActive    bool
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
