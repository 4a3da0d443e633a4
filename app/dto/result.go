package dto

import (
	"time"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

type LoginResult struct {
	Account   *entity.Account
	Token     string
	ExpiresAt time.Time
}

// SessionInfo describes a verified session for internal callers.
type SessionInfo struct {
	AccountID string
	Email     string
	ExpiresAt time.Time
}
