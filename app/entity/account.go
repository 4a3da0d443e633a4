package entity

import (
	"database/sql"
	"time"
)

type Account struct {
	ID                 string
	Email              string
	CanonicalEmail     string
	PasswordHash       sql.NullString
	ActivationToken    sql.NullString
	PasswordResetToken sql.NullString
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActivated is derived from the stored fields and never persisted.
func (a *Account) IsActivated() bool {
	return a.PasswordHash.Valid && a.PasswordHash.String != "" && !a.ActivationToken.Valid
}
