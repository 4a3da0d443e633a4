package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

const accountColumns = `id, email, canonical_email, password_hash, activation_token, password_reset_token, created_at, updated_at`

type AccountRepository struct {
	db DBTX
}

func NewAccountRepository(db DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *entity.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}

	query := `
		INSERT INTO accounts (id, email, canonical_email, password_hash, activation_token, password_reset_token, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID,
		account.Email,
		account.CanonicalEmail,
		account.PasswordHash,
		account.ActivationToken,
		account.PasswordResetToken,
		account.CreatedAt,
		account.UpdatedAt,
	)
	return err
}

func (r *AccountRepository) FindByCanonicalEmail(ctx context.Context, canonicalEmail string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE canonical_email = ?`
	return r.findOne(ctx, query, canonicalEmail)
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*entity.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ?`
	return r.findOne(ctx, query, id)
}

func (r *AccountRepository) Update(ctx context.Context, account *entity.Account) error {
	query := `
		UPDATE accounts SET
			email = ?,
			canonical_email = ?,
			password_hash = ?,
			activation_token = ?,
			password_reset_token = ?,
			updated_at = ?
		WHERE id = ?
	`
	account.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, query,
		account.Email,
		account.CanonicalEmail,
		account.PasswordHash,
		account.ActivationToken,
		account.PasswordResetToken,
		account.UpdatedAt,
		account.ID,
	)
	return err
}

// SetActivationToken replaces the stored activation token. A previously issued token stops matching.
func (r *AccountRepository) SetActivationToken(ctx context.Context, id, token string, now time.Time) error {
	query := `UPDATE accounts SET activation_token = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, token, now, id)
	return err
}

// SetPasswordResetToken replaces the stored reset token. A previously issued token stops matching.
func (r *AccountRepository) SetPasswordResetToken(ctx context.Context, id, token string, now time.Time) error {
	query := `UPDATE accounts SET password_reset_token = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, token, now, id)
	return err
}

// ConsumeActivationToken sets the password and clears the activation token in a single conditional
// update. It reports false when the stored token no longer equals token.
func (r *AccountRepository) ConsumeActivationToken(ctx context.Context, id, token, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE accounts SET
			password_hash = ?,
			activation_token = NULL,
			updated_at = ?
		WHERE id = ? AND activation_token = ?
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now, id, token)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

// ConsumeResetToken replaces the password and clears the reset token in a single conditional update.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, id, token, passwordHash string, now time.Time) (bool, error) {
	query := `
		UPDATE accounts SET
			password_hash = ?,
			password_reset_token = NULL,
			updated_at = ?
		WHERE id = ? AND password_reset_token = ?
	`
	result, err := r.db.ExecContext(ctx, query, passwordHash, now, id, token)
	if err != nil {
		return false, err
	}
	return affectedOne(result)
}

func (r *AccountRepository) findOne(ctx context.Context, query string, args ...interface{}) (*entity.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, args...).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func scanAccount(scan rowScanner) (*entity.Account, error) {
	account := &entity.Account{}
	if err := scan(
		&account.ID,
		&account.Email,
		&account.CanonicalEmail,
		&account.PasswordHash,
		&account.ActivationToken,
		&account.PasswordResetToken,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return account, nil
}
