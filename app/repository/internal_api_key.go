package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
)

const internalAPIKeyColumns = `id, service_name, key_hash, is_active, expires_at, created_at, updated_at`

type InternalAPIKeyRepository struct {
	db DBTX
}

func NewInternalAPIKeyRepository(db DBTX) *InternalAPIKeyRepository {
	return &InternalAPIKeyRepository{db: db}
}

func (r *InternalAPIKeyRepository) Create(ctx context.Context, key *entity.InternalAPIKey) error {
	if key.ID == "" {
		key.ID = uuid.NewString()
	}

	query := `
		INSERT INTO internal_api_keys (id, service_name, key_hash, is_active, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.ServiceName,
		key.KeyHash,
		key.IsActive,
		key.ExpiresAt,
		key.CreatedAt,
		key.UpdatedAt,
	)
	return err
}

func (r *InternalAPIKeyRepository) FindActiveByHash(ctx context.Context, keyHash string, now time.Time) (*entity.InternalAPIKey, error) {
	query := `
		SELECT ` + internalAPIKeyColumns + `
		FROM internal_api_keys
		WHERE key_hash = ? AND is_active = ? AND expires_at > ?
	`
	key, err := scanInternalAPIKey(r.db.QueryRowContext(ctx, query, keyHash, true, now).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return key, nil
}

func (r *InternalAPIKeyRepository) FindActiveByServiceName(ctx context.Context, serviceName string, now time.Time) ([]*entity.InternalAPIKey, error) {
	query := `
		SELECT ` + internalAPIKeyColumns + `
		FROM internal_api_keys
		WHERE service_name = ? AND is_active = ? AND expires_at > ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, serviceName, true, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make([]*entity.InternalAPIKey, 0)
	for rows.Next() {
		key, err := scanInternalAPIKey(rows.Scan)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *InternalAPIKeyRepository) Deactivate(ctx context.Context, id string, now time.Time) error {
	query := `UPDATE internal_api_keys SET is_active = ?, updated_at = ? WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, false, now, id)
	return err
}

func scanInternalAPIKey(scan rowScanner) (*entity.InternalAPIKey, error) {
	key := &entity.InternalAPIKey{}
	if err := scan(
		&key.ID,
		&key.ServiceName,
		&key.KeyHash,
		&key.IsActive,
		&key.ExpiresAt,
		&key.CreatedAt,
		&key.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return key, nil
}
