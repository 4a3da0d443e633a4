package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-todo/app/entity"
	"github.com/vibast-solutions/ms-go-todo/app/repository"
)

const (
	findActiveKeyByHashQuery = `(?s)SELECT id, service_name, key_hash, is_active, expires_at, created_at, updated_at\s+FROM internal_api_keys\s+WHERE key_hash = \? AND is_active = \? AND expires_at > \?`
	deactivateKeyQuery       = `(?s)UPDATE internal_api_keys SET is_active = \?, updated_at = \? WHERE id = \?`
)

var internalAPIKeyColumns = []string{"id", "service_name", "key_hash", "is_active", "expires_at", "created_at", "updated_at"}

func TestInternalAPIKeyRepository_FindActiveByHash(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewInternalAPIKeyRepository(db)
	now := time.Now()
	rows := sqlmock.NewRows(internalAPIKeyColumns).
		AddRow("key-1", "billing", "abc", true, now.Add(time.Hour), now, now)
	mock.ExpectQuery(findActiveKeyByHashQuery).WithArgs("abc", true, now).WillReturnRows(rows)

	key, err := repo.FindActiveByHash(context.Background(), "abc", now)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if key == nil || key.ServiceName != "billing" || !key.IsActive {
		t.Fatalf("unexpected key: %+v", key)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAPIKeyRepository_Deactivate(t *testing.T) {
	db, mock, cleanup := newMockDB(t)
	defer cleanup()

	repo := repository.NewInternalAPIKeyRepository(db)
	now := time.Now()
	mock.ExpectExec(deactivateKeyQuery).WithArgs(false, now, "key-1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Deactivate(context.Background(), "key-1", now); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInternalAPIKeyRepository_SQLiteExpiry(t *testing.T) {
	db := newSQLiteDB(t)
	ctx := context.Background()
	repo := repository.NewInternalAPIKeyRepository(db)
	now := time.Now().UTC()

	live := &entity.InternalAPIKey{ServiceName: "billing", KeyHash: "live", IsActive: true, ExpiresAt: now.Add(time.Hour), CreatedAt: now, UpdatedAt: now}
	expired := &entity.InternalAPIKey{ServiceName: "billing", KeyHash: "expired", IsActive: true, ExpiresAt: now.Add(-time.Hour), CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, expired))

	key, err := repo.FindActiveByHash(ctx, "live", now)
	require.NoError(t, err)
	require.NotNil(t, key)
	assert.Equal(t, live.ID, key.ID)

	key, err = repo.FindActiveByHash(ctx, "expired", now)
	require.NoError(t, err)
	assert.Nil(t, key)

	keys, err := repo.FindActiveByServiceName(ctx, "billing", now)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, repo.Deactivate(ctx, live.ID, now))
	key, err = repo.FindActiveByHash(ctx, "live", now)
	require.NoError(t, err)
	assert.Nil(t, key)
}
