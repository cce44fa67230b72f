// ABOUTME: Tests for merchant and session store operations
// ABOUTME: Covers CRUD, duplicate emails, and session expiry

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMerchant(id, email string) *Merchant {
	return &Merchant{
		ID:           id,
		Email:        email,
		Phone:        "+256712345678",
		PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
		DisplayName:  "Test Merchant",
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
	}
}

func TestMerchantStore_Create(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	m := testMerchant("merchant-123", "owner@example.com")
	require.NoError(t, store.CreateMerchant(ctx, m))

	retrieved, err := store.GetMerchant(ctx, "merchant-123")
	require.NoError(t, err)
	assert.Equal(t, "merchant-123", retrieved.ID)
	assert.Equal(t, "owner@example.com", retrieved.Email)
	assert.Equal(t, "+256712345678", retrieved.Phone)
	assert.Equal(t, "Test Merchant", retrieved.DisplayName)
	assert.False(t, retrieved.PhoneVerified)
}

func TestMerchantStore_Create_DuplicateEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-1", "dup@example.com")))

	err := store.CreateMerchant(ctx, testMerchant("merchant-2", "dup@example.com"))
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestMerchantStore_GetByEmail(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-abc", "lookup@example.com")))

	retrieved, err := store.GetMerchantByEmail(ctx, "lookup@example.com")
	require.NoError(t, err)
	assert.Equal(t, "merchant-abc", retrieved.ID)
}

func TestMerchantStore_Get_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.GetMerchant(ctx, "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = store.GetMerchantByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerchantStore_UpdatePassword(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))
	require.NoError(t, store.UpdateMerchantPassword(ctx, "merchant-123", "new-hash"))

	retrieved, err := store.GetMerchant(ctx, "merchant-123")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", retrieved.PasswordHash)
}

func TestMerchantStore_UpdatePassword_NotFound(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.UpdateMerchantPassword(ctx, "nonexistent", "hash")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMerchantStore_MarkPhoneVerified(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))
	require.NoError(t, store.MarkPhoneVerified(ctx, "merchant-123"))

	retrieved, err := store.GetMerchant(ctx, "merchant-123")
	require.NoError(t, err)
	assert.True(t, retrieved.PhoneVerified)
}

func TestMerchantStore_Count(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	count, err := store.CountMerchants(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-1", "a@example.com")))
	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-2", "b@example.com")))

	count, err = store.CountMerchants(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))

	sess := &Session{
		ID:         "session-abc",
		MerchantID: "merchant-123",
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, sess))

	retrieved, err := store.GetSession(ctx, "session-abc")
	require.NoError(t, err)
	assert.Equal(t, "merchant-123", retrieved.MerchantID)
}

func TestSessionStore_Expired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))

	sess := &Session{
		ID:         "session-old",
		MerchantID: "merchant-123",
		CreatedAt:  time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt:  time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, sess))

	_, err := store.GetSession(ctx, "session-old")
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionStore_Delete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))

	sess := &Session{
		ID:         "session-abc",
		MerchantID: "merchant-123",
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, sess))
	require.NoError(t, store.DeleteSession(ctx, "session-abc"))

	_, err := store.GetSession(ctx, "session-abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.CreateMerchant(ctx, testMerchant("merchant-123", "owner@example.com")))

	live := &Session{
		ID:         "session-live",
		MerchantID: "merchant-123",
		CreatedAt:  time.Now().UTC(),
		ExpiresAt:  time.Now().UTC().Add(time.Hour),
	}
	dead := &Session{
		ID:         "session-dead",
		MerchantID: "merchant-123",
		CreatedAt:  time.Now().UTC().Add(-2 * time.Hour),
		ExpiresAt:  time.Now().UTC().Add(-time.Hour),
	}
	require.NoError(t, store.CreateSession(ctx, live))
	require.NoError(t, store.CreateSession(ctx, dead))

	require.NoError(t, store.DeleteExpiredSessions(ctx))

	_, err := store.GetSession(ctx, "session-live")
	require.NoError(t, err)
	_, err = store.GetSession(ctx, "session-dead")
	assert.ErrorIs(t, err, ErrNotFound)
}
