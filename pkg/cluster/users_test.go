package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santoshpalla27/user-app-redis-mysql/pkg/models"
	"github.com/santoshpalla27/user-app-redis-mysql/pkg/storage"
)

func readyUserStore(t *testing.T) (*UserStore, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	a := readyAdapter(t, conn)
	return NewUserStore(a, zerolog.Nop()), conn
}

func TestUserStore_InsertAndGetRoundtrip(t *testing.T) {
	store, _ := readyUserStore(t)
	ctx := context.Background()

	rec := models.UserRecord{Name: "Ann", Email: "ann@x.com", Phone: "555", Address: "1 Main St"}
	require.NoError(t, store.Insert(ctx, &rec))
	require.NotEmpty(t, rec.Id)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := store.Get(ctx, rec.Id)
	require.NoError(t, err)
	assert.Equal(t, rec.Id, got.Id)
	assert.Equal(t, "Ann", got.Name)
	assert.Equal(t, "ann@x.com", got.Email)
	assert.Equal(t, "555", got.Phone)
	assert.Equal(t, "1 Main St", got.Address)
	assert.WithinDuration(t, rec.CreatedAt, got.CreatedAt, time.Second)
}

func TestUserStore_InsertRejectsDuplicateEmail(t *testing.T) {
	store, _ := readyUserStore(t)
	ctx := context.Background()

	first := models.UserRecord{Name: "Ann", Email: "ann@x.com"}
	require.NoError(t, store.Insert(ctx, &first))

	second := models.UserRecord{Name: "Other Ann", Email: "ANN@X.COM"}
	err := store.Insert(ctx, &second)
	assert.ErrorIs(t, err, storage.ErrDuplicateEmail)

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUserStore_GetMissingReturnsNotFound(t *testing.T) {
	store, _ := readyUserStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_UpdatePreservesCreatedAtAndChecksEmail(t *testing.T) {
	store, _ := readyUserStore(t)
	ctx := context.Background()

	ann := models.UserRecord{Name: "Ann", Email: "ann@x.com"}
	bob := models.UserRecord{Name: "Bob", Email: "bob@x.com"}
	require.NoError(t, store.Insert(ctx, &ann))
	require.NoError(t, store.Insert(ctx, &bob))

	t.Run("should keep created_at and allow same-record email", func(t *testing.T) {
		update := models.UserRecord{Name: "Ann Updated", Email: "ann@x.com", Phone: "999"}
		require.NoError(t, store.Update(ctx, ann.Id, &update))

		got, err := store.Get(ctx, ann.Id)
		require.NoError(t, err)
		assert.Equal(t, "Ann Updated", got.Name)
		assert.Equal(t, "999", got.Phone)
		assert.WithinDuration(t, ann.CreatedAt, got.CreatedAt, time.Second)
	})

	t.Run("should reject another record's email", func(t *testing.T) {
		update := models.UserRecord{Name: "Bob", Email: "ann@x.com"}
		err := store.Update(ctx, bob.Id, &update)
		assert.ErrorIs(t, err, storage.ErrDuplicateEmail)
	})

	t.Run("should 404 on unknown id", func(t *testing.T) {
		update := models.UserRecord{Name: "Nobody", Email: "nobody@x.com"}
		err := store.Update(ctx, "missing", &update)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestUserStore_DeleteThenGet(t *testing.T) {
	store, _ := readyUserStore(t)
	ctx := context.Background()

	rec := models.UserRecord{Name: "Ann", Email: "ann@x.com"}
	require.NoError(t, store.Insert(ctx, &rec))

	require.NoError(t, store.Delete(ctx, rec.Id))

	_, err := store.Get(ctx, rec.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	err = store.Delete(ctx, rec.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore_ListMatchesPerShardUnion(t *testing.T) {
	conn := newFakeConn()
	conn.shards = 3
	a := readyAdapter(t, conn)
	store := NewUserStore(a, zerolog.Nop())
	ctx := context.Background()

	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	for _, e := range emails {
		rec := models.UserRecord{Name: e, Email: e}
		require.NoError(t, store.Insert(ctx, &rec))
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, records, len(emails))

	seen := map[string]bool{}
	for _, r := range records {
		seen[r.Email] = true
	}
	for _, e := range emails {
		assert.True(t, seen[e], "missing %s", e)
	}
}

func TestUserStore_PutRecordWritesVerbatim(t *testing.T) {
	store, _ := readyUserStore(t)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := models.UserRecord{Id: "1716212345678", Name: "Legacy", Email: "legacy@x.com", CreatedAt: created}
	require.NoError(t, store.PutRecord(ctx, &rec))

	got, err := store.Get(ctx, "1716212345678")
	require.NoError(t, err)
	assert.Equal(t, "1716212345678", got.Id)
	assert.True(t, got.CreatedAt.Equal(created))

	t.Run("should reject empty id", func(t *testing.T) {
		assert.Error(t, store.PutRecord(ctx, &models.UserRecord{Name: "x"}))
	})
}

func TestEncodeDecode(t *testing.T) {
	created := time.Date(2023, 11, 2, 9, 30, 0, 0, time.UTC)
	rec := models.UserRecord{
		Id: "abc-123", Name: "Ann", Email: "ann@x.com",
		Phone: "555", Address: "1 Main St", CreatedAt: created,
	}

	fields := encode(&rec)
	decoded := decode("abc-123", map[string]string{
		"id":         fields["id"].(string),
		"name":       fields["name"].(string),
		"email":      fields["email"].(string),
		"phone":      fields["phone"].(string),
		"address":    fields["address"].(string),
		"created_at": fields["created_at"].(string),
	})

	assert.Equal(t, rec, decoded)
}
