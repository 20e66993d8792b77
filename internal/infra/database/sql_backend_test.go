package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/aqar-matcher/internal/entity"
)

func newSQLiteBackend(t *testing.T) *SQLBackend {
	t.Helper()
	db, err := NewDBConnection(DriverSQLite, filepath.Join(t.TempDir(), "clients.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	b := NewSQLBackend(db, DriverSQLite, zap.NewNop().Sugar())
	require.NoError(t, b.EnsureSchema(context.Background()))
	return b
}

func TestSQLBackendWriteAndRead(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)

	c := entity.NewClient("966500000001", newFakeClock().Now())
	c.Name = "Fahad"
	require.NoError(t, b.Write(ctx, map[string]*entity.Client{c.Phone: c}, nil))

	got, err := b.Get(ctx, "966500000001")
	require.NoError(t, err)
	assert.Equal(t, "Fahad", got.Name)

	_, err = b.Get(ctx, "966500000002")
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := b.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLBackendUpsertAndDeleteInOneWrite(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)
	clock := newFakeClock()

	first := entity.NewClient("966500000001", clock.Now())
	second := entity.NewClient("966500000002", clock.Now())
	require.NoError(t, b.Write(ctx, map[string]*entity.Client{first.Phone: first, second.Phone: second}, nil))

	first.Name = "updated"
	require.NoError(t, b.Write(ctx, map[string]*entity.Client{first.Phone: first}, []string{second.Phone}))

	all, err := b.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "updated", all["966500000001"].Name)
}

func TestClientStoreOverSQLite(t *testing.T) {
	ctx := context.Background()
	b := newSQLiteBackend(t)
	store := newTestStore(b, newFakeClock())
	require.NoError(t, store.Load(ctx))

	_, err := store.Update(ctx, "0500000001", ClientPatch{Name: strPtr("Noura")})
	require.NoError(t, err)

	sibling := newTestStore(b, newFakeClock())
	require.NoError(t, sibling.Load(ctx))
	got, err := sibling.Get(ctx, "966500000001")
	require.NoError(t, err)
	assert.Equal(t, "Noura", got.Name)
	assert.Equal(t, DriverSQLite, store.BackendName())
}
