package badger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/index/indextest"
	"github.com/marmos91/dittobox/pkg/models"
)

func createTestStore(t *testing.T) index.Store {
	t.Helper()
	store, err := New(context.Background(), &index.Config{
		Type:   index.DatabaseTypeBadger,
		Badger: index.BadgerConfig{Path: filepath.Join(t.TempDir(), "index")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStoreConformance(t *testing.T) {
	suite := &indextest.StoreTestSuite{NewStore: createTestStore}
	suite.Run(t)
}

func TestNewRejectsOtherTypes(t *testing.T) {
	_, err := New(context.Background(), &index.Config{Type: index.DatabaseTypeSQLite, SQLite: index.SQLiteConfig{Path: "x.db"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database type")
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")
	cfg := &index.Config{Type: index.DatabaseTypeBadger, Badger: index.BadgerConfig{Path: path}}
	ctx := context.Background()

	store, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, store.CreateOwnership(ctx, "dir-1", "alice"))
	require.NoError(t, store.ActivateGrant(ctx, "dir-1", "bob"))
	require.NoError(t, store.Close())

	store, err = New(ctx, cfg)
	require.NoError(t, err)
	defer store.Close()

	owner, err := store.GetOwnership(ctx, "dir-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", owner.UserID)

	g, err := store.GetGrant(ctx, "dir-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.GrantActive, g.State)
}

func TestKeysDoNotOverlap(t *testing.T) {
	// "ab" must not see grants of "abc".
	assert.NotEqual(t, string(prefixGrantsOf("ab")), string(keyGrant("abc", ""))[:len(prefixGrantsOf("ab"))])
}
