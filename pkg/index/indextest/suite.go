// Package indextest provides a behavioural test suite shared by every
// index.Store implementation.
package indextest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/models"
)

// StoreFactory creates a fresh, empty store for a single test.
type StoreFactory func(t *testing.T) index.Store

// StoreTestSuite runs the index conformance tests against a backend.
type StoreTestSuite struct {
	NewStore StoreFactory
}

// Run executes all conformance tests.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Ownership", suite.testOwnership)
	t.Run("Attributes", suite.testAttributes)
	t.Run("Grants", suite.testGrants)
	t.Run("DeleteDirectory", suite.testDeleteDirectory)
	t.Run("Users", suite.testUsers)
	t.Run("ConcurrentOwnership", suite.testConcurrentOwnership)
}

func newID() string {
	return uuid.New().String()
}

// ============================================================================
// Ownership Tests
// ============================================================================

func (suite *StoreTestSuite) testOwnership(test *testing.T) {
	test.Run("CreateAndGet", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		dir := newID()

		require.NoError(t, store.CreateOwnership(ctx, dir, "alice@example.com"))

		got, err := store.GetOwnership(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, dir, got.DirectoryID)
		assert.Equal(t, "alice@example.com", got.UserID)
	})

	test.Run("OwnerIsImmutable", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		dir := newID()

		require.NoError(t, store.CreateOwnership(ctx, dir, "alice@example.com"))
		err := store.CreateOwnership(ctx, dir, "mallory@example.com")
		assert.ErrorIs(t, err, models.ErrDuplicateOwner)

		got, err := store.GetOwnership(ctx, dir)
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.UserID)
	})

	test.Run("MissingReturnsNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		_, err := store.GetOwnership(context.Background(), newID())
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	test.Run("ListOwnedIsExact", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		a1, a2, b := newID(), newID(), newID()

		require.NoError(t, store.CreateOwnership(ctx, a1, "al@example.com"))
		require.NoError(t, store.CreateOwnership(ctx, a2, "al@example.com"))
		require.NoError(t, store.CreateOwnership(ctx, b, "sal@example.com"))

		owned, err := store.ListOwnedDirectories(ctx, "al@example.com")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{a1, a2}, owned)
	})

	test.Run("SearchIsSubstring", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		a, b, c := newID(), newID(), newID()

		require.NoError(t, store.CreateOwnership(ctx, a, "al@example.com"))
		require.NoError(t, store.CreateOwnership(ctx, b, "sal@example.com"))
		require.NoError(t, store.CreateOwnership(ctx, c, "bob@example.com"))

		rows, err := store.SearchOwnerships(ctx, "al@")
		require.NoError(t, err)
		var dirs []string
		for _, r := range rows {
			dirs = append(dirs, r.DirectoryID)
		}
		assert.ElementsMatch(t, []string{a, b}, dirs)
	})

	test.Run("SearchTreatsWildcardsLiterally", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		require.NoError(t, store.CreateOwnership(ctx, newID(), "bob@example.com"))

		rows, err := store.SearchOwnerships(ctx, "%")
		require.NoError(t, err)
		assert.Empty(t, rows)

		rows, err = store.SearchOwnerships(ctx, "b_b")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

// ============================================================================
// Attribute Tests
// ============================================================================

func (suite *StoreTestSuite) testAttributes(test *testing.T) {
	test.Run("PutIsUpsert", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		dir := newID()

		created, err := store.PutAttribute(ctx, dir, models.KeyPath, "alice/docs")
		require.NoError(t, err)
		assert.True(t, created)

		created, err = store.PutAttribute(ctx, dir, models.KeyPath, "alice/papers")
		require.NoError(t, err)
		assert.False(t, created)

		got, err := store.GetAttribute(ctx, dir, models.KeyPath)
		require.NoError(t, err)
		assert.Equal(t, "alice/papers", got.Value)
	})

	test.Run("MissingReturnsNotFound", func(t *testing.T) {
		store := suite.NewStore(t)
		_, err := store.GetAttribute(context.Background(), newID(), models.KeyPath)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
	})

	test.Run("BatchGetSkipsMissing", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		a, b, missing := newID(), newID(), newID()

		_, err := store.PutAttribute(ctx, a, models.KeyPath, "alice/a")
		require.NoError(t, err)
		_, err = store.PutAttribute(ctx, b, models.KeyPath, "alice/b")
		require.NoError(t, err)

		rows, err := store.GetAttributes(ctx, []string{a, b, missing}, models.KeyPath)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		rows, err = store.GetAttributes(ctx, nil, models.KeyPath)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	test.Run("SearchByKeyAndSubstring", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		a, b := newID(), newID()

		_, err := store.PutAttribute(ctx, a, models.KeyPath, "alice/docs")
		require.NoError(t, err)
		_, err = store.PutAttribute(ctx, b, models.KeyPath, "bob/docs")
		require.NoError(t, err)
		_, err = store.PutAttribute(ctx, b, "label", "alice docs")
		require.NoError(t, err)

		rows, err := store.SearchAttributes(ctx, models.KeyPath, "alice")
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, a, rows[0].DirectoryID)
	})
}

// ============================================================================
// Grant Tests
// ============================================================================

func (suite *StoreTestSuite) testGrants(test *testing.T) {
	test.Run("Lifecycle", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		dir := newID()

		_, err := store.GetGrant(ctx, dir, "bob")
		assert.ErrorIs(t, err, models.ErrRecordNotFound)

		require.NoError(t, store.ActivateGrant(ctx, dir, "bob"))
		assert.ErrorIs(t, store.ActivateGrant(ctx, dir, "bob"), models.ErrGrantAlreadyActive)

		g, err := store.GetGrant(ctx, dir, "bob")
		require.NoError(t, err)
		assert.Equal(t, models.GrantActive, g.State)

		require.NoError(t, store.RevokeGrant(ctx, dir, "bob"))
		assert.ErrorIs(t, store.RevokeGrant(ctx, dir, "bob"), models.ErrGrantNotActive)

		g, err = store.GetGrant(ctx, dir, "bob")
		require.NoError(t, err, "revoked grants are kept as tombstones")
		assert.Equal(t, models.GrantRevoked, g.State)

		require.NoError(t, store.ActivateGrant(ctx, dir, "bob"))
		g, err = store.GetGrant(ctx, dir, "bob")
		require.NoError(t, err)
		assert.True(t, g.State.IsActive())
	})

	test.Run("RevokeWithoutGrant", func(t *testing.T) {
		store := suite.NewStore(t)
		assert.ErrorIs(t, store.RevokeGrant(context.Background(), newID(), "bob"), models.ErrGrantNotActive)
	})

	test.Run("ListsOnlyActive", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		d1, d2 := newID(), newID()

		require.NoError(t, store.ActivateGrant(ctx, d1, "carol"))
		require.NoError(t, store.ActivateGrant(ctx, d1, "bob"))
		require.NoError(t, store.ActivateGrant(ctx, d1, "dave"))
		require.NoError(t, store.RevokeGrant(ctx, d1, "dave"))
		require.NoError(t, store.ActivateGrant(ctx, d2, "bob"))

		grantees, err := store.ListGrantees(ctx, d1)
		require.NoError(t, err)
		assert.Equal(t, []string{"bob", "carol"}, grantees)

		dirs, err := store.ListGrantedDirectories(ctx, "bob")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{d1, d2}, dirs)

		dirs, err = store.ListGrantedDirectories(ctx, "dave")
		require.NoError(t, err)
		assert.Empty(t, dirs)
	})
}

// ============================================================================
// Cascade Tests
// ============================================================================

func (suite *StoreTestSuite) testDeleteDirectory(test *testing.T) {
	test.Run("PurgesEverything", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()
		dir, other := newID(), newID()

		require.NoError(t, store.CreateOwnership(ctx, dir, "alice"))
		_, err := store.PutAttribute(ctx, dir, models.KeyPath, "alice/docs")
		require.NoError(t, err)
		require.NoError(t, store.ActivateGrant(ctx, dir, "bob"))
		require.NoError(t, store.CreateOwnership(ctx, other, "alice"))
		require.NoError(t, store.ActivateGrant(ctx, other, "bob"))

		require.NoError(t, store.DeleteDirectory(ctx, dir))

		_, err = store.GetOwnership(ctx, dir)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
		_, err = store.GetAttribute(ctx, dir, models.KeyPath)
		assert.ErrorIs(t, err, models.ErrRecordNotFound)
		_, err = store.GetGrant(ctx, dir, "bob")
		assert.ErrorIs(t, err, models.ErrRecordNotFound)

		owned, err := store.ListOwnedDirectories(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []string{other}, owned)
		granted, err := store.ListGrantedDirectories(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, []string{other}, granted)
	})

	test.Run("UnknownIsNoop", func(t *testing.T) {
		store := suite.NewStore(t)
		assert.NoError(t, store.DeleteDirectory(context.Background(), newID()))
	})
}

// ============================================================================
// User Tests
// ============================================================================

func (suite *StoreTestSuite) testUsers(test *testing.T) {
	test.Run("CreateGetList", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		id, err := store.CreateUser(ctx, &models.User{Identity: "bob@example.com", Role: models.RoleUser})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		_, err = store.CreateUser(ctx, &models.User{Identity: "alice@example.com", Role: models.RoleAdmin})
		require.NoError(t, err)

		u, err := store.GetUser(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, models.RoleUser, u.Role)

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "alice@example.com", users[0].Identity)
	})

	test.Run("Duplicate", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		_, err := store.CreateUser(ctx, &models.User{Identity: "bob@example.com"})
		require.NoError(t, err)
		_, err = store.CreateUser(ctx, &models.User{Identity: "bob@example.com"})
		assert.ErrorIs(t, err, models.ErrDuplicateUser)
	})

	test.Run("Missing", func(t *testing.T) {
		store := suite.NewStore(t)
		_, err := store.GetUser(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, models.ErrUserNotFound)
	})

	test.Run("SetPassword", func(t *testing.T) {
		store := suite.NewStore(t)
		ctx := context.Background()

		_, err := store.CreateUser(ctx, &models.User{Identity: "bob@example.com", PasswordHash: "first"})
		require.NoError(t, err)

		u, err := store.GetUser(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "first", u.PasswordHash)

		require.NoError(t, store.SetPassword(ctx, "bob@example.com", "second"))
		u, err = store.GetUser(ctx, "bob@example.com")
		require.NoError(t, err)
		assert.Equal(t, "second", u.PasswordHash)
		assert.Equal(t, models.RoleUser, u.Role)

		users, err := store.ListUsers(ctx)
		require.NoError(t, err)
		require.Len(t, users, 1)
		assert.Equal(t, "second", users[0].PasswordHash)

		assert.ErrorIs(t, store.SetPassword(ctx, "ghost@example.com", "x"), models.ErrUserNotFound)
	})
}

// ============================================================================
// Concurrency Tests
// ============================================================================

func (suite *StoreTestSuite) testConcurrentOwnership(t *testing.T) {
	store := suite.NewStore(t)
	ctx := context.Background()

	const n = 50
	ids := make([]string, n)
	for i := range ids {
		ids[i] = newID()
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.CreateOwnership(ctx, ids[i], "alice"); err != nil {
				errs <- fmt.Errorf("create %d: %w", i, err)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	owned, err := store.ListOwnedDirectories(ctx, "alice")
	require.NoError(t, err)
	sort.Strings(owned)
	sort.Strings(ids)
	assert.Equal(t, ids, owned)
}
