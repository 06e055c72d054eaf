package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/pkg/access"
	"github.com/marmos91/dittobox/pkg/config"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/index"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	promstorage "github.com/marmos91/dittobox/pkg/metrics/prometheus"
	"github.com/marmos91/dittobox/pkg/models"
)

var ctx = context.Background()

func testConfig(t *testing.T, lockTimeout time.Duration) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.GetDefaultConfig()
	cfg.Storage.Root = filepath.Join(dir, "root")
	cfg.Storage.LockTimeout = lockTimeout
	cfg.Database = index.Config{
		Type:   index.DatabaseTypeSQLite,
		SQLite: index.SQLiteConfig{Path: filepath.Join(dir, "index.db")},
	}
	cfg.Admins = []string{"root"}
	return cfg
}

func newService(t *testing.T, cfg *config.Config, reg prometheus.Registerer) *Service {
	t.Helper()

	var svc *Service
	var err error
	if reg != nil {
		svc, err = New(ctx, cfg, promstorage.NewStorageMetricsWith(reg))
	} else {
		svc, err = New(ctx, cfg, nil)
	}
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, svc.Close()) })
	return svc
}

// actors registers identities and returns their actors with homes created.
func actors(t *testing.T, svc *Service, identities ...string) map[string]access.Actor {
	t.Helper()
	out := make(map[string]access.Actor, len(identities))
	for _, id := range identities {
		_, err := svc.AddUser(ctx, id, "")
		require.NoError(t, err)
		a, err := svc.ResolveActor(ctx, id)
		require.NoError(t, err)
		if !a.IsAdmin() {
			home, err := svc.EnsureHome(ctx, a)
			require.NoError(t, err)
			require.Equal(t, id, home)
		}
		out[id] = a
	}
	return out
}

func requireCode(t *testing.T, err error, code storeerrors.ErrorCode) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code.String(), storeerrors.Kind(err), err.Error())
}

func TestSharingScenario(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	users := actors(t, svc, "alice", "bob")
	alice, bob := users["alice"], users["bob"]

	docs, err := svc.Mkdir(ctx, alice, "alice", "docs")
	require.NoError(t, err)
	assert.Equal(t, "alice/docs", docs)

	_, err = svc.List(ctx, bob, docs)
	requireCode(t, err, storeerrors.ErrAccessDenied)

	d, err := svc.Decide(ctx, bob, docs, false)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, access.RuleNoGrant, d.Rule)

	require.NoError(t, svc.GrantAccess(ctx, alice, docs, "bob"))

	grantees, err := svc.ListGrantees(ctx, alice, docs)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, grantees)

	// grantee can read and add content
	stored, err := svc.Upload(ctx, bob, docs, strings.NewReader("from bob"), "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "alice/docs/notes.txt", stored)

	children, err := svc.List(ctx, bob, docs)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "notes.txt", children[0].Name)

	// but structural changes stay with the owner
	_, err = svc.Rename(ctx, bob, stored, "mine.txt")
	requireCode(t, err, storeerrors.ErrAccessDenied)
	requireCode(t, svc.Delete(ctx, bob, stored), storeerrors.ErrAccessDenied)
	requireCode(t, svc.GrantAccess(ctx, bob, docs, "alice"), storeerrors.ErrAccessDenied)

	shared, err := svc.SharedWith(ctx, bob)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, docs, shared[0].Path)
	assert.False(t, shared[0].Owned)

	require.NoError(t, svc.RevokeAccess(ctx, alice, docs, "bob"))
	_, err = svc.List(ctx, bob, docs)
	requireCode(t, err, storeerrors.ErrAccessDenied)

	shared, err = svc.SharedWith(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, shared)

	requireCode(t, svc.RevokeAccess(ctx, alice, docs, "bob"), storeerrors.ErrService)
}

func TestNamespaceAndRoot(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	users := actors(t, svc, "alice", "bob", "root")
	alice, bob, root := users["alice"], users["bob"], users["root"]

	require.True(t, root.IsAdmin())
	assert.False(t, alice.IsAdmin())

	_, err := svc.List(ctx, alice, "")
	requireCode(t, err, storeerrors.ErrAccessDenied)

	_, err = svc.Mkdir(ctx, alice, "", "shared")
	requireCode(t, err, storeerrors.ErrAccessDenied)

	top, err := svc.List(ctx, root, "")
	require.NoError(t, err)
	names := make([]string, 0, len(top))
	for _, c := range top {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"alice", "bob"}, names)

	// the admin may act anywhere, including inside a namespace
	_, err = svc.Mkdir(ctx, root, "bob", "from-admin")
	require.NoError(t, err)

	// namespace members act on anything below their home
	require.NoError(t, svc.Delete(ctx, bob, "bob/from-admin"))

	_, err = svc.List(ctx, root, "bob/\x00")
	requireCode(t, err, storeerrors.ErrValidation)
}

func TestReadAndStat(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	alice := actors(t, svc, "alice")["alice"]

	stored, err := svc.Upload(ctx, alice, "alice", strings.NewReader("hello"), "greeting.txt")
	require.NoError(t, err)

	r, mime, err := svc.Read(ctx, alice, stored)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, "text/plain", mime)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))

	desc, err := svc.Stat(ctx, alice, stored)
	require.NoError(t, err)
	assert.Equal(t, "greeting.txt", desc.Name)
	assert.Equal(t, int64(5), desc.Size)
	assert.True(t, desc.Editable)

	home, err := svc.Stat(ctx, alice, "alice")
	require.NoError(t, err)
	assert.True(t, home.IsDirectory)
	assert.False(t, home.Editable)
	assert.Equal(t, "alice", home.Owner)
	assert.NotEmpty(t, home.UUID)

	_, _, err = svc.Read(ctx, alice, "alice")
	requireCode(t, err, storeerrors.ErrIsDirectory)

	_, err = svc.Stat(ctx, alice, "alice/missing.txt")
	requireCode(t, err, storeerrors.ErrNotFound)
}

func TestRenameKeepsOwnership(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	alice := actors(t, svc, "alice", "bob")["alice"]

	docs, err := svc.Mkdir(ctx, alice, "alice", "docs")
	require.NoError(t, err)
	require.NoError(t, svc.GrantAccess(ctx, alice, docs, "bob"))
	before, err := svc.Stat(ctx, alice, docs)
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, alice, docs, "papers")
	require.NoError(t, err)
	assert.Equal(t, "alice/papers", renamed)

	after, err := svc.Stat(ctx, alice, renamed)
	require.NoError(t, err)
	assert.Equal(t, before.UUID, after.UUID)

	grantees, err := svc.ListGrantees(ctx, alice, renamed)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, grantees)
}

func TestEnsureHome(t *testing.T) {
	cfg := testConfig(t, time.Second)
	svc := newService(t, cfg, nil)

	alice := access.NewActor("alice")
	home, err := svc.EnsureHome(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", home)

	again, err := svc.EnsureHome(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, home, again)

	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Root, "carol"), []byte("x"), 0644))
	_, err = svc.EnsureHome(ctx, access.NewActor("carol"))
	requireCode(t, err, storeerrors.ErrNotDirectory)

	_, err = svc.EnsureHome(ctx, access.NewActor("dave smith"))
	requireCode(t, err, storeerrors.ErrValidation)
}

func TestUsers(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)

	u, err := svc.AddUser(ctx, " Bob ", "Bob B.")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Identity)
	assert.Equal(t, models.RoleUser, u.Role)

	admin, err := svc.AddUser(ctx, "ROOT", "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)

	_, err = svc.AddUser(ctx, "bob", "")
	requireCode(t, err, storeerrors.ErrAlreadyExists)

	_, err = svc.AddUser(ctx, "a/b", "")
	requireCode(t, err, storeerrors.ErrValidation)

	_, err = svc.AddUser(ctx, "  ", "")
	requireCode(t, err, storeerrors.ErrValidation)

	users, err := svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "bob", users[0].Identity)
	assert.Equal(t, "root", users[1].Identity)

	got, err := svc.GetUser(ctx, "BOB")
	require.NoError(t, err)
	assert.Equal(t, "Bob B.", got.DisplayName)
	_, err = svc.GetUser(ctx, "nobody")
	requireCode(t, err, storeerrors.ErrNotFound)

	stranger, err := svc.ResolveActor(ctx, "Stranger")
	require.NoError(t, err)
	assert.Equal(t, "stranger", stranger.Identity)
	assert.False(t, stranger.IsAdmin())

	// grants need a registered grantee
	alice := actors(t, svc, "alice")["alice"]
	requireCode(t, svc.GrantAccess(ctx, alice, "alice", "stranger"), storeerrors.ErrNotFound)
}

func TestDeleteTimesOutBehindLongRead(t *testing.T) {
	svc := newService(t, testConfig(t, 100*time.Millisecond), nil)
	alice := actors(t, svc, "alice")["alice"]

	_, err := svc.Mkdir(ctx, alice, "alice", "docs")
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- gate.Shared(ctx, svc.Gate(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	err = svc.Delete(ctx, alice, "alice/docs")
	requireCode(t, err, storeerrors.ErrLockTimeout)
	assert.True(t, storeerrors.IsRetryable(err))

	close(release)
	require.NoError(t, <-done)

	require.NoError(t, svc.Delete(ctx, alice, "alice/docs"))
}

func TestMutationsTimeOutBehindHeldWriter(t *testing.T) {
	svc := newService(t, testConfig(t, 100*time.Millisecond), nil)
	users := actors(t, svc, "alice", "bob")
	alice := users["alice"]

	docs, err := svc.Mkdir(ctx, alice, "alice", "docs")
	require.NoError(t, err)

	release, err := svc.Gate().Lock(ctx)
	require.NoError(t, err)

	mutations := map[string]func() error{
		"delete": func() error { return svc.Delete(ctx, alice, docs) },
		"rename": func() error {
			_, err := svc.Rename(ctx, alice, docs, "papers")
			return err
		},
		"mkdir": func() error {
			_, err := svc.Mkdir(ctx, alice, "alice", "more")
			return err
		},
		"upload": func() error {
			_, err := svc.Upload(ctx, alice, "alice", strings.NewReader("x"), "x.txt")
			return err
		},
		"grant":  func() error { return svc.GrantAccess(ctx, alice, docs, "bob") },
		"revoke": func() error { return svc.RevokeAccess(ctx, alice, docs, "bob") },
	}
	for name, fn := range mutations {
		t.Run(name, func(t *testing.T) {
			done := make(chan error, 1)
			go func() { done <- fn() }()

			select {
			case err := <-done:
				requireCode(t, err, storeerrors.ErrLockTimeout)
				assert.True(t, storeerrors.IsRetryable(err))
			case <-time.After(2 * time.Second):
				t.Fatalf("%s still blocked behind the held writer", name)
			}
		})
	}

	release()
	require.NoError(t, svc.Delete(ctx, alice, docs))
}

// stallingBody yields one byte, closes started and then blocks until resume
// is closed.
type stallingBody struct {
	started chan struct{}
	resume  chan struct{}
	reads   int
}

func (b *stallingBody) Read(p []byte) (int, error) {
	b.reads++
	if b.reads == 1 {
		p[0] = 'x'
		close(b.started)
		return 1, nil
	}
	<-b.resume
	return 0, io.EOF
}

func TestSlowUploadDoesNotBlockWriters(t *testing.T) {
	svc := newService(t, testConfig(t, 200*time.Millisecond), nil)
	alice := actors(t, svc, "alice")["alice"]

	body := &stallingBody{started: make(chan struct{}), resume: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := svc.Upload(ctx, alice, "alice", body, "slow.bin")
		done <- err
	}()
	<-body.started
	time.Sleep(300 * time.Millisecond)

	dir, err := svc.Mkdir(ctx, alice, "alice", "meanwhile")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, alice, dir))

	close(body.resume)
	require.NoError(t, <-done)

	desc, err := svc.Stat(ctx, alice, "alice/slow.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(1), desc.Size)
}

func TestUploadDeniedBeforeBodyIsRead(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	users := actors(t, svc, "alice", "bob")

	docs, err := svc.Mkdir(ctx, users["alice"], "alice", "docs")
	require.NoError(t, err)

	body := &stallingBody{started: make(chan struct{}), resume: make(chan struct{})}
	_, err = svc.Upload(ctx, users["bob"], docs, body, "intrusion.txt")
	requireCode(t, err, storeerrors.ErrAccessDenied)
	assert.Zero(t, body.reads)
}

func TestConcurrentMkdir(t *testing.T) {
	svc := newService(t, testConfig(t, time.Minute), nil)
	alice := actors(t, svc, "alice")["alice"]

	const n = 100
	var wg sync.WaitGroup
	paths := make([]string, n)
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], errs[i] = svc.Mkdir(ctx, alice, "alice", fmt.Sprintf("dir-%03d", i))
		}()
	}
	wg.Wait()

	ids := make(map[string]bool, n)
	for i := range n {
		require.NoError(t, errs[i])
		desc, err := svc.Stat(ctx, alice, paths[i])
		require.NoError(t, err)
		ids[desc.UUID] = true
	}
	assert.Len(t, ids, n)

	children, err := svc.List(ctx, alice, "alice")
	require.NoError(t, err)
	assert.Len(t, children, n)
}

func TestOperationMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := newService(t, testConfig(t, time.Second), reg)
	alice := actors(t, svc, "alice", "bob")["alice"]

	_, err := svc.Mkdir(ctx, alice, "alice", "docs")
	require.NoError(t, err)
	_, err = svc.Upload(ctx, alice, "alice/docs", strings.NewReader("0123456789"), "ten.bin")
	require.NoError(t, err)
	_, err = svc.List(ctx, alice, "bob")
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	counts := map[string]float64{}
	var uploads uint64
	for _, f := range families {
		switch f.GetName() {
		case "dittobox_storage_operations_total":
			for _, m := range f.GetMetric() {
				var op, kind string
				for _, l := range m.GetLabel() {
					switch l.GetName() {
					case "operation":
						op = l.GetValue()
					case "kind":
						kind = l.GetValue()
					}
				}
				counts[op+"/"+kind] = m.GetCounter().GetValue()
			}
		case "dittobox_storage_upload_bytes":
			uploads = f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}

	assert.Equal(t, float64(1), counts["mkdir/OK"])
	assert.Equal(t, float64(1), counts["upload/OK"])
	assert.Equal(t, float64(1), counts["list/AccessDenied"])
	assert.Equal(t, float64(2), counts["home/OK"])
	assert.Equal(t, uint64(1), uploads)
}

func TestNewRejectsBadDatabase(t *testing.T) {
	cfg := testConfig(t, time.Second)
	cfg.Database = index.Config{Type: "mongo"}
	_, err := New(ctx, cfg, nil)
	assert.Error(t, err)

	_, err = New(ctx, nil, nil)
	assert.Error(t, err)
}

func TestBadgerIndex(t *testing.T) {
	cfg := testConfig(t, time.Second)
	cfg.Database = index.Config{
		Type:   index.DatabaseTypeBadger,
		Badger: index.BadgerConfig{Path: filepath.Join(t.TempDir(), "index.badger")},
	}
	svc := newService(t, cfg, nil)
	require.NoError(t, svc.Healthcheck(ctx))

	users := actors(t, svc, "alice", "bob")
	docs, err := svc.Mkdir(ctx, users["alice"], "alice", "docs")
	require.NoError(t, err)
	require.NoError(t, svc.GrantAccess(ctx, users["alice"], docs, "bob"))

	_, err = svc.List(ctx, users["bob"], docs)
	assert.NoError(t, err)
}

func TestPasswordLogin(t *testing.T) {
	svc := newService(t, testConfig(t, time.Second), nil)
	_, err := svc.AddUser(ctx, "alice", "")
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, "alice", "")
	requireCode(t, err, storeerrors.ErrAccessDenied)

	requireCode(t, svc.SetPassword(ctx, "alice", "short"), storeerrors.ErrValidation)
	requireCode(t, svc.SetPassword(ctx, "ghost", "long enough"), storeerrors.ErrNotFound)
	require.NoError(t, svc.SetPassword(ctx, "Alice", "long enough"))

	u, err := svc.Authenticate(ctx, "ALICE", "long enough")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Identity)

	_, err = svc.Authenticate(ctx, "alice", "wrong password")
	requireCode(t, err, storeerrors.ErrAccessDenied)
	_, err = svc.Authenticate(ctx, "ghost", "long enough")
	requireCode(t, err, storeerrors.ErrAccessDenied)
}
