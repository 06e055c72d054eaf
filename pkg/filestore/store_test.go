package filestore

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittobox/internal/bytesize"
	"github.com/marmos91/dittobox/pkg/gate"
	"github.com/marmos91/dittobox/pkg/index"
	"github.com/marmos91/dittobox/pkg/index/gormstore"
	"github.com/marmos91/dittobox/pkg/metadata"
	storeerrors "github.com/marmos91/dittobox/pkg/metadata/errors"
	"github.com/marmos91/dittobox/pkg/models"
)

// ============================================================================
// Test fixture
// ============================================================================

type fixture struct {
	root  string
	store *Store
	meta  *metadata.Store
	gate  *gate.RWGate
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	if cfg.Root == "" {
		cfg.Root = filepath.Join(t.TempDir(), "root")
	}

	idx, err := gormstore.New(&index.Config{
		Type:   index.DatabaseTypeSQLite,
		SQLite: index.SQLiteConfig{Path: filepath.Join(t.TempDir(), "index.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })

	meta, err := metadata.New(metadata.Config{Root: cfg.Root, PathRefreshDepth: 1}, idx)
	require.NoError(t, err)

	g := gate.New(gate.Config{LockTimeout: 200 * time.Millisecond})
	store, err := New(cfg, meta, g)
	require.NoError(t, err)

	return &fixture{root: cfg.Root, store: store, meta: meta, gate: g}
}

// snapshot returns every path below root with its contents, for comparing
// trees before and after a failed operation. The staging area is left out;
// stagedFiles covers it.
func (f *fixture) snapshot(t *testing.T) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(f.root, p)
		if d.IsDir() && rel == StagingDirName {
			return filepath.SkipDir
		}
		if d.IsDir() {
			out[rel] = "<dir>"
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		out[rel] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

// stagedFiles lists the uploads currently held in the staging area.
func (f *fixture) stagedFiles(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.root, StagingDirName))
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

var ctx = context.Background()

// ============================================================================
// Root
// ============================================================================

func TestEnsureRoot(t *testing.T) {
	t.Run("CreatesMissingRoot", func(t *testing.T) {
		f := newFixture(t, Config{})
		info, err := os.Stat(f.root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("RecreatesRemovedRoot", func(t *testing.T) {
		f := newFixture(t, Config{})
		require.NoError(t, os.RemoveAll(f.root))

		children, err := f.store.ListChildren(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, children)
	})

	t.Run("ReplacesFileAtRoot", func(t *testing.T) {
		f := newFixture(t, Config{})
		require.NoError(t, os.RemoveAll(f.root))
		require.NoError(t, os.WriteFile(f.root, []byte("x"), 0644))

		require.NoError(t, f.store.EnsureRoot())
		info, err := os.Stat(f.root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

// ============================================================================
// Directories
// ============================================================================

func TestMakeDirectory(t *testing.T) {
	f := newFixture(t, Config{})

	rel, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", rel)

	rel, err = f.store.MakeDirectory(ctx, "alice", "alice", "my docs")
	require.NoError(t, err)
	assert.Equal(t, "alice/my-docs", rel)

	desc, err := f.store.FindFileDescriptor(ctx, "alice", "alice/my-docs")
	require.NoError(t, err)
	assert.True(t, desc.IsDirectory)
	assert.Equal(t, "alice", desc.Owner)
	assert.NotEmpty(t, desc.UUID)
	assert.Equal(t, DirectoryMediaType, desc.MimeType)

	rec, err := f.meta.FindMetadataFromKey(ctx, desc.UUID, models.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, "alice/my-docs", rec.Value)

	t.Run("AlreadyExists", func(t *testing.T) {
		_, err := f.store.MakeDirectory(ctx, "alice", "alice", "my docs")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrAlreadyExists))
	})

	t.Run("MissingParent", func(t *testing.T) {
		_, err := f.store.MakeDirectory(ctx, "alice", "nobody", "x")
		assert.True(t, storeerrors.IsNotFoundError(err))
	})

	t.Run("ParentIsFile", func(t *testing.T) {
		_, err := f.store.UploadFile(ctx, "alice", strings.NewReader("x"), "f.txt")
		require.NoError(t, err)
		_, err = f.store.MakeDirectory(ctx, "alice", "alice/f.txt", "x")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrNotDirectory))
	})

	t.Run("IllegalName", func(t *testing.T) {
		_, err := f.store.MakeDirectory(ctx, "alice", "alice", "..")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
	})

	t.Run("EscapeIsConfined", func(t *testing.T) {
		rel, err := f.store.MakeDirectory(ctx, "alice", "../../..", "outside")
		require.NoError(t, err)
		assert.Equal(t, "outside", rel)
		assert.DirExists(t, filepath.Join(f.root, "outside"))
	})
}

func TestListChildren(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "b-dir")
	require.NoError(t, err)
	_, err = f.store.UploadFile(ctx, "alice", strings.NewReader("hi"), "a.txt")
	require.NoError(t, err)

	children, err := f.store.ListChildren(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, ChildDescriptor{Name: "a.txt", Path: "alice/a.txt"}, children[0])
	assert.Equal(t, ChildDescriptor{Name: "b-dir", Path: "alice/b-dir", IsDirectory: true}, children[1])
	assert.FileExists(t, filepath.Join(f.root, "alice", metadata.MarkerName))

	_, err = f.store.ListChildren(ctx, "alice/a.txt")
	assert.True(t, storeerrors.Is(err, storeerrors.ErrNotDirectory))

	_, err = f.store.ListChildren(ctx, "ghost")
	assert.True(t, storeerrors.IsNotFoundError(err))
}

// ============================================================================
// Uploads
// ============================================================================

func TestUploadFile(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)

	first, err := f.store.UploadFile(ctx, "alice", strings.NewReader("one"), "report.txt")
	require.NoError(t, err)
	assert.Equal(t, "alice/report.txt", first)

	second, err := f.store.UploadFile(ctx, "alice", strings.NewReader("two"), "report.txt")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.Regexp(t, `^alice/report\d{2}\.txt$`, second)

	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(first)))
	require.NoError(t, err)
	assert.Equal(t, "one", string(data))
	data, err = os.ReadFile(filepath.Join(f.root, filepath.FromSlash(second)))
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	t.Run("NoStagedFilesRemain", func(t *testing.T) {
		assert.Empty(t, f.stagedFiles(t))
	})

	t.Run("MissingDirectory", func(t *testing.T) {
		_, err := f.store.UploadFile(ctx, "ghost", strings.NewReader("x"), "x.txt")
		assert.True(t, storeerrors.IsNotFoundError(err))
	})

	t.Run("TargetIsFile", func(t *testing.T) {
		_, err := f.store.UploadFile(ctx, first, strings.NewReader("x"), "x.txt")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrNotDirectory))
	})

	t.Run("MarkerNameRejected", func(t *testing.T) {
		_, err := f.store.UploadFile(ctx, "alice", strings.NewReader("x"), metadata.MarkerName)
		assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
	})
}

func TestUploadFileMaxSize(t *testing.T) {
	f := newFixture(t, Config{MaxUploadSize: 4 * bytesize.B})

	_, err := f.store.UploadFile(ctx, "", strings.NewReader("1234"), "ok.bin")
	require.NoError(t, err)

	before := f.snapshot(t)
	_, err = f.store.UploadFile(ctx, "", strings.NewReader("12345"), "big.bin")
	assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
	assert.Equal(t, before, f.snapshot(t))
	assert.Empty(t, f.stagedFiles(t))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, io.ErrUnexpectedEOF }

func TestUploadFileReaderFailureLeavesNoFile(t *testing.T) {
	f := newFixture(t, Config{})
	before := f.snapshot(t)

	_, err := f.store.UploadFile(ctx, "", failingReader{}, "broken.bin")
	assert.True(t, storeerrors.Is(err, storeerrors.ErrIO))
	assert.Equal(t, before, f.snapshot(t))
	assert.Empty(t, f.stagedFiles(t))
}

// stallingReader yields one byte, reports it through started and then
// blocks until resume is closed.
type stallingReader struct {
	started chan struct{}
	resume  chan struct{}
	sent    bool
}

func (r *stallingReader) Read(p []byte) (int, error) {
	if !r.sent {
		r.sent = true
		p[0] = 'x'
		close(r.started)
		return 1, nil
	}
	<-r.resume
	return 0, io.EOF
}

func TestSlowUploadDoesNotHoldGate(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)

	body := &stallingReader{started: make(chan struct{}), resume: make(chan struct{})}
	done := make(chan error, 1)
	var rel string
	go func() {
		var err error
		rel, err = f.store.UploadFile(ctx, "alice", body, "slow.txt")
		done <- err
	}()
	<-body.started

	// Lock timeout is 200ms; the upload stays stalled well past it.
	time.Sleep(300 * time.Millisecond)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "during-upload")
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteNode(ctx, "alice/during-upload"))

	children, err := f.store.ListChildren(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, children, "a staged upload must not be visible")
	assert.Len(t, f.stagedFiles(t), 1)

	close(body.resume)
	require.NoError(t, <-done)
	assert.Equal(t, "alice/slow.txt", rel)
	assert.Empty(t, f.stagedFiles(t))

	data, err := os.ReadFile(filepath.Join(f.root, "alice", "slow.txt"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestUploadFileCancelled(t *testing.T) {
	f := newFixture(t, Config{})

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err := f.store.UploadFile(cancelled, "", strings.NewReader("data"), "c.txt")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, filepath.Join(f.root, "c.txt"))
	assert.Empty(t, f.stagedFiles(t))
}

func TestStagingAreaIsHidden(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.UploadFile(ctx, "", strings.NewReader("x"), "top.txt")
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(f.root, StagingDirName))

	children, err := f.store.ListChildren(ctx, "")
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "top.txt", children[0].Name)

	_, err = f.store.ListChildren(ctx, StagingDirName)
	assert.True(t, storeerrors.IsAccessDeniedError(err))

	_, err = f.store.UploadFile(ctx, "/"+StagingDirName+"/../"+StagingDirName, strings.NewReader("x"), "in.txt")
	assert.True(t, storeerrors.IsAccessDeniedError(err))

	_, err = f.store.MakeDirectory(ctx, "alice", "", strings.ToUpper(StagingDirName))
	assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
}

func TestNewSweepsStaleStagedUploads(t *testing.T) {
	f := newFixture(t, Config{})
	staging := filepath.Join(f.root, StagingDirName)
	require.NoError(t, os.MkdirAll(staging, 0755))

	stale := filepath.Join(staging, "upload-stale")
	fresh := filepath.Join(staging, "upload-fresh")
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))
	require.NoError(t, os.WriteFile(fresh, []byte("new"), 0644))
	old := time.Now().Add(-2 * stagingMaxAge)
	require.NoError(t, os.Chtimes(stale, old, old))

	_, err := New(Config{Root: f.root}, f.meta, f.gate)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)
}

// ============================================================================
// Rename
// ============================================================================

func TestRenameNode(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "docs")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice/docs", "inner")
	require.NoError(t, err)

	before, err := f.store.FindFileDescriptor(ctx, "alice", "alice/docs")
	require.NoError(t, err)

	newRel, err := f.store.RenameNode(ctx, "alice/docs", "papers")
	require.NoError(t, err)
	assert.Equal(t, "alice/papers", newRel)

	after, err := f.store.FindFileDescriptor(ctx, "alice", "alice/papers")
	require.NoError(t, err)
	assert.Equal(t, before.UUID, after.UUID)
	assert.Equal(t, before.Owner, after.Owner)

	_, err = f.store.FindFileDescriptor(ctx, "alice", "alice/docs")
	assert.True(t, storeerrors.IsNotFoundError(err))

	rec, err := f.meta.FindMetadataFromKey(ctx, after.UUID, models.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, "alice/papers", rec.Value)

	inner, err := f.store.FindFileDescriptor(ctx, "alice", "alice/papers/inner")
	require.NoError(t, err)
	rec, err = f.meta.FindMetadataFromKey(ctx, inner.UUID, models.KeyPath)
	require.NoError(t, err)
	assert.Equal(t, "alice/papers/inner", rec.Value)

	t.Run("TargetExistsLeavesTreeUntouched", func(t *testing.T) {
		_, err := f.store.MakeDirectory(ctx, "alice", "alice", "other")
		require.NoError(t, err)
		snap := f.snapshot(t)

		_, err = f.store.RenameNode(ctx, "alice/papers", "other")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrAlreadyExists))
		assert.Equal(t, snap, f.snapshot(t))
	})

	t.Run("File", func(t *testing.T) {
		_, err := f.store.UploadFile(ctx, "alice", strings.NewReader("x"), "a.txt")
		require.NoError(t, err)
		newRel, err := f.store.RenameNode(ctx, "alice/a.txt", "b c.txt")
		require.NoError(t, err)
		assert.Equal(t, "alice/b-c.txt", newRel)
	})

	t.Run("Root", func(t *testing.T) {
		_, err := f.store.RenameNode(ctx, "", "x")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := f.store.RenameNode(ctx, "alice/ghost", "x")
		assert.True(t, storeerrors.IsNotFoundError(err))
	})

	t.Run("Marker", func(t *testing.T) {
		_, err := f.store.RenameNode(ctx, "alice/"+metadata.MarkerName, "x")
		assert.True(t, storeerrors.IsAccessDeniedError(err))
	})
}

// ============================================================================
// Delete
// ============================================================================

func TestDeleteNode(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "docs")
	require.NoError(t, err)
	_, err = f.store.UploadFile(ctx, "alice/docs", strings.NewReader("keep"), "k.txt")
	require.NoError(t, err)

	t.Run("NonEmptyDirectoryIsUntouched", func(t *testing.T) {
		snap := f.snapshot(t)
		err := f.store.DeleteNode(ctx, "alice/docs")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrNotEmpty))
		assert.Equal(t, snap, f.snapshot(t))

		desc, err := f.store.FindFileDescriptor(ctx, "alice", "alice/docs")
		require.NoError(t, err)
		assert.Equal(t, "alice", desc.Owner)
	})

	t.Run("FileThenDirectory", func(t *testing.T) {
		desc, err := f.store.FindFileDescriptor(ctx, "alice", "alice/docs")
		require.NoError(t, err)

		require.NoError(t, f.store.DeleteNode(ctx, "alice/docs/k.txt"))
		require.NoError(t, f.store.DeleteNode(ctx, "alice/docs"))
		assert.NoDirExists(t, filepath.Join(f.root, "alice", "docs"))

		_, err = f.meta.FindMetadataFromKey(ctx, desc.UUID, models.KeyOwner)
		assert.True(t, storeerrors.IsNotFoundError(err))
		_, err = f.meta.FindMetadataFromKey(ctx, desc.UUID, models.KeyPath)
		assert.True(t, storeerrors.IsNotFoundError(err))
	})

	t.Run("Missing", func(t *testing.T) {
		err := f.store.DeleteNode(ctx, "alice/ghost")
		assert.True(t, storeerrors.IsNotFoundError(err))
	})

	t.Run("Root", func(t *testing.T) {
		err := f.store.DeleteNode(ctx, "/")
		assert.True(t, storeerrors.Is(err, storeerrors.ErrValidation))
	})

	t.Run("ReadOnlyFile", func(t *testing.T) {
		rel, err := f.store.UploadFile(ctx, "alice", strings.NewReader("x"), "ro.txt")
		require.NoError(t, err)
		abs := filepath.Join(f.root, filepath.FromSlash(rel))
		require.NoError(t, os.Chmod(abs, 0444))
		t.Cleanup(func() { _ = os.Chmod(abs, 0644) })

		err = f.store.DeleteNode(ctx, rel)
		assert.True(t, storeerrors.Is(err, storeerrors.ErrNotWritable))
		assert.FileExists(t, abs)
	})

	t.Run("UnmanagedEmptyDirectory", func(t *testing.T) {
		require.NoError(t, os.Mkdir(filepath.Join(f.root, "plain"), 0755))
		require.NoError(t, f.store.DeleteNode(ctx, "plain"))
		assert.NoDirExists(t, filepath.Join(f.root, "plain"))
	})
}

// ============================================================================
// Read
// ============================================================================

func TestFindFile(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	rel, err := f.store.UploadFile(ctx, "alice", strings.NewReader("hello"), "hello.txt")
	require.NoError(t, err)

	file, err := f.store.FindFile(ctx, rel)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, "hello", string(data))

	_, err = f.store.FindFile(ctx, "alice")
	assert.True(t, storeerrors.Is(err, storeerrors.ErrIsDirectory))

	_, err = f.store.FindFile(ctx, "alice/"+metadata.MarkerName)
	assert.True(t, storeerrors.IsAccessDeniedError(err))

	_, err = f.store.FindFile(ctx, "alice/none.txt")
	assert.True(t, storeerrors.IsNotFoundError(err))
}

func TestFindFileDescriptor(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "docs")
	require.NoError(t, err)

	content := strings.Repeat("x", 1536*1024)
	rel, err := f.store.UploadFile(ctx, "alice/docs", strings.NewReader(content), "big.PDF")
	require.NoError(t, err)

	desc, err := f.store.FindFileDescriptor(ctx, "alice", rel)
	require.NoError(t, err)
	assert.Equal(t, "big.PDF", desc.Name)
	assert.Equal(t, "application/pdf", desc.MimeType)
	assert.Equal(t, 1.5, desc.SizeMB)
	assert.False(t, desc.IsDirectory)
	assert.True(t, desc.Editable)
	assert.False(t, desc.ModifiedAt.IsZero())

	t.Run("EditableRules", func(t *testing.T) {
		root, err := f.store.FindFileDescriptor(ctx, "alice", "")
		require.NoError(t, err)
		assert.False(t, root.Editable)

		home, err := f.store.FindFileDescriptor(ctx, "ALICE", "alice")
		require.NoError(t, err)
		assert.False(t, home.Editable)

		other, err := f.store.FindFileDescriptor(ctx, "bob", "alice")
		require.NoError(t, err)
		assert.True(t, other.Editable)

		docs, err := f.store.FindFileDescriptor(ctx, "alice", "alice/docs")
		require.NoError(t, err)
		assert.True(t, docs.Editable)
	})

	t.Run("Marker", func(t *testing.T) {
		_, err := f.store.FindFileDescriptor(ctx, "alice", "alice/"+metadata.MarkerName)
		assert.True(t, storeerrors.IsAccessDeniedError(err))
	})
}

func TestNodeHelpers(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)

	ok, err := f.store.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.store.Exists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.store.IsDirectory(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	mod, err := f.store.LastModified(ctx, "alice")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), mod, time.Minute)

	_, err = f.store.LastModified(ctx, "ghost")
	assert.True(t, storeerrors.IsNotFoundError(err))
}

// ============================================================================
// Concurrency
// ============================================================================

func TestConcurrentMakeDirectoryYieldsDistinctUUIDs(t *testing.T) {
	f := newFixture(t, Config{})
	f.gate = gate.New(gate.Config{LockTimeout: time.Minute})
	store, err := New(Config{Root: f.root}, f.meta, f.gate)
	require.NoError(t, err)

	const n = 100
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			_, err := store.MakeDirectory(ctx, "alice", "", "dir-"+twoDigits(i))
			errs <- err
		}(i)
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	children, err := store.ListChildren(ctx, "")
	require.NoError(t, err)
	require.Len(t, children, n)

	seen := map[string]bool{}
	for _, c := range children {
		desc, err := store.FindFileDescriptor(ctx, "alice", c.Path)
		require.NoError(t, err)
		require.NotEmpty(t, desc.UUID)
		assert.False(t, seen[desc.UUID], "duplicate uuid %s", desc.UUID)
		seen[desc.UUID] = true
	}

	owned, err := f.meta.FindOwnedDirectories(ctx, "alice")
	require.NoError(t, err)
	sort.Strings(owned)
	assert.Len(t, owned, n)
}

func TestHeldExclusiveLockTimesOutDelete(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)

	release, err := f.gate.Lock(ctx)
	require.NoError(t, err)

	err = f.store.DeleteNode(ctx, "alice")
	assert.True(t, storeerrors.IsLockTimeoutError(err))
	assert.True(t, storeerrors.IsRetryable(err))
	assert.DirExists(t, filepath.Join(f.root, "alice"))

	done := make(chan error, 1)
	go func() { done <- f.store.DeleteNode(ctx, "alice") }()
	time.Sleep(20 * time.Millisecond)
	release()

	require.NoError(t, <-done)
	assert.NoDirExists(t, filepath.Join(f.root, "alice"))
}

// ============================================================================
// Guards
// ============================================================================

func TestGuardsRunUnderExclusiveGate(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)

	held := func() error {
		waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()
		release, err := f.gate.RLock(waitCtx)
		if err == nil {
			release()
			return errors.New("gate was not held")
		}
		return nil
	}

	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "docs", held)
	require.NoError(t, err)
	rel, err := f.store.UploadFile(ctx, "alice/docs", strings.NewReader("x"), "a.txt", held)
	require.NoError(t, err)
	_, err = f.store.RenameNode(ctx, rel, "b.txt", held)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteNode(ctx, "alice/docs/b.txt", held))
}

func TestGuardFailureAbortsMutation(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.MakeDirectory(ctx, "alice", "", "alice")
	require.NoError(t, err)
	_, err = f.store.MakeDirectory(ctx, "alice", "alice", "docs")
	require.NoError(t, err)

	denied := storeerrors.NewAccessDeniedError("alice", "no")
	deny := func() error { return denied }
	before := f.snapshot(t)

	_, err = f.store.MakeDirectory(ctx, "bob", "alice", "x", deny)
	assert.ErrorIs(t, err, denied)
	_, err = f.store.UploadFile(ctx, "alice", strings.NewReader("x"), "x.txt", deny)
	assert.ErrorIs(t, err, denied)
	_, err = f.store.RenameNode(ctx, "alice/docs", "papers", deny)
	assert.ErrorIs(t, err, denied)
	assert.ErrorIs(t, f.store.DeleteNode(ctx, "alice/docs", nil, deny), denied)

	assert.Equal(t, before, f.snapshot(t))
	assert.Empty(t, f.stagedFiles(t))
}
