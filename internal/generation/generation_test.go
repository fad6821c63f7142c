package generation

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	ts, err := Parse("2024-05-01 03-15-30")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 3, 15, 30, 0, time.UTC), ts)

	_, err = Parse("not-a-generation")
	assert.Error(t, err)
}

func TestList_OrdersAndFilters(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{
		"2024-05-02 03-00-00",
		"2024-05-01 03-00-00",
		"2024-05-03 03-00-00-inprogress", // unfinished run
		"random-dir",
		StateDir,
	} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0o755))
	}
	// A file whose name parses must not count as a generation.
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024-05-04 03-00-00"), []byte("x"), 0o644))

	gens, err := List(root)
	require.NoError(t, err)
	require.Len(t, gens, 2)
	assert.Equal(t, "2024-05-01 03-00-00", gens[0].Name)
	assert.Equal(t, "2024-05-02 03-00-00", gens[1].Name)
}

func TestLatest(t *testing.T) {
	root := t.TempDir()

	gen, err := Latest(root)
	require.NoError(t, err)
	assert.Nil(t, gen, "empty root means first-ever run")

	require.NoError(t, os.Mkdir(filepath.Join(root, "2024-05-01 03-00-00"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "2024-06-01 03-00-00"), 0o755))

	gen, err = Latest(root)
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, "2024-06-01 03-00-00", gen.Name)
	assert.Equal(t, filepath.Join(root, "2024-06-01 03-00-00"), gen.Path)
}

func TestLatest_MissingRoot(t *testing.T) {
	_, err := Latest(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestOpenAndFinalize(t *testing.T) {
	root := filepath.Join(t.TempDir(), "backups") // not yet created
	ts := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	w, err := Open(root, ts)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01 03-00-00", w.Name)
	assert.DirExists(t, w.Path)
	assert.Contains(t, w.Path, "-inprogress")

	// Working dir is invisible to Latest until finalized.
	gen, err := Latest(root)
	require.NoError(t, err)
	assert.Nil(t, gen)

	require.NoError(t, w.Finalize())
	assert.NoDirExists(t, w.Path)
	assert.DirExists(t, w.FinalPath)

	gen, err = Latest(root)
	require.NoError(t, err)
	require.NotNil(t, gen)
	assert.Equal(t, w.Name, gen.Name)
}

func TestOpen_CollidingWorkingDir(t *testing.T) {
	root := t.TempDir()
	ts := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	_, err := Open(root, ts)
	require.NoError(t, err)
	_, err = Open(root, ts)
	assert.Error(t, err, "same start second must not silently share a working dir")
}

func TestLock_Exclusive(t *testing.T) {
	root := t.TempDir()

	l, err := Acquire(root)
	require.NoError(t, err)

	_, err = Acquire(root)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, l.Release())

	l2, err := Acquire(root)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestLock_BreaksStaleLock(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, StateDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))

	// A pid that cannot exist.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock"), fmt.Appendf(nil, "%d\n", 1<<30), 0o644))

	l, err := Acquire(root)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}

func TestLock_GarbageLockFile(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, StateDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lock"), []byte("garbage"), 0o644))

	l, err := Acquire(root)
	require.NoError(t, err)
	require.NoError(t, l.Release())
}
