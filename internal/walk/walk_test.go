package walk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingVisitor collects visited paths relative to root.
type recordingVisitor struct {
	root    string
	files   []string
	dirs    []string
	skipped []string

	failOn string // if set, OnFile returns an error for this relative path
}

func (r *recordingVisitor) rel(t string) string {
	rel, _ := filepath.Rel(r.root, t)
	return rel
}

func (r *recordingVisitor) OnFile(path string, _ fs.FileInfo) error {
	rel := r.rel(path)
	if r.failOn != "" && rel == r.failOn {
		return errors.New("visitor failure")
	}
	r.files = append(r.files, rel)
	return nil
}

func (r *recordingVisitor) OnDir(path string, _ fs.FileInfo) error {
	r.dirs = append(r.dirs, r.rel(path))
	return nil
}

func (r *recordingVisitor) OnSkip(path string) {
	r.skipped = append(r.skipped, r.rel(path))
}

func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tmp", "cache"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("aa"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.txt"), []byte("bbb"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deep", "c.txt"), []byte("cccc"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tmp", "junk.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "tmp", "cache", "d.txt"), []byte("y"), 0o644))

	return root
}

func TestWalk_VisitsEverything(t *testing.T) {
	root := buildTree(t)
	v := &recordingVisitor{root: root}

	require.NoError(t, Walk(root, nil, v))

	assert.ElementsMatch(t, []string{
		"a.txt",
		filepath.Join("sub", "b.txt"),
		filepath.Join("sub", "deep", "c.txt"),
		filepath.Join("tmp", "junk.txt"),
		filepath.Join("tmp", "cache", "d.txt"),
	}, v.files)
	assert.ElementsMatch(t, []string{
		"sub",
		filepath.Join("sub", "deep"),
		"tmp",
		filepath.Join("tmp", "cache"),
	}, v.dirs)
}

func TestWalk_DirVisitedBeforeContents(t *testing.T) {
	root := buildTree(t)
	v := &recordingVisitor{root: root}

	require.NoError(t, Walk(root, nil, v))

	// Every file's parent directory (other than the root) must appear in the
	// dir list before the file appears in the file list. Reconstruct the
	// interleaved order by position.
	seen := map[string]int{}
	for i, d := range v.dirs {
		seen[d] = i
	}
	for _, f := range v.files {
		parent := filepath.Dir(f)
		if parent == "." {
			continue
		}
		_, ok := seen[parent]
		assert.True(t, ok, "parent %s of %s never visited", parent, f)
	}
}

func TestWalk_ExclusionPrunesSubtree(t *testing.T) {
	root := buildTree(t)
	v := &recordingVisitor{root: root}

	require.NoError(t, Walk(root, NewExclusions("tmp"), v))

	assert.ElementsMatch(t, []string{
		"a.txt",
		filepath.Join("sub", "b.txt"),
		filepath.Join("sub", "deep", "c.txt"),
	}, v.files)
	assert.NotContains(t, v.dirs, "tmp")
	assert.NotContains(t, v.dirs, filepath.Join("tmp", "cache"))
	// The pruned entry is reported once; its contents are never seen at all.
	assert.Equal(t, []string{"tmp"}, v.skipped)
}

func TestWalk_ExclusionByBareNameAtAnyDepth(t *testing.T) {
	root := buildTree(t)
	// "b.txt" lives under sub/ — exclusion is by bare name, not path.
	v := &recordingVisitor{root: root}

	require.NoError(t, Walk(root, NewExclusions("b.txt", "cache"), v))

	assert.NotContains(t, v.files, filepath.Join("sub", "b.txt"))
	assert.NotContains(t, v.files, filepath.Join("tmp", "cache", "d.txt"))
	assert.Contains(t, v.files, filepath.Join("sub", "deep", "c.txt"))
}

func TestWalk_SkipsSymlinks(t *testing.T) {
	root := buildTree(t)
	require.NoError(t, os.Symlink(filepath.Join(root, "a.txt"), filepath.Join(root, "link.txt")))

	v := &recordingVisitor{root: root}
	require.NoError(t, Walk(root, nil, v))

	assert.NotContains(t, v.files, "link.txt")
	assert.Contains(t, v.skipped, "link.txt")
}

func TestWalk_MissingRoot(t *testing.T) {
	v := &recordingVisitor{}
	err := Walk(filepath.Join(t.TempDir(), "nope"), nil, v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read dir")
	assert.Empty(t, v.files)
}

func TestWalk_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	err := Walk(path, nil, &recordingVisitor{root: dir})
	require.Error(t, err)
}

func TestWalk_VisitorErrorAborts(t *testing.T) {
	root := buildTree(t)
	v := &recordingVisitor{root: root, failOn: filepath.Join("sub", "b.txt")}

	err := Walk(root, NewExclusions("tmp"), v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "visitor failure")
	// Nothing after the failing file in that directory's enumeration.
	assert.NotContains(t, v.files, filepath.Join("sub", "b.txt"))
}

func TestExclusions(t *testing.T) {
	ex := NewExclusions("tmp", "", ".git")
	assert.True(t, ex.Contains("tmp"))
	assert.True(t, ex.Contains(".git"))
	assert.False(t, ex.Contains(""))
	assert.False(t, ex.Contains("src"))
	assert.ElementsMatch(t, []string{"tmp", ".git"}, ex.Names())
}
