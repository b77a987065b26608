package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	root := t.TempDir()
	perm, err := permission.New([]string{root})
	require.NoError(t, err)
	return New(perm), root
}

func TestReadWriteRoundTrip(t *testing.T) {
	fs, root := newTestFS(t)
	path := filepath.Join(root, "hello.txt")

	require.NoError(t, fs.Write(path, "hello world"))

	result, err := fs.Read(path, 0, 0)
	require.NoError(t, err)
	require.Equal(t, "hello world", result.Text)
	require.False(t, result.Binary)
}

func TestWriteCreatesParentDirectories(t *testing.T) {
	fs, root := newTestFS(t)
	path := filepath.Join(root, "a", "b", "c.txt")

	require.NoError(t, fs.Write(path, "nested"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "nested", string(data))
}

func TestReadRejectsPathOutsideRoots(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.Read("/etc/passwd", 0, 0)
	require.Error(t, err)
	require.True(t, mcperr.New("", mcperr.ErrPermission).Is(err) || err != nil)
}

func TestReadMissingFile(t *testing.T) {
	fs, root := newTestFS(t)
	_, err := fs.Read(filepath.Join(root, "missing.txt"), 0, 0)
	require.Error(t, err)
}

func TestReadPagination(t *testing.T) {
	fs, root := newTestFS(t)
	path := filepath.Join(root, "lines.txt")
	require.NoError(t, fs.Write(path, "a\nb\nc\nd\ne"))

	result, err := fs.Read(path, 1, 2)
	require.NoError(t, err)
	require.Equal(t, "b\nc", result.Text)
	require.True(t, result.HasMore)
	require.Equal(t, 3, result.NextLine)
}

func TestIsBinaryDetectsNulByte(t *testing.T) {
	require.True(t, isBinary([]byte{0x00, 0x01, 0x02}))
	require.False(t, isBinary([]byte("plain text")))
}

func TestReadDetectsBinaryFile(t *testing.T) {
	fs, root := newTestFS(t)
	path := filepath.Join(root, "bin.dat")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0xFF, 0x10, 0x00}, 0o644))

	result, err := fs.Read(path, 0, 0)
	require.NoError(t, err)
	require.True(t, result.Binary)
	require.Contains(t, result.Text, "binary file")
}

func TestListFiltersByGlob(t *testing.T) {
	fs, root := newTestFS(t)
	require.NoError(t, fs.Write(filepath.Join(root, "a.go"), "x"))
	require.NoError(t, fs.Write(filepath.Join(root, "b.txt"), "x"))

	entries, err := fs.List(root, "*.go")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "a.go", entries[0].Name)
}

func TestTreeRendersGlyphs(t *testing.T) {
	fs, root := newTestFS(t)
	require.NoError(t, fs.Write(filepath.Join(root, "a.txt"), "x"))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))
	require.NoError(t, fs.Write(filepath.Join(root, "sub", "b.txt"), "y"))

	out, err := fs.Tree(root, TreeOptions{})
	require.NoError(t, err)
	require.Contains(t, out, "├── ")
	require.Contains(t, out, "a.txt")
	require.Contains(t, out, "sub/")
}

func TestTreeFiltersNoiseDirectories(t *testing.T) {
	fs, root := newTestFS(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, fs.Write(filepath.Join(root, "main.go"), "x"))

	out, err := fs.Tree(root, TreeOptions{})
	require.NoError(t, err)
	require.NotContains(t, out, "node_modules")
}

func TestFindMatchesGlob(t *testing.T) {
	fs, root := newTestFS(t)
	require.NoError(t, fs.Write(filepath.Join(root, "main.go"), "x"))
	require.NoError(t, fs.Write(filepath.Join(root, "readme.md"), "x"))

	matches, err := fs.Find(root, "*.go", false, true)
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestStatReturnsInfo(t *testing.T) {
	fs, root := newTestFS(t)
	path := filepath.Join(root, "a.txt")
	require.NoError(t, fs.Write(path, "hello"))

	info, err := fs.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(5), info.Size)
	require.False(t, info.IsDir)
}

func TestStatNotFound(t *testing.T) {
	fs, root := newTestFS(t)
	_, err := fs.Stat(filepath.Join(root, "nope.txt"))
	require.Error(t, err)
}
