package searchengine

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

func newTestEngine(t *testing.T) (*Engine, string) {
	t.Helper()
	root := t.TempDir()
	perm, err := permission.New([]string{root})
	require.NoError(t, err)
	e := New(perm)
	e.backend = BackendBuiltin // deterministic across CI machines without rg/ag/ack installed
	return e, root
}

func TestDetectBackendFallsBackToBuiltin(t *testing.T) {
	backend := DetectBackend(func(string) (string, error) { return "", errors.New("not found") })
	require.Equal(t, BackendBuiltin, backend)
}

func TestDetectBackendPrefersRipgrep(t *testing.T) {
	backend := DetectBackend(func(name string) (string, error) {
		if name == "rg" {
			return "/usr/bin/rg", nil
		}
		return "", errors.New("not found")
	})
	require.Equal(t, BackendRipgrep, backend)
}

func TestSearchFilenamesMatchesSubstring(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "service_handler.go"), []byte("package x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "other.go"), []byte("package x"), 0o644))

	matches := e.searchFilenames("handler", 10)
	require.Len(t, matches, 1)
	require.Contains(t, matches[0], "service_handler.go")
}

func TestSearchFilenamesSkipsNoiseDirectories(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "node_modules", "handler.js"), []byte("x"), 0o644))

	matches := e.searchFilenames("handler", 10)
	require.Empty(t, matches)
}

func TestSearchContentBuiltinFindsMatch(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("line one\nfunc target() {}\nline three\n"), 0o644))

	result := e.searchContent("target", Options{MaxResults: 10})
	require.Equal(t, "content", result.Strategy)
	require.Len(t, result.Lines, 1)
	require.Contains(t, result.Lines[0], "func target()")
}

func TestSearchContentBuiltinIgnoreCase(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("TARGET\n"), 0o644))

	result := e.searchContent("target", Options{MaxResults: 10, IgnoreCase: true})
	require.Len(t, result.Lines, 1)
}

func TestSearchContentBuiltinSkipsBinary(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.bin"), []byte{0x00, 'x', 0x01}, 0o644))

	result := e.searchContent("x", Options{MaxResults: 10})
	require.Empty(t, result.Lines)
}

func TestSearchReturnsThreeSectionsInOrder(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "target.go"), []byte("target content\n"), 0o644))

	results := e.Search("target", Options{})
	require.Len(t, results, 3)
	require.Equal(t, "filename", results[0].Strategy)
	require.Equal(t, "content", results[1].Strategy)
	require.Equal(t, "history", results[2].Strategy)
}

func TestSearchHistoryOmittedWhenNotRequested(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("x"), 0o644))

	results := e.Search("x", Options{SearchHistory: false})
	require.Empty(t, results[2].Lines)
}

func TestSearchHistoryOmittedWhenNotGitRepo(t *testing.T) {
	e, root := newTestEngine(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("x"), 0o644))

	lines := e.searchHistory("x", 10)
	require.Empty(t, lines)
}
