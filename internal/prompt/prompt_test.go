package prompt

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/protocol"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
)

func fixedNow() string { return "2026-07-31T00:00:00Z" }

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name: "read", Category: registry.CategoryFilesystem,
		InputSchema: map[string]any{}, Handler: func(map[string]any) protocol.ToolResult { return protocol.ToolResult{} },
	}))
	require.NoError(t, reg.Register(&registry.Descriptor{
		Name: "run_command", Category: registry.CategoryShell,
		InputSchema: map[string]any{}, Handler: func(map[string]any) protocol.ToolResult { return protocol.ToolResult{} },
	}))
	return reg
}

func TestBuildIncludesTimestampAndOS(t *testing.T) {
	reg := newTestRegistry(t)
	a := New(reg, nil, fixedNow)
	text := a.Build()
	require.Contains(t, text, "Generated: 2026-07-31T00:00:00Z")
	require.Contains(t, text, "OS: ")
}

func TestBuildDetectsProjectType(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module x\n"), 0o644))

	reg := newTestRegistry(t)
	a := New(reg, []string{root}, fixedNow)
	text := a.Build()
	require.Contains(t, text, "Project type")
	require.Contains(t, text, "Go")
}

func TestBuildEnumeratesEnabledToolsByCategory(t *testing.T) {
	reg := newTestRegistry(t)
	a := New(reg, nil, fixedNow)
	text := a.Build()
	require.Contains(t, text, "filesystem: read")
	require.Contains(t, text, "shell: run_command")
}

func TestBuildOmitsDisabledTools(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.Disable("run_command"))

	a := New(reg, nil, fixedNow)
	text := a.Build()
	require.NotContains(t, text, "run_command")
}

func TestBuildIncludesGitStatusForRepoRoot(t *testing.T) {
	root := t.TempDir()
	runGit(t, root, "init")
	runGit(t, root, "config", "user.email", "test@example.com")
	runGit(t, root, "config", "user.name", "test")
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("x"), 0o644))
	runGit(t, root, "add", "a.txt")
	runGit(t, root, "commit", "-m", "initial")

	reg := newTestRegistry(t)
	a := New(reg, []string{root}, fixedNow)
	text := a.Build()
	require.Contains(t, text, "Git (")
	require.Contains(t, text, "clean")
}

func TestBuildOmitsGitStatusForNonRepoRoot(t *testing.T) {
	root := t.TempDir()
	reg := newTestRegistry(t)
	a := New(reg, []string{root}, fixedNow)
	text := a.Build()
	require.NotContains(t, text, "Git (")
}

func TestBuildIncludesUsageGuidance(t *testing.T) {
	reg := newTestRegistry(t)
	a := New(reg, nil, fixedNow)
	text := a.Build()
	require.Contains(t, text, "Usage guidance:")
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
}
