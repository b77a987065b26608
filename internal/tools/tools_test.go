package tools

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/editengine"
	"github.com/hanzoai/hanzo-mcp/internal/fsutil"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
	"github.com/hanzoai/hanzo-mcp/internal/procsup"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
	"github.com/hanzoai/hanzo-mcp/internal/searchengine"
	"github.com/hanzoai/hanzo-mcp/internal/shellrun"
)

func newTestDeps(t *testing.T) (Deps, string) {
	t.Helper()
	root := t.TempDir()
	perm, err := permission.New([]string{root})
	require.NoError(t, err)

	return Deps{
		FS:     fsutil.New(perm),
		Edit:   editengine.New(perm),
		Search: searchengine.New(perm),
		Shell:  shellrun.New(perm, 0),
		Proc:   procsup.New(perm),
	}, root
}

func TestRegisterAllRegistersEveryCoreTool(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	for _, name := range []string{
		"read", "write", "list", "tree", "find", "info",
		"edit", "multi_edit",
		"grep", "git_history_search",
		"run_command",
		"run_background", "list_processes", "get_process_output", "kill_process",
		"tool_list", "tool_search", "tool_enable", "tool_disable",
		"think",
	} {
		_, err := reg.Get(name)
		require.NoError(t, err, "expected %s to be registered", name)
	}

	_, err := reg.Get("delegate_task")
	require.Error(t, err, "delegate_task should not be registered when Agent is nil")
}

func TestReadWriteRoundTrip(t *testing.T) {
	deps, root := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	path := filepath.Join(root, "note.txt")
	writeDesc, err := reg.Get("write")
	require.NoError(t, err)
	result := writeDesc.Handler(map[string]any{"path": path, "content": "hello"})
	require.False(t, result.IsError)

	readDesc, err := reg.Get("read")
	require.NoError(t, err)
	result = readDesc.Handler(map[string]any{"path": path})
	require.False(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "hello")
}

func TestReadRejectsPathOutsideRoots(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	desc, err := reg.Get("read")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{"path": "/etc/passwd"})
	require.True(t, result.IsError)
}

func TestReadRejectsMissingRequiredField(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	desc, err := reg.Get("read")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{})
	require.True(t, result.IsError)
}

func TestEditReportsAmbiguousMatchAsToolError(t *testing.T) {
	deps, root := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	path := filepath.Join(root, "dup.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo foo"), 0o644))

	desc, err := reg.Get("edit")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{"path": path, "oldText": "foo", "newText": "bar"})
	require.True(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "ambiguous")
}

func TestMultiEditAppliesInOrder(t *testing.T) {
	deps, root := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	path := filepath.Join(root, "multi.txt")
	require.NoError(t, os.WriteFile(path, []byte("one two"), 0o644))

	desc, err := reg.Get("multi_edit")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{
		"path": path,
		"edits": []any{
			map[string]any{"oldText": "one", "newText": "1"},
			map[string]any{"oldText": "two", "newText": "2"},
		},
	})
	require.False(t, result.IsError)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "1 2", string(content))
}

func TestRunCommandReturnsExitCode(t *testing.T) {
	deps, root := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	desc, err := reg.Get("run_command")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{"command": "echo hi", "cwd": root})
	require.False(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "exit 0")
	require.Contains(t, result.Content[0].Text, "hi")
}

func TestBackgroundProcessLifecycleThroughTools(t *testing.T) {
	deps, root := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	runDesc, err := reg.Get("run_background")
	require.NoError(t, err)
	result := runDesc.Handler(map[string]any{"id": "job-1", "command": "sleep 30", "cwd": root})
	require.False(t, result.IsError)

	listDesc, err := reg.Get("list_processes")
	require.NoError(t, err)
	result = listDesc.Handler(map[string]any{})
	require.False(t, result.IsError)
	require.Contains(t, result.Content[0].Text, "job-1")

	killDesc, err := reg.Get("kill_process")
	require.NoError(t, err)
	result = killDesc.Handler(map[string]any{"id": "job-1"})
	require.False(t, result.IsError)
}

func TestToolDisableRejectsProtectedTool(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	desc, err := reg.Get("tool_disable")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{"name": "tool_disable"})
	require.True(t, result.IsError)
}

func TestToolEnableDisableRoundTrip(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	disableDesc, err := reg.Get("tool_disable")
	require.NoError(t, err)
	result := disableDesc.Handler(map[string]any{"name": "read"})
	require.False(t, result.IsError)

	enabled, err := reg.IsEnabled("read")
	require.NoError(t, err)
	require.False(t, enabled)

	enableDesc, err := reg.Get("tool_enable")
	require.NoError(t, err)
	result = enableDesc.Handler(map[string]any{"name": "read"})
	require.False(t, result.IsError)

	enabled, err = reg.IsEnabled("read")
	require.NoError(t, err)
	require.True(t, enabled)
}

func TestThinkEchoesThought(t *testing.T) {
	deps, _ := newTestDeps(t)
	reg := registry.New()
	require.NoError(t, RegisterAll(reg, deps))

	desc, err := reg.Get("think")
	require.NoError(t, err)
	result := desc.Handler(map[string]any{"thought": "considering approach X"})
	require.False(t, result.IsError)
	require.Equal(t, "considering approach X", result.Content[0].Text)
}
