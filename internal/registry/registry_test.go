package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
)

func noopHandler(args map[string]any) protocol.ToolResult {
	return protocol.Text("ok")
}

func TestNewRegistryStartsEmpty(t *testing.T) {
	r := New()
	require.Equal(t, 0, r.Count())
}

func TestRegister(t *testing.T) {
	t.Run("registers a valid descriptor", func(t *testing.T) {
		r := New()
		err := r.Register(&Descriptor{Name: "read", Description: "reads a file", Handler: noopHandler})
		require.NoError(t, err)
		require.Equal(t, 1, r.Count())
	})

	t.Run("rejects nil descriptor", func(t *testing.T) {
		r := New()
		err := r.Register(nil)
		require.Error(t, err)
	})

	t.Run("rejects duplicate name", func(t *testing.T) {
		r := New()
		require.NoError(t, r.Register(&Descriptor{Name: "read", Handler: noopHandler}))
		err := r.Register(&Descriptor{Name: "read", Handler: noopHandler})
		require.Error(t, err)
		var domainErr *mcperr.Error
		require.True(t, errors.As(err, &domainErr))
		require.True(t, errors.Is(err, mcperr.ErrConflict))
	})

	t.Run("rejects missing handler", func(t *testing.T) {
		r := New()
		err := r.Register(&Descriptor{Name: "read"})
		require.Error(t, err)
	})
}

func TestRegisterAllIsAllOrNothing(t *testing.T) {
	r := New()
	err := r.RegisterAll([]*Descriptor{
		{Name: "read", Handler: noopHandler},
		{Name: "read", Handler: noopHandler},
	})
	require.Error(t, err)
	require.Equal(t, 0, r.Count())
}

func TestGetReturnsDisabledToo(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{Name: "write", Handler: noopHandler}))
	require.NoError(t, r.Disable("write"))

	d, err := r.Get("write")
	require.NoError(t, err)
	require.Equal(t, "write", d.Name)

	enabled, err := r.IsEnabled("write")
	require.NoError(t, err)
	require.False(t, enabled)
}

func TestListEnabledExcludesDisabledAndDeferred(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{Name: "read", Handler: noopHandler}))
	require.NoError(t, r.Register(&Descriptor{Name: "write", Handler: noopHandler}))
	require.NoError(t, r.Register(&Descriptor{Name: "obscure", Handler: noopHandler, DeferLoading: true}))
	require.NoError(t, r.Disable("write"))

	names := make([]string, 0)
	for _, d := range r.ListEnabled() {
		names = append(names, d.Name)
	}
	require.Equal(t, []string{"read"}, names)
}

func TestDisableProtectedToolFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{Name: "tool_list", Handler: noopHandler, Protected: true}))
	err := r.Disable("tool_list")
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrPermission))
}

func TestSearchExactNameScoresHighest(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{Name: "search_code", Description: "search repository contents", Handler: noopHandler}))
	require.NoError(t, r.Register(&Descriptor{Name: "read", Description: "read a file, optionally by search term", Handler: noopHandler}))

	results := r.Search("search_code")
	require.NotEmpty(t, results)
	require.Equal(t, "search_code", results[0].Descriptor.Name)
	require.Equal(t, 3, results[0].Score)
}

func TestSearchKeywordMatch(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{
		Name: "grep", Description: "find text", Keywords: []string{"ripgrep", "ag"}, Handler: noopHandler,
	}))

	results := r.Search("ripgrep")
	require.Len(t, results, 1)
	require.Equal(t, "keyword match", results[0].MatchReason)
}

func TestSearchRegexQuery(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(&Descriptor{Name: "read_file", Handler: noopHandler}))
	require.NoError(t, r.Register(&Descriptor{Name: "write_file", Handler: noopHandler}))

	results := r.Search("^read")
	require.Len(t, results, 1)
	require.Equal(t, "read_file", results[0].Descriptor.Name)
}

func TestEnableUnknownToolFails(t *testing.T) {
	r := New()
	err := r.Enable("nope")
	require.Error(t, err)
	require.True(t, errors.Is(err, mcperr.ErrNotFound))
}
