// Package registry implements the tool registry of spec.md §4.4: a
// thread-safe table of tool descriptors keyed by name, with enable/disable
// toggles and the discovery search the tool_search supplemental feature
// builds on.
package registry

import (
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
)

// Handler is the function signature every registered tool implements. It
// receives validated arguments and returns a ToolResult; handlers never
// return a bare error, per spec.md §3 — failures are encoded as a
// ToolResult with IsError set.
type Handler func(args map[string]any) protocol.ToolResult

// Category groups related tools for diagnostics and category-scoped
// search, mirroring the teacher's tool categories.
type Category string

const (
	CategoryCore       Category = "core"
	CategoryFilesystem Category = "filesystem"
	CategoryEdit       Category = "edit"
	CategorySearch     Category = "search"
	CategoryShell      Category = "shell"
	CategoryProcess    Category = "process"
	CategoryAgent      Category = "agent"
)

// Descriptor is the full registry entry for a tool: wire-visible fields
// (name, description, schema) plus the internal handler, category, the
// keyword list tool_search matches against, and the enabled flag.
type Descriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     Handler
	Category    Category
	Keywords    []string
	// DeferLoading marks a descriptor as discoverable only through
	// tool_search rather than always enumerated by tools/list.
	DeferLoading bool
	// Protected descriptors (tool_enable, tool_disable, tool_list)
	// cannot be disabled at runtime (spec.md §4.4).
	Protected bool

	enabled bool
}

// View renders the wire-visible shape of a descriptor for tools/list.
func (d *Descriptor) View() protocol.ToolDescriptorView {
	return protocol.ToolDescriptorView{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.InputSchema,
	}
}

// SearchResult pairs a matched descriptor with how strongly and why it
// matched, following the teacher's three-tier scoring: exact name (3),
// name contains query (2), keyword or description match (1).
type SearchResult struct {
	Descriptor  *Descriptor
	Score       int
	MatchReason string
}

// Registry is a thread-safe table of tool descriptors.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Descriptor
}

// New creates an empty registry. Every descriptor starts enabled when it
// is registered.
func New() *Registry {
	return &Registry{tools: make(map[string]*Descriptor)}
}

// Register adds a descriptor, rejecting duplicate names and incomplete
// descriptors. Descriptors default to enabled.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return mcperr.New("registry.register", mcperr.ErrValidation).With("field", "descriptor").With("reason", "nil descriptor")
	}
	if d.Name == "" {
		return mcperr.New("registry.register", mcperr.ErrValidation).With("field", "name").With("reason", "required")
	}
	if d.Handler == nil {
		return mcperr.New("registry.register", mcperr.ErrValidation).With("field", "handler").With("reason", "required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[d.Name]; exists {
		return mcperr.New("registry.register", mcperr.ErrConflict).With("id", d.Name)
	}
	d.enabled = true
	r.tools[d.Name] = d
	return nil
}

// RegisterAll registers a batch, all-or-nothing: if any descriptor is
// invalid or collides with an existing (or sibling in the batch) name,
// nothing is registered.
func (r *Registry) RegisterAll(ds []*Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]bool, len(ds))
	for i, d := range ds {
		if d == nil || d.Name == "" || d.Handler == nil {
			return mcperr.New("registry.register_all", mcperr.ErrValidation).With("field", "descriptor").With("reason", "invalid entry").With("index", i)
		}
		if seen[d.Name] {
			return mcperr.New("registry.register_all", mcperr.ErrConflict).With("id", d.Name)
		}
		seen[d.Name] = true
		if _, exists := r.tools[d.Name]; exists {
			return mcperr.New("registry.register_all", mcperr.ErrConflict).With("id", d.Name)
		}
	}
	for _, d := range ds {
		d.enabled = true
		r.tools[d.Name] = d
	}
	return nil
}

// Get looks up a descriptor by name regardless of enabled state, for
// diagnostics and dispatch.
func (r *Registry) Get(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	if !ok {
		return nil, mcperr.New("registry.get", mcperr.ErrNotFound).With("target", name)
	}
	return d, nil
}

// ListEnabled returns enabled, non-deferred descriptors in name order —
// the set tools/list enumerates.
func (r *Registry) ListEnabled() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		if d.enabled && !d.DeferLoading {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ListAll returns every descriptor, enabled or not, deferred or not, for
// diagnostics such as the list-tools CLI command.
func (r *Registry) ListAll() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Descriptor, 0, len(r.tools))
	for _, d := range r.tools {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Enable turns on a descriptor by name.
func (r *Registry) Enable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.tools[name]
	if !ok {
		return mcperr.New("registry.enable", mcperr.ErrNotFound).With("target", name)
	}
	d.enabled = true
	return nil
}

// Disable turns off a descriptor by name. Protected descriptors
// (tool_enable, tool_disable, tool_list) reject this, per spec.md §4.4.
func (r *Registry) Disable(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.tools[name]
	if !ok {
		return mcperr.New("registry.disable", mcperr.ErrNotFound).With("target", name)
	}
	if d.Protected {
		return mcperr.New("registry.disable", mcperr.ErrPermission).With("command", name)
	}
	d.enabled = false
	return nil
}

// IsEnabled reports a descriptor's current enabled state.
func (r *Registry) IsEnabled(name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.tools[name]
	if !ok {
		return false, mcperr.New("registry.is_enabled", mcperr.ErrNotFound).With("target", name)
	}
	return d.enabled, nil
}

// regexMetaChars mirrors the teacher's heuristic for deciding whether a
// query should be treated as a regular expression rather than a literal
// substring.
var regexMetaChars = []string{".*", ".+", "\\", "^", "$", "[", "]", "{", "}", "(", ")", "|", "?", "+", "*"}

func looksLikeRegex(q string) bool {
	for _, m := range regexMetaChars {
		if strings.Contains(q, m) {
			return true
		}
	}
	return false
}

// Search finds descriptors matching query, used by the tool_search
// supplemental tool to discover deferred descriptors without enumerating
// them all up front. An empty query matches every descriptor at score 1.
func (r *Registry) Search(query string) []SearchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if query == "" {
		out := make([]SearchResult, 0, len(r.tools))
		for _, d := range r.tools {
			out = append(out, SearchResult{Descriptor: d, Score: 1, MatchReason: "empty query matches all"})
		}
		sortResults(out)
		return out
	}

	if looksLikeRegex(query) {
		if re, err := regexp.Compile(query); err == nil {
			return r.searchRegex(re)
		}
	}
	return r.searchLiteral(query)
}

func (r *Registry) searchLiteral(query string) []SearchResult {
	q := strings.ToLower(query)
	var out []SearchResult
	for _, d := range r.tools {
		name := strings.ToLower(d.Name)
		switch {
		case name == q:
			out = append(out, SearchResult{Descriptor: d, Score: 3, MatchReason: "exact name match"})
		case strings.Contains(name, q):
			out = append(out, SearchResult{Descriptor: d, Score: 2, MatchReason: "name contains query"})
		case matchesKeyword(d.Keywords, q):
			out = append(out, SearchResult{Descriptor: d, Score: 1, MatchReason: "keyword match"})
		case strings.Contains(strings.ToLower(d.Description), q):
			out = append(out, SearchResult{Descriptor: d, Score: 1, MatchReason: "description match"})
		}
	}
	sortResults(out)
	return out
}

func (r *Registry) searchRegex(re *regexp.Regexp) []SearchResult {
	var out []SearchResult
	for _, d := range r.tools {
		switch {
		case re.MatchString(d.Name):
			out = append(out, SearchResult{Descriptor: d, Score: 2, MatchReason: "name matches pattern"})
		case matchesKeywordRegex(d.Keywords, re):
			out = append(out, SearchResult{Descriptor: d, Score: 1, MatchReason: "keyword matches pattern"})
		case re.MatchString(d.Description):
			out = append(out, SearchResult{Descriptor: d, Score: 1, MatchReason: "description matches pattern"})
		}
	}
	sortResults(out)
	return out
}

func matchesKeyword(keywords []string, q string) bool {
	for _, k := range keywords {
		if strings.Contains(strings.ToLower(k), q) {
			return true
		}
	}
	return false
}

func matchesKeywordRegex(keywords []string, re *regexp.Regexp) bool {
	for _, k := range keywords {
		if re.MatchString(k) {
			return true
		}
	}
	return false
}

func sortResults(results []SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Descriptor.Name < results[j].Descriptor.Name
	})
}

// Count returns the number of registered descriptors, enabled or not.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
