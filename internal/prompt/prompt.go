// Package prompt implements the system prompt assembler of spec.md
// §4.11: a pure function over the current filesystem state, the tool
// registry, and (if any root is a git repository) its branch and
// working-tree status, re-evaluated every time the resource is read.
package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-git/go-git/v5"

	"github.com/hanzoai/hanzo-mcp/internal/registry"
)

// projectMarkers maps a file found at a root's top level to the project
// type it signals. Checked in a fixed order so a root carrying more than
// one marker reports a single, deterministic type.
var projectMarkers = []struct {
	file string
	kind string
}{
	{"go.mod", "Go"},
	{"package.json", "Node.js"},
	{"pyproject.toml", "Python"},
	{"Cargo.toml", "Rust"},
	{"pom.xml", "Java (Maven)"},
	{"build.gradle", "Java/Kotlin (Gradle)"},
	{"Gemfile", "Ruby"},
	{"composer.json", "PHP"},
}

// GitStatus summarizes a root's working tree.
type GitStatus struct {
	Branch    string
	Dirty     bool
	RemoteURL string
}

// Assembler builds the system prompt resource text.
type Assembler struct {
	reg   *registry.Registry
	roots []string
	now   func() string
}

// New builds an Assembler over reg and roots. now, if non-nil, overrides
// the timestamp source for deterministic tests.
func New(reg *registry.Registry, roots []string, now func() string) *Assembler {
	if now == nil {
		now = defaultTimestamp
	}
	return &Assembler{reg: reg, roots: roots, now: now}
}

// Build renders the full system prompt text. It is re-derived from
// scratch on every call: nothing about it is cached, so edits to the
// working tree or registry are reflected on the next read.
func (a *Assembler) Build() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generated: %s\n", a.now())
	fmt.Fprintf(&b, "OS: %s/%s\n", runtime.GOOS, runtime.GOARCH)

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "(unknown)"
	}
	fmt.Fprintf(&b, "Working directory: %s\n", cwd)

	for _, root := range a.roots {
		if status := detectGitStatus(root); status != nil {
			b.WriteString(formatGitStatus(root, *status))
		}
		if kind := detectProjectType(root); kind != "" {
			fmt.Fprintf(&b, "Project type (%s): %s\n", root, kind)
		}
	}

	b.WriteString("\nEnabled tools:\n")
	b.WriteString(formatToolsByCategory(a.reg))

	b.WriteString("\n")
	b.WriteString(usageGuidance)

	return b.String()
}

func defaultTimestamp() string {
	return time.Now().Format(time.RFC3339)
}

func detectGitStatus(root string) *GitStatus {
	repo, err := git.PlainOpen(root)
	if err != nil {
		return nil
	}
	status := &GitStatus{}

	head, err := repo.Head()
	if err == nil && head.Name().IsBranch() {
		status.Branch = head.Name().Short()
	}

	worktree, err := repo.Worktree()
	if err == nil {
		wtStatus, err := worktree.Status()
		if err == nil {
			status.Dirty = !wtStatus.IsClean()
		}
	}

	if remote, err := repo.Remote("origin"); err == nil && len(remote.Config().URLs) > 0 {
		status.RemoteURL = remote.Config().URLs[0]
	}

	return status
}

func formatGitStatus(root string, s GitStatus) string {
	dirty := "clean"
	if s.Dirty {
		dirty = "dirty"
	}
	branch := s.Branch
	if branch == "" {
		branch = "(detached HEAD)"
	}
	line := fmt.Sprintf("Git (%s): branch %s, %s", root, branch, dirty)
	if s.RemoteURL != "" {
		line += fmt.Sprintf(", remote %s", s.RemoteURL)
	}
	return line + "\n"
}

func detectProjectType(root string) string {
	for _, marker := range projectMarkers {
		path := filepath.Join(root, marker.file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if name := manifestPackageName(marker.file, path); name != "" {
			return fmt.Sprintf("%s (%s)", marker.kind, name)
		}
		return marker.kind
	}
	return ""
}

// manifestPackageName parses the handful of marker files that are
// themselves TOML manifests, so the prompt can report the actual
// package/crate name instead of just the language. Any other marker, or
// a manifest missing the expected table, reports no name and the
// caller falls back to the bare kind.
func manifestPackageName(file, path string) string {
	switch file {
	case "pyproject.toml":
		var doc struct {
			Project struct {
				Name string `toml:"name"`
			} `toml:"project"`
			Tool struct {
				Poetry struct {
					Name string `toml:"name"`
				} `toml:"poetry"`
			} `toml:"tool"`
		}
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return ""
		}
		if doc.Project.Name != "" {
			return doc.Project.Name
		}
		return doc.Tool.Poetry.Name
	case "Cargo.toml":
		var doc struct {
			Package struct {
				Name string `toml:"name"`
			} `toml:"package"`
		}
		if _, err := toml.DecodeFile(path, &doc); err != nil {
			return ""
		}
		return doc.Package.Name
	default:
		return ""
	}
}

func formatToolsByCategory(reg *registry.Registry) string {
	byCategory := make(map[registry.Category][]string)
	for _, d := range reg.ListEnabled() {
		byCategory[d.Category] = append(byCategory[d.Category], d.Name)
	}

	categories := make([]string, 0, len(byCategory))
	for cat := range byCategory {
		categories = append(categories, string(cat))
	}
	sort.Strings(categories)

	var b strings.Builder
	for _, cat := range categories {
		names := byCategory[registry.Category(cat)]
		sort.Strings(names)
		fmt.Fprintf(&b, "- %s: %s\n", cat, strings.Join(names, ", "))
	}
	return b.String()
}

const usageGuidance = `Usage guidance:
- Prefer the narrowest tool for the job: read before edit, search before read.
- Edits require an exact, unique match of the old text; widen the match on ambiguity.
- Shell commands run synchronously with a timeout; use the process supervisor for anything long-lived.
- Paths outside the permitted roots are rejected regardless of tool.`
