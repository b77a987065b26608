// Package permission implements the path/command sandbox of spec.md §4.3:
// a set of allowed roots and a deny-list, checked before any syscall that
// touches a path or spawns a command. It is immutable once built, per
// spec.md §5.
package permission

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
)

// defaultDenyPatterns mirrors the credential/history/key-material
// patterns the teacher's secrets package flags as sensitive, repurposed
// here as hard path denials rather than content redaction rules.
var defaultDenyPatterns = []string{
	"*.pem", "*.key", "id_rsa*", "id_ed25519*", ".env", ".env.*",
	"*_history", ".bash_history", ".zsh_history", ".python_history",
	".ssh/*", ".gnupg/*", ".netrc", ".aws/credentials", ".aws/config",
}

// destructiveCommands is a conservative, enumerated deny-list of command
// forms spec.md §4.3 calls out by name.
var destructiveCommands = []*regexp.Regexp{
	regexp.MustCompile(`\brm\s+(-\w*r\w*f\w*|--recursive\s+--force|-fr|-rf)\s+/\s*$`),
	regexp.MustCompile(`\brm\s+(-\w*r\w*f\w*|-fr|-rf)\s+/\s+`),
	regexp.MustCompile(`>\s*/etc/`),
	regexp.MustCompile(`\bmkfs\.`),
	regexp.MustCompile(`\bdd\s+.*of=/dev/`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;`), // fork bomb
}

// Manager answers "may this path be touched?" and "may this command run?"
// against a fixed set of allowed roots, a deny-list, and, by default, the
// server's own configuration directory.
type Manager struct {
	roots        []string // canonical, absolute, no trailing separator
	denyPatterns []string
	ownDataDir   string // additional implicit deny root
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithDenyPatterns appends additional glob deny patterns to the defaults.
func WithDenyPatterns(patterns ...string) Option {
	return func(m *Manager) { m.denyPatterns = append(m.denyPatterns, patterns...) }
}

// WithOwnDataDir denies the server's own configuration/data directory,
// per spec.md §3 "the process's own data directory by default".
func WithOwnDataDir(dir string) Option {
	return func(m *Manager) { m.ownDataDir = canonical(dir) }
}

// New builds a Manager from one or more allowed root directories. Roots
// are canonicalized (absolute, symlink-resolved) at construction time;
// the Manager is immutable thereafter.
func New(roots []string, opts ...Option) (*Manager, error) {
	if len(roots) == 0 {
		return nil, errNoRoots
	}
	m := &Manager{denyPatterns: append([]string{}, defaultDenyPatterns...)}
	for _, r := range roots {
		abs, err := filepath.Abs(r)
		if err != nil {
			return nil, err
		}
		m.roots = append(m.roots, canonical(abs))
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

var errNoRoots = rootsRequiredError{}

type rootsRequiredError struct{}

func (rootsRequiredError) Error() string { return "permission: at least one allowed root is required" }

// canonical resolves symlinks where possible and normalizes case on
// case-insensitive filesystems (spec.md §4.3), falling back to the
// absolute form when the path does not yet exist.
func canonical(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	resolved = filepath.Clean(resolved)
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		resolved = strings.ToLower(resolved)
	}
	return resolved
}

// Roots returns the canonical allowed roots, for diagnostics (e.g. the
// system prompt assembler).
func (m *Manager) Roots() []string {
	out := make([]string, len(m.roots))
	copy(out, m.roots)
	return out
}

// IsPathAllowed reports whether path's canonical, symlink-resolved form
// lies under an allowed root at a path-component boundary and matches no
// deny pattern. The .git directory of an allowed root is always permitted
// (spec.md §4.3).
func (m *Manager) IsPathAllowed(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	canon := canonical(abs)

	if m.ownDataDir != "" && isUnder(canon, m.ownDataDir) {
		return false
	}
	if m.matchesDenyPattern(canon) && !m.isDotGitOfAllowedRoot(canon) {
		return false
	}
	for _, root := range m.roots {
		if isUnder(canon, root) {
			return true
		}
	}
	return false
}

// isUnder reports whether child is root itself or nested under root at a
// path-component boundary (not merely a string prefix: "/tmp/projectile"
// must not match root "/tmp/project").
func isUnder(child, root string) bool {
	if child == root {
		return true
	}
	return strings.HasPrefix(child, root+string(filepath.Separator))
}

func (m *Manager) isDotGitOfAllowedRoot(canon string) bool {
	for _, root := range m.roots {
		if isUnder(canon, filepath.Join(root, ".git")) {
			return true
		}
	}
	return false
}

func (m *Manager) matchesDenyPattern(canon string) bool {
	base := filepath.Base(canon)
	for _, pattern := range m.denyPatterns {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
		// also match patterns with an embedded separator (e.g. ".ssh/*")
		// against the path tail, since filepath.Match never matches
		// across separators.
		if strings.Contains(pattern, "/") {
			if matchesTail(canon, pattern) {
				return true
			}
		}
	}
	return false
}

func matchesTail(path, pattern string) bool {
	segs := strings.Split(pattern, "/")
	pathSegs := strings.Split(filepath.ToSlash(path), "/")
	if len(segs) > len(pathSegs) {
		return false
	}
	tail := pathSegs[len(pathSegs)-len(segs):]
	for i, seg := range segs {
		if ok, _ := filepath.Match(seg, tail[i]); !ok {
			return false
		}
	}
	return true
}

// IsCommandAllowed applies the conservative, static checks of spec.md
// §4.3: reject enumerated destructive forms and absolute-path references
// (arguments or redirection targets) that resolve outside every allowed
// root. Borderline commands — anything not statically detectable — are
// allowed; cwd is expected to already be constrained by the caller.
func (m *Manager) IsCommandAllowed(command, cwd string) bool {
	for _, re := range destructiveCommands {
		if re.MatchString(command) {
			return false
		}
	}
	for _, abs := range extractAbsolutePaths(command) {
		if !m.IsPathAllowed(abs) {
			return false
		}
	}
	if cwd != "" && !m.IsPathAllowed(cwd) {
		return false
	}
	return true
}

var absolutePathPattern = regexp.MustCompile(`(?:^|[\s>]+)(/[^\s'";|&]*)`)

// extractAbsolutePaths returns absolute-path-looking tokens appearing as
// bare arguments or redirection targets in command. This is intentionally
// conservative static analysis, not a shell parser.
func extractAbsolutePaths(command string) []string {
	matches := absolutePathPattern.FindAllStringSubmatch(command, -1)
	out := make([]string, 0, len(matches))
	for _, mm := range matches {
		p := mm[1]
		if p == "/" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// DefaultOwnDataDir returns the server's own config/data directory, which
// callers typically pass to WithOwnDataDir.
func DefaultOwnDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "hanzo-mcp")
}
