// Package searchengine implements the search orchestrator of spec.md
// §4.8: backend detection, and a parallel filename/content/history
// multi-strategy search over the permitted roots.
package searchengine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

// Backend names a content-search executable, in detection preference
// order: ripgrep, then silversearcher, then ack, then the built-in
// walker when none are installed.
type Backend string

const (
	BackendRipgrep      Backend = "rg"
	BackendSilverSearch Backend = "ag"
	BackendAck          Backend = "ack"
	BackendBuiltin      Backend = "builtin"
)

// DetectBackend probes PATH once for the best available content-search
// tool, in the cascade order spec.md §4.8 specifies. Callers cache the
// result for the process lifetime.
func DetectBackend(lookPath func(string) (string, error)) Backend {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	for _, candidate := range []Backend{BackendRipgrep, BackendSilverSearch, BackendAck} {
		if _, err := lookPath(string(candidate)); err == nil {
			return candidate
		}
	}
	return BackendBuiltin
}

// Options configures a unified search call.
type Options struct {
	IgnoreCase    bool
	ContextLines  int
	IncludeGlobs  []string
	MaxResults    int
	SearchHistory bool
}

// Engine runs the multi-strategy search over a fixed set of allowed roots.
type Engine struct {
	perm    *permission.Manager
	backend Backend
}

// New builds an Engine bound to perm, detecting the content backend once.
func New(perm *permission.Manager) *Engine {
	return &Engine{perm: perm, backend: DetectBackend(nil)}
}

// Result is one unified search result section.
type Result struct {
	Strategy  string
	Lines     []string
	Truncated bool
}

// Search runs filename, content, and (optionally) history strategies in
// parallel and returns their sections in a fixed order: filename,
// content, history. A strategy that found nothing, or does not apply
// (e.g. no git repository for history), is still returned with zero
// lines — concatenation and omission of truly inapplicable strategies is
// left to the caller rendering the tool result text.
func (e *Engine) Search(query string, opts Options) []Result {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}

	var wg sync.WaitGroup
	results := make([]Result, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = Result{Strategy: "filename", Lines: e.searchFilenames(query, opts.MaxResults)}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = e.searchContent(query, opts)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if opts.SearchHistory {
			results[2] = Result{Strategy: "history", Lines: e.searchHistory(query, opts.MaxResults)}
		} else {
			results[2] = Result{Strategy: "history"}
		}
	}()

	wg.Wait()
	return results
}

// searchFilenames globs *<query>* under each allowed root, honoring
// noise-directory skipping the same way fsutil.Find does.
func (e *Engine) searchFilenames(query string, maxResults int) []string {
	var out []string
	needle := strings.ToLower(query)
	for _, root := range e.perm.Roots() {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if len(out) >= maxResults {
				return filepath.SkipAll
			}
			if d.IsDir() && path != root && noiseDirectories[d.Name()] {
				return filepath.SkipDir
			}
			if strings.Contains(strings.ToLower(d.Name()), needle) {
				out = append(out, path)
			}
			return nil
		})
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

// noiseDirectories is a subset of fsutil's default traversal exclusions so
// filename search does not walk into vendor/build trees.
var noiseDirectories = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".venv": true,
	"venv": true, "dist": true, "build": true, ".cache": true,
}

// searchContent delegates to the detected backend. The builtin fallback
// walks permitted files and scans each with the regexp engine; the
// external-backend path shells out with flags translated per tool:
// ripgrep gets ignore-case, context and include-glob flags, ag gets
// ignore-case and context but not include globs, and ack gets ignore-case
// only.
func (e *Engine) searchContent(query string, opts Options) Result {
	if e.backend == BackendBuiltin {
		return e.searchContentBuiltin(query, opts)
	}
	return e.searchContentExternal(query, opts)
}

func (e *Engine) searchContentExternal(query string, opts Options) Result {
	args := e.backendArgs(query, opts)
	var lines []string
	for _, root := range e.perm.Roots() {
		cmd := exec.Command(string(e.backend), append(args, root)...)
		var out bytes.Buffer
		cmd.Stdout = &out
		err := cmd.Run()
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
				continue // backend convention: exit 1 means "no matches", not failure
			}
			continue
		}
		scanner := bufio.NewScanner(&out)
		for scanner.Scan() && len(lines) < opts.MaxResults {
			lines = append(lines, scanner.Text())
		}
	}
	return Result{Strategy: "content", Lines: lines, Truncated: len(lines) >= opts.MaxResults}
}

func (e *Engine) backendArgs(query string, opts Options) []string {
	switch e.backend {
	case BackendRipgrep:
		args := []string{"--line-number", "--no-heading"}
		if opts.IgnoreCase {
			args = append(args, "--ignore-case")
		}
		if opts.ContextLines > 0 {
			args = append(args, "--context", strconv.Itoa(opts.ContextLines))
		}
		for _, glob := range opts.IncludeGlobs {
			args = append(args, "--glob", glob)
		}
		return append(args, query)
	case BackendSilverSearch:
		args := []string{"--line-number", "--nogroup"}
		if opts.IgnoreCase {
			args = append(args, "--ignore-case")
		}
		if opts.ContextLines > 0 {
			args = append(args, "--context="+strconv.Itoa(opts.ContextLines))
		}
		return append(args, query)
	default: // ack
		args := []string{"--nogroup", "--column"}
		if opts.IgnoreCase {
			args = append(args, "-i")
		}
		return append(args, query)
	}
}

func (e *Engine) searchContentBuiltin(query string, opts Options) Result {
	var re *regexp.Regexp
	pattern := query
	if _, err := regexp.Compile(pattern); err != nil {
		pattern = regexp.QuoteMeta(query) // not a valid regexp: match it literally
	}
	if opts.IgnoreCase {
		pattern = "(?i)" + pattern
	}
	re = regexp.MustCompile(pattern)

	var lines []string
	for _, root := range e.perm.Roots() {
		e.walkTextFiles(root, opts.IncludeGlobs, func(path string, content []byte) bool {
			scanner := bufio.NewScanner(bytes.NewReader(content))
			lineNo := 0
			for scanner.Scan() {
				lineNo++
				if re.MatchString(scanner.Text()) {
					lines = append(lines, fmt.Sprintf("%s:%d:%s", path, lineNo, scanner.Text()))
					if len(lines) >= opts.MaxResults {
						return false
					}
				}
			}
			return true
		})
		if len(lines) >= opts.MaxResults {
			break
		}
	}
	return Result{Strategy: "content", Lines: lines, Truncated: len(lines) >= opts.MaxResults}
}

// walkTextFiles visits every regular file under root not excluded by
// noiseDirectories or includeGlobs, calling visit(path, content) for
// each; visit returns false to stop the walk early.
func (e *Engine) walkTextFiles(root string, includeGlobs []string, visit func(path string, content []byte) bool) {
	stop := errors.New("searchengine: stop walk")
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && noiseDirectories[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if len(includeGlobs) > 0 && !matchesAnyGlob(d.Name(), includeGlobs) {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil || looksBinary(content) {
			return nil
		}
		if !visit(path, content) {
			return stop
		}
		return nil
	})
}

func matchesAnyGlob(name string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

func looksBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) != -1
}

// searchHistory walks each allowed root's git history across all refs (via
// go-git) for commits whose diff introduces or removes the query string —
// the "pickaxe" search `git log --all -S<query>` performs, reimplemented over the
// go-git commit/patch API rather than shelling out to git. A commit
// matches when the query's occurrence count differs between a parent
// tree and the commit's own tree, the same count-delta rule `-S` uses.
func (e *Engine) searchHistory(query string, maxResults int) []string {
	stopIteration := errors.New("searchengine: stop iteration")
	var out []string
	for _, root := range e.perm.Roots() {
		repo, err := git.PlainOpen(root)
		if err != nil {
			continue // not a git repository: silently omitted, per spec.md §4.8
		}
		if _, err := repo.Head(); err != nil {
			continue
		}
		commitIter, err := repo.Log(&git.LogOptions{All: true})
		if err != nil {
			continue
		}
		_ = commitIter.ForEach(func(c *object.Commit) error {
			if e.commitChangesOccurrenceCount(c, query) {
				out = append(out, fmt.Sprintf("%s %s", c.Hash.String()[:12], firstLine(c.Message)))
				if len(out) >= maxResults {
					return stopIteration
				}
			}
			return nil
		})
		if len(out) >= maxResults {
			break
		}
	}
	return out
}

// commitChangesOccurrenceCount reports whether query's total occurrence
// count across the commit's tree differs from its first parent's tree.
// The root commit (no parents) matches when the query appears at all.
func (e *Engine) commitChangesOccurrenceCount(c *object.Commit, query string) bool {
	after, err := occurrencesInTree(c, query)
	if err != nil {
		return false
	}
	parents := c.Parents()
	parent, err := parents.Next()
	if err != nil {
		return after > 0 // root commit: match on presence alone
	}
	before, err := occurrencesInTree(parent, query)
	if err != nil {
		return false
	}
	return before != after
}

func occurrencesInTree(c *object.Commit, query string) (int, error) {
	tree, err := c.Tree()
	if err != nil {
		return 0, err
	}
	count := 0
	err = tree.Files().ForEach(func(f *object.File) error {
		if f.Size > 4<<20 { // skip anything over 4 MiB, consistent with a diff tool's binary/huge-file skip
			return nil
		}
		isBin, err := f.IsBinary()
		if err != nil || isBin {
			return nil
		}
		content, err := f.Contents()
		if err != nil {
			return nil
		}
		count += strings.Count(content, query)
		return nil
	})
	return count, err
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
