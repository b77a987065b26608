// Package fsutil implements the filesystem tool contracts of spec.md
// §4.6: read, write, list, tree, find, and info, each permission-checked
// before touching disk.
package fsutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

// noiseDirectories are filtered out of Tree by default, mirroring the
// well-known directories contextd's ignore parser treats as fallback
// exclude patterns for repository traversal.
var noiseDirectories = map[string]bool{
	"node_modules": true, ".git": true, "__pycache__": true, ".venv": true,
	"venv": true, "dist": true, "build": true, ".cache": true, ".idea": true,
	".vscode": true, "target": true, ".next": true, ".turbo": true,
}

// FS wraps a permission.Manager to serve the filesystem tool contracts.
type FS struct {
	perm *permission.Manager
}

// New builds an FS bound to perm; every operation is permission-checked
// before it touches disk.
func New(perm *permission.Manager) *FS {
	return &FS{perm: perm}
}

func (f *FS) checkPath(op, path string) error {
	if !f.perm.IsPathAllowed(path) {
		return mcperr.New(op, mcperr.ErrPermission).With("path", path)
	}
	return nil
}

// ReadResult is the decoded outcome of Read.
type ReadResult struct {
	Text     string
	Encoding string
	Binary   bool
	HasMore  bool
	NextLine int
}

// Read decodes a file's text, auto-detecting its encoding, and paginates
// by logical line when offset/limit are non-zero. Binary files return a
// descriptive placeholder rather than raw bytes (spec.md §4.6).
func (f *FS) Read(path string, offset, limit int) (*ReadResult, error) {
	if err := f.checkPath("fs.read", path); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcperr.New("fs.read", mcperr.ErrNotFound).With("target", path)
		}
		return nil, mcperr.Wrap("fs.read", mcperr.ErrExternal, err)
	}

	if isBinary(raw) {
		return &ReadResult{
			Text:   fmt.Sprintf("[binary file, %d bytes]", len(raw)),
			Binary: true,
		}, nil
	}

	text, encoding := decodeText(raw)
	lines := strings.Split(text, "\n")

	if offset == 0 && limit == 0 {
		return &ReadResult{Text: text, Encoding: encoding}, nil
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(lines) {
		return &ReadResult{Text: "", Encoding: encoding}, nil
	}
	end := len(lines)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return &ReadResult{
		Text:     strings.Join(lines[offset:end], "\n"),
		Encoding: encoding,
		HasMore:  end < len(lines),
		NextLine: end,
	}, nil
}

// isBinary applies spec.md §4.6's heuristic: examine up to the first
// 8 KiB, flag as binary if a NUL byte appears.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 8192 {
		head = head[:8192]
	}
	return bytes.IndexByte(head, 0) != -1
}

// decodeText detects UTF-8 (with or without BOM), UTF-16, or falls back
// to Latin-1, returning the decoded string and the detected encoding
// name.
func decodeText(raw []byte) (string, string) {
	switch {
	case len(raw) >= 3 && raw[0] == 0xEF && raw[1] == 0xBB && raw[2] == 0xBF:
		return string(raw[3:]), "utf-8"
	case len(raw) >= 2 && raw[0] == 0xFF && raw[1] == 0xFE:
		return decodeUTF16(raw[2:], false), "utf-16le"
	case len(raw) >= 2 && raw[0] == 0xFE && raw[1] == 0xFF:
		return decodeUTF16(raw[2:], true), "utf-16be"
	case utf8.Valid(raw):
		return string(raw), "utf-8"
	default:
		return decodeLatin1(raw), "latin-1"
	}
}

func decodeUTF16(raw []byte, bigEndian bool) string {
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}
	units := make([]uint16, len(raw)/2)
	for i := range units {
		if bigEndian {
			units[i] = uint16(raw[2*i])<<8 | uint16(raw[2*i+1])
		} else {
			units[i] = uint16(raw[2*i+1])<<8 | uint16(raw[2*i])
		}
	}
	return string(utf16.Decode(units))
}

func decodeLatin1(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// Write atomically creates path (and missing parent directories within
// allowed roots) via write-to-temp-then-rename.
func (f *FS) Write(path, content string) error {
	if err := f.checkPath("fs.write", path); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := f.checkPath("fs.write", dir); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return mcperr.Wrap("fs.write", mcperr.ErrExternal, err)
	}

	tmp, err := os.CreateTemp(dir, ".hanzo-mcp-write-*")
	if err != nil {
		return mcperr.Wrap("fs.write", mcperr.ErrExternal, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return mcperr.Wrap("fs.write", mcperr.ErrExternal, err)
	}
	if err := tmp.Close(); err != nil {
		return mcperr.Wrap("fs.write", mcperr.ErrExternal, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return mcperr.Wrap("fs.write", mcperr.ErrExternal, err)
	}
	return nil
}

// Entry is one result of List.
type Entry struct {
	Name  string
	IsDir bool
}

// List returns entries of a directory, optionally filtered by glob.
func (f *FS) List(dir, glob string) ([]Entry, error) {
	if err := f.checkPath("fs.list", dir); err != nil {
		return nil, err
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, mcperr.New("fs.list", mcperr.ErrNotFound).With("target", dir)
		}
		return nil, mcperr.Wrap("fs.list", mcperr.ErrExternal, err)
	}

	out := make([]Entry, 0, len(items))
	for _, item := range items {
		if glob != "" {
			if ok, _ := filepath.Match(glob, item.Name()); !ok {
				continue
			}
		}
		out = append(out, Entry{Name: item.Name(), IsDir: item.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// TreeOptions configures Tree's traversal and rendering.
type TreeOptions struct {
	Depth           int
	ShowHidden      bool
	Pattern         string
	ShowSize        bool
	DirsOnly        bool
	IncludeFiltered bool
}

// Tree renders a directory as a glyph-drawn tree (spec.md §4.6).
func (f *FS) Tree(root string, opts TreeOptions) (string, error) {
	if err := f.checkPath("fs.tree", root); err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err != nil {
		return "", mcperr.New("fs.tree", mcperr.ErrNotFound).With("target", root)
	}
	if !info.IsDir() {
		return "", mcperr.New("fs.tree", mcperr.ErrValidation).With("field", "path").With("reason", "not a directory")
	}

	var b strings.Builder
	b.WriteString(filepath.Base(root))
	b.WriteString("\n")
	renderTree(&b, root, "", 1, opts)
	return b.String(), nil
}

func renderTree(b *strings.Builder, dir, prefix string, depth int, opts TreeOptions) {
	if opts.Depth > 0 && depth > opts.Depth {
		return
	}
	items, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var filtered []os.DirEntry
	for _, item := range items {
		name := item.Name()
		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if !opts.IncludeFiltered && noiseDirectories[name] {
			continue
		}
		if opts.DirsOnly && !item.IsDir() {
			continue
		}
		if opts.Pattern != "" {
			if ok, _ := filepath.Match(opts.Pattern, name); !ok && !item.IsDir() {
				continue
			}
		}
		filtered = append(filtered, item)
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Name() < filtered[j].Name() })

	for i, item := range filtered {
		last := i == len(filtered)-1
		connector := "├── "
		nextPrefix := prefix + "│   "
		if last {
			connector = "└── "
			nextPrefix = prefix + "    "
		}
		line := item.Name()
		if item.IsDir() {
			line += "/"
		} else if opts.ShowSize {
			if info, err := item.Info(); err == nil {
				line += fmt.Sprintf(" (%d bytes)", info.Size())
			}
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(line)
		b.WriteString("\n")
		if item.IsDir() {
			renderTree(b, filepath.Join(dir, item.Name()), nextPrefix, depth+1, opts)
		}
	}
}

// Find walks root looking for entries matching pattern (glob or
// substring), returning absolute paths. Per spec.md §4.6 this prefers an
// external backend when present; since the sandboxed environment this
// server runs in cannot assume ripgrep/ag are installed, Find always
// uses the portable filepath.WalkDir implementation directly rather than
// shelling out — the external-backend cascade is reserved for
// searchengine's content search, where no stdlib equivalent exists.
func (f *FS) Find(root, pattern string, dirsOnly, filesOnly bool) ([]string, error) {
	if err := f.checkPath("fs.find", root); err != nil {
		return nil, err
	}

	var matches []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path != root && noiseDirectories[d.Name()] {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if dirsOnly && !d.IsDir() {
			return nil
		}
		if filesOnly && d.IsDir() {
			return nil
		}
		if matchesPattern(d.Name(), pattern) {
			matches = append(matches, path)
		}
		return nil
	})
	if err != nil {
		return nil, mcperr.Wrap("fs.find", mcperr.ErrExternal, err)
	}
	return matches, nil
}

func matchesPattern(name, pattern string) bool {
	if pattern == "" {
		return true
	}
	if ok, _ := filepath.Match(pattern, name); ok {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// Info describes metadata about a path (spec.md §4.6).
type Info struct {
	Size          int64
	IsDir         bool
	ModTime       time.Time
	Mode          os.FileMode
	SymlinkTarget string
}

// Stat returns metadata for path.
func (f *FS) Stat(path string) (*Info, error) {
	if err := f.checkPath("fs.info", path); err != nil {
		return nil, err
	}
	info, err := os.Lstat(path)
	if err != nil {
		return nil, mcperr.New("fs.info", mcperr.ErrNotFound).With("target", path)
	}

	result := &Info{
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
	}
	if info.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(path); err == nil {
			result.SymlinkTarget = target
		}
	}
	return result, nil
}
