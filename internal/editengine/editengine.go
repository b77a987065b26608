// Package editengine implements the single- and multi-edit tools of
// spec.md §4.7: exact-literal text replacement with a unique-match
// invariant, and an all-or-nothing batch variant.
package editengine

import (
	"strings"

	"github.com/hanzoai/hanzo-mcp/internal/fsutil"
	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
)

// Edit is one oldText/newText replacement in a multi-edit batch.
type Edit struct {
	OldText string
	NewText string
}

// Engine applies literal text edits to permitted files, atomically.
type Engine struct {
	perm *permission.Manager
}

// New builds an Engine bound to perm.
func New(perm *permission.Manager) *Engine {
	return &Engine{perm: perm}
}

// Single applies one oldText → newText replacement. If replaceAll is
// false, the match must be unique: zero occurrences fails as not-found,
// two or more fails as ambiguous. If replaceAll is true, every
// occurrence is replaced, including the zero-occurrence case, which
// succeeds as a no-op write — the caller opted into "replace all,
// however many there are."
func (e *Engine) Single(path, oldText, newText string, replaceAll bool) error {
	if oldText == "" {
		return mcperr.New("edit.single", mcperr.ErrValidation).With("field", "oldText").With("reason", "must be non-empty")
	}
	if !e.perm.IsPathAllowed(path) {
		return mcperr.New("edit.single", mcperr.ErrPermission).With("path", path)
	}

	content, err := e.readCurrent(path)
	if err != nil {
		return err
	}

	newContent, err := applyOne(content, oldText, newText, replaceAll)
	if err != nil {
		return err
	}
	return fsutil.New(e.perm).Write(path, newContent)
}

// Multi applies an ordered batch of edits, each against the running
// content produced by the previous one. Any uniqueness failure aborts
// the whole batch: no edit in the batch is written to disk.
func (e *Engine) Multi(path string, edits []Edit) error {
	if len(edits) == 0 {
		return mcperr.New("edit.multi", mcperr.ErrValidation).With("field", "edits").With("reason", "must be non-empty")
	}
	if !e.perm.IsPathAllowed(path) {
		return mcperr.New("edit.multi", mcperr.ErrPermission).With("path", path)
	}

	content, err := e.readCurrent(path)
	if err != nil {
		return err
	}

	running := content
	for i, edit := range edits {
		if edit.OldText == "" {
			return mcperr.New("edit.multi", mcperr.ErrValidation).With("field", "oldText").With("reason", "must be non-empty").With("index", i)
		}
		next, err := applyOne(running, edit.OldText, edit.NewText, false)
		if err != nil {
			return err
		}
		running = next
	}

	return fsutil.New(e.perm).Write(path, running)
}

func applyOne(content, oldText, newText string, replaceAll bool) (string, error) {
	if replaceAll {
		return strings.ReplaceAll(content, oldText, newText), nil
	}

	count := strings.Count(content, oldText)
	switch {
	case count == 0:
		return "", mcperr.New("edit", mcperr.ErrNotFound).With("target", "oldText")
	case count > 1:
		return "", mcperr.New("edit", mcperr.ErrConflict).With("count", count)
	default:
		return strings.Replace(content, oldText, newText, 1), nil
	}
}

// readCurrent goes through fsutil rather than os directly, so edits read
// a file with the same encoding-detection behavior as the read tool and
// reject binary files the same way.
func (e *Engine) readCurrent(path string) (string, error) {
	result, err := fsutil.New(e.perm).Read(path, 0, 0)
	if err != nil {
		return "", err
	}
	if result.Binary {
		return "", mcperr.New("edit", mcperr.ErrValidation).With("field", "path").With("reason", "cannot edit a binary file")
	}
	return result.Text, nil
}
