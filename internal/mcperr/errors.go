// Package mcperr implements the error taxonomy of spec.md §7: a small set
// of sentinel kinds, a domain error that carries enough context to build a
// tool-result diagnostic, and helpers that turn one into a
// protocol.ToolResult without ever letting it escape as a JSON-RPC error.
package mcperr

import (
	"errors"
	"fmt"
)

// Sentinel kinds, one per row of spec.md §7's taxonomy table (excluding
// the two rows — transport parse error and protocol error — that stay
// JSON-RPC errors and never become tool results).
var (
	ErrValidation = errors.New("validation error")
	ErrPermission = errors.New("permission denied")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrTimeout    = errors.New("timeout")
	ErrExternal   = errors.New("external failure")
	ErrInternal   = errors.New("internal error")
)

// Error wraps a sentinel kind with the operation and resource context
// needed to render a human-readable tool-result message. Modeled on the
// pack's domain-error pattern: a Kind for errors.Is, an optional wrapped
// Err, and free-form Context for the details a diagnostic needs.
type Error struct {
	Op      string
	Kind    error
	Err     error
	Context map[string]any
}

// New creates an Error of the given kind for operation op.
func New(op string, kind error) *Error {
	return &Error{Op: op, Kind: kind, Context: map[string]any{}}
}

// Wrap creates an Error of the given kind wrapping an underlying error.
func Wrap(op string, kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err, Context: map[string]any{}}
}

// With attaches a context key/value and returns the error for chaining.
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether this error matches target, checking both the
// sentinel Kind and the wrapped cause.
func (e *Error) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// Message renders a one-line, human-readable diagnostic for the tool
// result content. Every spec.md §7 row that mentions specific data
// ("the attempted path", "the count or the conflicting id", "the cap
// value", "backend stderr excerpt") threads that value through Context
// under the matching key.
func (e *Error) Message() string {
	switch {
	case errors.Is(e.Kind, ErrPermission):
		if p, ok := e.Context["path"]; ok {
			return fmt.Sprintf("permission denied: %v is not permitted", p)
		}
		if c, ok := e.Context["command"]; ok {
			return fmt.Sprintf("permission denied: command %q is not permitted", c)
		}
		return "permission denied"
	case errors.Is(e.Kind, ErrNotFound):
		if t, ok := e.Context["target"]; ok {
			return fmt.Sprintf("not found: %v", t)
		}
		return "not found"
	case errors.Is(e.Kind, ErrConflict):
		if n, ok := e.Context["count"]; ok {
			return fmt.Sprintf("ambiguous (%v matches); add more context", n)
		}
		if id, ok := e.Context["id"]; ok {
			return fmt.Sprintf("conflict: %v already exists", id)
		}
		return "conflict"
	case errors.Is(e.Kind, ErrTimeout):
		if ms, ok := e.Context["timeout_ms"]; ok {
			return fmt.Sprintf("timed out after %v ms", ms)
		}
		return "timed out"
	case errors.Is(e.Kind, ErrValidation):
		if field, ok := e.Context["field"]; ok {
			reason, _ := e.Context["reason"].(string)
			if reason == "" {
				reason = "invalid value"
			}
			return fmt.Sprintf("validation failed for field %q: %s", field, reason)
		}
		return "validation failed"
	case errors.Is(e.Kind, ErrExternal):
		if excerpt, ok := e.Context["stderr"]; ok {
			return fmt.Sprintf("%s: %v", e.Op, excerpt)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: external failure", e.Op)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Op, e.Err)
		}
		return fmt.Sprintf("%s: internal error", e.Op)
	}
}
