package mcperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	err := New("read", ErrPermission).With("path", "/etc/passwd")
	require.True(t, errors.Is(err, ErrPermission))
	require.False(t, errors.Is(err, ErrNotFound))
}

func TestMessagePermission(t *testing.T) {
	err := New("read", ErrPermission).With("path", "/etc/passwd")
	require.Contains(t, err.Message(), "/etc/passwd")
}

func TestMessageConflictCount(t *testing.T) {
	err := New("edit", ErrConflict).With("count", 2)
	require.Contains(t, err.Message(), "2")
}

func TestMessageTimeout(t *testing.T) {
	err := New("run_command", ErrTimeout).With("timeout_ms", 200)
	require.Contains(t, err.Message(), "200")
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap("write", ErrInternal, cause)
	require.ErrorIs(t, err, cause)
}
