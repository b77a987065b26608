package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanzoai/hanzo-mcp/internal/protocol"
)

func TestReadRequestDecodesLine(t *testing.T) {
	in := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}` + "\n")
	tr := New(in, &bytes.Buffer{})

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, "tools/list", req.Method)
	require.Equal(t, "2.0", req.JSONRPC)
}

func TestReadRequestSkipsBlankLines(t *testing.T) {
	in := strings.NewReader("\n\n" + `{"jsonrpc":"2.0","id":2,"method":"initialize"}` + "\n")
	tr := New(in, &bytes.Buffer{})

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, "initialize", req.Method)
}

func TestReadRequestStripsBOM(t *testing.T) {
	in := bytes.NewReader(append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`+"\n")...))
	tr := New(in, &bytes.Buffer{})

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, "initialize", req.Method)
}

func TestReadRequestReturnsEOFAtStreamEnd(t *testing.T) {
	tr := New(strings.NewReader(""), &bytes.Buffer{})
	_, err := tr.ReadRequest()
	require.ErrorIs(t, err, io.EOF)
}

func TestReadRequestReturnsParseErrorForInvalidJSON(t *testing.T) {
	tr := New(strings.NewReader("not json\n"), &bytes.Buffer{})
	_, err := tr.ReadRequest()
	require.Error(t, err)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestReadRequestContinuesAfterParseError(t *testing.T) {
	in := strings.NewReader("not json\n" + `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n")
	tr := New(in, &bytes.Buffer{})

	_, err := tr.ReadRequest()
	require.Error(t, err)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	require.Equal(t, "initialize", req.Method)
}

func TestWriteResponseEmitsSingleLine(t *testing.T) {
	var buf bytes.Buffer
	tr := New(strings.NewReader(""), &buf)

	id := json.RawMessage(`1`)
	err := tr.WriteResponse(protocol.NewResponse(id, map[string]string{"ok": "true"}))
	require.NoError(t, err)

	out := buf.String()
	require.True(t, strings.HasSuffix(out, "\n"))
	require.Equal(t, 1, strings.Count(out, "\n"))

	var decoded protocol.Response
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSuffix(out, "\n")), &decoded))
	require.Equal(t, "2.0", decoded.JSONRPC)
}
