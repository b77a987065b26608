// Package transport implements the stdio JSON-RPC framing of spec.md §4.1:
// one JSON value per line on stdin, one JSON value per line on stdout,
// with stdout reserved exclusively for protocol bytes. All diagnostic
// output goes to stderr via the logging package instead.
package transport

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hanzoai/hanzo-mcp/internal/protocol"
)

// maxLineBytes bounds a single incoming line, generous enough for large
// tool-call argument payloads (e.g. multi-edit batches) while still
// guarding against unbounded memory growth from a malformed client.
const maxLineBytes = 16 * 1024 * 1024

// Transport reads JSON-RPC requests and writes JSON-RPC responses over a
// line-delimited stdio-shaped stream. Writes are safe for concurrent use;
// reads are not synchronized and come from a single reader loop. A single
// Transport is shared by the dispatcher's worker pool, one goroutine per
// accepted request.
type Transport struct {
	scanner *bufio.Scanner

	writeMu sync.Mutex
	out     io.Writer
}

// New wraps in/out (typically os.Stdin/os.Stdout) as a line-delimited
// JSON-RPC transport.
func New(in io.Reader, out io.Writer) *Transport {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Transport{scanner: scanner, out: out}
}

// ReadRequest blocks for the next non-blank input line and decodes it as
// a JSON-RPC request. It returns io.EOF when the input stream is closed,
// and a parse error (never a panic) for malformed JSON — the caller is
// expected to reply with a CodeParseError response and keep reading.
func (t *Transport) ReadRequest() (*protocol.Request, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		line = trimBOMAndSpace(line)
		if len(line) == 0 {
			continue
		}
		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			return nil, &ParseError{Raw: append([]byte(nil), line...), Cause: err}
		}
		return &req, nil
	}
	if err := t.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

// WriteResponse serializes resp as a single line terminated with '\n'.
// Writes are serialized with a mutex: multiple dispatcher goroutines may
// complete concurrently and each must emit one atomic, uninterrupted
// line on stdout.
func (t *Transport) WriteResponse(resp *protocol.Response) error {
	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("transport: marshal response: %w", err)
	}
	body = append(body, '\n')

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.out.Write(body)
	return err
}

// trimBOMAndSpace strips a leading UTF-8 byte-order mark (some clients
// prepend one on the first line) and surrounding whitespace.
func trimBOMAndSpace(line []byte) []byte {
	const bom0, bom1, bom2 = 0xEF, 0xBB, 0xBF
	if len(line) >= 3 && line[0] == bom0 && line[1] == bom1 && line[2] == bom2 {
		line = line[3:]
	}
	start, end := 0, len(line)
	for start < end && isSpace(line[start]) {
		start++
	}
	for end > start && isSpace(line[end-1]) {
		end--
	}
	return line[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

// ParseError is returned by ReadRequest when a line is not valid JSON.
// The transport keeps reading subsequent lines; it is the dispatcher's
// job to turn this into a CodeParseError JSON-RPC error response.
type ParseError struct {
	Raw   []byte
	Cause error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("transport: invalid JSON-RPC line: %v", e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }
