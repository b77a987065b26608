// Package dispatcher implements the JSON-RPC router of spec.md §4.2: it
// turns each decoded request into a method call, running tools/call
// handlers concurrently under a bounded worker pool while the transport's
// read loop keeps pulling the next line off stdin.
package dispatcher

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/hanzoai/hanzo-mcp/internal/logging"
	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
)

// Responder is the subset of transport.Transport the dispatcher needs: a
// way to emit a response line. Accepting the interface rather than the
// concrete type keeps this package transport-agnostic and easy to test.
type Responder interface {
	WriteResponse(*protocol.Response) error
}

// ServerInfo names the server for the initialize handshake.
type ServerInfo struct {
	Name    string
	Version string
}

// ResourceProvider supplies the resources/list and resources/read results;
// most deployments have none and pass a nil provider, in which case the
// dispatcher answers with an empty resource list and not-found reads.
type ResourceProvider interface {
	List() []protocol.ResourceDescriptor
	Read(uri string) (*protocol.ResourceContent, error)
}

// Dispatcher routes decoded requests to handlers and writes responses.
// tools/call invocations run on a bounded worker pool so a slow tool
// cannot stall unrelated in-flight calls; every other method is answered
// inline since it never blocks on external work.
type Dispatcher struct {
	registry  *registry.Registry
	resources ResourceProvider
	info      ServerInfo
	logger    *zap.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// Option configures a Dispatcher at construction time.
type Option func(*Dispatcher)

// WithResourceProvider installs a resources/list and resources/read
// backend. Without one, both methods answer as if no resources exist.
func WithResourceProvider(p ResourceProvider) Option {
	return func(d *Dispatcher) { d.resources = p }
}

// WithLogger installs a zap logger for handler-failure diagnostics, all
// of which go to stderr per spec.md §4.15 and never to stdout.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New builds a Dispatcher over reg, allowing up to maxConcurrent
// simultaneous tools/call executions.
func New(reg *registry.Registry, info ServerInfo, maxConcurrent int64, opts ...Option) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	d := &Dispatcher{
		registry: reg,
		info:     info,
		logger:   zap.NewNop(),
		sem:      semaphore.NewWeighted(maxConcurrent),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch routes a single decoded request to its handler and writes the
// resulting response via out. tools/call requests are handed to a
// goroutine bounded by the worker semaphore; every other method is
// answered synchronously, since Dispatch itself may be called
// concurrently by the caller's read loop without further buffering.
//
// Dispatch never blocks the caller on a slow tool: it only blocks
// acquiring a worker slot, which is itself bounded by ctx's cancellation.
func (d *Dispatcher) Dispatch(ctx context.Context, req *protocol.Request, out Responder) {
	if req.IsNotification() {
		d.handleNotification(ctx, req)
		return
	}

	if req.JSONRPC != protocol.Version {
		d.reply(out, req.ID, protocol.NewErrorResponse(req.ID, protocol.CodeInvalidRequest, "invalid jsonrpc version", nil))
		return
	}

	switch req.Method {
	case "initialize":
		d.reply(out, req.ID, d.handleInitialize(req))
	case "tools/list":
		d.reply(out, req.ID, d.handleToolsList(req))
	case "resources/list":
		d.reply(out, req.ID, d.handleResourcesList(req))
	case "resources/read":
		d.reply(out, req.ID, d.handleResourcesRead(req))
	case "tools/call":
		d.dispatchToolsCall(ctx, req, out)
	default:
		d.reply(out, req.ID, protocol.NewErrorResponse(req.ID, protocol.CodeMethodNotFound, "method not found: "+req.Method, nil))
	}
}

// Wait blocks until every in-flight tools/call goroutine has finished,
// for use during graceful shutdown on stdin EOF.
func (d *Dispatcher) Wait() { d.wg.Wait() }

func (d *Dispatcher) handleNotification(ctx context.Context, req *protocol.Request) {
	// Notifications (no id) are accepted and never answered, per JSON-RPC
	// 2.0. Nothing in this server's method set currently needs to react
	// to one, so it is simply dropped.
}

func (d *Dispatcher) reply(out Responder, id json.RawMessage, resp *protocol.Response) {
	if err := out.WriteResponse(resp); err != nil {
		d.logger.Error("failed to write response", zap.Error(err))
	}
}

func (d *Dispatcher) handleInitialize(req *protocol.Request) *protocol.Response {
	result := protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion,
		ServerInfo:      protocol.ServerInfo{Name: d.info.Name, Version: d.info.Version},
		Capabilities: protocol.ServerCapabilities{
			Tools:     map[string]any{},
			Resources: map[string]any{},
		},
	}
	return protocol.NewResponse(req.ID, result)
}

func (d *Dispatcher) handleToolsList(req *protocol.Request) *protocol.Response {
	descriptors := d.registry.ListEnabled()
	views := make([]protocol.ToolDescriptorView, 0, len(descriptors))
	for _, desc := range descriptors {
		views = append(views, desc.View())
	}
	return protocol.NewResponse(req.ID, protocol.ToolsListResult{Tools: views})
}

func (d *Dispatcher) handleResourcesList(req *protocol.Request) *protocol.Response {
	var resources []protocol.ResourceDescriptor
	if d.resources != nil {
		resources = d.resources.List()
	}
	return protocol.NewResponse(req.ID, protocol.ResourcesListResult{Resources: resources})
}

func (d *Dispatcher) handleResourcesRead(req *protocol.Request) *protocol.Response {
	var params protocol.ResourcesReadParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.CodeInvalidParams, "invalid resources/read params", err.Error())
	}
	if d.resources == nil {
		return protocol.NewErrorResponse(req.ID, protocol.CodeInvalidParams, "resource not found: "+params.URI, nil)
	}
	content, err := d.resources.Read(params.URI)
	if err != nil {
		return protocol.NewErrorResponse(req.ID, protocol.CodeInvalidParams, "resource not found: "+params.URI, nil)
	}
	return protocol.NewResponse(req.ID, protocol.ResourcesReadResult{Contents: []protocol.ResourceContent{*content}})
}

func (d *Dispatcher) dispatchToolsCall(ctx context.Context, req *protocol.Request, out Responder) {
	var params protocol.ToolsCallParams
	if req.Params == nil || json.Unmarshal(req.Params, &params) != nil {
		d.reply(out, req.ID, protocol.NewErrorResponse(req.ID, protocol.CodeInvalidParams, "invalid tools/call params", nil))
		return
	}
	if params.Name == "" {
		d.reply(out, req.ID, protocol.NewErrorResponse(req.ID, protocol.CodeInvalidParams, "tool name is required", nil))
		return
	}

	if err := d.sem.Acquire(ctx, 1); err != nil {
		d.reply(out, req.ID, protocol.NewErrorResponse(req.ID, protocol.CodeInternalError, "server shutting down", nil))
		return
	}

	traceID := requestTraceID(req.ID)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer d.sem.Release(1)
		d.reply(out, req.ID, d.invoke(ctx, req.ID, traceID, params))
	}()
}

// requestTraceID returns a correlation id for logging: the client-supplied
// id as-is, or a generated one for an empty or null id. Dispatch handles
// requests without an id as notifications before tools/call routing, so
// the generated fallback is not reached from there.
func requestTraceID(id json.RawMessage) string {
	trimmed := string(id)
	if trimmed == "" || trimmed == "null" {
		return uuid.New().String()
	}
	return trimmed
}

func (d *Dispatcher) invoke(ctx context.Context, id json.RawMessage, traceID string, params protocol.ToolsCallParams) *protocol.Response {
	desc, err := d.registry.Get(params.Name)
	if err != nil {
		return protocol.NewResponse(id, protocol.Errorf("tool not found: %s", params.Name))
	}
	enabled, _ := d.registry.IsEnabled(params.Name)
	if !enabled {
		return protocol.NewResponse(id, protocol.Errorf("tool %q is disabled", params.Name))
	}

	start := time.Now()
	result := d.runHandler(desc.Handler, params.Arguments)
	logging.WithToolContext(d.logger, traceID, params.Name).Debug("tool invocation complete",
		zap.Duration("duration", time.Since(start)),
		zap.Bool("isError", result.IsError),
	)
	return protocol.NewResponse(id, result)
}

// runHandler invokes h, converting a panic into a failed ToolResult so a
// single misbehaving tool cannot take down the server (spec.md §3:
// handlers never throw past the dispatcher).
func (d *Dispatcher) runHandler(h registry.Handler, args map[string]any) (result protocol.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("tool handler panicked", zap.Any("recover", r))
			result = protocol.Errorf("%s", mcperr.New("dispatch", mcperr.ErrInternal).Message())
		}
	}()
	return h(args)
}
