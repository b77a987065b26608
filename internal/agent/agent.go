// Package agent implements the optional agent delegator of spec.md
// §4.12: a tool that hands a task description off to a constrained
// worker with read-only access to a pre-declared subset of the tool
// registry, bounded by an iteration cap and a total-tool-call cap.
//
// The worker's reasoning step is pluggable through the Brain
// interface: this module owns the delegation mechanics (subset
// selection, caps, sub-worker depth, transcript assembly) and never
// itself talks to a model provider, matching spec.md §7's "LLM provider
// SDKs beyond whatever model id string the agent delegator passes
// through opaquely" non-goal.
package agent

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
)

// allowedToolNames is the pre-declared read-only subset spec.md §4.12
// names: read, list, tree, find, grep (unified search), history search,
// think.
var allowedToolNames = map[string]bool{
	"read":               true,
	"list":               true,
	"tree":               true,
	"find":               true,
	"grep":               true,
	"git_history_search": true,
	"think":              true,
}

const (
	defaultMaxIterations = 10
	defaultMaxToolCalls  = 30
	maxDelegationDepth   = 1
)

// Step is one decision the Brain makes: either invoke a tool, or finish
// the task with a final answer.
type Step struct {
	ToolName string
	ToolArgs map[string]any
	Done     bool
	Output   string
}

// Transcript entry records one executed tool call and its rendered
// result, so the Brain can condition its next Step on prior output.
type Transcript struct {
	ToolName string
	ToolArgs map[string]any
	Result   string
}

// Brain decides the next Step given the task and the transcript so far.
// Implementations are expected to wrap a model call; this package ships
// none, since no model SDK is wired.
type Brain interface {
	Decide(ctx context.Context, task string, model string, history []Transcript) (Step, error)
}

// Request describes one delegate_task invocation.
type Request struct {
	Task  string
	Model string
	// Depth is the caller's own delegation depth; a top-level call
	// passes 0. A worker that is itself inside a delegated run passes
	// its own depth+1, enforcing the single-level sub-worker cap.
	Depth int
}

// Delegator runs a capped tool-use loop over a constrained view of a
// parent registry.
type Delegator struct {
	brain         Brain
	logger        *zap.Logger
	maxIterations int
	maxToolCalls  int
}

// Option configures a Delegator at construction time.
type Option func(*Delegator)

// WithMaxIterations overrides the default iteration cap (10).
func WithMaxIterations(n int) Option {
	return func(d *Delegator) { d.maxIterations = n }
}

// WithMaxToolCalls overrides the default total-tool-call cap (30).
func WithMaxToolCalls(n int) Option {
	return func(d *Delegator) { d.maxToolCalls = n }
}

// WithLogger installs a zap logger. Every Run gets its own generated
// worker id so concurrent delegate_task calls can be told apart in the
// log stream, since nothing about a sub-worker is otherwise
// client-addressable.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Delegator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New builds a Delegator that asks brain for each decision.
func New(brain Brain, opts ...Option) *Delegator {
	d := &Delegator{brain: brain, logger: zap.NewNop(), maxIterations: defaultMaxIterations, maxToolCalls: defaultMaxToolCalls}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subset builds the constrained, read-only registry view a worker may
// call into: every descriptor from parent whose name is in the
// pre-declared allow-list, re-registered into a fresh Registry so the
// worker can never see or toggle anything else.
func Subset(parent *registry.Registry) (*registry.Registry, error) {
	sub := registry.New()
	for _, d := range parent.ListAll() {
		if !allowedToolNames[d.Name] {
			continue
		}
		clone := *d
		if err := sub.Register(&clone); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// Run executes req against tools, iterating the Brain until it signals
// Done, or either cap is hit. The collected tool outputs and the
// Brain's final answer are joined into a single text result, per
// spec.md §4.12's "Worker output is collected and returned as a single
// text content part."
func (d *Delegator) Run(ctx context.Context, req Request, tools *registry.Registry) (string, error) {
	if req.Task == "" {
		return "", mcperr.New("agent.run", mcperr.ErrValidation).With("field", "task").With("reason", "must be non-empty")
	}
	if req.Depth > maxDelegationDepth {
		return "", mcperr.New("agent.run", mcperr.ErrPermission).With("reason", "sub-workers may not spawn further sub-workers")
	}

	workerID := uuid.New().String()
	logger := d.logger.With(zap.String("worker_id", workerID), zap.Int("depth", req.Depth))
	logger.Debug("sub-worker started", zap.String("task", req.Task))

	var history []Transcript
	toolCalls := 0

	for iteration := 0; iteration < d.maxIterations; iteration++ {
		step, err := d.brain.Decide(ctx, req.Task, req.Model, history)
		if err != nil {
			return "", mcperr.Wrap("agent.run", mcperr.ErrExternal, err)
		}
		if step.Done {
			logger.Debug("sub-worker finished", zap.Int("tool_calls", toolCalls), zap.Int("iterations", iteration+1))
			return renderTranscript(history, step.Output), nil
		}

		if toolCalls >= d.maxToolCalls {
			logger.Debug("sub-worker tool call budget exhausted", zap.Int("tool_calls", toolCalls))
			return renderTranscript(history, "tool call budget exhausted"), nil
		}

		desc, err := tools.Get(step.ToolName)
		if err != nil || !allowedToolNames[step.ToolName] {
			history = append(history, Transcript{ToolName: step.ToolName, ToolArgs: step.ToolArgs, Result: "tool not permitted in this worker"})
			continue
		}
		result := desc.Handler(step.ToolArgs)
		toolCalls++
		history = append(history, Transcript{ToolName: step.ToolName, ToolArgs: step.ToolArgs, Result: renderResult(result)})
	}

	logger.Debug("sub-worker iteration budget exhausted", zap.Int("tool_calls", toolCalls))
	return renderTranscript(history, "iteration budget exhausted"), nil
}

func renderResult(result protocol.ToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if c.Type == protocol.ContentText {
			parts = append(parts, c.Text)
		}
	}
	if result.IsError {
		return "error: " + strings.Join(parts, " ")
	}
	return strings.Join(parts, " ")
}

func renderTranscript(history []Transcript, finalAnswer string) string {
	var b strings.Builder
	for _, entry := range history {
		b.WriteString(entry.ToolName)
		b.WriteString(": ")
		b.WriteString(entry.Result)
		b.WriteString("\n")
	}
	b.WriteString(finalAnswer)
	return b.String()
}
