package main

import (
	"context"

	"github.com/hanzoai/hanzo-mcp/internal/agent"
)

// passthroughBrain is the delegate_task reasoning backend used when no
// model provider is wired in: spec.md's non-goals put LLM provider SDKs
// out of scope for this module, so the delegator still needs a concrete
// agent.Brain to construct. It finishes on the very first Decide call
// instead of attempting any tool use, reporting that a real reasoning
// backend was never configured.
type passthroughBrain struct{}

func (passthroughBrain) Decide(ctx context.Context, task, model string, history []agent.Transcript) (agent.Step, error) {
	return agent.Step{
		Done:   true,
		Output: "no reasoning backend is configured for delegate_task; received task: " + task,
	}, nil
}
