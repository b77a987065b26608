package main

import (
	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/prompt"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
)

// systemPromptURI is the stable resource URI spec.md §4.2 names for the
// system prompt assembler's output.
const systemPromptURI = "hanzo://system-prompt"

// promptResources adapts prompt.Assembler to dispatcher.ResourceProvider,
// exposing the single system-prompt resource over resources/list and
// resources/read. The assembler itself stays a pure function of the
// filesystem and registry state; this adapter just gives it a URI.
type promptResources struct {
	assembler *prompt.Assembler
}

func (p *promptResources) List() []protocol.ResourceDescriptor {
	return []protocol.ResourceDescriptor{
		{
			URI:         systemPromptURI,
			Name:        "System Prompt",
			Description: "Environment, git state, project type, and tool inventory.",
			MimeType:    "text/plain",
		},
	}
}

func (p *promptResources) Read(uri string) (*protocol.ResourceContent, error) {
	if uri != systemPromptURI {
		return nil, mcperr.New("resources.read", mcperr.ErrNotFound).With("target", uri)
	}
	return &protocol.ResourceContent{
		URI:      systemPromptURI,
		MimeType: "text/plain",
		Text:     p.assembler.Build(),
	}, nil
}
