package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hanzoai/hanzo-mcp/internal/config"
	"github.com/hanzoai/hanzo-mcp/internal/logging"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
)

// toolListing is the JSON shape list-tools prints to stdout. Unlike
// serve, this is the one place a non-protocol write to stdout is
// correct: it is a diagnostic CLI command, not a running JSON-RPC
// session, so there is no framing invariant to protect.
type toolListing struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Category    registry.Category `json:"category"`
	Enabled     bool              `json:"enabled"`
}

func runListTools(cfg *config.Config) error {
	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	reg, _, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}

	descs := reg.ListAll()
	out := make([]toolListing, 0, len(descs))
	for _, d := range descs {
		enabled, _ := reg.IsEnabled(d.Name)
		out = append(out, toolListing{
			Name:        d.Name,
			Description: d.Description,
			Category:    d.Category,
			Enabled:     enabled,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("hanzo-mcp: encode tool listing: %w", err)
	}
	return nil
}
