package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hanzoai/hanzo-mcp/internal/agent"
	"github.com/hanzoai/hanzo-mcp/internal/config"
	"github.com/hanzoai/hanzo-mcp/internal/dispatcher"
	"github.com/hanzoai/hanzo-mcp/internal/editengine"
	"github.com/hanzoai/hanzo-mcp/internal/fsutil"
	"github.com/hanzoai/hanzo-mcp/internal/logging"
	"github.com/hanzoai/hanzo-mcp/internal/metrics"
	"github.com/hanzoai/hanzo-mcp/internal/permission"
	"github.com/hanzoai/hanzo-mcp/internal/procsup"
	"github.com/hanzoai/hanzo-mcp/internal/prompt"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
	"github.com/hanzoai/hanzo-mcp/internal/searchengine"
	"github.com/hanzoai/hanzo-mcp/internal/shellrun"
	"github.com/hanzoai/hanzo-mcp/internal/tools"
	"github.com/hanzoai/hanzo-mcp/internal/transport"
)

// shutdownGrace bounds how long the dispatcher's in-flight worker pool
// gets to finish after stdin closes, per spec.md §4.2's 5-30s window.
const shutdownGrace = 10 * time.Second

// writeToolNames are disabled by --disable_writes: every tool that
// mutates the filesystem. Process and shell tools are left alone — the
// flag's scope per spec.md §6 is "write/edit/create/delete tools".
var writeToolNames = []string{"write", "edit", "multi_edit"}

// searchToolNames are disabled by --disable_search.
var searchToolNames = []string{"grep", "git_history_search"}

// buildRegistry wires every engine and registers the full tool set,
// applying the disable-writes/disable-search/enable-agent toggles. It is
// shared by the serve and list-tools subcommands so both see the exact
// same catalog.
func buildRegistry(cfg *config.Config, logger *zap.Logger) (*registry.Registry, *metrics.Metrics, error) {
	perm, err := permission.New(cfg.AllowedPaths, permission.WithOwnDataDir(ownDataDir()))
	if err != nil {
		return nil, nil, err
	}

	m := metrics.New()
	deps := tools.Deps{
		FS:      fsutil.New(perm),
		Edit:    editengine.New(perm),
		Search:  searchengine.New(perm),
		Shell:   shellrun.New(perm, cfg.MaxShellTimeout),
		Proc:    procsup.New(perm),
		Metrics: m,
	}
	if cfg.EnableAgent {
		deps.Agent = agent.New(passthroughBrain{}, agent.WithLogger(logger))
	}

	reg := registry.New()
	if err := tools.RegisterAll(reg, deps); err != nil {
		return nil, nil, err
	}

	if cfg.DisableWrites {
		for _, name := range writeToolNames {
			if err := reg.Disable(name); err != nil {
				logger.Warn("failed to disable write tool", zap.String("tool", name), zap.Error(err))
			}
		}
	}
	if cfg.DisableSearch {
		for _, name := range searchToolNames {
			if err := reg.Disable(name); err != nil {
				logger.Warn("failed to disable search tool", zap.String("tool", name), zap.Error(err))
			}
		}
	}

	return reg, m, nil
}

// ownDataDir is the server's own configuration directory, placed on the
// permission deny-list by default per spec.md §3.
func ownDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + "/.config/hanzo-mcp"
}

// serve runs the stdio JSON-RPC loop until stdin closes or the process
// receives an interrupt, per spec.md §4.1-§4.2.
func serve(cfg *config.Config, serverName, serverVersion string) error {
	logger := logging.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()

	reg, _, err := buildRegistry(cfg, logger)
	if err != nil {
		return err
	}

	assembler := prompt.New(reg, cfg.AllowedPaths, nil)
	resources := &promptResources{assembler: assembler}

	tp := transport.New(os.Stdin, os.Stdout)
	disp := dispatcher.New(
		reg,
		dispatcher.ServerInfo{Name: serverName, Version: serverVersion},
		cfg.MaxConcurrentOps,
		dispatcher.WithLogger(logger),
		dispatcher.WithResourceProvider(resources),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		if _, ok := <-sigCh; ok {
			logger.Info("received shutdown signal")
			cancel()
		}
	}()

	logger.Info("hanzo-mcp serving",
		zap.String("name", serverName),
		zap.String("version", serverVersion),
		zap.Strings("allowed_paths", cfg.AllowedPaths),
		zap.Bool("disable_writes", cfg.DisableWrites),
		zap.Bool("disable_search", cfg.DisableSearch),
		zap.Bool("enable_agent", cfg.EnableAgent),
	)

readLoop:
	for {
		select {
		case <-ctx.Done():
			break readLoop
		default:
		}

		req, readErr := tp.ReadRequest()
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break readLoop
			}
			var parseErr *transport.ParseError
			if errors.As(readErr, &parseErr) {
				resp := protocol.NewErrorResponse(json.RawMessage("null"), protocol.CodeParseError, "parse error", parseErr.Error())
				if writeErr := tp.WriteResponse(resp); writeErr != nil {
					logger.Error("failed to write parse-error response", zap.Error(writeErr))
				}
				continue
			}
			logger.Error("transport read failed", zap.Error(readErr))
			break readLoop
		}

		disp.Dispatch(ctx, req, tp)
	}

	waitDone := make(chan struct{})
	go func() {
		disp.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownGrace):
		logger.Warn("shutdown grace period expired; exiting with handlers still in flight")
	}

	logger.Info("hanzo-mcp shut down")
	return nil
}
