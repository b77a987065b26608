// Command hanzo-mcp is the MCP tool-server binary: it wires the
// permission, registry, and engine packages under internal/ into a
// long-lived stdio JSON-RPC process per spec.md §6.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hanzoai/hanzo-mcp/internal/config"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	flagAllowedPaths  []string
	flagServerName    string
	flagLogLevel      string
	flagDisableWrites bool
	flagDisableSearch bool
	flagEnableAgent   bool
	flagShellTimeout  time.Duration
	flagConfigFile    string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "hanzo-mcp",
		Short:   "MCP tool server exposing filesystem, search, shell, and process tools",
		Version: version,
		// serve is the default command: running the binary with no
		// subcommand starts the stdio transport, per spec.md §6.
		RunE: runServe,
	}

	// --allow is intentionally not named after the koanf "allowed_paths"
	// tag: loadConfig merges it in after config.Load rather than letting
	// posflag map it automatically, since an empty, unchanged repeatable
	// flag would otherwise be indistinguishable from "explicitly set to
	// nothing" and could blank out roots set via HANZO_ALLOWED_PATHS or
	// the YAML file.
	root.PersistentFlags().StringArrayVar(&flagAllowedPaths, "allow", nil, "absolute directory root permitted for filesystem/shell operations (repeatable)")
	root.PersistentFlags().StringVar(&flagServerName, "name", "hanzo-mcp", "server display name reported in the initialize handshake")
	root.PersistentFlags().StringVar(&flagLogLevel, "log_level", "info", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&flagDisableWrites, "disable_writes", false, "disable write/edit/multi_edit tools")
	root.PersistentFlags().BoolVar(&flagDisableSearch, "disable_search", false, "disable grep/git_history_search tools")
	root.PersistentFlags().BoolVar(&flagEnableAgent, "enable_agent", false, "enable the delegate_task agent tool")
	root.PersistentFlags().DurationVar(&flagShellTimeout, "shell_timeout", 30*time.Second, "shell timeout config value, e.g. 30s (must be positive; run_command does not read it and defaults to 30s)")
	root.PersistentFlags().StringVar(&flagConfigFile, "config", "", "path to a YAML config file (default ~/.config/hanzo-mcp/config.yaml)")

	root.AddCommand(serveCmd(), listToolsCmd(), installDesktopCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the stdio JSON-RPC transport (default command)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(cfg.AllowedPaths) == 0 {
		return fmt.Errorf("hanzo-mcp: at least one --allow root is required")
	}
	return serve(cfg, flagServerName, version)
}

func listToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-tools",
		Short: "Enumerate every tool this configuration would register and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(cfg.AllowedPaths) == 0 {
				// list-tools has no filesystem root requirement in practice,
				// but buildRegistry needs at least one to construct the
				// permission manager every engine requires.
				cfg.AllowedPaths = []string{mustGetwd()}
			}
			return runListTools(cfg)
		},
	}
}

func installDesktopCmd() *cobra.Command {
	var binPath string
	cmd := &cobra.Command{
		Use:   "install-desktop",
		Short: "Register this binary as an MCP server in the desktop host's config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if binPath == "" {
				binPath, err = os.Executable()
				if err != nil {
					return fmt.Errorf("hanzo-mcp: resolve executable path: %w", err)
				}
			}
			path, err := installDesktopConfig(flagServerName, binPath, cfg.AllowedPaths)
			if err != nil {
				return err
			}
			log.Printf("hanzo-mcp: registered %q in %s", flagServerName, path)
			return nil
		},
	}
	cmd.Flags().StringVar(&binPath, "bin-path", "", "path to this binary (default: the running executable)")
	return cmd
}

// loadConfig merges the process's flags, environment, and optional YAML
// file into a validated config.Config, per internal/config's precedence.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), flagConfigFile)
	if err != nil {
		return nil, err
	}
	if len(flagAllowedPaths) > 0 {
		cfg.AllowedPaths = flagAllowedPaths
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
