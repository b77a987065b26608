package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// desktopServerEntry is one entry of a Claude-Desktop-style
// "mcpServers" map: the command and argument vector the host spawns to
// start this server.
type desktopServerEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// installDesktopConfig registers this binary under name in the desktop
// host's well-known config file, merging into whatever "mcpServers"
// entries already exist rather than clobbering the file. Per spec.md
// §6 this is a thin, self-contained stub: it writes one file and
// returns, with no further desktop-host integration.
func installDesktopConfig(name, binPath string, allowedPaths []string) (string, error) {
	path, err := desktopConfigPath()
	if err != nil {
		return "", err
	}

	doc := make(map[string]json.RawMessage)
	if raw, readErr := os.ReadFile(path); readErr == nil {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return "", fmt.Errorf("hanzo-mcp: %s is not valid JSON: %w", path, err)
		}
	}

	servers := make(map[string]desktopServerEntry)
	if raw, ok := doc["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			return "", fmt.Errorf("hanzo-mcp: %s has an unexpected mcpServers shape: %w", path, err)
		}
	}

	args := []string{"serve"}
	for _, p := range allowedPaths {
		args = append(args, "--allow", p)
	}
	servers[name] = desktopServerEntry{Command: binPath, Args: args}

	serversRaw, err := json.Marshal(servers)
	if err != nil {
		return "", fmt.Errorf("hanzo-mcp: marshal mcpServers: %w", err)
	}
	doc["mcpServers"] = serversRaw

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("hanzo-mcp: marshal %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("hanzo-mcp: create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("hanzo-mcp: write %s: %w", path, err)
	}
	return path, nil
}

// desktopConfigPath returns the well-known Claude Desktop config
// location for the current platform.
func desktopConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("hanzo-mcp: resolve home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	}
}
