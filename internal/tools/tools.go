// Package tools wires every tool descriptor spec.md names (plus the
// supplemental ones SPEC_FULL.md §6 adds) into a registry: each
// handler validates its arguments against a schema, delegates to the
// matching engine, and renders the outcome as a protocol.ToolResult so
// no failure ever escapes the dispatcher as a bare error.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/hanzoai/hanzo-mcp/internal/agent"
	"github.com/hanzoai/hanzo-mcp/internal/editengine"
	"github.com/hanzoai/hanzo-mcp/internal/fsutil"
	"github.com/hanzoai/hanzo-mcp/internal/mcperr"
	"github.com/hanzoai/hanzo-mcp/internal/metrics"
	"github.com/hanzoai/hanzo-mcp/internal/procsup"
	"github.com/hanzoai/hanzo-mcp/internal/protocol"
	"github.com/hanzoai/hanzo-mcp/internal/registry"
	"github.com/hanzoai/hanzo-mcp/internal/schema"
	"github.com/hanzoai/hanzo-mcp/internal/searchengine"
	"github.com/hanzoai/hanzo-mcp/internal/shellrun"
)

// Deps bundles every engine a tool handler may need. Agent is nil when
// the agent delegator is disabled (spec.md §4.12 is optional).
type Deps struct {
	FS      *fsutil.FS
	Edit    *editengine.Engine
	Search  *searchengine.Engine
	Shell   *shellrun.Runner
	Proc    *procsup.Supervisor
	Agent   *agent.Delegator
	Metrics *metrics.Metrics
}

// RegisterAll builds and registers every tool descriptor into reg.
// Registration is all-or-nothing, via registry.RegisterAll.
func RegisterAll(reg *registry.Registry, deps Deps) error {
	descriptors := filesystemTools(deps)
	descriptors = append(descriptors, editTools(deps)...)
	descriptors = append(descriptors, searchTools(deps)...)
	descriptors = append(descriptors, shellTools(deps)...)
	descriptors = append(descriptors, processTools(deps)...)
	descriptors = append(descriptors, registryTools(reg)...)
	descriptors = append(descriptors, thinkTool())
	if deps.Agent != nil {
		descriptors = append(descriptors, agentTools(reg, deps)...)
	}
	return reg.RegisterAll(descriptors)
}

// instrumented wraps a handler with the metrics bookkeeping every tool
// call gets: in-flight gauge, duration histogram, invocation/error
// counters, keyed by tool name.
func instrumented(name string, m *metrics.Metrics, h registry.Handler) registry.Handler {
	if m == nil {
		return h
	}
	return func(args map[string]any) protocol.ToolResult {
		m.IncInFlight()
		defer m.DecInFlight()
		start := time.Now()
		result := h(args)
		m.RecordInvocation(name, time.Since(start), result.IsError)
		return result
	}
}

// validated wraps h so its args are first checked and defaulted against
// s; a failing handler never sees a malformed argument map.
func validated(s *schema.Schema, h registry.Handler) registry.Handler {
	return func(args map[string]any) protocol.ToolResult {
		checked, err := schema.Validate(args, s)
		if err != nil {
			return toResult(err)
		}
		return h(checked)
	}
}

func toResult(err error) protocol.ToolResult {
	if err == nil {
		return protocol.Text("ok")
	}
	if domainErr, ok := err.(*mcperr.Error); ok {
		return protocol.Errorf("%s", domainErr.Message())
	}
	return protocol.Errorf("%s", err.Error())
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

func intArg(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapArg(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

func object(props map[string]*schema.Schema, required ...string) *schema.Schema {
	return &schema.Schema{Type: "object", Properties: props, Required: required}
}

func str(desc string) *schema.Schema     { return &schema.Schema{Type: "string", Description: desc} }
func boolean(desc string) *schema.Schema { return &schema.Schema{Type: "boolean", Description: desc} }
func integer(desc string) *schema.Schema { return &schema.Schema{Type: "integer", Description: desc} }
func freeformObject(desc string) *schema.Schema {
	return &schema.Schema{Type: "object", Description: desc}
}
func strArray(desc string) *schema.Schema {
	return &schema.Schema{Type: "array", Description: desc, Items: &schema.Schema{Type: "string"}}
}

func filesystemTools(deps Deps) []*registry.Descriptor {
	readSchema := object(map[string]*schema.Schema{
		"path":      str("Absolute path to the file."),
		"startLine": integer("0-based index of the first line to return (0 means from the start)."),
		"lineCount": integer("Maximum number of lines to return (0 means the rest of the file)."),
	}, "path")
	writeSchema := object(map[string]*schema.Schema{
		"path":    str("Absolute path to the file."),
		"content": str("Full file content to write."),
	}, "path", "content")
	listSchema := object(map[string]*schema.Schema{
		"path": str("Absolute path to the directory."),
		"glob": str("Optional glob to filter entry names."),
	}, "path")
	treeSchema := object(map[string]*schema.Schema{
		"path":     str("Absolute path to the root directory."),
		"maxDepth": integer("Maximum depth to descend (0 means unlimited)."),
	}, "path")
	findSchema := object(map[string]*schema.Schema{
		"path":    str("Absolute root to search under."),
		"pattern": str("Glob pattern to match file names against."),
	}, "path", "pattern")
	infoSchema := object(map[string]*schema.Schema{
		"path": str("Absolute path to inspect."),
	}, "path")

	return []*registry.Descriptor{
		{
			Name:        "read",
			Description: "Read a text file, optionally paginated by line range.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"read", "cat", "file", "open"},
			InputSchema: readSchema.ToMap(),
			Handler: instrumented("read", deps.Metrics, validated(readSchema, func(args map[string]any) protocol.ToolResult {
				result, err := deps.FS.Read(stringArg(args, "path"), intArg(args, "startLine", 0), intArg(args, "lineCount", 0))
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s", result.Text)
			})),
		},
		{
			Name:        "write",
			Description: "Write (create or overwrite) a text file atomically.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"write", "save", "create"},
			InputSchema: writeSchema.ToMap(),
			Handler: instrumented("write", deps.Metrics, validated(writeSchema, func(args map[string]any) protocol.ToolResult {
				if err := deps.FS.Write(stringArg(args, "path"), stringArg(args, "content")); err != nil {
					return toResult(err)
				}
				return protocol.Text("wrote %s", stringArg(args, "path"))
			})),
		},
		{
			Name:        "list",
			Description: "List directory entries, optionally filtered by a glob.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"list", "ls", "directory"},
			InputSchema: listSchema.ToMap(),
			Handler: instrumented("list", deps.Metrics, validated(listSchema, func(args map[string]any) protocol.ToolResult {
				entries, err := deps.FS.List(stringArg(args, "path"), stringArg(args, "glob"))
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s", formatEntries(entries))
			})),
		},
		{
			Name:        "tree",
			Description: "Render a directory as a glyph tree, skipping common noise directories.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"tree", "structure", "layout"},
			InputSchema: treeSchema.ToMap(),
			Handler: instrumented("tree", deps.Metrics, validated(treeSchema, func(args map[string]any) protocol.ToolResult {
				text, err := deps.FS.Tree(stringArg(args, "path"), fsutil.TreeOptions{Depth: intArg(args, "maxDepth", 0)})
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s", text)
			})),
		},
		{
			Name:        "find",
			Description: "Find files matching a glob pattern under a root.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"find", "glob", "locate"},
			InputSchema: findSchema.ToMap(),
			Handler: instrumented("find", deps.Metrics, validated(findSchema, func(args map[string]any) protocol.ToolResult {
				matches, err := deps.FS.Find(stringArg(args, "path"), stringArg(args, "pattern"), false, false)
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s", joinLines(matches))
			})),
		},
		{
			Name:        "info",
			Description: "Report metadata about a file or directory: size, mode, modtime.",
			Category:    registry.CategoryFilesystem,
			Keywords:    []string{"stat", "info", "metadata"},
			InputSchema: infoSchema.ToMap(),
			Handler: instrumented("info", deps.Metrics, validated(infoSchema, func(args map[string]any) protocol.ToolResult {
				path := stringArg(args, "path")
				info, err := deps.FS.Stat(path)
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s: %d bytes, mode %s, modified %s", path, info.Size, info.Mode, info.ModTime)
			})),
		},
	}
}

func editTools(deps Deps) []*registry.Descriptor {
	editSchema := object(map[string]*schema.Schema{
		"path":       str("Absolute path to the file."),
		"oldText":    str("Exact text to replace; must match uniquely unless replaceAll is set."),
		"newText":    str("Replacement text."),
		"replaceAll": boolean("Replace every occurrence instead of requiring a unique match."),
	}, "path", "oldText", "newText")
	multiEditSchema := object(map[string]*schema.Schema{
		"path": str("Absolute path to the file."),
		"edits": &schema.Schema{
			Type:        "array",
			Description: "Array of {oldText, newText} objects, applied in order.",
			Items: object(map[string]*schema.Schema{
				"oldText": str("Exact text to replace; must match uniquely within the file."),
				"newText": str("Replacement text."),
			}, "oldText", "newText"),
		},
	}, "path", "edits")

	return []*registry.Descriptor{
		{
			Name:        "edit",
			Description: "Replace an exact, unique occurrence of text in a file.",
			Category:    registry.CategoryEdit,
			Keywords:    []string{"edit", "replace", "patch"},
			InputSchema: editSchema.ToMap(),
			Handler: instrumented("edit", deps.Metrics, validated(editSchema, func(args map[string]any) protocol.ToolResult {
				err := deps.Edit.Single(stringArg(args, "path"), stringArg(args, "oldText"), stringArg(args, "newText"), boolArg(args, "replaceAll"))
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("edited %s", stringArg(args, "path"))
			})),
		},
		{
			Name:        "multi_edit",
			Description: "Apply an ordered batch of exact-match edits to one file, atomically.",
			Category:    registry.CategoryEdit,
			Keywords:    []string{"edit", "batch", "patch"},
			InputSchema: multiEditSchema.ToMap(),
			Handler: instrumented("multi_edit", deps.Metrics, validated(multiEditSchema, func(args map[string]any) protocol.ToolResult {
				edits, err := parseEdits(args["edits"])
				if err != nil {
					return toResult(err)
				}
				if err := deps.Edit.Multi(stringArg(args, "path"), edits); err != nil {
					return toResult(err)
				}
				return protocol.Text("applied %d edits to %s", len(edits), stringArg(args, "path"))
			})),
		},
	}
}

func parseEdits(raw any) ([]editengine.Edit, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, mcperr.New("tools.multi_edit", mcperr.ErrValidation).With("field", "edits").With("reason", "must be an array")
	}
	out := make([]editengine.Edit, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, mcperr.New("tools.multi_edit", mcperr.ErrValidation).With("field", "edits").With("reason", "each entry must be an object").With("index", i)
		}
		out = append(out, editengine.Edit{OldText: stringArg(obj, "oldText"), NewText: stringArg(obj, "newText")})
	}
	return out, nil
}

func searchTools(deps Deps) []*registry.Descriptor {
	searchSchema := object(map[string]*schema.Schema{
		"query":         str("Text or regular expression to search for."),
		"ignoreCase":    boolean("Case-insensitive content matching."),
		"includeGlobs":  strArray("Restrict content search to files matching these globs."),
		"maxResults":    integer("Maximum results per strategy (default 50)."),
		"searchHistory": boolean("Also search git commit history (pickaxe-style)."),
	}, "query")
	historySchema := object(map[string]*schema.Schema{
		"query":      str("Text to pickaxe-search for."),
		"maxResults": integer("Maximum matching commits to return (default 50)."),
	}, "query")

	return []*registry.Descriptor{
		{
			Name:        "grep",
			Description: "Unified filename, content, and (optionally) git history search.",
			Category:    registry.CategorySearch,
			Keywords:    []string{"search", "grep", "find text"},
			InputSchema: searchSchema.ToMap(),
			Handler: instrumented("grep", deps.Metrics, validated(searchSchema, func(args map[string]any) protocol.ToolResult {
				results := deps.Search.Search(stringArg(args, "query"), searchengine.Options{
					IgnoreCase:    boolArg(args, "ignoreCase"),
					IncludeGlobs:  stringSliceArg(args, "includeGlobs"),
					MaxResults:    intArg(args, "maxResults", 0),
					SearchHistory: boolArg(args, "searchHistory"),
				})
				return protocol.Text("%s", formatSearchResults(results))
			})),
		},
		{
			Name:        "git_history_search",
			Description: "Search git commit history for commits whose diff introduces or removes a string (pickaxe search).",
			Category:    registry.CategorySearch,
			Keywords:    []string{"git", "history", "log", "pickaxe"},
			InputSchema: historySchema.ToMap(),
			Handler: instrumented("git_history_search", deps.Metrics, validated(historySchema, func(args map[string]any) protocol.ToolResult {
				results := deps.Search.Search(stringArg(args, "query"), searchengine.Options{
					MaxResults:    intArg(args, "maxResults", 0),
					SearchHistory: true,
				})
				for _, r := range results {
					if r.Strategy == "history" {
						return protocol.Text("%s", joinLines(r.Lines))
					}
				}
				return protocol.Text("")
			})),
		},
	}
}

func shellTools(deps Deps) []*registry.Descriptor {
	runSchema := object(map[string]*schema.Schema{
		"command":       str("The command line to run."),
		"cwd":           str("Working directory (must be a permitted path)."),
		"env":           freeformObject("Environment variable overlay."),
		"timeoutMs":     integer("Timeout in milliseconds (default 30000)."),
		"useLoginShell": boolean("Run through the user's login shell so profile files apply."),
	}, "command")

	return []*registry.Descriptor{
		{
			Name:        "run_command",
			Description: "Run a command synchronously and capture its output, up to a timeout.",
			Category:    registry.CategoryShell,
			Keywords:    []string{"shell", "exec", "run", "command"},
			InputSchema: runSchema.ToMap(),
			Handler: instrumented("run_command", deps.Metrics, validated(runSchema, func(args map[string]any) protocol.ToolResult {
				result, err := deps.Shell.Run(context.Background(), shellrun.Request{
					Command:       stringArg(args, "command"),
					Cwd:           stringArg(args, "cwd"),
					Env:           stringMapArg(args, "env"),
					Timeout:       time.Duration(intArg(args, "timeoutMs", 0)) * time.Millisecond,
					UseLoginShell: boolArg(args, "useLoginShell"),
				})
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("exit %d\nstdout:\n%s\nstderr:\n%s", result.ExitCode, result.Stdout, result.Stderr)
			})),
		},
	}
}

func processTools(deps Deps) []*registry.Descriptor {
	runBackgroundSchema := object(map[string]*schema.Schema{
		"id":      str("Unique identifier for this process."),
		"command": str("The command line to run."),
		"cwd":     str("Working directory (must be a permitted path)."),
	}, "id", "command")
	listProcessesSchema := object(nil)
	outputSchema := object(map[string]*schema.Schema{
		"id":   str("Process id."),
		"tail": integer("Number of trailing lines to return (0 means all retained output)."),
	}, "id")
	killSchema := object(map[string]*schema.Schema{
		"id": str("Process id."),
	}, "id")

	return []*registry.Descriptor{
		{
			Name:        "run_background",
			Description: "Start a detached background process tracked under an id.",
			Category:    registry.CategoryProcess,
			Keywords:    []string{"background", "process", "spawn"},
			InputSchema: runBackgroundSchema.ToMap(),
			Handler: instrumented("run_background", deps.Metrics, validated(runBackgroundSchema, func(args map[string]any) protocol.ToolResult {
				if err := deps.Proc.RunBackground(stringArg(args, "id"), stringArg(args, "command"), stringArg(args, "cwd")); err != nil {
					return toResult(err)
				}
				return protocol.Text("started %s", stringArg(args, "id"))
			})),
		},
		{
			Name:        "list_processes",
			Description: "List every tracked background process and its state.",
			Category:    registry.CategoryProcess,
			Keywords:    []string{"process", "list", "status"},
			InputSchema: listProcessesSchema.ToMap(),
			Handler: instrumented("list_processes", deps.Metrics, validated(listProcessesSchema, func(args map[string]any) protocol.ToolResult {
				records := deps.Proc.ListProcesses()
				return protocol.Text("%s", formatProcessRecords(records))
			})),
		},
		{
			Name:        "get_process_output",
			Description: "Return the last lines of a background process's stdout and stderr.",
			Category:    registry.CategoryProcess,
			Keywords:    []string{"process", "output", "logs", "tail"},
			InputSchema: outputSchema.ToMap(),
			Handler: instrumented("get_process_output", deps.Metrics, validated(outputSchema, func(args map[string]any) protocol.ToolResult {
				record, err := deps.Proc.GetOutput(stringArg(args, "id"), intArg(args, "tail", 0))
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("stdout:\n%s\nstderr:\n%s", record.Stdout, record.Stderr)
			})),
		},
		{
			Name:        "kill_process",
			Description: "Terminate a background process, escalating to SIGKILL after a grace period.",
			Category:    registry.CategoryProcess,
			Keywords:    []string{"process", "kill", "stop", "terminate"},
			InputSchema: killSchema.ToMap(),
			Handler: instrumented("kill_process", deps.Metrics, validated(killSchema, func(args map[string]any) protocol.ToolResult {
				if err := deps.Proc.KillProcess(stringArg(args, "id")); err != nil {
					return toResult(err)
				}
				return protocol.Text("killed %s", stringArg(args, "id"))
			})),
		},
	}
}

// registryTools builds the always-enabled, Protected meta-tools that
// let a host discover and toggle the rest of the registry, per
// SPEC_FULL.md §6's tool_search/tool_list/tool_enable/tool_disable
// supplement.
func registryTools(reg *registry.Registry) []*registry.Descriptor {
	searchSchema := object(map[string]*schema.Schema{"query": str("Keyword or regular expression.")}, "query")
	nameSchema := object(map[string]*schema.Schema{"name": str("Tool name.")}, "name")
	listSchema := object(nil)

	return []*registry.Descriptor{
		{
			Name:        "tool_list",
			Description: "List every registered tool and whether it is enabled.",
			Category:    registry.CategoryCore,
			Protected:   true,
			InputSchema: listSchema.ToMap(),
			Handler: validated(listSchema, func(args map[string]any) protocol.ToolResult {
				return protocol.Text("%s", formatToolList(reg, reg.ListAll()))
			}),
		},
		{
			Name:        "tool_search",
			Description: "Discover tools by keyword or regular expression, scored by match strength.",
			Category:    registry.CategoryCore,
			Protected:   true,
			InputSchema: searchSchema.ToMap(),
			Handler: validated(searchSchema, func(args map[string]any) protocol.ToolResult {
				results := reg.Search(stringArg(args, "query"))
				return protocol.Text("%s", formatSearchHits(results))
			}),
		},
		{
			Name:        "tool_enable",
			Description: "Enable a previously disabled tool.",
			Category:    registry.CategoryCore,
			Protected:   true,
			InputSchema: nameSchema.ToMap(),
			Handler: validated(nameSchema, func(args map[string]any) protocol.ToolResult {
				if err := reg.Enable(stringArg(args, "name")); err != nil {
					return toResult(err)
				}
				return protocol.Text("enabled %s", stringArg(args, "name"))
			}),
		},
		{
			Name:        "tool_disable",
			Description: "Disable a tool so it is no longer enumerated or callable.",
			Category:    registry.CategoryCore,
			Protected:   true,
			InputSchema: nameSchema.ToMap(),
			Handler: validated(nameSchema, func(args map[string]any) protocol.ToolResult {
				if err := reg.Disable(stringArg(args, "name")); err != nil {
					return toResult(err)
				}
				return protocol.Text("disabled %s", stringArg(args, "name"))
			}),
		},
	}
}

// thinkTool is a no-op scratchpad: it echoes its input back as content,
// giving a model (top-level or a delegated worker) a place to reason
// without touching the filesystem. Present in both the main registry
// and the agent delegator's constrained subset.
func thinkTool() *registry.Descriptor {
	thinkSchema := object(map[string]*schema.Schema{"thought": str("Freeform reasoning text.")}, "thought")
	return &registry.Descriptor{
		Name:        "think",
		Description: "Record a reasoning note; has no side effects.",
		Category:    registry.CategoryCore,
		Keywords:    []string{"think", "scratchpad", "note"},
		InputSchema: thinkSchema.ToMap(),
		Handler: validated(thinkSchema, func(args map[string]any) protocol.ToolResult {
			return protocol.Text("%s", stringArg(args, "thought"))
		}),
	}
}

func agentTools(reg *registry.Registry, deps Deps) []*registry.Descriptor {
	delegateSchema := object(map[string]*schema.Schema{
		"task":  str("Task description for the worker."),
		"model": str("Optional model identifier, passed through opaquely."),
	}, "task")

	return []*registry.Descriptor{
		{
			Name:        "delegate_task",
			Description: "Delegate a task to a constrained, read-only sub-worker.",
			Category:    registry.CategoryAgent,
			Keywords:    []string{"agent", "delegate", "worker", "subtask"},
			InputSchema: delegateSchema.ToMap(),
			Handler: instrumented("delegate_task", deps.Metrics, validated(delegateSchema, func(args map[string]any) protocol.ToolResult {
				subset, err := agent.Subset(reg)
				if err != nil {
					return toResult(err)
				}
				output, err := deps.Agent.Run(context.Background(), agent.Request{
					Task:  stringArg(args, "task"),
					Model: stringArg(args, "model"),
				}, subset)
				if err != nil {
					return toResult(err)
				}
				return protocol.Text("%s", output)
			})),
		},
	}
}

func formatEntries(entries []fsutil.Entry) string {
	var lines []string
	for _, e := range entries {
		marker := ""
		if e.IsDir {
			marker = "/"
		}
		lines = append(lines, fmt.Sprintf("%s%s", e.Name, marker))
	}
	return joinLines(lines)
}

func formatProcessRecords(records []procsup.Record) string {
	var lines []string
	for _, r := range records {
		lines = append(lines, fmt.Sprintf("%s [%s] pid=%d exit=%d", r.ID, r.State, r.Pid, r.ExitCode))
	}
	return joinLines(lines)
}

func formatSearchResults(results []searchengine.Result) string {
	var out string
	for _, r := range results {
		out += fmt.Sprintf("=== %s ===\n", r.Strategy)
		out += joinLines(r.Lines)
		out += "\n"
	}
	return out
}

func formatToolList(reg *registry.Registry, descs []*registry.Descriptor) string {
	var lines []string
	for _, d := range descs {
		enabled, _ := reg.IsEnabled(d.Name)
		lines = append(lines, fmt.Sprintf("%s [%s] enabled=%v protected=%v", d.Name, d.Category, enabled, d.Protected))
	}
	return joinLines(lines)
}

func formatSearchHits(results []registry.SearchResult) string {
	var lines []string
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s (score %d): %s", r.Descriptor.Name, r.Score, r.MatchReason))
	}
	return joinLines(lines)
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
