// Package tools implements the Tool Runtime (C7): schema-validated tool
// dispatch over a Path-Jail-scoped registry, grounded on the teacher's
// gojsonschema-based Tool/ToolRegistry and original_source/src/tools/runtime.rs's
// ToolRuntime composition of jail + registry + parallel executor.
package tools

import (
	"context"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Tool is one callable the LLM can invoke via an AgentMessage tool call.
type Tool struct {
	Name        string
	Description string
	SchemaJSON  string
	Fn          func(ctx context.Context, args map[string]any) (string, error)

	// ReadOnly marks tools with no filesystem/process side effects (e.g.
	// read_file, list_dir, system_info); these may run fully in parallel.
	// Write-effect tools are serialized per resolved path by the Runtime.
	ReadOnly bool

	// NetworkEffect marks tools that perform outbound network I/O
	// (web_fetch), gated by config.View.AllowNetwork and by the Runtime's
	// rate limiter (one call per 200ms).
	NetworkEffect bool

	Retryable bool

	schema *gojsonschema.Schema
}

// compiledSchema lazily compiles and caches SchemaJSON.
func (t *Tool) compiledSchema() (*gojsonschema.Schema, error) {
	if t.schema != nil {
		return t.schema, nil
	}
	loader := gojsonschema.NewStringLoader(t.SchemaJSON)
	schema, err := gojsonschema.NewSchema(loader)
	if err != nil {
		return nil, fmt.Errorf("compile schema for %s: %w", t.Name, err)
	}
	t.schema = schema
	return schema, nil
}

// ValidateArgs checks args against the tool's JSON Schema, returning the
// BadArguments error of spec §7's taxonomy on failure.
func (t *Tool) ValidateArgs(args map[string]any) error {
	schema, err := t.compiledSchema()
	if err != nil {
		return err
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return fmt.Errorf("validate args for %s: %w", t.Name, err)
	}
	if !result.Valid() {
		errs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return &BadArguments{ToolName: t.Name, Errors: errs}
	}
	return nil
}

// BadArguments is reported back to the LLM as an observation, not fatal.
type BadArguments struct {
	ToolName string
	Errors   []string
}

func (e *BadArguments) Error() string {
	return fmt.Sprintf("bad arguments for %s: %v", e.ToolName, e.Errors)
}

// UnknownTool is reported back to the LLM as an observation, not fatal.
type UnknownTool struct{ Name string }

func (e *UnknownTool) Error() string { return fmt.Sprintf("unknown tool: %s", e.Name) }

// Registry maps tool name to its definition. Immutable after construction
// (shared safely across a task's lifetime per spec §5).
type Registry map[string]Tool

// Lookup returns the named tool or UnknownTool.
func (r Registry) Lookup(name string) (Tool, error) {
	t, ok := r[name]
	if !ok {
		return Tool{}, &UnknownTool{Name: name}
	}
	return t, nil
}

// ReadOnlyNames returns the names of every read-only tool in the registry.
func (r Registry) ReadOnlyNames() []string {
	var out []string
	for name, t := range r {
		if t.ReadOnly {
			out = append(out, name)
		}
	}
	return out
}

// WriteNames returns the names of every write-effect tool in the registry.
func (r Registry) WriteNames() []string {
	var out []string
	for name, t := range r {
		if !t.ReadOnly {
			out = append(out, name)
		}
	}
	return out
}
