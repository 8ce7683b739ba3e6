package agentloop

import (
	"encoding/json"
	"fmt"

	"github.com/martinemde/agentbox/llm"
	"github.com/martinemde/agentbox/sandbox"
)

// reservedRootKey is the argument key the working root is injected under.
// The model can never supply it: any model-provided value is overwritten
// before dispatch, so the sandbox root cannot be redirected.
const reservedRootKey = "working_directory"

// Executor is the function signature for capability execution. It receives
// the parsed argument map (with the working root already injected) and
// returns a payload or an error; the registry folds both into a ToolResult.
type Executor func(args map[string]interface{}) (string, error)

// RegisteredCapability pairs a capability declaration with its executor.
type RegisteredCapability struct {
	Definition llm.ToolDefinition
	Executor   Executor
}

// Registry is the fixed capability table: name -> executor, established at
// process start and never mutated at runtime.
type Registry struct {
	root         *sandbox.Root
	capabilities map[string]*RegisteredCapability
	order        []string
}

// NewRegistry builds the capability table over the given sandbox root.
func NewRegistry(root *sandbox.Root, cfg SessionConfig) *Registry {
	r := &Registry{
		root:         root,
		capabilities: make(map[string]*RegisteredCapability),
	}
	r.add(listFilesCapability())
	r.add(readFileCapability(cfg))
	r.add(writeFileCapability())
	r.add(runProgramCapability(cfg))
	return r
}

func (r *Registry) add(c RegisteredCapability) {
	r.capabilities[c.Definition.Name] = &c
	r.order = append(r.order, c.Definition.Name)
}

// Root returns the sandbox root the registry dispatches against.
func (r *Registry) Root() *sandbox.Root { return r.root }

// Definitions returns the capability declarations sent to the backend, in
// registration order.
func (r *Registry) Definitions() []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.capabilities[name].Definition)
	}
	return defs
}

// Dispatch validates and executes one tool call, returning exactly one
// ToolResult. An unknown name, an executor error, and an executor panic all
// surface as Failure results; nothing propagates past this boundary.
func (r *Registry) Dispatch(call llm.ToolCall) (result llm.ToolResult) {
	result = llm.ToolResult{ToolCallID: call.ID, Name: call.Name}

	entry, ok := r.capabilities[call.Name]
	if !ok {
		result.Content = fmt.Sprintf("unknown capability: %s", call.Name)
		result.IsError = true
		return result
	}

	args, err := ParseToolArguments(call.Arguments)
	if err != nil {
		result.Content = err.Error()
		result.IsError = true
		return result
	}

	// Inject the working root under the reserved key. Overwrite, never
	// merge: untrusted arguments cannot redirect the sandbox root.
	args[reservedRootKey] = r.root

	defer func() {
		if rec := recover(); rec != nil {
			result.Content = fmt.Sprintf("execution failed: %v", rec)
			result.IsError = true
		}
	}()

	payload, err := entry.Executor(args)
	if err != nil {
		result.Content = err.Error()
		result.IsError = true
		return result
	}
	result.Content = payload
	return result
}

// ParseToolArguments unmarshals tool call arguments into a map for validation
// and access. Empty arguments yield an empty map.
func ParseToolArguments(raw json.RawMessage) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %v", err)
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

// rootArg extracts the injected sandbox root from parsed arguments.
func rootArg(args map[string]interface{}) (*sandbox.Root, error) {
	root, ok := args[reservedRootKey].(*sandbox.Root)
	if !ok || root == nil {
		return nil, fmt.Errorf("working directory not configured")
	}
	return root, nil
}

// GetStringArg extracts a string argument from parsed tool arguments.
func GetStringArg(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetStringSliceArg extracts an array-of-string argument from parsed tool
// arguments. A missing key yields an empty slice; a present key with
// non-string elements fails.
func GetStringSliceArg(args map[string]interface{}, key string) ([]string, bool) {
	v, ok := args[key]
	if !ok {
		return nil, true
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}
