package agentloop

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized output is cut.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits per capability, applied to tool output before it
// is folded back into the transcript. read_file additionally applies its own
// byte cap inside the executor.
var DefaultCapabilityCharLimits = map[string]int{
	"list_files":  20000,
	"read_file":   50000,
	"write_file":  1000,
	"run_program": 30000,
}

// Default truncation modes per capability.
var DefaultTruncationModes = map[string]TruncationMode{
	"list_files":  TruncateTail,
	"read_file":   TruncateHeadTail,
	"write_file":  TruncateTail,
	"run_program": TruncateHeadTail,
}

// TruncateOutput applies character-based truncation to output.
func TruncateOutput(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}

	removed := len(output) - maxChars
	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[WARNING: Tool output was truncated. First %d characters were removed.]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // head_tail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[WARNING: Tool output was truncated. %d characters were removed from the middle. "+
				"Re-run the tool with more targeted parameters if you need the full output.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// TruncateToolOutput applies the per-capability truncation policy. Overrides
// replace the default limit for a capability; zero keeps the default.
func TruncateToolOutput(output, name string, overrides map[string]int) string {
	maxChars := 0
	if overrides != nil {
		maxChars = overrides[name]
	}
	if maxChars == 0 {
		maxChars = DefaultCapabilityCharLimits[name]
	}
	if maxChars == 0 {
		maxChars = 30000
	}

	mode, ok := DefaultTruncationModes[name]
	if !ok {
		mode = TruncateHeadTail
	}
	return TruncateOutput(output, maxChars, mode)
}

// firstLine returns the first line of s, for compact event payloads.
func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
