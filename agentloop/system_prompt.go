package agentloop

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// BuildSystemInstruction constructs the system instruction sent on every
// backend call: the fixed agent instructions, an environment context block,
// and the capability summaries.
func BuildSystemInstruction(reg *Registry) string {
	var sb strings.Builder

	sb.WriteString(baseInstruction)
	sb.WriteString("\n\n")

	sb.WriteString("<environment>\n")
	fmt.Fprintf(&sb, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&sb, "Today's date: %s\n", time.Now().Format("2006-01-02"))
	sb.WriteString("</environment>\n\n")

	sb.WriteString("# Available Operations\n\n")
	for _, def := range reg.Definitions() {
		fmt.Fprintf(&sb, "## %s\n%s\n\n", def.Name, def.Description)
	}

	return strings.TrimSuffix(sb.String(), "\n")
}

const baseInstruction = `You are a helpful AI coding agent.

When the user asks a question or makes a request, make a function call plan. You can perform the following operations:

- List files and directories
- Read file contents
- Write or overwrite files
- Execute program files with optional arguments

All paths you provide must be relative to the working directory. You do not need to specify the working directory itself; it is injected automatically for security reasons.

# Error Handling

- If an operation fails, the error message is returned to you as the tool result. Analyze it and try a different approach.
- If a file is missing, list the directory first to find the right path.

# Guidelines

- Keep changes minimal and focused. Only make changes that are directly requested or clearly necessary.
- After writing a file, verify it by reading it back or executing it when appropriate.
- When you have completed the request, respond with a final plain-text summary and no further function calls.`
