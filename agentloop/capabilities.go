package agentloop

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/martinemde/agentbox/llm"
)

// listFilesCapability lists the immediate entries of a directory inside the
// working root. Output is sorted by name ascending for determinism.
func listFilesCapability() RegisteredCapability {
	return RegisteredCapability{
		Definition: llm.ToolDefinition{
			Name:        "list_files",
			Description: "Lists files in the specified directory along with their sizes, constrained to the working directory.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"directory": map[string]interface{}{
						"type": "string",
						"description": "The directory to list files from, relative to the working directory. " +
							"If not provided, lists files in the working directory itself.",
					},
				},
			},
		},
		Executor: func(args map[string]interface{}) (string, error) {
			root, err := rootArg(args)
			if err != nil {
				return "", err
			}
			directory, ok := GetStringArg(args, "directory")
			if !ok || directory == "" {
				directory = "."
			}

			resolved, err := root.Resolve(directory)
			if err != nil {
				return "", err
			}
			info, err := os.Stat(resolved)
			if err != nil {
				return "", fmt.Errorf("cannot list %q: %v", directory, err)
			}
			if !info.IsDir() {
				return "", fmt.Errorf("%q is not a directory", directory)
			}

			entries, err := os.ReadDir(resolved)
			if err != nil {
				return "", fmt.Errorf("cannot list %q: %v", directory, err)
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Name() < entries[j].Name()
			})

			var sb strings.Builder
			for _, entry := range entries {
				entryInfo, err := entry.Info()
				if err != nil {
					// Per-entry stat failure: inline notice, keep listing.
					fmt.Fprintf(&sb, "- %s: error getting info: %v\n", entry.Name(), err)
					continue
				}
				fmt.Fprintf(&sb, "- %s: file_size=%d bytes, is_dir=%v\n",
					entry.Name(), entryInfo.Size(), entry.IsDir())
			}
			return strings.TrimSuffix(sb.String(), "\n"), nil
		},
	}
}

// readFileCapability returns the full content of a file inside the working
// root, truncated at the configured byte cap.
func readFileCapability(cfg SessionConfig) RegisteredCapability {
	return RegisteredCapability{
		Definition: llm.ToolDefinition{
			Name:        "read_file",
			Description: "Reads and returns the contents of a file, constrained to the working directory.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to the file, relative to the working directory.",
					},
				},
				"required": []string{"file_path"},
			},
		},
		Executor: func(args map[string]interface{}) (string, error) {
			root, err := rootArg(args)
			if err != nil {
				return "", err
			}
			filePath, ok := GetStringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}

			resolved, err := root.Resolve(filePath)
			if err != nil {
				return "", err
			}
			info, err := os.Stat(resolved)
			if err != nil {
				return "", fmt.Errorf("cannot read %q: %v", filePath, err)
			}
			if info.IsDir() {
				return "", fmt.Errorf("%q is not a regular file", filePath)
			}

			data, err := os.ReadFile(resolved)
			if err != nil {
				return "", fmt.Errorf("cannot read %q: %v", filePath, err)
			}

			limit := cfg.ReadLimitBytes
			if limit > 0 && len(data) > limit {
				return string(data[:limit]) +
					fmt.Sprintf("\n[...File %q truncated at %d characters]", filePath, limit), nil
			}
			return string(data), nil
		},
	}
}

// writeFileCapability overwrites a file inside the working root, creating
// parent directories as needed.
func writeFileCapability() RegisteredCapability {
	return RegisteredCapability{
		Definition: llm.ToolDefinition{
			Name:        "write_file",
			Description: "Writes or overwrites content to a file, constrained to the working directory.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Destination file path, relative to the working directory.",
					},
					"content": map[string]interface{}{
						"type":        "string",
						"description": "Text content to write.",
					},
				},
				"required": []string{"file_path", "content"},
			},
		},
		Executor: func(args map[string]interface{}) (string, error) {
			root, err := rootArg(args)
			if err != nil {
				return "", err
			}
			filePath, ok := GetStringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			content, ok := GetStringArg(args, "content")
			if !ok {
				return "", fmt.Errorf("content is required")
			}

			resolved, err := root.Resolve(filePath)
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
				return "", fmt.Errorf("cannot write %q: %v", filePath, err)
			}
			if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
				return "", fmt.Errorf("cannot write %q: %v", filePath, err)
			}
			return fmt.Sprintf("Successfully wrote to %q (%d bytes written)", filePath, len(content)), nil
		},
	}
}

// runProgramCapability executes a program inside the working root as a
// subprocess. Timeouts and non-zero exits are reported in the payload; only
// containment, missing-file, wrong-type and spawn errors are failures.
func runProgramCapability(cfg SessionConfig) RegisteredCapability {
	return RegisteredCapability{
		Definition: llm.ToolDefinition{
			Name:        "run_program",
			Description: "Executes a program file with optional arguments, constrained to the working directory.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"file_path": map[string]interface{}{
						"type":        "string",
						"description": "Program file to execute, relative to the working directory.",
					},
					"args": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Optional list of arguments to pass to the program.",
					},
				},
				"required": []string{"file_path"},
			},
		},
		Executor: func(args map[string]interface{}) (string, error) {
			root, err := rootArg(args)
			if err != nil {
				return "", err
			}
			filePath, ok := GetStringArg(args, "file_path")
			if !ok || filePath == "" {
				return "", fmt.Errorf("file_path is required")
			}
			programArgs, ok := GetStringSliceArg(args, "args")
			if !ok {
				return "", fmt.Errorf("args must be an array of strings")
			}

			resolved, err := root.Resolve(filePath)
			if err != nil {
				return "", err
			}
			info, err := os.Stat(resolved)
			if err != nil {
				return "", fmt.Errorf("cannot run %q: %v", filePath, err)
			}
			if !info.Mode().IsRegular() {
				return "", fmt.Errorf("%q is not a regular file", filePath)
			}
			if info.Mode().Perm()&0111 == 0 {
				return "", fmt.Errorf("%q is not executable", filePath)
			}

			timeout := time.Duration(cfg.ExecTimeoutMs) * time.Millisecond
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			cmd := exec.CommandContext(ctx, resolved, programArgs...)
			cmd.Dir = root.Path()
			// Process group so a timeout kills the whole subtree, not just
			// the immediate child.
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
			cmd.Cancel = func() error {
				if cmd.Process == nil {
					return nil
				}
				return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
			cmd.WaitDelay = time.Second

			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr

			runErr := cmd.Run()
			timedOut := ctx.Err() == context.DeadlineExceeded

			exitCode := 0
			if runErr != nil && !timedOut {
				exitErr, ok := runErr.(*exec.ExitError)
				if !ok {
					// The process never started.
					return "", fmt.Errorf("cannot run %q: %v", filePath, runErr)
				}
				exitCode = exitErr.ExitCode()
			}

			var sb strings.Builder
			if stdout.Len() > 0 {
				fmt.Fprintf(&sb, "STDOUT:\n%s\n", stdout.String())
			}
			if stderr.Len() > 0 {
				fmt.Fprintf(&sb, "STDERR:\n%s\n", stderr.String())
			}
			if sb.Len() == 0 {
				sb.WriteString("No output produced.\n")
			}
			if timedOut {
				fmt.Fprintf(&sb, "Process timed out after %dms\n", cfg.ExecTimeoutMs)
			} else if exitCode != 0 {
				fmt.Fprintf(&sb, "Process exited with code %d\n", exitCode)
			}
			return strings.TrimSuffix(sb.String(), "\n"), nil
		},
	}
}
