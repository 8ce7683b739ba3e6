package agentloop

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/martinemde/agentbox/sandbox"
)

func newCapabilityFixture(t *testing.T, cfg SessionConfig) (*Registry, string) {
	t.Helper()
	root, err := sandbox.NewRoot(t.TempDir())
	if err != nil {
		t.Fatalf("sandbox.NewRoot: %v", err)
	}
	return NewRegistry(root, cfg), root.Path()
}

func TestListFiles(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	if err := os.WriteFile(filepath.Join(rootPath, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(rootPath, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("list_files", `{"directory": "."}`))
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}

	lines := strings.Split(result.Content, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), result.Content)
	}
	if lines[0] != "- a.txt: file_size=5 bytes, is_dir=false" {
		t.Errorf("unexpected first line: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "- sub: ") || !strings.HasSuffix(lines[1], "is_dir=true") {
		t.Errorf("unexpected second line: %q", lines[1])
	}
}

func TestListFilesDeterministic(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := os.WriteFile(filepath.Join(rootPath, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	first := reg.Dispatch(call("list_files", `{}`))
	second := reg.Dispatch(call("list_files", `{}`))
	if first.Content != second.Content {
		t.Error("listing not deterministic across repeated calls")
	}
	idxAlpha := strings.Index(first.Content, "alpha")
	idxMid := strings.Index(first.Content, "mid")
	idxZeta := strings.Index(first.Content, "zeta")
	if !(idxAlpha < idxMid && idxMid < idxZeta) {
		t.Errorf("entries not in ascending name order: %q", first.Content)
	}
}

func TestListFilesDefaultsToRoot(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())
	if err := os.WriteFile(filepath.Join(rootPath, "only.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("list_files", `{}`))
	if result.IsError {
		t.Fatalf("unexpected error: %s", result.Content)
	}
	if !strings.Contains(result.Content, "only.txt") {
		t.Errorf("expected root listing, got %q", result.Content)
	}
}

func TestListFilesNotADirectory(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())
	if err := os.WriteFile(filepath.Join(rootPath, "plain"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("list_files", `{"directory": "plain"}`))
	if !result.IsError {
		t.Fatal("expected error for non-directory target")
	}
	if !strings.Contains(result.Content, "not a directory") {
		t.Errorf("unexpected message: %q", result.Content)
	}
}

func TestListFilesOutsideRoot(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("list_files", `{"directory": "../"}`))
	if !result.IsError {
		t.Fatal("expected containment failure")
	}
	if !strings.Contains(result.Content, "../") {
		t.Errorf("error should carry the untrusted path: %q", result.Content)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	content := "line one\nline two\n"
	write := reg.Dispatch(call("write_file", fmt.Sprintf(`{"file_path": "notes/today.txt", "content": %q}`, content)))
	if write.IsError {
		t.Fatalf("write failed: %s", write.Content)
	}
	if !strings.Contains(write.Content, fmt.Sprintf("%d bytes written", len(content))) {
		t.Errorf("confirmation missing byte count: %q", write.Content)
	}

	read := reg.Dispatch(call("read_file", `{"file_path": "notes/today.txt"}`))
	if read.IsError {
		t.Fatalf("read failed: %s", read.Content)
	}
	if read.Content != content {
		t.Errorf("round trip mismatch: %q", read.Content)
	}
}

func TestWriteEmptyContent(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("write_file", `{"file_path": "empty.txt", "content": ""}`))
	if result.IsError {
		t.Fatalf("write failed: %s", result.Content)
	}
	info, err := os.Stat(filepath.Join(rootPath, "empty.txt"))
	if err != nil || info.Size() != 0 {
		t.Errorf("expected empty file, err=%v", err)
	}
}

func TestWriteOverwritesEntirely(t *testing.T) {
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())
	if err := os.WriteFile(filepath.Join(rootPath, "f.txt"), []byte("old content that is long"), 0644); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("write_file", `{"file_path": "f.txt", "content": "new"}`))
	if result.IsError {
		t.Fatalf("write failed: %s", result.Content)
	}
	data, err := os.ReadFile(filepath.Join(rootPath, "f.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "new" {
		t.Errorf("expected full overwrite, got %q", data)
	}
}

func TestWriteMissingContent(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("write_file", `{"file_path": "f.txt"}`))
	if !result.IsError {
		t.Fatal("expected error for missing content argument")
	}
}

func TestWriteOutsideRoot(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("write_file", `{"file_path": "../evil.txt", "content": "x"}`))
	if !result.IsError {
		t.Fatal("expected containment failure")
	}
}

func TestReadMissingFile(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("read_file", `{"file_path": "missing.txt"}`))
	if !result.IsError {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(result.Content, "missing.txt") {
		t.Errorf("message should name the file: %q", result.Content)
	}
}

func TestReadTruncatesLargeFile(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.ReadLimitBytes = 100
	reg, rootPath := newCapabilityFixture(t, cfg)

	big := strings.Repeat("x", 500)
	if err := os.WriteFile(filepath.Join(rootPath, "big.txt"), []byte(big), 0644); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("read_file", `{"file_path": "big.txt"}`))
	if result.IsError {
		t.Fatalf("read failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, `truncated at 100 characters`) {
		t.Errorf("expected truncation marker, got %q", result.Content)
	}
	if !strings.HasPrefix(result.Content, strings.Repeat("x", 100)) {
		t.Error("truncated content should keep the leading bytes")
	}
}

func TestRunProgram(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	script := "#!/bin/sh\necho hello $1\n"
	path := filepath.Join(rootPath, "hello.sh")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("run_program", `{"file_path": "hello.sh", "args": ["world"]}`))
	if result.IsError {
		t.Fatalf("run failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "STDOUT:") || !strings.Contains(result.Content, "hello world") {
		t.Errorf("unexpected payload: %q", result.Content)
	}
}

func TestRunProgramNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	script := "#!/bin/sh\necho broken >&2\nexit 3\n"
	if err := os.WriteFile(filepath.Join(rootPath, "fail.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("run_program", `{"file_path": "fail.sh"}`))
	// Non-zero exit is payload, not Failure.
	if result.IsError {
		t.Fatalf("non-zero exit must not be an error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "STDERR:") || !strings.Contains(result.Content, "broken") {
		t.Errorf("stderr missing from payload: %q", result.Content)
	}
	if !strings.Contains(result.Content, "exited with code 3") {
		t.Errorf("exit code missing from payload: %q", result.Content)
	}
}

func TestRunProgramNoOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	if err := os.WriteFile(filepath.Join(rootPath, "quiet.sh"), []byte("#!/bin/sh\nexit 0\n"), 0755); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("run_program", `{"file_path": "quiet.sh"}`))
	if result.IsError {
		t.Fatalf("run failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "No output produced.") {
		t.Errorf("unexpected payload: %q", result.Content)
	}
}

func TestRunProgramTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts unavailable on windows")
	}
	cfg := DefaultSessionConfig()
	cfg.ExecTimeoutMs = 200
	reg, rootPath := newCapabilityFixture(t, cfg)

	script := "#!/bin/sh\necho started\nsleep 5\n"
	if err := os.WriteFile(filepath.Join(rootPath, "slow.sh"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("run_program", `{"file_path": "slow.sh"}`))
	// Timeout is payload, not Failure.
	if result.IsError {
		t.Fatalf("timeout must not be an error result: %s", result.Content)
	}
	if !strings.Contains(result.Content, "timed out after 200ms") {
		t.Errorf("timeout note missing: %q", result.Content)
	}
}

func TestRunProgramOutsideRoot(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("run_program", `{"file_path": "../outside.sh"}`))
	if !result.IsError {
		t.Fatal("expected containment failure, no subprocess spawned")
	}
	if !strings.Contains(result.Content, "../outside.sh") {
		t.Errorf("error should carry the untrusted path: %q", result.Content)
	}
}

func TestRunProgramMissing(t *testing.T) {
	reg, _ := newCapabilityFixture(t, DefaultSessionConfig())

	result := reg.Dispatch(call("run_program", `{"file_path": "ghost.sh"}`))
	if !result.IsError {
		t.Fatal("expected error for missing target")
	}
}

func TestRunProgramNotExecutable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("permission bits unavailable on windows")
	}
	reg, rootPath := newCapabilityFixture(t, DefaultSessionConfig())

	if err := os.WriteFile(filepath.Join(rootPath, "data.txt"), []byte("not a program"), 0644); err != nil {
		t.Fatal(err)
	}

	result := reg.Dispatch(call("run_program", `{"file_path": "data.txt"}`))
	if !result.IsError {
		t.Fatal("expected error for non-executable target")
	}
	if !strings.Contains(result.Content, "not executable") {
		t.Errorf("unexpected message: %q", result.Content)
	}
}
