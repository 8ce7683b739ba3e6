package agentloop

import (
	"strings"
	"testing"
)

func TestTruncateOutputUnderLimit(t *testing.T) {
	out := TruncateOutput("short output", 100, TruncateHeadTail)
	if out != "short output" {
		t.Errorf("output under limit must pass through unchanged, got %q", out)
	}
}

func TestTruncateOutputHeadTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 500)
	out := TruncateOutput(input, 100, TruncateHeadTail)

	if !strings.HasPrefix(out, strings.Repeat("a", 50)) {
		t.Error("head not preserved")
	}
	if !strings.HasSuffix(out, strings.Repeat("z", 50)) {
		t.Error("tail not preserved")
	}
	if !strings.Contains(out, "900 characters were removed from the middle") {
		t.Errorf("missing removal notice: %q", out)
	}
}

func TestTruncateOutputTail(t *testing.T) {
	input := strings.Repeat("a", 500) + strings.Repeat("z", 100)
	out := TruncateOutput(input, 100, TruncateTail)

	if !strings.HasSuffix(out, strings.Repeat("z", 100)) {
		t.Error("tail mode must keep the end of the output")
	}
	if !strings.Contains(out, "First 500 characters were removed") {
		t.Errorf("missing removal notice: %q", out)
	}
}

func TestTruncateToolOutputDefaults(t *testing.T) {
	// write_file has the tightest default limit (1000 chars).
	input := strings.Repeat("x", 5000)
	out := TruncateToolOutput(input, "write_file", nil)
	if len(out) >= len(input) {
		t.Error("expected truncation for oversized write_file output")
	}

	// Unknown capability falls back to the generic limit.
	out = TruncateToolOutput(strings.Repeat("x", 40000), "something_else", nil)
	if len(out) >= 40000 {
		t.Error("expected truncation under the fallback limit")
	}
}

func TestTruncateToolOutputOverrides(t *testing.T) {
	input := strings.Repeat("x", 2000)

	out := TruncateToolOutput(input, "run_program", map[string]int{"run_program": 100})
	if len(out) >= len(input) {
		t.Error("override limit not applied")
	}

	// Zero override keeps the default, which is large enough here.
	out = TruncateToolOutput(input, "run_program", map[string]int{"run_program": 0})
	if out != input {
		t.Error("zero override must fall back to the default limit")
	}
}

func TestFirstLine(t *testing.T) {
	if got := firstLine("one\ntwo\nthree"); got != "one" {
		t.Errorf("expected first line, got %q", got)
	}
	if got := firstLine("single"); got != "single" {
		t.Errorf("expected unchanged string, got %q", got)
	}
}
