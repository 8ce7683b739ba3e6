package main

import "testing"

func TestRunMissingPrompt(t *testing.T) {
	if code := run(nil); code != 2 {
		t.Errorf("no arguments: expected exit 2, got %d", code)
	}
	if code := run([]string{"--verbose"}); code != 2 {
		t.Errorf("flags only: expected exit 2, got %d", code)
	}
	if code := run([]string{"--verbose", "   "}); code != 2 {
		t.Errorf("blank prompt: expected exit 2, got %d", code)
	}
}

func TestRunIgnoresUnknownFlags(t *testing.T) {
	// Unknown flags are dropped, leaving an empty prompt here.
	if code := run([]string{"--frobnicate", "--dry-run"}); code != 2 {
		t.Errorf("expected exit 2 for flags-only input, got %d", code)
	}
}
