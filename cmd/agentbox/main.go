// Command agentbox runs a single prompt through the sandboxed agent loop.
//
// Usage:
//
//	agentbox [--verbose] <prompt words...>
//
// All non-flag arguments are joined into one prompt. Unrecognized flags are
// ignored. The working root comes from AGENTBOX_ROOT or the current
// directory; the backend credential comes from the provider's environment
// variable (GEMINI_API_KEY, ANTHROPIC_API_KEY, or OPENAI_API_KEY).
//
// Exit codes: 0 on a final answer; 2 on a missing prompt; 1 on a backend
// failure or when the iteration limit is reached without a final answer.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/martinemde/agentbox/agentloop"
	"github.com/martinemde/agentbox/config"
	"github.com/martinemde/agentbox/llm"
	"github.com/martinemde/agentbox/sandbox"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	verbose := false
	var promptParts []string
	for _, arg := range args {
		switch {
		case arg == "--verbose":
			verbose = true
		case strings.HasPrefix(arg, "--"):
			// Unrecognized flags are ignored rather than rejected.
		default:
			promptParts = append(promptParts, arg)
		}
	}

	prompt := strings.TrimSpace(strings.Join(promptParts, " "))
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: agentbox [--verbose] <prompt>")
		return 2
	}

	rootDir := os.Getenv("AGENTBOX_ROOT")
	if rootDir == "" {
		var err error
		rootDir, err = os.Getwd()
		if err != nil {
			fmt.Fprintf(os.Stderr, "agentbox: %v\n", err)
			return 1
		}
	}

	root, err := sandbox.NewRoot(rootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentbox: %v\n", err)
		return 1
	}

	cfg, err := config.Load(root.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "agentbox: %v\n", err)
		return 1
	}
	sessionCfg := cfg.SessionConfig()

	registry := agentloop.NewRegistry(root, sessionCfg)
	session := agentloop.NewSession(llm.NewClientFromEnv(), registry, &sessionCfg)
	defer session.Close()

	if verbose {
		fmt.Printf("User prompt: %s\n", prompt)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for event := range session.Events() {
			if verbose {
				printEvent(event)
			}
		}
	}()

	outcome, err := session.Run(context.Background(), prompt)
	session.Close()
	wg.Wait()

	if err != nil {
		fmt.Fprintf(os.Stderr, "agentbox: %v\n", err)
		return 1
	}

	switch outcome.Status {
	case agentloop.RunFinal:
		fmt.Println("Response:")
		fmt.Println(outcome.Text)
		if verbose {
			fmt.Printf("Prompt tokens: %d\n", outcome.Usage.InputTokens)
			fmt.Printf("Response tokens: %d\n", outcome.Usage.OutputTokens)
		}
		return 0
	default:
		fmt.Fprintf(os.Stderr, "agentbox: %s\n", outcome.Text)
		return 1
	}
}

func printEvent(event agentloop.RunEvent) {
	switch event.Kind {
	case agentloop.EventBackendUsage:
		fmt.Printf("Prompt tokens: %v\n", event.Data["input_tokens"])
		fmt.Printf("Response tokens: %v\n", event.Data["output_tokens"])
	case agentloop.EventToolCallStart:
		fmt.Printf("Calling function: %v(%v)\n", event.Data["name"], event.Data["arguments"])
	case agentloop.EventToolCallEnd:
		if isErr, _ := event.Data["is_error"].(bool); isErr {
			fmt.Printf(" -> error: %v\n", event.Data["summary"])
		}
	case agentloop.EventRepeatWarning:
		fmt.Printf("Warning: %v\n", event.Data["message"])
	case agentloop.EventIterationLimit:
		fmt.Printf("Iteration limit reached after %v backend calls\n", event.Data["iterations"])
	}
}
