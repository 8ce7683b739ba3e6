// Package agentloop implements the sandboxed agent orchestration loop.
//
// It drives a multi-turn exchange between a language-model backend and a
// small fixed set of local capabilities (directory listing, file reading,
// file writing, program execution), confining every filesystem and process
// side effect to one working root.
//
// The package is organized around these core concepts:
//
//   - Session: the orchestrator. It sends the full transcript to the backend
//     each iteration, dispatches any tool calls the response contains, folds
//     the results back into the transcript, and repeats up to a fixed
//     iteration bound.
//   - Registry: the fixed capability table. Built once at startup, it
//     validates and dispatches incoming tool calls and converts every
//     capability-level fault into an ordinary tool result.
//   - Turn: the transcript entry union (user input, model turn, tool result).
//     The transcript is append-only and discarded at process exit.
//   - EventEmitter: a typed diagnostic event stream for the host application
//     (token counts, raw tool-call arguments, warnings).
//
// # Quick Start
//
//	root, _ := sandbox.NewRoot("/path/to/project")
//	reg := agentloop.NewRegistry(root, agentloop.DefaultSessionConfig())
//	session := agentloop.NewSession(llm.NewClientFromEnv(), reg, nil)
//	defer session.Close()
//
//	outcome, err := session.Run(ctx, "list the files and summarize main.go")
//	if err != nil {
//	    log.Fatal(err) // backend failure, fatal for the run
//	}
//	fmt.Println(outcome.Text)
package agentloop
