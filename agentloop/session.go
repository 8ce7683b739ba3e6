package agentloop

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/martinemde/agentbox/llm"
)

// noOutputFallback is the final text reported when the terminating model
// turn carried no text content.
const noOutputFallback = "no output produced"

// RunStatus is the terminal state of a completed run.
type RunStatus string

const (
	// RunFinal: the backend returned a turn with zero tool calls.
	RunFinal RunStatus = "final"
	// RunIterationLimit: the iteration bound was exhausted without a
	// no-tool-call turn.
	RunIterationLimit RunStatus = "iteration_limit"
)

// Outcome describes how a run completed. Backend failures are not an
// Outcome; they are returned as errors from Run.
type Outcome struct {
	Status     RunStatus `json:"status"`
	Text       string    `json:"text"`
	Iterations int       `json:"iterations"`
	Usage      llm.Usage `json:"usage"`
}

// SessionConfig holds configuration for a session.
type SessionConfig struct {
	Provider              string         `json:"provider,omitempty"`
	Model                 string         `json:"model,omitempty"`
	MaxIterations         int            `json:"max_iterations"`
	ExecTimeoutMs         int            `json:"exec_timeout_ms"`
	ReadLimitBytes        int            `json:"read_limit_bytes"`
	ToolOutputLimits      map[string]int `json:"tool_output_limits,omitempty"`
	EnableRepeatDetection bool           `json:"enable_repeat_detection"`
	RepeatWindow          int            `json:"repeat_window"`
}

// DefaultSessionConfig returns the default configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxIterations:         20,
		ExecTimeoutMs:         30000, // 30 seconds
		ReadLimitBytes:        10000,
		EnableRepeatDetection: true,
		RepeatWindow:          10,
	}
}

// Session drives the agent loop: one backend call per iteration, sequential
// tool dispatch, append-only transcript, hard iteration ceiling.
type Session struct {
	id       string
	client   *llm.Client
	registry *Registry
	config   SessionConfig
	emitter  *EventEmitter
	history  []Turn
	mu       sync.Mutex
}

// NewSession creates a session over the given backend client and capability
// registry. A nil config uses DefaultSessionConfig.
func NewSession(client *llm.Client, registry *Registry, config *SessionConfig) *Session {
	sessionID := uuid.New().String()

	cfg := DefaultSessionConfig()
	if config != nil {
		cfg = *config
	}

	return &Session{
		id:       sessionID,
		client:   client,
		registry: registry,
		config:   cfg,
		emitter:  NewEventEmitter(sessionID, 256),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// History returns a copy of the transcript.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := make([]Turn, len(s.history))
	copy(h, s.history)
	return h
}

// Events returns the diagnostic event channel for the host application.
func (s *Session) Events() <-chan RunEvent {
	return s.emitter.Events()
}

// Close releases the event channel. Safe to call multiple times.
func (s *Session) Close() {
	s.emitter.Close()
}

// Run processes one prompt through the agent loop. It terminates on the
// first model turn with zero tool calls, or after MaxIterations backend
// calls. A backend failure returns an error and is never retried.
func (s *Session) Run(ctx context.Context, prompt string) (*Outcome, error) {
	s.mu.Lock()
	s.history = []Turn{NewUserTurn(prompt)}
	s.mu.Unlock()

	s.emitter.Emit(EventRunStart, map[string]interface{}{"prompt": prompt})

	systemInstruction := BuildSystemInstruction(s.registry)
	toolDefs := s.registry.Definitions()
	var totalUsage llm.Usage

	for iteration := 0; iteration < s.config.MaxIterations; iteration++ {
		select {
		case <-ctx.Done():
			s.emitter.Emit(EventError, map[string]interface{}{"error": ctx.Err().Error()})
			return nil, ctx.Err()
		default:
		}

		messages := append(
			[]llm.Message{llm.SystemMessage(systemInstruction)},
			ConvertHistoryToMessages(s.History())...,
		)

		s.emitter.Emit(EventBackendCall, map[string]interface{}{
			"iteration": iteration,
			"messages":  len(messages),
		})

		response, err := s.client.Complete(ctx, llm.Request{
			Model:    s.config.Model,
			Provider: s.config.Provider,
			Messages: messages,
			ToolDefs: toolDefs,
		})
		if err != nil {
			s.emitter.Emit(EventError, map[string]interface{}{"error": err.Error()})
			return nil, fmt.Errorf("backend call failed: %w", err)
		}

		totalUsage = totalUsage.Add(response.Usage)
		s.emitter.Emit(EventBackendUsage, map[string]interface{}{
			"input_tokens":  response.Usage.InputTokens,
			"output_tokens": response.Usage.OutputTokens,
		})

		// Record the model turn before executing anything, so the model's
		// intended tool plan is always part of the transcript.
		toolCalls := response.ToolCalls()
		s.append(NewModelTurn(response.Text(), toolCalls, response.Usage))

		if len(toolCalls) == 0 {
			text := response.Text()
			if text == "" {
				text = noOutputFallback
			}
			outcome := &Outcome{
				Status:     RunFinal,
				Text:       text,
				Iterations: iteration + 1,
				Usage:      totalUsage,
			}
			s.emitter.Emit(EventRunEnd, map[string]interface{}{"status": string(RunFinal)})
			return outcome, nil
		}

		// Dispatch strictly sequentially, in production order, at most once
		// each. One ToolResult turn per call, failures included.
		for _, call := range toolCalls {
			s.emitter.Emit(EventToolCallStart, map[string]interface{}{
				"name":      call.Name,
				"call_id":   call.ID,
				"arguments": string(call.Arguments),
			})

			result := s.registry.Dispatch(call)
			result.Content = TruncateToolOutput(result.Content, call.Name, s.config.ToolOutputLimits)
			s.append(NewToolResultTurn(result))

			s.emitter.Emit(EventToolCallEnd, map[string]interface{}{
				"name":     call.Name,
				"call_id":  call.ID,
				"is_error": result.IsError,
				"summary":  firstLine(result.Content),
			})
		}

		if s.config.EnableRepeatDetection && DetectRepeat(s.History(), s.config.RepeatWindow) {
			s.emitter.Emit(EventRepeatWarning, map[string]interface{}{
				"message": fmt.Sprintf("the last %d tool calls follow a repeating pattern", s.config.RepeatWindow),
			})
		}
	}

	s.emitter.Emit(EventIterationLimit, map[string]interface{}{
		"iterations": s.config.MaxIterations,
	})
	s.emitter.Emit(EventRunEnd, map[string]interface{}{"status": string(RunIterationLimit)})
	return &Outcome{
		Status:     RunIterationLimit,
		Text:       fmt.Sprintf("no final response after %d iterations", s.config.MaxIterations),
		Iterations: s.config.MaxIterations,
		Usage:      totalUsage,
	}, nil
}

func (s *Session) append(turn Turn) {
	s.mu.Lock()
	s.history = append(s.history, turn)
	s.mu.Unlock()
}
