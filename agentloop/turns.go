package agentloop

import (
	"time"

	"github.com/martinemde/agentbox/llm"
)

// TurnKind discriminates between transcript entry types.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnModel      TurnKind = "model"
	TurnToolResult TurnKind = "tool_result"
)

// Turn is a single entry in the conversation transcript. The transcript is
// append-only during a run and is never persisted.
type Turn struct {
	Kind       TurnKind        `json:"kind"`
	Timestamp  time.Time       `json:"timestamp"`
	User       *UserTurn       `json:"user,omitempty"`
	Model      *ModelTurn      `json:"model,omitempty"`
	ToolResult *ToolResultTurn `json:"tool_result,omitempty"`
}

// UserTurn holds user input.
type UserTurn struct {
	Content string `json:"content"`
}

// ModelTurn holds one backend response: optional text plus the ordered
// tool-call requests it produced.
type ModelTurn struct {
	Content   string         `json:"content"`
	ToolCalls []llm.ToolCall `json:"tool_calls,omitempty"`
	Usage     llm.Usage      `json:"usage"`
}

// ToolResultTurn holds the outcome of a single capability invocation.
type ToolResultTurn struct {
	Result llm.ToolResult `json:"result"`
}

// NewUserTurn creates a Turn wrapping user input.
func NewUserTurn(content string) Turn {
	return Turn{
		Kind:      TurnUser,
		Timestamp: time.Now(),
		User:      &UserTurn{Content: content},
	}
}

// NewModelTurn creates a Turn wrapping a backend response.
func NewModelTurn(content string, toolCalls []llm.ToolCall, usage llm.Usage) Turn {
	return Turn{
		Kind:      TurnModel,
		Timestamp: time.Now(),
		Model:     &ModelTurn{Content: content, ToolCalls: toolCalls, Usage: usage},
	}
}

// NewToolResultTurn creates a Turn wrapping one tool result.
func NewToolResultTurn(result llm.ToolResult) Turn {
	return Turn{
		Kind:       TurnToolResult,
		Timestamp:  time.Now(),
		ToolResult: &ToolResultTurn{Result: result},
	}
}

// ConvertHistoryToMessages converts the turn-based transcript into backend
// messages. The backend is stateless between calls, so the whole transcript
// travels on every request.
func ConvertHistoryToMessages(history []Turn) []llm.Message {
	var messages []llm.Message
	for _, turn := range history {
		switch turn.Kind {
		case TurnUser:
			if turn.User != nil {
				messages = append(messages, llm.UserMessage(turn.User.Content))
			}
		case TurnModel:
			if turn.Model != nil {
				msg := llm.AssistantMessage(turn.Model.Content)
				for _, tc := range turn.Model.ToolCalls {
					msg.Content = append(msg.Content,
						llm.ToolCallPart(tc.ID, tc.Name, tc.Arguments))
				}
				messages = append(messages, msg)
			}
		case TurnToolResult:
			if turn.ToolResult != nil {
				r := turn.ToolResult.Result
				messages = append(messages,
					llm.ToolResultMessage(r.ToolCallID, r.Name, r.Content, r.IsError))
			}
		}
	}
	return messages
}
