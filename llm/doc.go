// Package llm is the backend protocol layer for agentbox. It presents a
// provider-agnostic request/response surface over gollm: a conversation is a
// list of messages, a request declares the capability schemas the model may
// call, and a response carries optional text, an ordered list of tool calls,
// and usage metadata.
//
// The package owns no orchestration. The agent loop in package agentloop
// drives it through Client.Complete and decides what to do with tool calls.
//
// Errors returned by Complete follow a small taxonomy (AuthenticationError,
// RateLimitError, ServerError, ...) so callers can report the failure class;
// the agent loop treats every one of them as fatal for the run.
package llm
