package llm

import (
	"context"
	"errors"
	"testing"
)

type mockAdapter struct {
	name     string
	response *Response
	err      error
	calls    int
	lastReq  Request
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Complete(ctx context.Context, req Request) (*Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func okResponse(provider, text string) *Response {
	return &Response{
		ID:       "resp_1",
		Provider: provider,
		Message:  AssistantMessage(text),
	}
}

func TestClientRoutesToDefaultProvider(t *testing.T) {
	adapter := &mockAdapter{name: "gemini", response: okResponse("gemini", "hi")}
	client := NewClient(WithProvider("gemini", adapter))

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text() != "hi" {
		t.Errorf("unexpected text: %q", resp.Text())
	}
	if adapter.calls != 1 {
		t.Errorf("expected 1 call, got %d", adapter.calls)
	}
	// Single registered provider becomes the default automatically.
	if adapter.lastReq.Provider != "gemini" {
		t.Errorf("request provider not filled in: %q", adapter.lastReq.Provider)
	}
}

func TestClientRoutesByRequestProvider(t *testing.T) {
	gemini := &mockAdapter{name: "gemini", response: okResponse("gemini", "from gemini")}
	anthropic := &mockAdapter{name: "anthropic", response: okResponse("anthropic", "from anthropic")}
	client := NewClient(
		WithProvider("gemini", gemini),
		WithProvider("anthropic", anthropic),
		WithDefaultProvider("gemini"),
	)

	resp, err := client.Complete(context.Background(), Request{
		Provider: "anthropic",
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text() != "from anthropic" {
		t.Errorf("routed to the wrong provider: %q", resp.Text())
	}
	if gemini.calls != 0 {
		t.Error("default provider called despite explicit request provider")
	}
}

func TestClientNoProviderConfigured(t *testing.T) {
	client := NewClient()

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestClientUnknownProvider(t *testing.T) {
	adapter := &mockAdapter{name: "gemini", response: okResponse("gemini", "hi")}
	client := NewClient(WithProvider("gemini", adapter))

	_, err := client.Complete(context.Background(), Request{
		Provider: "openai",
		Messages: []Message{UserMessage("hello")},
	})
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError for unregistered provider, got %v", err)
	}
}

func TestClientPropagatesAdapterError(t *testing.T) {
	adapter := &mockAdapter{name: "gemini", err: &RateLimitError{ProviderError: ProviderError{
		SDKError: SDKError{Message: "quota exceeded"}, Provider: "gemini", StatusCode: 429,
	}}}
	client := NewClient(WithProvider("gemini", adapter))

	_, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	var rateErr *RateLimitError
	if !errors.As(err, &rateErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if adapter.calls != 1 {
		t.Errorf("adapter errors must not be retried, got %d calls", adapter.calls)
	}
}

func TestRegisterProviderSetsFirstAsDefault(t *testing.T) {
	client := NewClient()
	adapter := &mockAdapter{name: "openai", response: okResponse("openai", "ok")}
	client.RegisterProvider("openai", adapter)

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{UserMessage("hello")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text() != "ok" {
		t.Errorf("unexpected text: %q", resp.Text())
	}
}
