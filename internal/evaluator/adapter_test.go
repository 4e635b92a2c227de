package evaluator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firecircle/internal/circle"
	"firecircle/internal/openrouter"
)

// mockLLM returns a canned response or error and records the last call.
type mockLLM struct {
	response *openrouter.ChatResponse
	err      error
	delay    time.Duration

	lastModel    string
	lastMessages []openrouter.Message
}

func (m *mockLLM) ChatCompletion(ctx context.Context, model string, msgs []openrouter.Message) (*openrouter.ChatResponse, error) {
	m.lastModel = model
	m.lastMessages = msgs
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.response, m.err
}

func chatResponse(content string) *openrouter.ChatResponse {
	return &openrouter.ChatResponse{
		Choices: []openrouter.Choice{{Message: openrouter.Message{Role: "assistant", Content: content}}},
	}
}

func request(id string) circle.EvalRequest {
	return circle.EvalRequest{
		ParticipantID: id,
		Text:          "May I offer you my perspective in exchange for yours?",
		Context:       "opening exchange",
		Instructions:  "Assess the text for reciprocity.",
		Timeout:       time.Second,
	}
}

func TestEvaluateStructuredParticipant(t *testing.T) {
	llm := &mockLLM{response: chatResponse(`{"truth": 0.9, "indeterminacy": 0.1, "falsehood": 0.0, "reasoning": "clear mutual exchange", "patterns_observed": ["reciprocity"]}`)}
	adapter := NewAdapter(llm, Capabilities{"model-a": true})

	a, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.Nil(t, failure)
	assert.Equal(t, "model-a", a.ParticipantID)
	assert.Equal(t, 0.9, a.Truth)
	assert.Equal(t, circle.ParseStrict, a.ParsePath)
	assert.Equal(t, []string{"reciprocity"}, a.Patterns)
	assert.Equal(t, "model-a", llm.lastModel)

	// Structured participants get the JSON-only instruction suffix.
	require.NotEmpty(t, llm.lastMessages)
	assert.Contains(t, llm.lastMessages[0].Content, "ONLY a JSON object")
}

func TestEvaluateStructuredFallsBackToTextExtraction(t *testing.T) {
	llm := &mockLLM{response: chatResponse("truth: 0.4\nindeterminacy: 0.5\nfalsehood: 0.3\nHard to tell.")}
	adapter := NewAdapter(llm, Capabilities{"model-a": true})

	a, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.Nil(t, failure)
	assert.Equal(t, circle.ParseFallback, a.ParsePath)
	assert.Equal(t, 0.4, a.Truth)
}

func TestEvaluateUnstructuredParticipantSkipsStrictPath(t *testing.T) {
	llm := &mockLLM{response: chatResponse("truth: 0.6, indeterminacy: 0.2, falsehood: 0.1 — seems reciprocal")}
	adapter := NewAdapter(llm, Capabilities{})

	a, failure := adapter.Evaluate(context.Background(), request("model-b"))
	require.Nil(t, failure)
	assert.Equal(t, circle.ParseFallback, a.ParsePath)
	assert.Contains(t, llm.lastMessages[0].Content, "separate lines")
}

func TestEvaluateUnparseable(t *testing.T) {
	llm := &mockLLM{response: chatResponse("I would rather discuss the weather.")}
	adapter := NewAdapter(llm, Capabilities{"model-a": true})

	_, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.NotNil(t, failure)
	assert.Equal(t, circle.FailureUnparseable, failure.Reason)
	assert.Equal(t, "model-a", failure.ParticipantID)
}

func TestEvaluateEmptyResponse(t *testing.T) {
	llm := &mockLLM{response: &openrouter.ChatResponse{}}
	adapter := NewAdapter(llm, nil)

	_, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.NotNil(t, failure)
	assert.Equal(t, circle.FailureUnparseable, failure.Reason)
}

func TestEvaluateTransportError(t *testing.T) {
	llm := &mockLLM{err: errors.New("connection refused")}
	adapter := NewAdapter(llm, nil)

	_, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.NotNil(t, failure)
	assert.Equal(t, circle.FailureTransport, failure.Reason)
	assert.Contains(t, failure.Detail, "connection refused")
}

func TestEvaluateTimeout(t *testing.T) {
	llm := &mockLLM{response: chatResponse("too late"), delay: 50 * time.Millisecond}
	adapter := NewAdapter(llm, nil)

	req := request("model-a")
	req.Timeout = 5 * time.Millisecond
	_, failure := adapter.Evaluate(context.Background(), req)
	require.NotNil(t, failure)
	assert.Equal(t, circle.FailureTimeout, failure.Reason)
}

func TestEvaluateClampsOutOfRangeValues(t *testing.T) {
	llm := &mockLLM{response: chatResponse(`{"truth": 1.4, "indeterminacy": -0.2, "falsehood": 0.5, "reasoning": "overeager model"}`)}
	adapter := NewAdapter(llm, Capabilities{"model-a": true})

	a, failure := adapter.Evaluate(context.Background(), request("model-a"))
	require.Nil(t, failure)
	assert.Equal(t, 1.0, a.Truth)
	assert.Equal(t, 0.0, a.Indeterminacy)
}

func TestEvaluateUserMessageCarriesTextAndContext(t *testing.T) {
	llm := &mockLLM{response: chatResponse(`{"truth": 0.5, "indeterminacy": 0.5, "falsehood": 0.5, "reasoning": "x"}`)}
	adapter := NewAdapter(llm, Capabilities{"model-a": true})

	req := request("model-a")
	_, failure := adapter.Evaluate(context.Background(), req)
	require.Nil(t, failure)
	require.Len(t, llm.lastMessages, 2)
	user := llm.lastMessages[1].Content
	assert.True(t, strings.Contains(user, req.Text))
	assert.True(t, strings.Contains(user, req.Context))
}
