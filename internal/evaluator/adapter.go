// Package evaluator adapts chat-completion models into circle evaluators:
// one call in, one classified three-valued assessment (or failure) out.
package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firecircle/internal/circle"
	"firecircle/internal/openrouter"
)

// LLMClient is the transport the adapter calls through. Satisfied by
// *openrouter.Client and mocked in tests.
type LLMClient interface {
	ChatCompletion(ctx context.Context, model string, messages []openrouter.Message) (*openrouter.ChatResponse, error)
}

// Capabilities records which participants reliably emit structured JSON.
// Structured participants get a JSON-only instruction suffix and the strict
// decode first; the rest go straight to the text-extraction fallback.
type Capabilities map[string]bool

const structuredSuffix = `Respond with ONLY a JSON object in this exact shape, no other text:
{"truth": 0.0, "indeterminacy": 0.0, "falsehood": 0.0, "reasoning": "...", "patterns_observed": ["..."]}`

const freeformSuffix = `State your values on separate lines as "truth: <0-1>", "indeterminacy: <0-1>" and "falsehood: <0-1>", ` +
	`then your reasoning, then a line "patterns observed: <comma-separated names>" if you observe any.`

// Adapter evaluates one participant per call. It holds no per-call state and
// is safe for concurrent use across distinct participants. It never retries;
// retry policy belongs to the transport underneath.
type Adapter struct {
	llm  LLMClient
	caps Capabilities
}

// NewAdapter wraps a transport client with a capability table.
func NewAdapter(llm LLMClient, caps Capabilities) *Adapter {
	if caps == nil {
		caps = Capabilities{}
	}
	return &Adapter{llm: llm, caps: caps}
}

// Evaluate implements circle.Evaluator. Timeouts, transport errors and
// unparseable responses come back as classified failures, never as panics or
// partial assessments.
func (a *Adapter) Evaluate(ctx context.Context, req circle.EvalRequest) (circle.Assessment, *circle.CallFailure) {
	structured := a.caps[req.ParticipantID]

	cctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := a.llm.ChatCompletion(cctx, req.ParticipantID, buildMessages(req, structured))
	latency := time.Since(start)

	if err != nil {
		reason := circle.FailureTransport
		if errors.Is(err, context.DeadlineExceeded) || cctx.Err() == context.DeadlineExceeded {
			reason = circle.FailureTimeout
		}
		return circle.Assessment{}, &circle.CallFailure{
			ParticipantID: req.ParticipantID,
			Reason:        reason,
			Detail:        err.Error(),
		}
	}
	if len(resp.Choices) == 0 {
		return circle.Assessment{}, &circle.CallFailure{
			ParticipantID: req.ParticipantID,
			Reason:        circle.FailureUnparseable,
			Detail:        "empty response",
		}
	}

	raw := resp.Choices[0].Message.Content
	result, path, ok := parse(raw, structured)
	if !ok {
		return circle.Assessment{}, &circle.CallFailure{
			ParticipantID: req.ParticipantID,
			Reason:        circle.FailureUnparseable,
			Detail:        fmt.Sprintf("no assessment in %d bytes of response", len(raw)),
		}
	}

	return circle.Assessment{
		ParticipantID: req.ParticipantID,
		Truth:         clamp01(result.Truth),
		Indeterminacy: clamp01(result.Indeterminacy),
		Falsehood:     clamp01(result.Falsehood),
		Reasoning:     result.Reasoning,
		Patterns:      result.PatternsObserved,
		ParsePath:     path,
		Latency:       latency,
	}, nil
}

func parse(raw string, structured bool) (structuredResult, circle.ParsePath, bool) {
	if structured {
		if result, ok := parseStrict(raw); ok {
			return result, circle.ParseStrict, true
		}
	}
	result, ok := parseFallback(raw)
	return result, circle.ParseFallback, ok
}

func buildMessages(req circle.EvalRequest, structured bool) []openrouter.Message {
	suffix := freeformSuffix
	if structured {
		suffix = structuredSuffix
	}
	return []openrouter.Message{
		{Role: "system", Content: req.Instructions + "\n\n" + suffix},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nText under evaluation:\n%s", req.Context, req.Text)},
	}
}
