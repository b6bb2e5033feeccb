// Package assist implements the Gemini-backed document assistant. It
// answers questions about uploaded HR policy documents using keyword
// retrieval for context; it never generates or executes SQL.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"peopleops/internal/logging"
)

// DefaultModel is the Gemini model used when config does not override it.
const DefaultModel = "gemini-2.0-flash-exp"

// minRequestGap rate-limits outbound calls.
const minRequestGap = 100 * time.Millisecond

// ErrAssistantDisabled indicates no API credential was configured.
var ErrAssistantDisabled = errors.New("assistant disabled: no API credential configured")

// Generator produces model text for a prompt. Satisfied by geminiClient;
// tests substitute a fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// geminiClient wraps the genai SDK with retries and a minimum inter-request
// gap.
type geminiClient struct {
	client     *genai.Client
	model      string
	maxRetries int
	timeout    time.Duration

	mu       sync.Mutex
	lastCall time.Time
}

// newGeminiClient builds the SDK client. model and maxRetries fall back to
// defaults when zero.
func newGeminiClient(ctx context.Context, apiKey, model string, maxRetries int, timeout time.Duration) (*geminiClient, error) {
	if apiKey == "" {
		return nil, ErrAssistantDisabled
	}
	if model == "" {
		model = DefaultModel
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiClient{
		client:     client,
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
	}, nil
}

// Generate sends the prompt and returns the model's text. Transient
// failures are retried with exponential backoff (1s, 2s, 4s...). A
// deadline is applied when the caller's context has none.
func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.rateGate()

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		timer := logging.StartTimer(logging.CategoryAssist, fmt.Sprintf("Generate attempt %d", attempt))
		resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
		timer.Stop()

		if err == nil {
			text := strings.TrimSpace(resp.Text())
			if text == "" {
				lastErr = fmt.Errorf("model returned empty response")
			} else {
				return text, nil
			}
		} else {
			lastErr = err
		}

		logging.AssistWarn("Generate attempt %d/%d failed: %v", attempt, c.maxRetries, lastErr)

		if attempt < c.maxRetries {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return "", fmt.Errorf("gemini generate failed after %d attempts: %w", c.maxRetries, lastErr)
}

// rateGate enforces the minimum gap between outbound requests.
func (c *geminiClient) rateGate() {
	c.mu.Lock()
	wait := minRequestGap - time.Since(c.lastCall)
	if wait > 0 {
		c.lastCall = c.lastCall.Add(minRequestGap)
	} else {
		c.lastCall = time.Now()
	}
	c.mu.Unlock()

	if wait > 0 {
		time.Sleep(wait)
	}
}
