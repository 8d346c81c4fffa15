package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"FinSight/internal/domain/models"
)

func newTestClient() *Client {
	c := &Client{
		model:    "test-model",
		sleep:    func(time.Duration) {},
		maxChars: 60000,
		pollMax:  time.Minute,
	}
	c.generate = c.callWithRetry
	c.uploadAnalyze = func(context.Context, []byte, string, string) (string, error) {
		return "", errors.New("upload disabled in tests")
	}
	return c
}

func TestCallWithRetryLadder(t *testing.T) {
	c := newTestClient()

	var waits []time.Duration
	c.sleep = func(d time.Duration) { waits = append(waits, d) }

	calls := 0
	c.call = func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		calls++
		return "", errors.New("got 429 from upstream")
	}

	_, err := c.callWithRetry(context.Background(), "generate", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}

	// Every failed attempt waits, the final one included.
	want := []time.Duration{2 * time.Second, 3 * time.Second, 5 * time.Second, 9 * time.Second}
	if len(waits) != len(want) {
		t.Fatalf("expected %d waits, got %v", len(want), waits)
	}
	for i := range want {
		if waits[i] != want[i] {
			t.Fatalf("wait %d: expected %v, got %v", i, want[i], waits[i])
		}
	}
}

func TestCallWithRetryRecovers(t *testing.T) {
	c := newTestClient()

	calls := 0
	c.call = func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("Resource exhausted")
		}
		return "ok", nil
	}

	text, err := c.callWithRetry(context.Background(), "generate", nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "ok" {
		t.Fatalf("unexpected text %q", text)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestCallWithRetryNonRetryable(t *testing.T) {
	c := newTestClient()

	calls := 0
	c.call = func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		calls++
		return "", errors.New("invalid request")
	}

	_, err := c.callWithRetry(context.Background(), "generate", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected single attempt, got %d", calls)
	}
}

func TestGenerateReturnsErrorText(t *testing.T) {
	c := newTestClient()
	c.call = func(context.Context, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
		return "", errors.New("boom")
	}

	got := c.Generate(context.Background(), "hello", nil)
	if !strings.HasPrefix(got, "Error generating response:") {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestGeneratePassesSystemInstruction(t *testing.T) {
	c := newTestClient()

	var gotCfg *genai.GenerateContentConfig
	c.call = func(_ context.Context, _ []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
		gotCfg = cfg
		return "done", nil
	}

	out := c.Generate(context.Background(), "hello", &models.GenerateOptions{
		SystemInstruction: "You are a market analyst.",
		Temperature:       models.Temp(0.7),
	})
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}
	if gotCfg.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}
	if gotCfg.Temperature == nil || *gotCfg.Temperature != 0.7 {
		t.Fatalf("unexpected temperature %v", gotCfg.Temperature)
	}
}

func TestChatCompletionEmptyHistory(t *testing.T) {
	c := newTestClient()
	got := c.ChatCompletion(context.Background(), nil)
	if !strings.HasPrefix(got, "Error generating response:") {
		t.Fatalf("unexpected response %q", got)
	}
}

func TestChatCompletionRoles(t *testing.T) {
	c := newTestClient()

	var gotContents []*genai.Content
	c.call = func(_ context.Context, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
		gotContents = contents
		return "reply", nil
	}

	messages := []models.ChatMessage{
		{Role: "user", Content: "What is AAPL trading at?"},
		{Role: "model", Content: "I do not have live prices."},
		{Role: "user", Content: "Estimate it then."},
	}
	if got := c.ChatCompletion(context.Background(), messages); got != "reply" {
		t.Fatalf("unexpected reply %q", got)
	}
	if len(gotContents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(gotContents))
	}
	for i, want := range []string{"user", "model", "user"} {
		if gotContents[i].Role != want {
			t.Fatalf("content %d: expected role %s, got %s", i, want, gotContents[i].Role)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  string
		want bool
	}{
		{"got 429 too many requests", true},
		{"upstream 503 unavailable", true},
		{"Resource exhausted", true},
		{"RESOURCE_EXHAUSTED: quota", true},
		{"invalid argument", false},
		{"got 500 internal", false},
	}
	for _, tc := range cases {
		if got := isRetryable(fmt.Errorf("%s", tc.err)); got != tc.want {
			t.Fatalf("isRetryable(%q) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
