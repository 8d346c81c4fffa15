package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"

	"google.golang.org/genai"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) ExtractText([]byte, string) (string, error) {
	return f.text, f.err
}

func TestAnalyzeDocumentUploadPath(t *testing.T) {
	c := newTestClient()
	c.uploadAnalyze = func(_ context.Context, _ []byte, query, _ string) (string, error) {
		if query != "What are the risks?" {
			t.Fatalf("unexpected query %q", query)
		}
		return "upload analysis", nil
	}

	got := c.AnalyzeDocument(context.Background(), []byte("pdf"), "What are the risks?", "report.pdf")
	if got != "upload analysis" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestAnalyzeDocumentFallsBackToExtraction(t *testing.T) {
	c := newTestClient()
	c.extractor = fakeExtractor{text: "Revenue grew 12% in fiscal 2025."}

	var gotPrompt string
	c.generate = func(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
		gotPrompt = contents[0].Parts[0].Text
		return "extracted analysis", nil
	}

	got := c.AnalyzeDocument(context.Background(), []byte("pdf"), "Summarize revenue.", "report.pdf")
	if got != "extracted analysis" {
		t.Fatalf("unexpected result %q", got)
	}
	if !strings.Contains(gotPrompt, "Revenue grew 12%") {
		t.Fatalf("prompt missing extracted text: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "Summarize revenue.") {
		t.Fatalf("prompt missing query: %q", gotPrompt)
	}
}

func TestAnalyzeDocumentTruncatesExtractedText(t *testing.T) {
	c := newTestClient()
	c.maxChars = 50
	c.extractor = fakeExtractor{text: strings.Repeat("a", 200)}

	var gotPrompt string
	c.generate = func(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
		gotPrompt = contents[0].Parts[0].Text
		return "ok", nil
	}

	c.AnalyzeDocument(context.Background(), []byte("pdf"), "q", "big.pdf")
	if !strings.Contains(gotPrompt, truncationMarker) {
		t.Fatalf("expected truncation marker in prompt")
	}
	if strings.Count(gotPrompt, "a") != 50 {
		t.Fatalf("expected 50 chars of body, got %d", strings.Count(gotPrompt, "a"))
	}
}

func TestAnalyzeDocumentCombinedFailure(t *testing.T) {
	c := newTestClient()
	c.extractor = fakeExtractor{err: errors.New("not a pdf")}

	got := c.AnalyzeDocument(context.Background(), []byte("junk"), "q", "junk.bin")
	if !strings.HasPrefix(got, "Error analyzing document:") {
		t.Fatalf("unexpected result %q", got)
	}
	if !strings.Contains(got, "upload") || !strings.Contains(got, "not a pdf") {
		t.Fatalf("combined failure missing causes: %q", got)
	}
}

func TestAnalyzeDocumentDefaultQuery(t *testing.T) {
	c := newTestClient()
	var gotQuery string
	c.uploadAnalyze = func(_ context.Context, _ []byte, query, _ string) (string, error) {
		gotQuery = query
		return "ok", nil
	}

	c.AnalyzeDocument(context.Background(), []byte("pdf"), "", "report.pdf")
	if gotQuery != defaultDocumentQuery {
		t.Fatalf("expected default query, got %q", gotQuery)
	}
}
