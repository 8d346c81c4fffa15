package gemini

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/genai"

	applogger "FinSight/pkg/logger"
)

// Extractor produces plain text from raw document bytes. Used as the local
// fallback when the Files API cannot take the document.
type Extractor interface {
	ExtractText(data []byte, filename string) (string, error)
}

const (
	defaultDocumentQuery = `Analyze this financial document comprehensively. Extract:
1. Key financial metrics and data points
2. Important risk factors
3. Management's discussion highlights
4. Any notable changes from prior periods
5. Summary of key findings
Format with clear sections and bullet points.`
	truncationMarker     = "\n\n... [text truncated] ..."
	documentTemperature  = float32(0.2)
)

// AnalyzeDocument answers a question about an uploaded document. It first
// tries the Files API (upload, poll until active, generate against the file
// URI) and falls back to local text extraction when that path fails. When
// both paths fail the combined report is returned as text, never an error.
func (c *Client) AnalyzeDocument(ctx context.Context, data []byte, query, filename string) string {
	if query == "" {
		query = defaultDocumentQuery
	}

	text, uploadErr := c.uploadAnalyze(ctx, data, query, filename)
	if uploadErr == nil {
		return text
	}
	if c.logger != nil {
		c.logger.Warn("document upload path failed, falling back to local extraction",
			applogger.String("filename", filename),
			applogger.Error(uploadErr),
		)
	}

	text, extractErr := c.analyzeViaExtraction(ctx, data, query, filename)
	if extractErr == nil {
		return text
	}

	return fmt.Sprintf(
		"Error analyzing document: upload failed (%v); local text extraction failed (%v)",
		uploadErr, extractErr,
	)
}

// analyzeViaUpload pushes the document through the Files API and generates
// against the stored file. The uploaded file and the temp copy are released
// on every path.
func (c *Client) analyzeViaUpload(ctx context.Context, data []byte, query, filename string) (string, error) {
	tmp, err := os.CreateTemp("", "finsight-doc-*"+filepath.Ext(filename))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	file, err := c.genai.Files.UploadFromPath(ctx, tmpPath, &genai.UploadFileConfig{
		MIMEType: "application/pdf",
	})
	if err != nil {
		return "", fmt.Errorf("upload document: %w", err)
	}
	defer func() {
		delCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := c.genai.Files.Delete(delCtx, file.Name, nil); err != nil && c.logger != nil {
			c.logger.Warn("delete uploaded file failed",
				applogger.String("file", file.Name),
				applogger.Error(err),
			)
		}
	}()

	file, err = c.waitForFile(ctx, file)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromURI(file.URI, file.MIMEType),
			genai.NewPartFromText(query),
		},
	}}

	text, err := c.callWithRetry(ctx, "document", contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(documentTemperature),
		MaxOutputTokens: defaultMaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate from uploaded document: %w", err)
	}
	return text, nil
}

// waitForFile polls the uploaded file until it leaves the processing state.
func (c *Client) waitForFile(ctx context.Context, file *genai.File) (*genai.File, error) {
	deadline := time.Now().Add(c.pollMax)
	for file.State == genai.FileStateProcessing {
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("uploaded file still processing after %s", c.pollMax)
		}
		c.sleep(time.Second)

		var err error
		file, err = c.genai.Files.Get(ctx, file.Name, nil)
		if err != nil {
			return nil, fmt.Errorf("poll uploaded file: %w", err)
		}
	}
	if file.State == genai.FileStateFailed {
		return nil, fmt.Errorf("uploaded file processing failed: %s", file.Name)
	}
	return file, nil
}

// analyzeViaExtraction extracts text locally, truncates it to the configured
// budget and answers the query against the inlined text.
func (c *Client) analyzeViaExtraction(ctx context.Context, data []byte, query, filename string) (string, error) {
	if c.extractor == nil {
		return "", fmt.Errorf("no local extractor configured")
	}

	text, err := c.extractor.ExtractText(data, filename)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("no text extracted from %s", filename)
	}

	if len(text) > c.maxChars {
		text = text[:c.maxChars] + truncationMarker
	}

	prompt := fmt.Sprintf("Document content:\n\n%s\n\nQuestion: %s", text, query)
	result, err := c.generate(ctx, "document", []*genai.Content{
		{Role: "user", Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(documentTemperature),
		MaxOutputTokens: defaultMaxOutputTokens,
	})
	if err != nil {
		return "", fmt.Errorf("generate from extracted text: %w", err)
	}
	return result, nil
}
