package pdftext

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	applogger "FinSight/pkg/logger"
)

// Extractor pulls plain text out of PDF bytes with pdfcpu. pdfcpu has no
// direct text API, so pages are extracted as content files into a temp dir
// and read back in page order.
type Extractor struct {
	tempDir string
	logger  *applogger.Logger
}

// NewExtractor creates a PDF text extractor.
func NewExtractor(l *applogger.Logger) *Extractor {
	tempDir := filepath.Join(os.TempDir(), "finsight-pdf")
	os.MkdirAll(tempDir, 0o755)

	return &Extractor{
		tempDir: tempDir,
		logger:  l,
	}
}

// ExtractText extracts text from PDF bytes. Pages with no text are skipped;
// the rest are joined with page separators.
func (e *Extractor) ExtractText(data []byte, filename string) (string, error) {
	tempFile := filepath.Join(e.tempDir, fmt.Sprintf("extract_%d.pdf", os.Getpid()))
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return "", fmt.Errorf("write temp pdf: %w", err)
	}
	defer os.Remove(tempFile)

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadContextFile(tempFile)
	if err != nil {
		return "", fmt.Errorf("read pdf %s: %w", filename, err)
	}
	pageCount := pdfCtx.PageCount

	outDir := filepath.Join(e.tempDir, fmt.Sprintf("pages_%d", os.Getpid()))
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}
	defer os.RemoveAll(outDir)

	if err := api.ExtractContentFile(tempFile, outDir, nil, conf); err != nil {
		return "", fmt.Errorf("extract pdf content: %w", err)
	}

	pageTexts := make(map[int]string)
	files, _ := os.ReadDir(outDir)
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(outDir, file.Name()))
		if err != nil {
			continue
		}
		var pageNum int
		if _, err := fmt.Sscanf(file.Name(), "Content_page_%d", &pageNum); err == nil {
			pageTexts[pageNum] = string(content)
		}
	}

	fullText := joinPages(pageTexts, pageCount)

	if e.logger != nil {
		e.logger.Debug("pdf text extracted",
			applogger.String("filename", filename),
			applogger.Int("pages", pageCount),
			applogger.Int("chars", len(fullText)),
		)
	}

	return fullText, nil
}

// joinPages concatenates non-empty pages in page order. Every kept page gets
// a marker, the first one included, so downstream prompts can cite pages.
func joinPages(pageTexts map[int]string, pageCount int) string {
	var fullText strings.Builder
	for pageNum := 1; pageNum <= pageCount; pageNum++ {
		text := strings.TrimSpace(pageTexts[pageNum])
		if text == "" {
			continue
		}
		if fullText.Len() > 0 {
			fullText.WriteString("\n\n")
		}
		fullText.WriteString(fmt.Sprintf("--- Page %d ---\n\n", pageNum))
		fullText.WriteString(text)
	}
	return fullText.String()
}
