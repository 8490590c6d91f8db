package services

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"bank-research-platform/internal/logger"

	"github.com/ledongthuc/pdf"
)

// ExtractionResult contains the result of document text extraction, split
// per page so chunks can keep their source page number.
type ExtractionResult struct {
	Pages          []string
	WordCount      int
	CharacterCount int
}

// ExtractPDFText extracts plain text from a PDF file, page by page.
func ExtractPDFText(filePath string) (*ExtractionResult, error) {
	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if stat.Size() > 200<<20 { // 200MB safety cap
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF file: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF reader: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	extracted := 0

	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}

		fonts := make(map[string]*pdf.Font)
		text, err := page.GetPlainText(fonts)
		if err != nil {
			logger.Warn("failed to extract text from page", "page", i, "error", err)
			pages = append(pages, "")
			continue
		}

		pages = append(pages, text)
		extracted += len(text)
	}

	if extracted == 0 {
		return nil, fmt.Errorf("no text extracted from pdf")
	}

	result := &ExtractionResult{Pages: pages}
	for _, p := range pages {
		result.WordCount += len(strings.Fields(p))
		result.CharacterCount += len(p)
	}
	return result, nil
}

// ExtractPlainText wraps raw text in the extraction result shape used by the
// ingestion pipeline. Plain text uploads have no page structure.
func ExtractPlainText(filePath string) (*ExtractionResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file: %w", err)
	}
	text := string(content)
	if len(strings.TrimSpace(text)) == 0 {
		return nil, fmt.Errorf("text file is empty")
	}

	return &ExtractionResult{
		Pages:          []string{text},
		WordCount:      len(strings.Fields(text)),
		CharacterCount: len(text),
	}, nil
}
