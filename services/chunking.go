package services

import (
	"regexp"
	"strings"
)

// ChunkingService splits extracted document text into overlapping,
// paragraph-aware fragments sized for the embedding model.
type ChunkingService struct {
	maxChunkSize   int
	overlap        int
	minChunkSize   int
	sentenceRegex  *regexp.Regexp
	paragraphRegex *regexp.Regexp
}

// NewChunkingService creates a new chunking service
func NewChunkingService(maxChunkSize, overlap, minChunkSize int) *ChunkingService {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if minChunkSize <= 0 {
		minChunkSize = 100
	}
	return &ChunkingService{
		maxChunkSize:   maxChunkSize,
		overlap:        overlap,
		minChunkSize:   minChunkSize,
		sentenceRegex:  regexp.MustCompile(`[.!?]+[\s]+`),
		paragraphRegex: regexp.MustCompile(`\n\n+`),
	}
}

// TextChunk is a chunked fragment before embedding and storage.
type TextChunk struct {
	Text  string
	Order int
	Page  int
}

// ChunkPages chunks page-separated text, keeping the source page number on
// each fragment. The order index is global across the document.
func (cs *ChunkingService) ChunkPages(pages []string) []TextChunk {
	var chunks []TextChunk
	order := 0
	for pageNum, pageText := range pages {
		for _, text := range cs.splitText(pageText) {
			chunks = append(chunks, TextChunk{Text: text, Order: order, Page: pageNum + 1})
			order++
		}
	}
	return chunks
}

// ChunkText chunks a single body of text with no page information.
func (cs *ChunkingService) ChunkText(text string) []TextChunk {
	var chunks []TextChunk
	for order, t := range cs.splitText(text) {
		chunks = append(chunks, TextChunk{Text: t, Order: order})
	}
	return chunks
}

// splitText chunks text with paragraph and sentence boundary awareness.
func (cs *ChunkingService) splitText(text string) []string {
	paragraphs := filterEmpty(cs.paragraphRegex.Split(text, -1))
	if len(paragraphs) == 0 {
		return nil
	}

	var out []string
	currentChunk := new(strings.Builder)
	currentSize := 0

	for _, paragraph := range paragraphs {
		paragraph = strings.TrimSpace(paragraph)
		if len(paragraph) == 0 {
			continue
		}

		paraSize := len(paragraph)

		// If adding this paragraph would exceed max size, finalize the chunk
		if currentSize+paraSize > cs.maxChunkSize && currentSize >= cs.minChunkSize {
			if currentChunk.Len() > 0 {
				out = append(out, currentChunk.String())
			}

			currentChunk = new(strings.Builder)
			currentSize = 0

			// Seed the next chunk with overlap from the previous one
			if len(out) > 0 && cs.overlap > 0 {
				overlapText := cs.overlapText(out[len(out)-1])
				if len(overlapText) > 0 {
					currentChunk.WriteString(overlapText)
					currentSize += len(overlapText)
				}
			}
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(paragraph)
		currentSize += paraSize
	}

	if currentChunk.Len() > 0 {
		out = append(out, currentChunk.String())
	}

	return out
}

// overlapText extracts overlap text from the end of the previous chunk,
// preferring a sentence boundary over a hard character cut.
func (cs *ChunkingService) overlapText(text string) string {
	if len(text) <= cs.overlap {
		return text
	}

	tail := text[len(text)-cs.overlap:]
	sentences := filterEmpty(cs.sentenceRegex.Split(tail, -1))
	if len(sentences) <= 1 {
		return tail
	}

	// Drop the leading partial sentence
	return strings.Join(sentences[1:], ". ")
}

// filterEmpty removes empty strings from slice
func filterEmpty(slice []string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if len(strings.TrimSpace(s)) > 0 {
			result = append(result, s)
		}
	}
	return result
}
