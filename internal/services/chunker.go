package services

import (
	"strings"
	"unicode/utf8"
)

// TextChunker splits long document text into overlapping passages sized for
// the embedding model. The similarity index stores one vector per passage.
type TextChunker interface {
	Chunk(text string, maxChunkSize, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

func (tc *textChunker) Chunk(text string, maxChunkSize, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var (
		chunks  []string
		current strings.Builder
		seedLen int
	)

	flush := func() {
		// A buffer holding nothing past the overlap seed is not a chunk.
		if current.Len() <= seedLen {
			return
		}
		chunks = append(chunks, current.String())
		current.Reset()
		seedLen = 0

		// Seed the next chunk with the tail of the previous one so no
		// passage boundary hides a sentence from the index.
		if overlap > 0 {
			tail := lastRunes(chunks[len(chunks)-1], overlap)
			if tail != "" {
				current.WriteString(tail)
				current.WriteString(" ")
				seedLen = current.Len()
			}
		}
	}

	for _, part := range splitParts(text, maxChunkSize) {
		if current.Len()+len(part)+1 > maxChunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(part)
	}

	if current.Len() > seedLen {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitParts yields paragraphs, breaking oversized paragraphs into
// sentences and oversized sentences at hard rune boundaries.
func splitParts(text string, maxChunkSize int) []string {
	var parts []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChunkSize {
			parts = append(parts, para)
			continue
		}
		for _, sentence := range splitSentences(para) {
			if len(sentence) <= maxChunkSize {
				parts = append(parts, sentence)
				continue
			}
			parts = append(parts, hardSplit(sentence, maxChunkSize)...)
		}
	}
	return parts
}

// hardSplit breaks text into pieces of at most maxBytes bytes without
// splitting a rune. Last resort for text with no sentence separators.
func hardSplit(text string, maxBytes int) []string {
	var (
		pieces []string
		b      strings.Builder
	)
	for _, r := range text {
		if b.Len()+utf8.RuneLen(r) > maxBytes && b.Len() > 0 {
			pieces = append(pieces, b.String())
			b.Reset()
		}
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		pieces = append(pieces, b.String())
	}
	return pieces
}

func splitSentences(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	var sentences []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

func lastRunes(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[len(runes)-n:])
}
