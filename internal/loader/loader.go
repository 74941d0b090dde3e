// Package loader reads document text from files for bulk adds.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/textsplitter"
)

// ErrEmpty is returned when a file yields no text.
var ErrEmpty = errors.New("no text found")

// Piece is one document produced from a file: the whole file, or one chunk
// of it.
type Piece struct {
	Source string
	Chunk  int
	Text   string
}

// ReadFile returns the text of path. PDFs are converted to plain text page
// by page; everything else must be UTF-8.
func ReadFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("reading %s: file is not valid UTF-8", path)
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening PDF %s: %w", path, err)
	}
	defer f.Close()

	var builder strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting text from %s page %d: %w", path, i, err)
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// Chunk splits text into pieces of at most size characters with overlap
// characters shared between neighbours, preferring paragraph, line and word
// boundaries. Size 0 returns text as a single piece.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size < 0 || overlap < 0 {
		return nil, fmt.Errorf("chunk size and overlap must not be negative")
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	if size == 0 {
		return []string{text}, nil
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", overlap, size)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting text: %w", err)
	}

	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	return out, nil
}

// LoadFiles reads and chunks every path in order.
func LoadFiles(paths []string, size, overlap int) ([]Piece, error) {
	var pieces []Piece
	for _, path := range paths {
		text, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		chunks, err := Chunk(text, size, overlap)
		if err != nil {
			return nil, fmt.Errorf("chunking %s: %w", path, err)
		}
		if len(chunks) == 0 {
			return nil, fmt.Errorf("%s: %w", path, ErrEmpty)
		}
		for i, c := range chunks {
			pieces = append(pieces, Piece{Source: path, Chunk: i, Text: c})
		}
	}
	return pieces, nil
}
