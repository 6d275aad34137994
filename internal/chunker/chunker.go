// Package chunker splits document text into fixed-size token windows.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/cvsearchd/internal/docstore"
)

// DefaultWindowSize is the default number of whitespace-delimited tokens
// per chunk.
const DefaultWindowSize = 500

// ErrInvalidWindow is returned when the window size is not positive.
var ErrInvalidWindow = errors.New("window size must be positive")

// Chunker splits document content into consecutive, non-overlapping windows
// of whitespace-delimited tokens. The last window may be shorter.
//
// Windows do not overlap, so a phrase can be split across a chunk boundary.
// TODO: evaluate an overlapping-window policy; boundary splits cost recall
// on multi-word queries.
type Chunker struct {
	windowSize int
}

// New creates a chunker with the given window size in tokens. The size must
// be positive; callers that want the default pass DefaultWindowSize.
func New(windowSize int) (*Chunker, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWindow, windowSize)
	}
	return &Chunker{windowSize: windowSize}, nil
}

// WindowSize returns the configured window size in tokens.
func (c *Chunker) WindowSize() int {
	return c.windowSize
}

// Split chunks content into drafts for the given parent document.
//
// Drafts carry ParentID, SourceName, Content and a contiguous ChunkIndex
// starting at 0; ID, CreatedAt and Embedding are assigned later in the
// ingestion flow. For a document of L tokens the result holds ceil(L/W)
// chunks. Content with no tokens yields no chunks.
func (c *Chunker) Split(parentID, sourceName, content string) ([]docstore.Chunk, error) {
	tokens := strings.Fields(content)
	if len(tokens) == 0 {
		return nil, nil
	}

	chunks := make([]docstore.Chunk, 0, (len(tokens)+c.windowSize-1)/c.windowSize)
	for start := 0; start < len(tokens); start += c.windowSize {
		end := start + c.windowSize
		if end > len(tokens) {
			end = len(tokens)
		}
		text := strings.TrimSpace(strings.Join(tokens[start:end], " "))
		if text == "" {
			continue
		}
		chunks = append(chunks, docstore.Chunk{
			ParentID:   parentID,
			SourceName: sourceName,
			Content:    text,
			ChunkIndex: len(chunks),
		})
	}

	return chunks, nil
}
