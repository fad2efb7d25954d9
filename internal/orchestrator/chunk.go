package orchestrator

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"
)

// newChunkGroup builds the bounded worker group for chunk processing:
// at most limit chunk calls run upstream at once, and the first hard
// error cancels the rest.
func newChunkGroup(ctx context.Context, limit int) (*errgroup.Group, context.Context) {
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(limit)
	return grp, gctx
}

// splitChunks normalizes whitespace and splits text into word-aligned
// chunks. Words accumulate greedily until adding the next word would
// exceed targetChars. Once maxChunks-1 chunks exist, the remainder of
// the text folds into the final chunk rather than being truncated, so
// joining the chunks with single spaces always reconstructs the
// whitespace-normalized input.
func splitChunks(text string, targetChars, maxChunks int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur strings.Builder
	for _, w := range words {
		last := len(chunks) == maxChunks-1
		if cur.Len() > 0 && !last && cur.Len()+1+len(w) > targetChars {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}
