package ingest

import "strings"

const (
	// DefaultChunkSize is the number of words per chunk.
	DefaultChunkSize = 800
	// DefaultMaxChunks is how many leading chunks feed a prompt context.
	DefaultMaxChunks = 2
	// ContextWordLimit caps the assembled context passed to the model.
	ContextWordLimit = 1400
)

// chunkSeparator makes chunk boundaries visible inside assembled context.
const chunkSeparator = "\n\n---\n\n"

// ChunkWords splits text on whitespace and partitions the words into
// consecutive groups of size words each, rejoined with single spaces.
// The last chunk may be shorter. Empty or whitespace-only input yields nil.
func ChunkWords(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	for start := 0; start < len(words); start += size {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// SelectContext joins the first maxChunks chunks with a visible separator
// and truncates the result to ContextWordLimit words at a word boundary.
// No relevance ranking: the leading chunks are used as-is.
func SelectContext(chunks []string, maxChunks int) string {
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	if len(chunks) == 0 {
		return ""
	}
	if maxChunks > len(chunks) {
		maxChunks = len(chunks)
	}

	joined := strings.Join(chunks[:maxChunks], chunkSeparator)
	words := strings.Fields(joined)
	if len(words) <= ContextWordLimit {
		return joined
	}
	return strings.Join(words[:ContextWordLimit], " ")
}
