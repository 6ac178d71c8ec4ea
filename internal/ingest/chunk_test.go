package ingest

import (
	"fmt"
	"strings"
	"testing"
)

func TestChunkWords(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		size       int
		wantChunks int
	}{
		{"empty input", "", 800, 0},
		{"whitespace only", "  \n\t  ", 800, 0},
		{"single short chunk", "alpha beta gamma", 800, 1},
		{"exact boundary", strings.Repeat("word ", 10), 5, 2},
		{"uneven tail", strings.Repeat("word ", 11), 5, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkWords(tt.text, tt.size)
			if len(chunks) != tt.wantChunks {
				t.Errorf("got %d chunks, want %d", len(chunks), tt.wantChunks)
			}
		})
	}
}

func TestChunkWordsLossless(t *testing.T) {
	var words []string
	for i := range 2000 {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, "  \n ")

	chunks := ChunkWords(text, 800)
	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}

	rejoined := strings.Fields(strings.Join(chunks, " "))
	if len(rejoined) != len(words) {
		t.Fatalf("got %d words after rejoin, want %d", len(rejoined), len(words))
	}
	for i, w := range rejoined {
		if w != words[i] {
			t.Fatalf("word %d: got %q, want %q", i, w, words[i])
		}
	}
}

func TestChunkWordsSizes(t *testing.T) {
	text := strings.Repeat("tok ", 1950)
	chunks := ChunkWords(text, 800)

	wantSizes := []int{800, 800, 350}
	if len(chunks) != len(wantSizes) {
		t.Fatalf("got %d chunks, want %d", len(chunks), len(wantSizes))
	}
	for i, c := range chunks {
		if got := len(strings.Fields(c)); got != wantSizes[i] {
			t.Errorf("chunk %d: got %d words, want %d", i, got, wantSizes[i])
		}
	}
}

func TestSelectContext(t *testing.T) {
	small := []string{"first chunk text", "second chunk text", "third chunk text"}

	t.Run("joins first two with separator", func(t *testing.T) {
		got := SelectContext(small, 2)
		want := "first chunk text\n\n---\n\nsecond chunk text"
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	})

	t.Run("fewer chunks than requested", func(t *testing.T) {
		got := SelectContext(small[:1], 2)
		if got != "first chunk text" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("empty chunk list", func(t *testing.T) {
		if got := SelectContext(nil, 2); got != "" {
			t.Errorf("got %q, want empty", got)
		}
	})

	t.Run("caps at word limit", func(t *testing.T) {
		big := []string{strings.Repeat("a ", 800), strings.Repeat("b ", 800)}
		got := SelectContext(big, 2)
		if n := len(strings.Fields(got)); n != ContextWordLimit {
			t.Errorf("got %d words, want %d", n, ContextWordLimit)
		}
	})

	t.Run("under limit keeps separator", func(t *testing.T) {
		got := SelectContext([]string{"one two", "three four"}, 2)
		if !strings.Contains(got, "---") {
			t.Errorf("separator missing from %q", got)
		}
	})
}

func TestMergeDocuments(t *testing.T) {
	docs := []Document{
		{Name: "week1.pdf", Text: "intro material"},
		{Name: "week2.pdf", Text: "advanced material"},
	}
	merged := MergeDocuments(docs)

	for _, want := range []string{
		"=== DOCUMENT: week1.pdf ===",
		"=== DOCUMENT: week2.pdf ===",
		"intro material",
		"advanced material",
	} {
		if !strings.Contains(merged, want) {
			t.Errorf("merged text missing %q", want)
		}
	}

	if i1, i2 := strings.Index(merged, "week1"), strings.Index(merged, "week2"); i1 > i2 {
		t.Error("documents out of order")
	}
}
