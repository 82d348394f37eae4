package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

func TestSplitTextEmpty(t *testing.T) {
	s := New(100, 0.15)
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("   \n  "))
}

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	s := New(1000, 0.15)
	chunks := s.SplitText("a short paragraph that fits easily")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph that fits easily", chunks[0])
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	s := New(80, 0.15)
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	chunks := s.SplitText(b.String())
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 80)
	}
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	s := New(40, 0)
	text := "first paragraph here\n\nsecond paragraph here"
	chunks := s.SplitText(text)
	require.Len(t, chunks, 2)
	assert.Contains(t, chunks[0], "first paragraph")
	assert.Contains(t, chunks[1], "second paragraph")
}

func TestSplitTextUnsplittableUnitPassedThrough(t *testing.T) {
	s := New(50, 0.15)
	blob := strings.Repeat("x", 130) // no separator anywhere
	chunks := s.SplitText(blob)
	require.Len(t, chunks, 1)
	assert.Equal(t, blob, chunks[0])
}

// Concatenating all chunks must reproduce at least the original text
// (overlap introduces duplication, never loss).
func TestSplitTextReconstructsInput(t *testing.T) {
	s := New(60, 0.15)
	sentences := []string{
		"Alpha bravo charlie delta.",
		"Echo foxtrot golf hotel india.",
		"Juliett kilo lima mike november.",
		"Oscar papa quebec romeo sierra.",
	}
	text := strings.Join(sentences, " ")
	joined := strings.Join(s.SplitText(text), "")
	for _, sent := range sentences {
		assert.Contains(t, joined, sent)
	}
}

func TestSplitTextAdjacentChunksOverlap(t *testing.T) {
	s := New(40, 0.25) // overlap budget: 10 characters
	chunks := s.SplitText(strings.TrimSpace(strings.Repeat("alpha bravo ", 12)))
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		shared := 0
		max := len(prev)
		if len(cur) < max {
			max = len(cur)
		}
		for k := max; k > 0; k-- {
			if strings.HasSuffix(prev, cur[:k]) {
				shared = k
				break
			}
		}
		assert.Greater(t, shared, 0, "chunks %d and %d share no boundary text", i-1, i)
		assert.LessOrEqual(t, shared, 10, "overlap exceeds the configured budget")
	}
}

func TestSplitPagesMetadataAndPositions(t *testing.T) {
	s := New(1000, 0.15)
	pages := []models.Page{
		{Source: "report.pdf", Page: 1, Text: "page one text"},
		{Source: "report.pdf", Page: 2, Text: "page two text"},
	}
	chunks := s.SplitPages(pages, map[string]string{"team": "finance"})
	require.Len(t, chunks, 2)

	assert.Equal(t, 0, chunks[0].Position)
	assert.Equal(t, 1, chunks[0].Page)
	assert.Equal(t, 1, chunks[1].Position)
	assert.Equal(t, 2, chunks[1].Page)
	for _, c := range chunks {
		assert.Equal(t, "report.pdf", c.Source)
		assert.Equal(t, "finance", c.Metadata["team"])
	}
}

func TestSplitPagesEmptyInput(t *testing.T) {
	s := New(1000, 0.15)
	assert.Empty(t, s.SplitPages(nil, nil))
	assert.Empty(t, s.SplitPages([]models.Page{{Source: "a.pdf", Page: 1, Text: ""}}, nil))
}
