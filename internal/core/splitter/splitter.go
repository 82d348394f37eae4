package splitter

import (
	"strings"

	"github.com/rahulpr7/Agentic-RAG/internal/models"
)

// Separator preference, coarsest first: paragraph break, line break, sentence
// terminator, comma, space. A finer separator is only tried when a piece still
// exceeds the chunk size.
var defaultSeparators = []string{"\n\n", "\n", ".", ",", " "}

const (
	DefaultChunkSize   = 1000
	DefaultOverlapFrac = 0.15
)

// Splitter breaks page text into bounded, overlapping character chunks.
type Splitter struct {
	chunkSize  int
	overlap    int // characters carried over between adjacent chunks
	separators []string
}

func New(chunkSize int, overlapFrac float64) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapFrac < 0 {
		overlapFrac = 0
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    int(float64(chunkSize) * overlapFrac),
		separators: defaultSeparators,
	}
}

// SplitPages chunks every page in order. Each chunk inherits its page's
// source/page metadata plus the caller-supplied extras; positions are
// zero-based and stable across the whole document.
func (s *Splitter) SplitPages(pages []models.Page, extra map[string]string) []models.Chunk {
	var chunks []models.Chunk
	pos := 0
	for _, p := range pages {
		for _, text := range s.SplitText(p.Text) {
			var md map[string]string
			if len(extra) > 0 {
				md = make(map[string]string, len(extra))
				for k, v := range extra {
					md[k] = v
				}
			}
			chunks = append(chunks, models.Chunk{
				Text:     text,
				Source:   p.Source,
				Page:     p.Page,
				Position: pos,
				Metadata: md,
			})
			pos++
		}
	}
	return chunks
}

// SplitText splits one text into chunks of at most chunkSize characters,
// adjacent chunks sharing roughly overlap characters. Only a piece with no
// usable separator may exceed the bound, and it is emitted on its own.
func (s *Splitter) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.merge(s.split(text, 0))
}

// split recursively cuts text at the coarsest separator that is present,
// descending to finer separators only for pieces still over the bound.
// Separators stay attached to the preceding piece so concatenating the result
// reproduces the input exactly.
func (s *Splitter) split(text string, sepIdx int) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	if sepIdx >= len(s.separators) {
		// No separator left: an unsplittable unit is passed through oversized.
		return []string{text}
	}

	parts := strings.SplitAfter(text, s.separators[sepIdx])
	if len(parts) == 1 {
		return s.split(text, sepIdx+1)
	}

	var pieces []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if len(part) > s.chunkSize {
			pieces = append(pieces, s.split(part, sepIdx+1)...)
		} else {
			pieces = append(pieces, part)
		}
	}
	return pieces
}

// merge packs pieces into chunks up to chunkSize, seeding each new chunk with
// the trailing pieces of the previous one up to the overlap budget.
func (s *Splitter) merge(pieces []string) []string {
	var (
		out   []string
		buf   []string
		size  int
		fresh bool // buf holds content not yet emitted
	)

	flush := func() {
		if size == 0 || !fresh {
			return
		}
		out = append(out, strings.Join(buf, ""))
		fresh = false

		if s.overlap <= 0 {
			buf = buf[:0]
			size = 0
			return
		}
		// Keep a tail of pieces totaling at most overlap characters.
		var keep []string
		kept := 0
		for j := len(buf) - 1; j >= 0; j-- {
			if kept+len(buf[j]) > s.overlap {
				break
			}
			keep = append([]string{buf[j]}, keep...)
			kept += len(buf[j])
		}
		buf = keep
		size = kept
	}

	for _, piece := range pieces {
		if size+len(piece) > s.chunkSize && size > 0 {
			flush()
			// The overlap tail alone may not fit alongside a large piece.
			if size+len(piece) > s.chunkSize {
				buf = buf[:0]
				size = 0
			}
		}
		buf = append(buf, piece)
		size += len(piece)
		fresh = true
	}
	flush()
	return out
}
