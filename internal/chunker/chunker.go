// Package chunker splits document text into overlapping fixed-size
// passages suitable for embedding.
package chunker

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/askdrive/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// sectionSeparator joins loader sections into one document text.
const sectionSeparator = "\n\n"

// Splitter produces chunks of at most chunkSize runes, each starting
// overlap runes before the previous chunk's end. Splitting is
// deterministic: identical input and config yield identical output.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New creates a splitter. The invariant 0 <= overlap < chunkSize is
// enforced; violations fail with domain.ErrInvalidConfig.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidConfig, chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must satisfy 0 <= overlap < chunk size %d",
			domain.ErrInvalidConfig, overlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured chunk size in runes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap in runes.
func (s *Splitter) Overlap() int { return s.overlap }

// SplitDocument joins the loader sections of a document and splits
// the result into chunks. Each chunk records the marker of the
// section it starts in.
func (s *Splitter) SplitDocument(docID string, sections []domain.Section) []domain.Chunk {
	text, marks := joinSections(sections)
	chunks := s.Split(docID, text)
	for i := range chunks {
		chunks[i].Marker = markerAt(marks, chunks[i].Start)
	}
	return chunks
}

// Split splits text into chunks for the given document ID. Offsets
// are rune offsets into text. Concatenating the chunk texts with the
// leading overlap of every chunk after the first removed reproduces
// text exactly.
func (s *Splitter) Split(docID, text string) []domain.Chunk {
	if text == "" {
		// Empty content produces no chunks
		return nil
	}

	runes := []rune(text)
	total := len(runes)

	estimated := total/(s.chunkSize-s.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	ordinal := 0
	for {
		end := start + s.chunkSize
		if end >= total {
			end = total
		} else {
			end = s.breakPoint(runes, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID: docID,
			Ordinal:    ordinal,
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
		})
		ordinal++

		if end == total {
			return chunks
		}
		// Each subsequent chunk starts overlap runes before the
		// previous chunk's end; breakPoint guarantees progress.
		start = end - s.overlap
	}
}

// breakPoint picks the cut position for a chunk spanning
// [start, hardEnd). It prefers a paragraph break, then a line break,
// then a sentence end within the trailing window, falling back to the
// hard character limit. The result always exceeds start+overlap so
// the next chunk advances.
func (s *Splitter) breakPoint(runes []rune, start, hardEnd int) int {
	window := s.chunkSize / 5
	floor := hardEnd - window
	if min := start + s.overlap + 1; floor < min {
		floor = min
	}
	if floor >= hardEnd {
		return hardEnd
	}

	if p := lastParagraphBreak(runes, floor, hardEnd); p > 0 {
		return p
	}
	if p := lastLineBreak(runes, floor, hardEnd); p > 0 {
		return p
	}
	if p := lastSentenceEnd(runes, floor, hardEnd); p > 0 {
		return p
	}
	return hardEnd
}

// lastParagraphBreak returns the position just after the last "\n\n"
// in [floor, end), or 0 if none.
func lastParagraphBreak(runes []rune, floor, end int) int {
	for i := end - 1; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// lastLineBreak returns the position just after the last '\n' in
// [floor, end), or 0 if none.
func lastLineBreak(runes []rune, floor, end int) int {
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

// lastSentenceEnd returns the position just after the last sentence
// terminator followed by a space in [floor, end), or 0 if none.
func lastSentenceEnd(runes []rune, floor, end int) int {
	for i := end - 1; i > floor; i-- {
		if runes[i] == ' ' {
			switch runes[i-1] {
			case '.', '!', '?':
				return i + 1
			}
		}
	}
	return 0
}

// sectionMark records where a marker's section begins in the joined
// document text.
type sectionMark struct {
	start  int
	marker string
}

// joinSections concatenates section texts with a separator and
// records the rune offset where each section starts.
func joinSections(sections []domain.Section) (string, []sectionMark) {
	var b strings.Builder
	marks := make([]sectionMark, 0, len(sections))

	offset := 0
	for i, sec := range sections {
		if i > 0 {
			b.WriteString(sectionSeparator)
			offset += len([]rune(sectionSeparator))
		}
		marks = append(marks, sectionMark{start: offset, marker: sec.Marker})
		b.WriteString(sec.Text)
		offset += len([]rune(sec.Text))
	}
	return b.String(), marks
}

// markerAt returns the marker of the section containing the offset.
func markerAt(marks []sectionMark, offset int) string {
	marker := ""
	for _, m := range marks {
		if m.start > offset {
			break
		}
		marker = m.marker
	}
	return marker
}

// Reconstruct rebuilds the original text from chunks by dropping the
// leading overlap of every chunk after the first. It is the inverse
// of Split and exists to verify chunking fidelity.
func Reconstruct(chunks []domain.Chunk, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		runes := []rune(c.Text)
		if i > 0 {
			runes = runes[overlap:]
		}
		b.WriteString(string(runes))
	}
	return b.String()
}
