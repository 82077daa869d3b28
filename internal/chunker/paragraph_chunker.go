package chunker

import "strings"

// ParagraphChunker splits text on blank lines and packs paragraphs into
// bounded chunks. Paragraphs longer than the limit are cut at the last
// sentence end, then the last newline, then the hard limit, carrying an
// overlap window into the next chunk.
type ParagraphChunker struct {
	size    int
	overlap int
}

// NewParagraphChunker returns a chunker producing chunks of roughly size
// runes that overlap by overlap runes when a paragraph has to be split.
func NewParagraphChunker(size, overlap int) *ParagraphChunker {
	if size <= 0 {
		size = 1500
	}
	if overlap < 0 {
		overlap = 0
	}
	return &ParagraphChunker{size: size, overlap: overlap}
}

// Size returns the target chunk length in runes.
func (c *ParagraphChunker) Size() int { return c.size }

// Overlap returns the overlap window in runes.
func (c *ParagraphChunker) Overlap() int { return c.overlap }

// Chunk splits text into ordered, non-empty chunks. Empty input yields nil.
func (c *ParagraphChunker) Chunk(text string) []string {
	var chunks []string
	emit := func(r []rune) {
		if s := strings.TrimSpace(string(r)); s != "" {
			chunks = append(chunks, s)
		}
	}

	var buf []rune
	for _, para := range strings.Split(text, "\n\n") {
		p := []rune(para)
		if len(buf)+len(p) < c.size {
			buf = append(buf, p...)
			buf = append(buf, '\n', '\n')
		} else {
			if len(buf) > 0 {
				emit(buf)
			}
			buf = append(append(make([]rune, 0, len(p)+2), p...), '\n', '\n')
		}

		for len(buf) >= c.size {
			cut := c.cutPoint(buf)
			emit(buf[:min(cut+1, len(buf))])
			if cut > c.overlap {
				buf = buf[cut-c.overlap:]
			} else {
				buf = buf[cut+1:]
			}
		}
	}
	if len(buf) > 0 {
		emit(buf)
	}
	return chunks
}

// cutPoint picks the split position inside buf[:size]. The chunk emitted is
// buf[:cut+1], so a hard cut keeps one rune past the limit.
func (c *ParagraphChunker) cutPoint(buf []rune) int {
	window := buf[:c.size]
	if i := lastIndex(window, '.'); i >= 0 {
		return i
	}
	if i := lastIndex(window, '\n'); i >= 0 {
		return i
	}
	return c.size
}

func lastIndex(r []rune, target rune) int {
	for i := len(r) - 1; i >= 0; i-- {
		if r[i] == target {
			return i
		}
	}
	return -1
}
