package chunker

import (
	"strconv"
	"strings"

	"github.com/yungbote/exampaper-backend/internal/domain"
	"github.com/yungbote/exampaper-backend/internal/platform/memguard"
)

const (
	DefaultSize       = 1200
	DefaultOverlap    = 150
	DefaultMaxChunks  = 300
	DefaultMinContent = 50
	DefaultIDPrefix   = "p_"

	// guardEvery is how many kept chunks pass between heap checks.
	guardEvery = 100
)

// Options zero values take the defaults, except Overlap, where zero means no
// overlap. A negative MinContent keeps every window.
type Options struct {
	Size       int
	Overlap    int
	MaxChunks  int
	MinContent int
	IDPrefix   string
	// Guard, when set, stops chunking early once it reports pressure.
	Guard memguard.Guard
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	if o.Overlap >= o.Size {
		o.Overlap = o.Size - 1
	}
	if o.MaxChunks <= 0 {
		o.MaxChunks = DefaultMaxChunks
	}
	switch {
	case o.MinContent == 0:
		o.MinContent = DefaultMinContent
	case o.MinContent < 0:
		o.MinContent = 0
	}
	if o.IDPrefix == "" {
		o.IDPrefix = DefaultIDPrefix
	}
	return o
}

// Window is a half-open rune range [Start, End) of the normalized text.
type Window struct {
	Start int
	End   int
}

// Windows walks a text of length n with fixed-size windows; each window after
// the first starts overlap runes before the previous end. The walk always
// moves forward and ends at the window that reaches n.
func Windows(n, size, overlap int) []Window {
	if n <= 0 || size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	out := make([]Window, 0, n/(size-overlap)+1)
	for start := 0; start < n; {
		end := start + size
		if end > n {
			end = n
		}
		out = append(out, Window{Start: start, End: end})
		if end == n {
			break
		}
		next := end - overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return out
}

// Normalize collapses whitespace runs to a single space and trims.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, "\u00a0", " ")), " ")
}

// Chunk splits text into overlapping windows, drops near-empty ones and stops
// at MaxChunks. Truncation at the cap or on memory pressure is silent.
func Chunk(text string, opts Options) []domain.Chunk {
	chunks, _ := ChunkWithStats(text, opts)
	return chunks
}

type Stats struct {
	Windows   int
	Discarded int
	Truncated bool
	Aborted   bool
	HeapMB    float64
}

func ChunkWithStats(text string, opts Options) ([]domain.Chunk, Stats) {
	opts = opts.withDefaults()
	runes := []rune(Normalize(text))
	var st Stats
	if len(runes) == 0 {
		return nil, st
	}

	windows := Windows(len(runes), opts.Size, opts.Overlap)
	out := make([]domain.Chunk, 0, min(len(windows), opts.MaxChunks))
	for _, w := range windows {
		if len(out) >= opts.MaxChunks {
			st.Truncated = true
			break
		}
		st.Windows++
		body := strings.TrimSpace(string(runes[w.Start:w.End]))
		if len([]rune(body)) < opts.MinContent {
			st.Discarded++
			continue
		}
		out = append(out, domain.Chunk{
			ID:   opts.IDPrefix + strconv.Itoa(len(out)),
			Text: body,
			Metadata: map[string]any{
				"position": len(out),
				"offset":   w.Start,
			},
		})
		if opts.Guard != nil && len(out)%guardEvery == 0 {
			mb, over := opts.Guard.Check()
			st.HeapMB = mb
			if over {
				st.Aborted = true
				break
			}
		}
	}
	for i := range out {
		out[i].Metadata["total"] = len(out)
	}
	return out, st
}
