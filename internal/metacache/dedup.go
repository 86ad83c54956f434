package metacache

import (
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// DedupBuffer collects entries from concurrent directory-scan workers
// (one goroutine per subdirectory fan-out) and exposes them sorted and
// deduplicated by name, so a single Writer can still emit the
// lexicographic, self-delimiting stream required by spec.md §4.G even
// though the scan itself is not ordered.
type DedupBuffer struct {
	seen *xsync.MapOf[string, Entry]
}

// NewDedupBuffer returns an empty buffer.
func NewDedupBuffer() *DedupBuffer {
	return &DedupBuffer{seen: xsync.NewMapOf[string, Entry]()}
}

// Add records e, keeping the existing entry for a name already seen
// (first writer wins, matching a directory walk's natural visitation
// order).
func (b *DedupBuffer) Add(e Entry) {
	b.seen.LoadOrStore(e.Name, e)
}

// Len reports how many distinct names have been recorded.
func (b *DedupBuffer) Len() int {
	return b.seen.Size()
}

// Sorted returns every recorded entry ordered lexicographically by name,
// ready to feed a Writer.
func (b *DedupBuffer) Sorted() []Entry {
	out := make([]Entry, 0, b.seen.Size())
	b.seen.Range(func(_ string, v Entry) bool {
		out = append(out, v)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
