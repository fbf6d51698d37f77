// Package dedupe tracks recently seen live frames so replays are applied once.
package dedupe

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/okian/matchday/internal/domain/model"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so a later copy is processed again.
	Unrecord(ctx context.Context, key string)

	Size() int
}

// window is a bounded set. When full, the oldest key is evicted first.
type window struct {
	mu   sync.Mutex
	seen map[string]int // key -> slot in ring
	ring []string
	next int
	size int
}

// NewWindow creates a bounded deduper. Default capacity is 1024 keys.
func NewWindow(opts ...Option) Deduper {
	w := &window{size: 1024}
	for _, opt := range opts {
		opt(w)
	}
	w.seen = make(map[string]int, w.size)
	w.ring = make([]string, w.size)
	return w
}

func (w *window) SeenAndRecord(_ context.Context, key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.seen[key]; ok {
		return true
	}
	if old := w.ring[w.next]; old != "" {
		delete(w.seen, old)
	}
	w.ring[w.next] = key
	w.seen[key] = w.next
	w.next = (w.next + 1) % len(w.ring)
	return false
}

func (w *window) Unrecord(_ context.Context, key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if slot, ok := w.seen[key]; ok {
		delete(w.seen, key)
		w.ring[slot] = ""
	}
}

func (w *window) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.seen)
}

// PatchKey identifies a live frame by fixture, kind, timestamp and payload.
// Frames without a timestamp get no key: repeated untimed frames may be
// genuine updates.
func PatchKey(p model.Patch) (string, bool) {
	if p.Timestamp.IsZero() {
		return "", false
	}
	h := fnv.New64a()
	_, _ = h.Write(p.Data)
	return p.FixtureID + "|" + string(p.Kind) + "|" +
		p.Timestamp.UTC().Format(time.RFC3339Nano) + "|" +
		strconv.FormatUint(h.Sum64(), 16), true
}
