package socket

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/matchday/internal/domain/livestore"
	"github.com/okian/matchday/internal/domain/model"
)

type registration struct {
	id string
	h  livestore.Handler
}

// Hub routes patches to the handlers registered for their kind.
// Several handlers may share a kind; they run in registration order.
type Hub struct {
	mu       sync.RWMutex
	handlers map[model.PatchKind][]registration
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{handlers: make(map[model.PatchKind][]registration)}
}

// On registers h for kind and returns an idempotent unsubscribe.
func (h *Hub) On(kind model.PatchKind, handler livestore.Handler) func() {
	id := uuid.NewString()

	h.mu.Lock()
	h.handlers[kind] = append(h.handlers[kind], registration{id: id, h: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.off(kind, id) })
	}
}

func (h *Hub) off(kind model.PatchKind, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	regs := h.handlers[kind]
	for i, r := range regs {
		if r.id != id {
			continue
		}
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		if len(next) == 0 {
			delete(h.handlers, kind)
		} else {
			h.handlers[kind] = next
		}
		return
	}
}

// Dispatch calls every handler registered for the patch kind. Handlers are
// called outside the hub lock so they may register or unregister freely.
func (h *Hub) Dispatch(_ context.Context, p model.Patch) {
	h.mu.RLock()
	regs := h.handlers[p.Kind]
	h.mu.RUnlock()

	for _, r := range regs {
		r.h(p)
	}
}

// Len returns the number of handlers registered for kind.
func (h *Hub) Len(kind model.PatchKind) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers[kind])
}
