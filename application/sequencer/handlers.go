package sequencer

import (
	"context"
	"sort"
	"sync"

	"desktop_automation/application/orchestrator"
	"desktop_automation/domain/entities"
)

// Handler runs an objective in place of the generic orchestrator path
type Handler interface {
	Handle(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, objective entities.Objective, sessionID string) orchestrator.Result {
	return f(ctx, objective, sessionID)
}

// HandlerRegistry maps objective ids to handlers
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewHandlerRegistry - creates an empty handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{handlers: make(map[string]Handler)}
}

// Register - binds a handler to an objective id, replacing any previous one
func (r *HandlerRegistry) Register(objectiveID string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[objectiveID] = h
}

// Lookup - returns the handler bound to objectiveID
func (r *HandlerRegistry) Lookup(objectiveID string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[objectiveID]
	return h, ok
}

// IDs - lists the objective ids with a handler, sorted
func (r *HandlerRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
