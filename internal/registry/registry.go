// Package registry maps tool names to the specialist that serves them.
package registry

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/alucardeht/logia/internal/logger"
	"github.com/alucardeht/logia/pkg/protocol"
)

var log = logger.ForComponent("registry")

// Caller forwards a tools/call to the specialist that owns the tool.
type Caller interface {
	Name() string
	CallTool(ctx context.Context, tool string, args json.RawMessage) (*protocol.ToolResult, error)
}

type Registry struct {
	mu      sync.RWMutex
	callers map[string]Caller
}

func New() *Registry {
	return &Registry{
		callers: make(map[string]Caller),
	}
}

// Register binds tool to c. A later registration of the same tool replaces
// the earlier one.
func (r *Registry) Register(tool string, c Caller) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, exists := r.callers[tool]; exists && prev.Name() != c.Name() {
		log.Warn("tool registration overridden", "tool", tool, "previous", prev.Name(), "current", c.Name())
	}
	r.callers[tool] = c
}

func (r *Registry) Lookup(tool string) (Caller, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.callers[tool]
	return c, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.callers))
	for name := range r.callers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Servers returns tool name to serving specialist name.
func (r *Registry) Servers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.callers))
	for tool, c := range r.callers {
		out[tool] = c.Name()
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callers)
}
