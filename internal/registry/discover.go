package registry

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/pkg/protocol"
)

// Specialist is a Caller that can also perform the discovery handshake.
type Specialist interface {
	Caller
	Initialize(ctx context.Context) bool
	ListTools(ctx context.Context) []protocol.Tool
}

type DialFunc func(cfg config.Specialist) Specialist

// Discover runs the handshake against every enabled entry in order and
// registers each discovered tool. Entries that fail the handshake are
// skipped; later entries win tool name collisions.
func Discover(ctx context.Context, reg *Registry, specs []config.Specialist, dial DialFunc) {
	for _, spec := range specs {
		if !spec.Enabled {
			log.Debug("skipping disabled specialist", "specialist", spec.Name)
			continue
		}

		s := dial(spec)
		if !s.Initialize(ctx) {
			log.Warn("specialist handshake failed", "specialist", spec.Name, "address", spec.Address)
			continue
		}

		registered := 0
		for _, tool := range s.ListTools(ctx) {
			if tool.Name == "" {
				continue
			}
			if !allowed(spec.Tools, tool.Name) {
				log.Debug("tool filtered by allowlist", "specialist", spec.Name, "tool", tool.Name)
				continue
			}
			reg.Register(tool.Name, s)
			registered++
		}
		log.Info("specialist connected", "specialist", spec.Name, "address", spec.Address, "tools", registered)
	}
}

func allowed(patterns []string, tool string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, tool); ok {
			return true
		}
	}
	return false
}
