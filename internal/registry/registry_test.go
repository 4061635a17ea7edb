package registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/pkg/protocol"
)

type fakeSpecialist struct {
	name      string
	handshake bool
	tools     []string
	initCalls int
}

func (f *fakeSpecialist) Name() string { return f.name }

func (f *fakeSpecialist) Initialize(ctx context.Context) bool {
	f.initCalls++
	return f.handshake
}

func (f *fakeSpecialist) ListTools(ctx context.Context) []protocol.Tool {
	out := make([]protocol.Tool, len(f.tools))
	for i, name := range f.tools {
		out[i] = protocol.Tool{Name: name}
	}
	return out
}

func (f *fakeSpecialist) CallTool(ctx context.Context, tool string, args json.RawMessage) (*protocol.ToolResult, error) {
	return protocol.TextResult(f.name + ":" + tool), nil
}

func TestRegisterLookup(t *testing.T) {
	r := New()
	food := &fakeSpecialist{name: "FoodDelayServer"}

	r.Register("food/resolveDelay", food)

	got, ok := r.Lookup("food/resolveDelay")
	require.True(t, ok)
	assert.Same(t, food, got)

	_, ok = r.Lookup("cab/rerouteRequest")
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterLastWins(t *testing.T) {
	r := New()
	first := &fakeSpecialist{name: "A"}
	second := &fakeSpecialist{name: "B"}

	r.Register("x/tool", first)
	r.Register("x/tool", second)

	got, _ := r.Lookup("x/tool")
	assert.Same(t, second, got)
	assert.Equal(t, map[string]string{"x/tool": "B"}, r.Servers())
}

func TestDiscover(t *testing.T) {
	fakes := map[string]*fakeSpecialist{
		"SafetyServer":       {name: "SafetyServer", handshake: true, tools: []string{"safety/analyzeAudio"}},
		"FoodDelayServer":    {name: "FoodDelayServer", handshake: true, tools: []string{"food/resolveDelay", "food/debug", ""}},
		"CabReroutingServer": {name: "CabReroutingServer", handshake: false, tools: []string{"cab/rerouteRequest"}},
		"Disabled":           {name: "Disabled", handshake: true, tools: []string{"x/y"}},
		"Override":           {name: "Override", handshake: true, tools: []string{"safety/analyzeAudio"}},
	}
	specs := []config.Specialist{
		{Name: "SafetyServer", Address: "http://s", Enabled: true},
		{Name: "FoodDelayServer", Address: "http://f", Enabled: true, Tools: []string{"food/resolve*"}},
		{Name: "CabReroutingServer", Address: "http://c", Enabled: true},
		{Name: "Disabled", Address: "http://d", Enabled: false},
		{Name: "Override", Address: "http://o", Enabled: true},
	}

	r := New()
	Discover(context.Background(), r, specs, func(cfg config.Specialist) Specialist {
		return fakes[cfg.Name]
	})

	assert.Equal(t, []string{"food/resolveDelay", "safety/analyzeAudio"}, r.Names())
	assert.Equal(t, "Override", r.Servers()["safety/analyzeAudio"])
	assert.Equal(t, 0, fakes["Disabled"].initCalls, "disabled entries are never contacted")
	assert.Equal(t, 1, fakes["CabReroutingServer"].initCalls)
}
