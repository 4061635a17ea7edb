package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/registry"
)

func TestBuildRouterFallsBackToKeywords(t *testing.T) {
	c := config.Default()
	c.Credentials = config.Credentials{}

	rt, err := buildRouter(context.Background(), c, registry.New())
	require.NoError(t, err)
	require.NotNil(t, rt)
	assert.Equal(t, "keyword", rt.Classifier())

	c.Host.KeywordFallback = false
	rt, err = buildRouter(context.Background(), c, registry.New())
	require.NoError(t, err)
	assert.Nil(t, rt, "no router without a key when the fallback is disabled")
}

func TestResolveHostURL(t *testing.T) {
	prevCfg, prevURL := cfg, hostURL
	defer func() { cfg, hostURL = prevCfg, prevURL }()

	cfg = config.Default()
	hostURL = ""
	assert.Equal(t, "http://localhost:8000", resolveHostURL())

	hostURL = "http://dispatch:9000"
	assert.Equal(t, "http://dispatch:9000", resolveHostURL())
}

func TestAgentRejectsUnknownName(t *testing.T) {
	prev := cfg
	defer func() { cfg = prev }()
	cfg = config.Default()

	_, err := buildAgent(context.Background(), "billing")
	require.Error(t, err)
}
