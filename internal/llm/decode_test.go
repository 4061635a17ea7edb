package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type choice struct {
	AgentName string `json:"agent_name"`
}

func (c *choice) Validate() error {
	return OneOf("agent_name", c.AgentName, "safety_agent", "food_delay_agent", "cab_rerouting_agent")
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "plain", raw: `{"agent_name":"food_delay_agent"}`, want: "food_delay_agent"},
		{name: "fenced", raw: "```json\n{\"agent_name\":\"cab_rerouting_agent\"}\n```", want: "cab_rerouting_agent"},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "not json", raw: "food_delay_agent", wantErr: true},
		{name: "unknown field", raw: `{"agent_name":"safety_agent","why":"x"}`, wantErr: true},
		{name: "trailing data", raw: `{"agent_name":"safety_agent"} {}`, wantErr: true},
		{name: "label outside enum", raw: `{"agent_name":"billing_agent"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c choice
			err := Decode(tt.raw, &c)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrMalformedOutput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.AgentName)
		})
	}
}

func TestSchemaJSON(t *testing.T) {
	s := &Schema{
		Type: TypeObject,
		Properties: map[string]*Schema{
			"threat_score": {Type: TypeNumber, Minimum: Float(0), Maximum: Float(10)},
		},
		Required: []string{"threat_score"},
	}
	assert.JSONEq(t,
		`{"type":"object","properties":{"threat_score":{"type":"number","minimum":0,"maximum":10}},"required":["threat_score"]}`,
		string(s.JSON()))
}

func TestGenerateIntoWithDummy(t *testing.T) {
	d := &Dummy{Answers: map[string]string{"late pizza": `{"agent_name":"food_delay_agent"}`}}

	var c choice
	require.NoError(t, GenerateInto(context.Background(), d, "classify: late pizza", nil, &c))
	assert.Equal(t, "food_delay_agent", c.AgentName)

	err := GenerateInto(context.Background(), d, "unmatched", nil, &c)
	assert.ErrorIs(t, err, ErrEmptyResponse)

	d.Err = errors.New("quota")
	assert.Error(t, GenerateInto(context.Background(), d, "late pizza", nil, &c))
	assert.Len(t, d.Prompts(), 3)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "gpt-4o-mini", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	_, err = NewGemini(context.Background(), "", "gemini-2.0-flash", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}
