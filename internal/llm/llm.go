// Package llm wraps the language model providers behind one small interface
// with strict structured-output decoding.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alucardeht/logia/internal/config"
	"github.com/alucardeht/logia/internal/logger"
)

var log = logger.ForComponent("llm")

var (
	ErrNoAPIKey        = errors.New("llm api key is not configured")
	ErrEmptyResponse   = errors.New("llm returned an empty response")
	ErrMalformedOutput = errors.New("malformed llm output")
)

type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// GenerateJSON constrains the answer to schema and returns the raw JSON.
	GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error)
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

type Type string

const (
	TypeObject  Type = "object"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBoolean Type = "boolean"
)

// Schema is the provider-neutral subset of JSON Schema used for structured
// output.
type Schema struct {
	Type        Type               `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Minimum     *float64           `json:"minimum,omitempty"`
	Maximum     *float64           `json:"maximum,omitempty"`
}

// JSON renders the schema as a JSON Schema document.
func (s *Schema) JSON() json.RawMessage {
	data, err := json.Marshal(s)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

func Float(v float64) *float64 { return &v }

// GenerateInto runs a structured request and strictly decodes the answer.
func GenerateInto(ctx context.Context, m Model, prompt string, schema *Schema, v any) error {
	raw, err := m.GenerateJSON(ctx, prompt, schema)
	if err != nil {
		return err
	}
	return Decode(raw, v)
}

// New builds the model selected by cfg.Provider.
func New(ctx context.Context, cfg config.LLMConfig, creds config.Credentials) (Model, error) {
	var (
		m   Model
		err error
	)
	switch cfg.Provider {
	case "gemini":
		m, err = NewGemini(ctx, creds.GeminiAPIKey, cfg.Model, cfg.Temperature)
	case "openai":
		m, err = NewOpenAI(creds.OpenAIAPIKey, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		m = WithTimeout(m, cfg.Timeout)
	}
	log.Info("llm ready", "provider", cfg.Provider, "model", cfg.Model)
	return m, nil
}

type timeoutModel struct {
	next    Model
	timeout time.Duration
}

// WithTimeout bounds every call to m.
func WithTimeout(m Model, d time.Duration) Model {
	return &timeoutModel{next: m, timeout: d}
}

func (t *timeoutModel) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Generate(ctx, prompt)
}

func (t *timeoutModel) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.GenerateJSON(ctx, prompt, schema)
}

func (t *timeoutModel) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Transcribe(ctx, audio, mimeType)
}
