package llm

import (
	"context"
	"strings"
	"sync"
)

// Dummy is a scripted Model for local runs and tests. JSON answers are
// chosen by the first key of Answers contained in the prompt.
type Dummy struct {
	Answers    map[string]string
	Fallback   string
	Transcript string
	Err        error

	mu      sync.Mutex
	prompts []string
}

func (d *Dummy) Generate(ctx context.Context, prompt string) (string, error) {
	return d.answer(prompt)
}

func (d *Dummy) GenerateJSON(ctx context.Context, prompt string, schema *Schema) (string, error) {
	return d.answer(prompt)
}

func (d *Dummy) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if d.Err != nil {
		return "", d.Err
	}
	return d.Transcript, nil
}

// Prompts returns every prompt seen so far.
func (d *Dummy) Prompts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.prompts...)
}

func (d *Dummy) answer(prompt string) (string, error) {
	d.mu.Lock()
	d.prompts = append(d.prompts, prompt)
	d.mu.Unlock()

	if d.Err != nil {
		return "", d.Err
	}
	for key, answer := range d.Answers {
		if strings.Contains(prompt, key) {
			return answer, nil
		}
	}
	if d.Fallback == "" {
		return "", ErrEmptyResponse
	}
	return d.Fallback, nil
}

var _ Model = (*Dummy)(nil)
