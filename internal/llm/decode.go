package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Validator is implemented by decode targets that check their own fields.
type Validator interface {
	Validate() error
}

// Decode strictly unmarshals a model answer into v. A surrounding markdown
// code fence is tolerated; unknown fields, trailing data and failed
// validation are not. Every failure wraps ErrMalformedOutput.
func Decode(raw string, v any) error {
	text := stripFence(raw)
	if text == "" {
		return fmt.Errorf("%w: empty answer", ErrMalformedOutput)
	}

	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedOutput)
	}

	if val, ok := v.(Validator); ok {
		if err := val.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
		}
	}
	return nil
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop the info string, e.g. ```json
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// OneOf reports an error unless v is one of allowed.
func OneOf(field, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("%s %q is not one of %v", field, v, allowed)
}
