package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawModelConfig is the model_config field as it arrives from the backend:
// either a JSON object or a JSON string holding a serialized object. Callers
// normalize it once with Resolve right after fetching a dialog.
type RawModelConfig struct {
	raw    json.RawMessage
	text   string
	isText bool
}

// ModelConfigFields is a partially populated model configuration. A nil field
// was absent from the stored value.
type ModelConfigFields struct {
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ModelConfigString wraps a serialized configuration.
func ModelConfigString(s string) RawModelConfig {
	b, _ := json.Marshal(s)
	return RawModelConfig{raw: b, text: s, isText: true}
}

// IsZero reports whether the field was absent or null.
func (r RawModelConfig) IsZero() bool {
	return len(r.raw) == 0 || bytes.Equal(r.raw, []byte("null"))
}

// IsString reports whether the value arrived in its serialized form.
func (r RawModelConfig) IsString() bool {
	return r.isText
}

func (r *RawModelConfig) UnmarshalJSON(data []byte) error {
	r.raw = append(r.raw[:0], data...)
	r.text, r.isText = "", false
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &r.text); err != nil {
			return err
		}
		r.isText = true
	}
	// Object payloads are validated lazily by Resolve so that a corrupt config
	// never fails decoding of the surrounding dialog.
	return nil
}

func (r RawModelConfig) MarshalJSON() ([]byte, error) {
	if len(r.raw) == 0 {
		return []byte("null"), nil
	}
	return r.raw, nil
}

// Resolve parses the stored value into its fields. An absent value resolves to
// empty fields without error; a value that cannot be parsed returns an error.
func (r RawModelConfig) Resolve() (ModelConfigFields, error) {
	var fields ModelConfigFields
	if r.IsZero() {
		return fields, nil
	}
	payload := []byte(r.raw)
	if r.isText {
		payload = []byte(r.text)
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return ModelConfigFields{}, fmt.Errorf("could not parse model_config %q: %w", truncate(string(payload), 80), err)
	}
	return fields, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
