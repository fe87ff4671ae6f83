package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Validator is implemented by wire types that check their own shape.
type Validator interface {
	Validate() error
}

// DecodeJSON decodes body into out and runs out's Validate method when it has
// one. Any mismatch is returned as an error so callers fail closed.
func DecodeJSON(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return fmt.Errorf("response body is empty")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode response: trailing data after JSON value")
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("invalid response: %w", err)
		}
	}
	return nil
}
