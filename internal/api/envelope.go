package api

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// Success-or-Error Envelope
// =============================================================================

// Every daemon response body is either a success payload or an error
// envelope of the form {"message": "..."}. The two are distinguished by
// content, not by a tag, so decoding checks for the error shape first.

// ErrorResponse is the daemon's error envelope.
type ErrorResponse struct {
	Message string `json:"message"`
}

// RemoteError is a daemon-reported failure. The message is surfaced to the
// operator verbatim.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

// DecodeInto decodes a response body into out, returning a *RemoteError
// when the body is the error envelope instead of a success payload.
func DecodeInto(body []byte, out any) error {
	var env ErrorResponse
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return &RemoteError{Message: env.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
