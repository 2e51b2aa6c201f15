package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrSessionExpired is returned before any request is issued when the
// configured bearer token has already expired.
var ErrSessionExpired = errors.New("api: session token expired")

// Error is a normalized non-2xx response. Server-provided messages are
// preserved verbatim so the UI layer can surface them directly.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// IsValidation reports whether the error is a 4xx business/validation
// failure carrying a message meant for the user.
func (e *Error) IsValidation() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusUnauthorized
}

func newError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	var envelope struct {
		Error   string `json:"error"`
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.Code
		switch {
		case envelope.Message != "":
			apiErr.Message = envelope.Message
		case envelope.Error != "":
			apiErr.Message = envelope.Error
		}
	}
	if apiErr.Message == "" && len(body) > 0 {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		apiErr.Message = msg
	}
	return apiErr
}

// AsError unwraps err to an *Error when the failure came from a server
// response rather than the transport.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
