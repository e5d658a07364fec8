package client

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/erazemk/trgovina/internal/sanitize"
)

// ErrSessionExpired is returned when the access token was rejected and
// could not be refreshed. The token store has been cleared.
var ErrSessionExpired = errors.New("session expired")

// SessionExpiredMessage is shown to users when ErrSessionExpired surfaces.
const SessionExpiredMessage = "Your session has expired. Please sign in again."

// APIError is a non-2xx response from the API.
type APIError struct {
	Status    int                 `json:"-"`
	Message   string              `json:"error"`
	Fields    map[string][]string `json:"fields,omitempty"`
	RequestID string              `json:"-"`
}

func newAPIError(resp *resty.Response) *APIError {
	apiErr, _ := resp.Error().(*APIError)
	if apiErr == nil {
		apiErr = &APIError{}
	}
	apiErr.Status = resp.StatusCode()
	apiErr.RequestID = resp.Request.Header.Get(headerRequestID)
	if apiErr.Message == "" {
		apiErr.Message = strings.ToLower(http.StatusText(apiErr.Status))
	}
	return apiErr
}

// Error returns the server's message verbatim. Use UserMessage for display.
func (e *APIError) Error() string {
	return e.Message
}

// UserMessage returns the server message when it is safe to show, or the
// default message for the action.
func (e *APIError) UserMessage(a sanitize.Action) string {
	return sanitize.Message(e.Message, a)
}

// Level grades a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Notice is a short message for the user about a failed call.
type Notice struct {
	Level Level
	Text  string
}

func noticeFor(status int) (Notice, bool) {
	switch status {
	case http.StatusBadRequest:
		return Notice{LevelError, "The request was invalid."}, true
	case http.StatusForbidden:
		return Notice{LevelWarning, "You do not have permission to perform this action."}, true
	case http.StatusNotFound:
		return Notice{LevelError, "The requested resource was not found."}, true
	case http.StatusInternalServerError:
		return Notice{LevelError, "Server error. Please try again later."}, true
	}
	return Notice{}, false
}

// StatusOf returns the HTTP status of an API error, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsForbidden reports whether err is a 403 from the API.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// UserMessage turns any error from this package into text fit for display.
func UserMessage(err error, a sanitize.Action) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionExpired) {
		return SessionExpiredMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage(a)
	}
	return sanitize.Default(a)
}
