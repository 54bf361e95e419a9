package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Envelope is the error body shape exposed to API consumers, both for
// synthesized transport failures and for the serialization failures the
// server reports.
type Envelope struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status int    `json:"status"`
}

// StatusError carries a non-200 upstream result across the orchestration
// boundary. The body is the verbatim upstream payload (or a synthesized
// Envelope) and is written to the caller with the same status code.
type StatusError struct {
	StatusCode int
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}

// NewStatusError builds a StatusError from a non-OK upstream response.
func NewStatusError(resp *Response) *StatusError {
	return &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
}

// NotFoundError builds a synthesized 404 StatusError for lookups that
// resolved to nothing (for example an empty flights payload).
func NotFoundError(detail string) *StatusError {
	body, _ := json.Marshal(Envelope{
		Title:  "NotFound",
		Detail: detail,
		Status: http.StatusNotFound,
	})
	return &StatusError{StatusCode: http.StatusNotFound, Body: body}
}
