package erpapi

import (
	"fmt"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// TransportError means the backend could not be reached or did not answer in time.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("erpapi: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) UserMessage() string {
	return "Could not reach the server. Check your connection and try again."
}

// APIError is a well-formed response carrying a failure discriminator or a non-2xx status.
type APIError struct {
	Status  int
	Message string // plain text, safe to show
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("erpapi: request failed with status %d", e.Status)
	}
	return fmt.Sprintf("erpapi: %s (status %d)", e.Message, e.Status)
}

// UserMessage is the backend message; empty when the backend gave none.
func (e *APIError) UserMessage() string { return e.Message }

// plainText strips any markup from a backend message.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
