// Package model defines the request and response payloads used by the API.
// It keeps transport-level types in one place for reuse.
package model

import "github.com/iliamunaev/checkout-pipeline/internal/checkout"

// AuthorizeRequest carries the credential handed over by the payment sheet.
type AuthorizeRequest struct {
	Credential []byte `json:"credential"`        // base64 in JSON
	Network    string `json:"network,omitempty"` // "visa" | "masterCard" | "amex"
}

// StateResponse is returned by every endpoint that reports the checkout state.
type StateResponse struct {
	Status string          `json:"status"` // "ok" | "error"
	State  *checkout.State `json:"state,omitempty"`
	Error  *ErrorPayload   `json:"error,omitempty"`
}

// AuthorizeResponse is returned once the attempt has a disposition.
type AuthorizeResponse struct {
	Status      string               `json:"status"` // "ok" | "error"
	Disposition checkout.Disposition `json:"disposition,omitempty"`
	State       *checkout.State      `json:"state,omitempty"`
	Error       *ErrorPayload        `json:"error,omitempty"`
}

// ErrorPayload describes an error response.
type ErrorPayload struct {
	Kind    string `json:"kind"`              // "invalid_transition", "timeout"
	Message string `json:"message,omitempty"` // optional, human-readable error message
}
