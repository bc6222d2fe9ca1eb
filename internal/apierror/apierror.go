// Package apierror holds the error envelopes every distripos endpoint
// returns. Handlers map domain errors onto these so the web panel always
// sees `{"detail": ...}` and never a GORM message or a stack trace.
package apierror

// APIError is the envelope for all 4xx/5xx responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}
