package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing document or vector entry.
	ErrNotFound = errors.New("not found")
	// ErrValidation signals malformed filters or out-of-range parameters.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited signals a 429 from the embedding provider; callers may
	// stop a batch early instead of retrying immediately.
	ErrRateLimited = errors.New("rate limited")
	// ErrEmbeddingProvider signals an upstream embedding failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrNoEmbedding signals a provider response that carried no embedding data.
	ErrNoEmbedding = errors.New("no embedding returned")
	// ErrLexicalSearch signals a full-text engine execution failure.
	ErrLexicalSearch = errors.New("lexical search failed")
)

// ProviderError wraps ErrEmbeddingProvider with the upstream status and body.
type ProviderError struct {
	Status int
	Body   string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", ErrEmbeddingProvider.Error(), e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error { return ErrEmbeddingProvider }

// NewProviderError creates a provider error carrying the upstream response.
func NewProviderError(status int, body string) error {
	return &ProviderError{Status: status, Body: body}
}
