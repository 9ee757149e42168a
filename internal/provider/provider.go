package provider

import (
	"context"
	"errors"
)

var (
	// ErrInvalidToken is returned when the provider rejects the access token
	// or the verified identity is unusable (no email).
	ErrInvalidToken = errors.New("provider rejected the access token")

	// ErrUnavailable is returned when the provider could not be reached.
	// Distinct from ErrInvalidToken so callers can classify it as an
	// operational fault rather than a client error.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrUnknownProvider is returned for provider names no verifier is
	// registered for.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Identity is the verified identity extracted from a provider access token.
type Identity struct {
	Email   string
	Name    string
	Picture string
}

// Verifier validates an externally obtained access token against its issuing
// provider and extracts the verified identity. It does not perform the OAuth
// authorization-code exchange.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*Identity, error)
}

// Registry dispatches verification to the Verifier registered for a provider
// name.
type Registry struct {
	verifiers map[string]Verifier
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{verifiers: make(map[string]Verifier)}
}

// Register adds a verifier under the given provider name.
func (r *Registry) Register(name string, verifier Verifier) {
	r.verifiers[name] = verifier
}

// Verify validates the token with the named provider's verifier.
func (r *Registry) Verify(ctx context.Context, providerName, accessToken string) (*Identity, error) {
	verifier, ok := r.verifiers[providerName]
	if !ok {
		return nil, ErrUnknownProvider
	}

	return verifier.Verify(ctx, accessToken)
}
