// Package verifier defines the credential-verification port. A rejected
// credential surfaces as domain.ErrUnauthorized; a provider outage surfaces
// as a distinct error so callers do not mistake downtime for a bad token.
package verifier

import "context"

// Principal is the verified subject of a bearer credential.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verifier turns an opaque bearer token into a verified principal.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}
