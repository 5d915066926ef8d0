// Package oracle implements the verifier port against the external identity
// provider's userinfo endpoint. The credential is opaque to Ensemble; only
// the provider can say who it belongs to.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ensembleapp/ensemble/internal/config"
	"github.com/ensembleapp/ensemble/internal/domain"
	"github.com/ensembleapp/ensemble/internal/port/verifier"
)

// Verifier resolves bearer credentials by asking the identity provider.
type Verifier struct {
	url        string
	httpClient *http.Client
}

// New creates a Verifier from the provider configuration.
func New(cfg config.Oracle) *Verifier {
	return &Verifier{
		url: cfg.URL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Verify presents the credential to the provider. Any provider-side
// rejection maps to domain.ErrUnauthorized; transport failures surface
// as-is so callers can tell an invalid credential from a provider outage.
func (v *Verifier) Verify(ctx context.Context, token string) (*verifier.Principal, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		// fall through to decode
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("userinfo status %d: %w", resp.StatusCode, domain.ErrUnauthorized)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("userinfo status %d: %s", resp.StatusCode, body)
	}

	var info struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.Sub == "" {
		return nil, fmt.Errorf("userinfo without subject: %w", domain.ErrUnauthorized)
	}

	return &verifier.Principal{ID: info.Sub, Email: info.Email}, nil
}
