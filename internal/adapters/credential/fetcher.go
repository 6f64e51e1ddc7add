// Package credential fetches short-lived realtime credentials from the session backend.
package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dkeye/VoiceTwin/internal/core"
	"github.com/dkeye/VoiceTwin/internal/domain"
	"github.com/rs/zerolog"
)

const maxBodySize = 64 << 10

type sessionResponse struct {
	ClientSecret *struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at"`
	} `json:"client_secret"`
}

// Fetcher implements core.CredentialFetcher against GET <URL>.
type Fetcher struct {
	URL    string
	Client *http.Client
}

func NewFetcher(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
	}
}

func (f *Fetcher) Fetch(ctx context.Context) (core.Credential, error) {
	logger := zerolog.Ctx(ctx).With().Str("module", "credential").Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return core.Credential{}, domain.NewCredentialError("Backend error: invalid session URL", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client().Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("session backend unreachable")
		return core.Credential{}, domain.NewCredentialError("Backend error: session service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Warn().Int("status", resp.StatusCode).Msg("session backend rejected request")
		return core.Credential{}, domain.NewCredentialError(
			fmt.Sprintf("Backend error: status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return core.Credential{}, domain.NewCredentialError("Backend error: session service unreachable", err)
	}

	var sr sessionResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		logger.Warn().Err(err).Msg("session backend returned malformed body")
		return core.Credential{}, domain.NewCredentialError("Backend error: malformed response", err)
	}
	if sr.ClientSecret == nil || sr.ClientSecret.Value == "" {
		return core.Credential{}, domain.ErrNoSecret
	}

	cred := core.Credential{Token: sr.ClientSecret.Value}
	if sr.ClientSecret.ExpiresAt > 0 {
		cred.ExpiresAt = time.Unix(sr.ClientSecret.ExpiresAt, 0)
	}
	logger.Debug().Time("expires_at", cred.ExpiresAt).Msg("credential fetched")
	return cred, nil
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
