// Package gamestatus polls a third-party game service's realm-status page
// and reduces it to a small display map for the dashboard.
package gamestatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	// The status endpoint rejects requests without a browser User-Agent.
	browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36"

	requestTimeout = 10 * time.Second
)

// ErrStructure reports that the response parsed as JSON but did not contain
// the expected nested keys.
var ErrStructure = errors.New("realm status response missing zos_platform_response.response")

// Config describes the endpoint and the realms to extract from it.
type Config struct {
	// URL is the realm-status JSON endpoint.
	URL string
	// Realms maps the realm key in the API response to the display name
	// shown on the dashboard.
	Realms map[string]string
}

// Poller fetches the realm status of a third-party game service.
type Poller struct {
	client *http.Client
	url    string
	realms map[string]string
}

// realmsResponse mirrors the endpoint's nested JSON envelope.
type realmsResponse struct {
	Platform struct {
		Response map[string]string `json:"response"`
	} `json:"zos_platform_response"`
}

// NewPoller creates a Poller for the given endpoint and realm set.
func NewPoller(cfg Config) *Poller {
	return &Poller{
		client: &http.Client{Timeout: requestTimeout},
		url:    cfg.URL,
		realms: cfg.Realms,
	}
}

// Fetch retrieves the realm-status page and returns the state of each
// configured realm keyed by its display name, states upper-cased. A realm
// absent from the response maps to "UNKNOWN". Network, HTTP, JSON, and
// structure failures are returned as errors for the caller to log; the
// previous displayed state stays in place on failure.
func (p *Poller) Fetch(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("building realm status request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("realm status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("realm status endpoint returned HTTP %d", resp.StatusCode)
	}

	var body realmsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("invalid realm status JSON: %w", err)
	}
	if body.Platform.Response == nil {
		return nil, ErrStructure
	}

	out := make(map[string]string, len(p.realms))
	for key, display := range p.realms {
		state, ok := body.Platform.Response[key]
		if !ok {
			out[display] = "UNKNOWN"
			continue
		}
		out[display] = strings.ToUpper(state)
	}

	return out, nil
}
