package connectivity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Probe answers whether the station server is currently reachable.
// A nil error means reachable.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Check(ctx context.Context) error {
	return f(ctx)
}

type httpProbe struct {
	url    string
	client *http.Client
}

// NewHTTPProbe builds a probe that issues a HEAD request against the
// given health URL. Any HTTP response counts as reachable; only transport
// failures report the server as offline.
func NewHTTPProbe(url string, timeout time.Duration) (Probe, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("probe url required")
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpProbe{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}, nil
}

func (p *httpProbe) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", p.url, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
