package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPFetcher reads from an HTTP(S) repository. HTTP-backed repositories
// are read-only.
type HTTPFetcher struct {
	base      *url.URL
	client    *http.Client
	userAgent string
	token     string
	timeout   time.Duration
	insecure  bool
}

func NewHTTP(baseURL string, opts Options) (*HTTPFetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URL %q: %w", baseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("repository URL %q has no host", baseURL)
	}
	client, err := NewHTTPClient(opts)
	if err != nil {
		return nil, err
	}
	return &HTTPFetcher{
		base:      u,
		client:    client,
		userAgent: opts.UserAgent,
		token:     opts.Token,
		timeout:   opts.timeout(),
		insecure:  opts.Insecure,
	}, nil
}

func (h *HTTPFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	target := h.DisplayURI(relPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &TransportError{URI: target, Err: err}
	}
	h.Authorize(req)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, &TransportError{URI: target, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &TransportError{URI: target, Err: ErrNotFound}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URI: target, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URI: target, Err: err}
	}
	return data, nil
}

func (h *HTTPFetcher) DisplayURI(relPath string) string {
	u := *h.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(relPath, "/")
	return u.String()
}

func (h *HTTPFetcher) Writable() bool { return false }

// Authorize stamps the client identifier and, when configured, the bearer
// token onto req. The archive acquisition path shares this so downloads
// carry the same credentials as catalogue reads.
func (h *HTTPFetcher) Authorize(req *http.Request) {
	if h.userAgent != "" {
		req.Header.Set("User-Agent", h.userAgent)
	}
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
}

// Client returns the underlying HTTP client with the fetcher's TLS trust
// configuration applied.
func (h *HTTPFetcher) Client() *http.Client { return h.client }

// Insecure reports whether certificate verification was explicitly
// disabled for this repository.
func (h *HTTPFetcher) Insecure() bool { return h.insecure }
