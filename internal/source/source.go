// Package source reads raw bytes out of a repository over one of four
// transports: local filesystem, HTTP(S), SSH, or SMB. The transport is
// chosen once, from the repository URI's scheme, when the fetcher is
// constructed.
package source

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultTimeout bounds every remote read.
const DefaultTimeout = 30 * time.Second

var ErrNotFound = errors.New("not found")

// TransportError wraps any failure to reach or read from a repository.
// It always carries the URI (or host) being accessed.
type TransportError struct {
	URI string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %v", e.URI, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fetcher reads repository-relative paths. Implementations are immutable
// after construction and safe for repeated concurrent reads.
type Fetcher interface {
	// Fetch returns the raw contents of relPath inside the repository.
	Fetch(ctx context.Context, relPath string) ([]byte, error)
	// DisplayURI returns a caller-presentable URI or path for relPath.
	DisplayURI(relPath string) string
	// Writable reports whether the transport supports writes.
	Writable() bool
}

// Options carries construction-time transport configuration. Zero values
// select the defaults.
type Options struct {
	UserAgent    string        // client identifier sent on HTTP requests
	Token        string        // bearer token for HTTP repositories
	CACertFile   string        // PEM file overriding the HTTP trust anchors
	Insecure     bool          // disable HTTP certificate verification outright
	IdentityFile string        // SSH private key file
	Timeout      time.Duration // per-read deadline, DefaultTimeout when zero
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return DefaultTimeout
}

// Parse selects and constructs the fetcher for rawURI. An unsupported
// scheme or a malformed transport-specific URI fails here, before any
// client exists.
func Parse(rawURI string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return nil, fmt.Errorf("invalid repository URI %q: %w", rawURI, err)
	}
	switch u.Scheme {
	case "", "file":
		path := u.Path
		if u.Scheme == "" {
			path = rawURI
		}
		return NewLocal(path)
	case "http", "https":
		return NewHTTP(rawURI, opts)
	case "ssh":
		return NewSSH(u, opts)
	case "smb":
		return NewSMB(u, opts)
	default:
		return nil, fmt.Errorf("unsupported repository scheme %q", u.Scheme)
	}
}

// NewHTTPClient builds the http.Client shared by the HTTP fetcher and the
// archive acquisition path, honoring the trust options. Supplying a custom
// CA keeps chain validation; Insecure disables verification entirely and
// is an explicit opt-in.
func NewHTTPClient(opts Options) (*http.Client, error) {
	tlsConfig := &tls.Config{}
	if opts.CACertFile != "" {
		pem, err := os.ReadFile(opts.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("reading CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", opts.CACertFile)
		}
		tlsConfig.RootCAs = pool
	}
	if opts.Insecure {
		tlsConfig.InsecureSkipVerify = true
	}
	// No overall client timeout: the same client streams whole archives,
	// where a fixed deadline for the full body would abort large
	// downloads. Per-read deadlines come from the caller's context.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport}, nil
}
