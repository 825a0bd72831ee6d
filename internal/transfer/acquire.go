package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/teamcutter/cellar/internal/source"
)

const chunkSize = 1 << 20 // streaming copy granularity; bounds cancel latency

// Options configures an Acquirer at construction time. Source carries the
// HTTP identity and trust settings; the SMB credentials apply when an
// archive URI does not embed its own.
type Options struct {
	Source      source.Options
	SMBUser     string
	SMBPassword string
}

// Acquirer turns an archive location of any supported scheme into a local
// file. One Acquirer is built per repository and reused across pipeline
// runs.
type Acquirer struct {
	client *http.Client
	opts   Options
}

func NewAcquirer(opts Options) (*Acquirer, error) {
	client, err := source.NewHTTPClient(opts.Source)
	if err != nil {
		return nil, err
	}
	return &Acquirer{client: client, opts: opts}, nil
}

// Acquire makes the archive at rawURI available as a local file and
// returns its path. Local archives are used in place; HTTP(S) archives
// are streamed to dest in fixed-size chunks; SMB archives are delegated
// to smbclient with progress approximated from the growing file size.
// Any other scheme, including ssh, is rejected: catalogue reads support
// SSH but archive acquisition does not.
func (a *Acquirer) Acquire(ctx context.Context, rawURI, dest string, expectedSize int64, onProgress func(float64)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid archive location %q: %w", rawURI, err)
	}

	switch u.Scheme {
	case "":
		reportDone(onProgress)
		return rawURI, nil
	case "file":
		reportDone(onProgress)
		return u.Path, nil
	case "http", "https":
		if err := a.acquireHTTP(ctx, rawURI, dest, expectedSize, onProgress); err != nil {
			return "", err
		}
		return dest, nil
	case "smb":
		if err := a.acquireSMB(ctx, u, dest, expectedSize, onProgress); err != nil {
			return "", err
		}
		return dest, nil
	default:
		return "", fmt.Errorf("downloading archives from %q locations is not supported", u.Scheme)
	}
}

func (a *Acquirer) acquireHTTP(ctx context.Context, rawURI, dest string, expectedSize int64, onProgress func(float64)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURI, nil)
	if err != nil {
		return &source.TransportError{URI: rawURI, Err: err}
	}
	if a.opts.Source.UserAgent != "" {
		req.Header.Set("User-Agent", a.opts.Source.UserAgent)
	}
	if a.opts.Source.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.Source.Token)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &source.TransportError{URI: rawURI, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &source.TransportError{URI: rawURI, Err: fmt.Errorf("unexpected status: %s", resp.Status)}
	}

	if expectedSize <= 0 {
		expectedSize = resp.ContentLength
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	buf := make([]byte, chunkSize)
	var copied int64
	for {
		if err := ctx.Err(); err != nil {
			out.Close()
			os.Remove(dest)
			return err
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				os.Remove(dest)
				return fmt.Errorf("writing archive to disk: %w", werr)
			}
			copied += int64(n)
			if onProgress != nil && expectedSize > 0 {
				onProgress(float64(copied) / float64(expectedSize))
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			out.Close()
			os.Remove(dest)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &source.TransportError{URI: rawURI, Err: rerr}
		}
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("writing archive to disk: %w", err)
	}
	reportDone(onProgress)
	return nil
}

// acquireSMB delegates the transfer to smbclient. The client reports no
// progress of its own, so the growing destination file is polled against
// the expected size instead.
func (a *Acquirer) acquireSMB(ctx context.Context, u *url.URL, dest string, expectedSize int64, onProgress func(float64)) error {
	if u.User == nil && a.opts.SMBUser != "" {
		copied := *u
		copied.User = url.UserPassword(a.opts.SMBUser, a.opts.SMBPassword)
		u = &copied
	}
	fetcher, err := source.NewSMB(u, a.opts.Source)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- fetcher.Get(ctx, "", dest) }()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				os.Remove(dest)
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &source.TransportError{URI: u.Redacted(), Err: err}
			}
			reportDone(onProgress)
			return nil
		case <-ticker.C:
			if onProgress != nil && expectedSize > 0 {
				if info, err := os.Stat(dest); err == nil {
					onProgress(min(float64(info.Size())/float64(expectedSize), 1))
				}
			}
		}
	}
}

func reportDone(onProgress func(float64)) {
	if onProgress != nil {
		onProgress(1)
	}
}
