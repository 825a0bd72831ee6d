package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path"
	"strings"
)

// SSHFetcher reads via the system SSH client so that agent, ~/.ssh/config,
// and known_hosts handling all behave exactly as they do for the user's
// own sessions. Runs in batch mode: a missing key or an unknown host fails
// instead of prompting.
type SSHFetcher struct {
	host     string
	port     string
	user     string
	root     string
	identity string
	bin      string
}

func NewSSH(u *url.URL, opts Options) (*SSHFetcher, error) {
	if u.Hostname() == "" {
		return nil, fmt.Errorf("ssh repository URI %q has no host", u.String())
	}
	return &SSHFetcher{
		host:     u.Hostname(),
		port:     u.Port(),
		user:     u.User.Username(),
		root:     strings.TrimSuffix(u.Path, "/"),
		identity: opts.IdentityFile,
		bin:      "ssh",
	}, nil
}

func (s *SSHFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	args := []string{"-o", "BatchMode=yes"}
	if s.port != "" {
		args = append(args, "-p", s.port)
	}
	if s.identity != "" {
		args = append(args, "-i", s.identity)
	}
	args = append(args, s.target(), fmt.Sprintf("cat %s", shellQuote(s.remotePath(relPath))))

	cmd := exec.CommandContext(ctx, s.bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return nil, &TransportError{URI: s.DisplayURI(relPath), Err: err}
	}
	return stdout.Bytes(), nil
}

func (s *SSHFetcher) DisplayURI(relPath string) string {
	u := url.URL{Scheme: "ssh", Host: s.host, Path: s.remotePath(relPath)}
	if s.port != "" {
		u.Host = s.host + ":" + s.port
	}
	if s.user != "" {
		u.User = url.User(s.user)
	}
	return u.String()
}

func (s *SSHFetcher) Writable() bool { return true }

func (s *SSHFetcher) target() string {
	if s.user != "" {
		return s.user + "@" + s.host
	}
	return s.host
}

func (s *SSHFetcher) remotePath(relPath string) string {
	return path.Join(s.root, relPath)
}

// shellQuote wraps p in single quotes for the remote shell, escaping any
// embedded single quotes.
func shellQuote(p string) string {
	return "'" + strings.ReplaceAll(p, "'", `'\''`) + "'"
}
