package source

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path"
	"strings"
)

// SMBFetcher reads via the smbclient command-line tool. Each fetch writes
// the remote file to a private temp file and reads it back: capturing
// smbclient's stdout directly is unreliable across client versions.
type SMBFetcher struct {
	host    string
	port    string
	share   string
	subPath string
	user    string
	pass    string
	bin     string
}

func NewSMB(u *url.URL, _ Options) (*SMBFetcher, error) {
	if u.Hostname() == "" {
		return nil, fmt.Errorf("smb repository URI %q has no host", u.String())
	}
	segments := strings.SplitN(strings.Trim(u.Path, "/"), "/", 2)
	if segments[0] == "" {
		return nil, fmt.Errorf("smb repository URI %q has no share name", u.String())
	}
	f := &SMBFetcher{
		host:  u.Hostname(),
		port:  u.Port(),
		share: segments[0],
		user:  u.User.Username(),
		bin:   "smbclient",
	}
	if len(segments) == 2 {
		f.subPath = segments[1]
	}
	if pass, ok := u.User.Password(); ok {
		f.pass = pass
	}
	return f, nil
}

func (s *SMBFetcher) Fetch(ctx context.Context, relPath string) ([]byte, error) {
	tmp, err := os.CreateTemp("", "cellar-smb-*")
	if err != nil {
		return nil, fmt.Errorf("creating temp file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := s.get(ctx, s.remotePath(relPath), tmp.Name()); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransportError{URI: s.DisplayURI(relPath), Err: err}
	}

	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		return nil, &TransportError{URI: s.DisplayURI(relPath), Err: err}
	}
	return data, nil
}

func (s *SMBFetcher) DisplayURI(relPath string) string {
	u := url.URL{Scheme: "smb", Host: s.host, Path: "/" + path.Join(s.share, s.remotePath(relPath))}
	if s.port != "" {
		u.Host = s.host + ":" + s.port
	}
	if s.user != "" {
		u.User = url.User(s.user)
	}
	return u.String()
}

func (s *SMBFetcher) Writable() bool { return true }

// Get downloads remote (relative to the share sub-path) into localPath.
// The archive acquisition path uses this directly so large transfers
// never pass through memory.
func (s *SMBFetcher) Get(ctx context.Context, relPath, localPath string) error {
	return s.get(ctx, s.remotePath(relPath), localPath)
}

func (s *SMBFetcher) get(ctx context.Context, remote, local string) error {
	args := []string{"//" + s.host + "/" + s.share}
	if s.user != "" {
		cred := s.user
		if s.pass != "" {
			cred += "%" + s.pass
		}
		args = append(args, "-U", cred)
	} else {
		args = append(args, "-N")
	}
	if s.port != "" {
		args = append(args, "-p", s.port)
	}
	args = append(args, "-c", fmt.Sprintf("get %q %q", remote, local))

	cmd := exec.CommandContext(ctx, s.bin, args...)
	// smbclient must never block on an interactive prompt.
	cmd.Stdin = strings.NewReader("")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func (s *SMBFetcher) remotePath(relPath string) string {
	return path.Join(s.subPath, relPath)
}
