package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelectsTransport(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		uri  string
		want any
	}{
		{root, &LocalFetcher{}},
		{"file://" + root, &LocalFetcher{}},
		{"https://repo.example.com/cellar", &HTTPFetcher{}},
		{"http://repo.example.com", &HTTPFetcher{}},
		{"ssh://user@host:2222/srv/repo", &SSHFetcher{}},
		{"smb://host/share/repo", &SMBFetcher{}},
	}
	for _, tt := range tests {
		f, err := Parse(tt.uri, Options{})
		require.NoError(t, err, tt.uri)
		assert.IsType(t, tt.want, f, tt.uri)
	}
}

func TestParseRejectsMalformedURIs(t *testing.T) {
	for _, uri := range []string{
		"ftp://host/repo",          // unsupported scheme
		"gopher://host",            // unsupported scheme
		"ssh:///srv/repo",          // no host
		"smb:///share",             // no host
		"smb://host",               // no share name
		"/does/not/exist-anywhere", // local root missing
	} {
		_, err := Parse(uri, Options{})
		assert.Error(t, err, uri)
	}
}

func TestParseWritability(t *testing.T) {
	local, err := Parse(t.TempDir(), Options{})
	require.NoError(t, err)
	assert.True(t, local.Writable())

	remote, err := Parse("https://repo.example.com", Options{})
	require.NoError(t, err)
	assert.False(t, remote.Writable())

	ssh, err := Parse("ssh://host/srv/repo", Options{})
	require.NoError(t, err)
	assert.True(t, ssh.Writable())

	smb, err := Parse("smb://host/share", Options{})
	require.NoError(t, err)
	assert.True(t, smb.Writable())
}
