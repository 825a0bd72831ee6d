package transfer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teamcutter/cellar/internal/source"
)

func newAcquirer(t *testing.T) *Acquirer {
	t.Helper()
	a, err := NewAcquirer(Options{Source: source.Options{UserAgent: "cellar/test"}})
	require.NoError(t, err)
	return a
}

func TestAcquireLocalInPlace(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "bundle.tar.gz")
	require.NoError(t, os.WriteFile(archive, []byte("archive"), 0644))

	a := newAcquirer(t)
	var last float64
	got, err := a.Acquire(context.Background(), archive, filepath.Join(dir, "unused"), 7, func(f float64) { last = f })
	require.NoError(t, err)
	assert.Equal(t, archive, got)
	assert.Equal(t, 1.0, last)

	got, err = a.Acquire(context.Background(), "file://"+archive, filepath.Join(dir, "unused"), 7, nil)
	require.NoError(t, err)
	assert.Equal(t, archive, got)
}

func TestAcquireHTTPStreams(t *testing.T) {
	payload := make([]byte, 3*chunkSize/2)
	for i := range payload {
		payload[i] = byte(i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cellar/test", r.Header.Get("User-Agent"))
		w.Write(payload)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	a := newAcquirer(t)
	var fractions []float64
	got, err := a.Acquire(context.Background(), srv.URL+"/bundle.tar.gz", dest, int64(len(payload)),
		func(f float64) { fractions = append(fractions, f) })
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, data)

	require.NotEmpty(t, fractions)
	assert.Equal(t, 1.0, fractions[len(fractions)-1])
	for i := 1; i < len(fractions); i++ {
		assert.GreaterOrEqual(t, fractions[i], fractions[i-1])
	}
}

func TestAcquireHTTPCancelledLeavesNoFile(t *testing.T) {
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "4194304")
		w.Write(make([]byte, chunkSize))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-unblock
	}))
	defer srv.Close()
	defer close(unblock)

	ctx, cancel := context.WithCancel(context.Background())
	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	a := newAcquirer(t)

	// Cancel as soon as the first chunk lands.
	_, err := a.Acquire(ctx, srv.URL+"/big.tar.gz", dest, 4*chunkSize, func(float64) { cancel() })
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr), "partial archive left behind")
}

func TestAcquireHTTPBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := newAcquirer(t)
	dest := filepath.Join(t.TempDir(), "bundle.tar.gz")
	_, err := a.Acquire(context.Background(), srv.URL+"/missing.tar.gz", dest, 0, nil)
	var terr *source.TransportError
	require.True(t, errors.As(err, &terr))

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestAcquireRejectsUnsupportedSchemes(t *testing.T) {
	a := newAcquirer(t)
	for _, uri := range []string{
		"ssh://host/srv/repo/bundle.tar.gz",
		"ftp://host/bundle.tar.gz",
	} {
		_, err := a.Acquire(context.Background(), uri, filepath.Join(t.TempDir(), "x"), 0, nil)
		assert.ErrorContains(t, err, "not supported", uri)
	}
}
