package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/vfskit"
)

func newServer(t *testing.T) (*httptest.Server, *atomic.Value) {
	t.Helper()
	var lastRequest atomic.Value
	modTime := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mux := http.NewServeMux()
	mux.HandleFunc("/files/hello.txt", func(w http.ResponseWriter, r *http.Request) {
		lastRequest.Store(r.Clone(context.Background()))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Last-Modified", modTime.Format(http.TimeFormat))
		w.Header().Set("Content-Length", "11")
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte("hello world"))
	})
	mux.HandleFunc("/private", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte("top secret"))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastRequest
}

func newManager(t *testing.T, cfg ...Config) *vfskit.Manager {
	t.Helper()
	ctx := context.Background()
	m := vfskit.NewManager()
	require.NoError(t, m.Init(ctx))
	require.NoError(t, m.AddProvider(ctx, NewProvider(SchemeHTTP, cfg...), SchemeHTTP))
	t.Cleanup(func() { m.Close() })
	return m
}

func TestRead(t *testing.T) {
	ctx := context.Background()
	srv, lastRequest := newServer(t)
	m := newManager(t, Config{UserAgent: "vfskit-test"})

	f, err := m.Resolve(ctx, srv.URL+"/files/hello.txt?v=2")
	require.NoError(t, err)
	defer f.Close()

	q, ok := f.Name().QueryString()
	assert.True(t, ok)
	assert.Equal(t, "v=2", q)

	info, err := f.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, vfskit.TypeFile, info.Type)
	assert.Equal(t, int64(11), info.Size)
	assert.Equal(t, "text/plain; charset=utf-8", info.ContentType)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), info.ModTime.UTC())

	data, err := vfskit.ReadAll(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	req := lastRequest.Load().(*http.Request)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "v=2", req.URL.RawQuery)
	assert.Equal(t, "vfskit-test", req.Header.Get("User-Agent"))
}

func TestMissing(t *testing.T) {
	ctx := context.Background()
	srv, _ := newServer(t)
	m := newManager(t)

	f, err := m.Resolve(ctx, srv.URL+"/nope")
	require.NoError(t, err)
	defer f.Close()

	exists, err := f.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.Open(ctx)
	assert.True(t, vfskit.IsNotFound(err), "got %v", err)
}

func TestCredentials(t *testing.T) {
	ctx := context.Background()
	srv, _ := newServer(t)
	m := newManager(t)
	host := strings.TrimPrefix(srv.URL, "http://")

	f, err := m.Resolve(ctx, "http://alice:secret@"+host+"/private")
	require.NoError(t, err)
	defer f.Close()

	data, err := vfskit.ReadAll(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, "top secret", string(data))
	assert.NotContains(t, f.Name().String(), "secret")

	denied, err := m.Resolve(ctx, srv.URL+"/private")
	require.NoError(t, err)
	defer denied.Close()
	_, err = denied.Exists(ctx)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestServerError(t *testing.T) {
	ctx := context.Background()
	srv, _ := newServer(t)
	m := newManager(t)

	f, err := m.Resolve(ctx, srv.URL+"/broken")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Type(ctx)
	assert.ErrorContains(t, err, "500")
}

func TestNoChildren(t *testing.T) {
	ctx := context.Background()
	srv, _ := newServer(t)
	m := newManager(t)

	f, err := m.Resolve(ctx, srv.URL+"/files/hello.txt")
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Children(ctx)
	assert.ErrorIs(t, err, vfskit.ErrNotFolder)
}

func TestDefaultPort(t *testing.T) {
	m := newManager(t)
	name, err := m.ParseURI("http://example.com:80/a")
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/a", name.URI())
	assert.Equal(t, 443, DefaultPort(SchemeHTTPS))
}
