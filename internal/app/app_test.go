package app

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/brettbedarf/dirstore"
	"github.com/brettbedarf/dirstore/config"
	"github.com/brettbedarf/dirstore/internal/util"
	"github.com/brettbedarf/dirstore/metrics"
	"github.com/brettbedarf/dirstore/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(t *testing.T, override *config.ConfigOverride) *App {
	t.Helper()
	a, err := New(context.Background(), config.NewConfig(override))
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, a.Close()) })
	return a
}

func get(t *testing.T, h http.Handler, target, owner string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if owner != "" {
		req.Header.Set(server.HeaderEntityUID, owner)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNew_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.NewConfig(&config.ConfigOverride{
		Backend: util.Pointer(config.BackendBadger),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestNew_SeededMemoryWithMetrics(t *testing.T) {
	t.Parallel()
	a := newApp(t, &config.ConfigOverride{Seed: util.Pointer(true)})

	_, ok := a.Store().(*metrics.Store)
	assert.True(t, ok, "metrics are enabled by default")

	rec := get(t, a.Handler(), "/directory/0", "0")
	require.Equal(t, http.StatusOK, rec.Code)
	var root dirstore.Directory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Len(t, root.Children, 5)

	rec = get(t, a.Handler(), "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `dirstore_operations_total{op="get",result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNew_MetricsDisabled(t *testing.T) {
	t.Parallel()
	a := newApp(t, &config.ConfigOverride{EnableMetrics: util.Pointer(false)})

	_, ok := a.Store().(*metrics.Store)
	assert.False(t, ok)
	assert.Equal(t, http.StatusNotFound, get(t, a.Handler(), "/metrics", "").Code)
}

func TestNew_Badger(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := newApp(t, &config.ConfigOverride{
		Backend:       util.Pointer(config.BackendBadger),
		DataDir:       util.Pointer(dir),
		EnableMetrics: util.Pointer(false),
	})

	ctx := context.Background()
	root, err := a.Store().Create(ctx, 1, "root", nil)
	require.NoError(t, err)

	rec := get(t, a.Handler(), "/directory/"+root.ID.String(), "1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	t.Parallel()
	addr := freeAddr(t)
	a := newApp(t, &config.ConfigOverride{ListenAddress: util.Pointer(addr)})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond, "server never became healthy")
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(ShutdownTimeout):
		t.Fatal("Run did not return after cancel")
	}
}

// freeAddr returns a loopback address whose port was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestRun_ListenFailure(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	a := newApp(t, &config.ConfigOverride{ListenAddress: util.Pointer(ln.Addr().String())})

	err = a.Run(context.Background())
	assert.Error(t, err, "address is already in use")
}

func TestNew_SeedFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- owner: 9\n  tree: {name: projects, width: 3}\n"), 0o600))

	a := newApp(t, &config.ConfigOverride{SeedFile: util.Pointer(path)})

	rec := get(t, a.Handler(), "/directory/0", "9")
	require.Equal(t, http.StatusOK, rec.Code)
	var root dirstore.Directory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Equal(t, "projects", root.Name)
	assert.Len(t, root.Children, 3)
}

func TestNew_SeedFileMissing(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.NewConfig(&config.ConfigOverride{
		SeedFile: util.Pointer(filepath.Join(t.TempDir(), "missing.yaml")),
	}))
	assert.Error(t, err)
}
