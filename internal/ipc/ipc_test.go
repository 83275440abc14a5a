package ipc

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// socketIn returns a short socket path; t.TempDir paths can exceed the
// sun_path limit on macOS.
func socketIn(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "clipmon")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "c.sock")
}

func serve(t *testing.T, path string, h Handler) {
	t.Helper()
	ln, err := Listen(path)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, Serve(ctx, ln, h))
	}()
	t.Cleanup(func() { cancel(); <-done })
}

func TestCallRoundTrip(t *testing.T) {
	path := socketIn(t)
	serve(t, path, func(_ context.Context, req Request) Response {
		return Response{Removed: len(req.Keys) + len(req.Indices), Entries: 7}
	})

	require.True(t, IsRunning(path))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	resp, err := Call(ctx, path, Request{Op: OpDelete, Keys: []string{"a", "b"}, Indices: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, 3, resp.Removed)
	assert.Equal(t, 7, resp.Entries)
}

func TestCallReturnsHandlerError(t *testing.T) {
	path := socketIn(t)
	serve(t, path, func(context.Context, Request) Response {
		return Response{Error: "no history entry at index 9"}
	})

	_, err := Call(context.Background(), path, Request{Op: OpCopy, Indices: []int{9}})
	assert.EqualError(t, err, "no history entry at index 9")
}

func TestListenRefusesLiveSocket(t *testing.T) {
	path := socketIn(t)
	serve(t, path, func(context.Context, Request) Response { return Response{} })

	_, err := Listen(path)
	assert.ErrorIs(t, err, ErrRunning)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := socketIn(t)
	require.NoError(t, os.WriteFile(path, nil, 0o600))
	assert.False(t, IsRunning(path))

	ln, err := Listen(path)
	require.NoError(t, err)
	assert.NoError(t, ln.Close())
}

func TestNotRunning(t *testing.T) {
	assert.False(t, IsRunning(filepath.Join(t.TempDir(), "missing.sock")))
}
