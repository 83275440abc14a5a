// Package ipc is the local control channel between one-shot CLI commands and
// a running clipmon recorder. Without it a "history delete" would be undone
// by the recorder's next save of its in-memory copy.
//
// The channel is a Unix domain socket carrying one JSON request line and one
// JSON response line per connection. The recorder listens; CLI sub-commands
// check for it and fall back to editing the history document directly.
package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrRunning is returned by Listen when another recorder owns the socket.
var ErrRunning = errors.New("another clipmon is already listening")

// Request operations.
const (
	OpPing   = "ping"
	OpDelete = "delete"
	OpClear  = "clear"
	OpCopy   = "copy"
)

// Request is sent by a CLI command.
type Request struct {
	Op      string   `json:"op"`
	Keys    []string `json:"keys,omitempty"`
	Indices []int    `json:"indices,omitempty"`
}

// Response is the recorder's answer. Error is empty on success.
type Response struct {
	Error   string `json:"error,omitempty"`
	Removed int    `json:"removed,omitempty"`
	Entries int    `json:"entries"`
	Text    string `json:"text,omitempty"`
}

// Handler answers one request.
type Handler func(ctx context.Context, req Request) Response

// SocketPath returns the default socket location.
//
//   - $CLIPMON_SOCKET if set
//   - $XDG_RUNTIME_DIR/clipmon.sock on Linux desktops
//   - $TMPDIR/clipmon.sock otherwise
func SocketPath() string {
	if s := os.Getenv("CLIPMON_SOCKET"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "clipmon.sock")
	}
	return filepath.Join(os.TempDir(), "clipmon.sock")
}

// IsRunning reports whether a recorder appears to be listening on path. It
// does a cheap dial-and-close; no data is exchanged.
func IsRunning(path string) bool {
	c, err := net.DialTimeout("unix", path, time.Second)
	if err != nil {
		return false
	}
	_ = c.Close()
	return true
}

// Listen creates the socket at path, removing a stale socket file left by a
// crashed run. It refuses to take over a socket that still answers.
func Listen(path string) (net.Listener, error) {
	if IsRunning(path) {
		return nil, fmt.Errorf("%w on %s", ErrRunning, path)
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc listen %s: %w", path, err)
	}
	return ln, nil
}

// Serve answers requests on ln until ctx ends, then closes ln.
func Serve(ctx context.Context, ln net.Listener, h Handler) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("ipc accept: %w", err)
		}
		go handleConn(ctx, conn, h)
	}
}

func handleConn(ctx context.Context, conn net.Conn, h Handler) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		slog.Debug("ipc: read request", "err", err)
		return
	}
	var req Request
	var resp Response
	if err := json.Unmarshal(line, &req); err != nil {
		resp.Error = fmt.Sprintf("bad request: %v", err)
	} else {
		slog.Debug("ipc: request", "op", req.Op)
		resp = h(ctx, req)
	}
	_ = writeLine(conn, resp)
}

// Call sends req to the recorder at path and waits for its response. A
// response carrying an error is returned as a Go error.
func Call(ctx context.Context, path string, req Request) (Response, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return Response{}, fmt.Errorf("ipc dial %s: %w", path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := writeLine(conn, req); err != nil {
		return Response{}, fmt.Errorf("ipc send: %w", err)
	}
	line, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return Response{}, fmt.Errorf("ipc receive: %w", err)
	}
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("ipc decode: %w", err)
	}
	if resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

func writeLine(conn net.Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(raw, '\n'))
	return err
}
