package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockExecutor struct {
	paths []string
	err   error
}

func (m *mockExecutor) Execute(_ context.Context, path string) (string, error) {
	m.paths = append(m.paths, path)
	return "x", m.err
}

type loopback struct {
	in  *strings.Reader
	out bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.out.Write(p) }

func TestServe(t *testing.T) {
	rw := &loopback{in: strings.NewReader("/move/90\r\nGET /blink/2/200/100 HTTP/1.1\r\n\r\n   \n/nothing\n")}
	exec := &mockExecutor{}

	require.NoError(t, Serve(context.Background(), rw, exec))
	assert.Equal(t, []string{"/move/90", "/blink/2/200/100", "/nothing"}, exec.paths)
	assert.Equal(t, strings.Repeat(reply, 3), rw.out.String())
}

func TestServe_RepliesOKOnExecutorError(t *testing.T) {
	rw := &loopback{in: strings.NewReader("/open\n")}
	exec := &mockExecutor{err: errors.New("controller: loop stopped")}

	require.NoError(t, Serve(context.Background(), rw, exec))
	assert.Equal(t, reply, rw.out.String())
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rw := &loopback{in: strings.NewReader("/open\n/close\n")}
	exec := &mockExecutor{}

	require.NoError(t, Serve(ctx, rw, exec))
	assert.Empty(t, exec.paths)
}

func TestParseLine(t *testing.T) {
	for line, want := range map[string]string{
		"/spin/1":              "/spin/1",
		"GET /spin/1 HTTP/1.0": "/spin/1",
		"  /reset  ":           "/reset",
		"GET":                  "GET",
	} {
		got, ok := parseLine(line)
		assert.True(t, ok, line)
		assert.Equal(t, want, got, line)
	}
	_, ok := parseLine("\t ")
	assert.False(t, ok)
}
