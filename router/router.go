// Package router maps command paths like /blink/3/200/100 onto controller
// commands. Matching is a literal, case-sensitive prefix comparison over an
// ordered table; the first matching prefix wins. Arguments never make a
// command fail: malformed or missing numbers count as zero.
package router

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"lautenbacher.net/eyedancer/metrics"
	"lautenbacher.net/eyedancer/sequencer"
)

// Commands is the command surface of the controller.
type Commands interface {
	Move(deg int)
	Open()
	Close()
	Blink(count uint, closedFor, openFor time.Duration)
	Spin(revolutions uint)
	Spell(word string, gestureFor, interMoveFor, interLetterFor time.Duration)
	Reset()
	SetMapping(mapping string)
	Curtain(dir sequencer.CurtainDirection, timeout time.Duration)
}

// Executor runs a function on the goroutine that owns the Commands.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Unknown is the command name reported for a path no route matches.
const Unknown = "unknown"

type route struct {
	prefix string
	name   string
	handle func(c Commands, rest string)
}

// routes is ordered most specific first.
var routes = []route{
	{"/curtain/raise", "curtain-raise", func(c Commands, rest string) {
		c.Curtain(sequencer.CurtainRaise, millis(uints(rest, 1)[0]))
	}},
	{"/curtain/lower", "curtain-lower", func(c Commands, rest string) {
		c.Curtain(sequencer.CurtainLower, millis(uints(rest, 1)[0]))
	}},
	{"/curtain/stop", "curtain-stop", func(c Commands, _ string) {
		c.Curtain(sequencer.CurtainStop, 0)
	}},
	{"/config", "config", func(c Commands, rest string) {
		c.SetMapping(rest)
	}},
	{"/spell", "spell", func(c Commands, rest string) {
		word, tail, _ := strings.Cut(rest, "/")
		args := uints(tail, 3)
		c.Spell(word, millis(args[0]), millis(args[1]), millis(args[2]))
	}},
	{"/blink", "blink", func(c Commands, rest string) {
		args := uints(rest, 3)
		c.Blink(uint(args[0]), millis(args[1]), millis(args[2]))
	}},
	{"/move", "move", func(c Commands, rest string) {
		first, _, _ := strings.Cut(rest, "/")
		deg, err := strconv.ParseInt(first, 10, 32)
		if err != nil {
			slog.Debug("Ignoring move without angle", "arg", first)
			return
		}
		c.Move(int(deg))
	}},
	{"/spin", "spin", func(c Commands, rest string) {
		c.Spin(uint(uints(rest, 1)[0]))
	}},
	{"/open", "open", func(c Commands, _ string) { c.Open() }},
	{"/close", "close", func(c Commands, _ string) { c.Close() }},
	{"/reset", "reset", func(c Commands, _ string) { c.Reset() }},
}

type Router struct {
	cmds Commands
	exec Executor
}

func New(cmds Commands, exec Executor) *Router {
	return &Router{cmds: cmds, exec: exec}
}

// Dispatch runs the command for path on the caller's goroutine and returns
// its name. It must be called where the Commands may be used.
func (r *Router) Dispatch(path string) string {
	for _, rt := range routes {
		if !strings.HasPrefix(path, rt.prefix) {
			continue
		}
		rest := strings.TrimPrefix(path[len(rt.prefix):], "/")
		slog.Debug("Routing command", "command", rt.name, "args", rest)
		metrics.Commands.WithLabelValues(rt.name).Inc()
		rt.handle(r.cmds, rest)
		return rt.name
	}
	slog.Debug("No route for path", "path", path)
	metrics.Commands.WithLabelValues(Unknown).Inc()
	return Unknown
}

// Execute dispatches path on the executor's goroutine.
func (r *Router) Execute(ctx context.Context, path string) (string, error) {
	name := Unknown
	err := r.exec.Do(ctx, func() { name = r.Dispatch(path) })
	return name, err
}

// ServeHTTP answers every request with 200 and a permissive CORS header,
// whatever the path did.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, err := r.Execute(req.Context(), req.URL.Path); err != nil {
		slog.Warn("Command not executed", "path", req.URL.Path, "error", err)
	}
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
}

// uints parses the first n slash separated fields of s. Missing, malformed
// or out of range fields are zero.
func uints(s string, n int) []uint32 {
	ret := make([]uint32, n)
	fields := strings.Split(s, "/")
	for i := 0; i < n && i < len(fields); i++ {
		v, err := strconv.ParseUint(fields[i], 10, 32)
		if err != nil {
			continue
		}
		ret[i] = uint32(v)
	}
	return ret
}

func millis(v uint32) time.Duration {
	return time.Duration(v) * time.Millisecond
}
