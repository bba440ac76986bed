// Package logging provides the hierarchical logger used throughout the
// render graph runtime. It wraps hclog.Logger with a per-logger ring
// buffer so subsystems (nodes, graph, executor) can be asked for their
// recent log lines without a log file on disk.
package logging

import (
	"bytes"
	"io"
	"sync"

	"github.com/hashicorp/go-hclog"
)

const defaultRingCapacity = 256

// Logger is a named, hierarchical logger. The zero value is not usable;
// construct one with New or Named.
type Logger struct {
	hc  hclog.Logger
	mu  sync.Mutex
	buf *ringBuffer

	childMu  sync.Mutex
	children []*Logger
}

// Config controls how the root Logger is constructed.
type Config struct {
	Name           string
	Level          hclog.Level
	MirrorToStderr bool
	RingCapacity   int
}

// New creates a root Logger per cfg.
func New(cfg Config) *Logger {
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = defaultRingCapacity
	}
	buf := newRingBuffer(cfg.RingCapacity)

	var out io.Writer = buf
	if cfg.MirrorToStderr {
		out = io.MultiWriter(buf, hclog.DefaultOutput)
	}

	hc := hclog.New(&hclog.LoggerOptions{
		Name:   cfg.Name,
		Level:  cfg.Level,
		Output: out,
	})

	return &Logger{hc: hc, buf: buf}
}

// Named returns a child logger, tracked so the parent can enumerate its
// whole tree via Tree().
func (l *Logger) Named(name string) *Logger {
	child := &Logger{hc: l.hc.Named(name), buf: l.buf}
	l.childMu.Lock()
	l.children = append(l.children, child)
	l.childMu.Unlock()
	return child
}

// AddChild attaches an existing logger as a child of l so Tree()
// includes it.
func (l *Logger) AddChild(child *Logger) {
	l.childMu.Lock()
	l.children = append(l.children, child)
	l.childMu.Unlock()
}

// With returns a child logger with the given key/value pairs attached to
// every subsequent message.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{hc: l.hc.With(args...), buf: l.buf}
}

func (l *Logger) Trace(msg string, args ...interface{}) { l.hc.Trace(msg, args...) }
func (l *Logger) Debug(msg string, args ...interface{}) { l.hc.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...interface{})  { l.hc.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.hc.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...interface{}) { l.hc.Error(msg, args...) }

// HCLog exposes the wrapped hclog.Logger for collaborators (e.g. cobra
// command wiring) that want the raw interface.
func (l *Logger) HCLog() hclog.Logger { return l.hc }

// ExtractLogs returns the buffered log lines written through this
// logger's root ring buffer, most recent last.
func (l *Logger) ExtractLogs() []string {
	return l.buf.Lines()
}

// Tree walks this logger and every descendant created via Named or
// attached via AddChild.
func (l *Logger) Tree() []*Logger {
	out := []*Logger{l}
	l.childMu.Lock()
	children := append([]*Logger(nil), l.children...)
	l.childMu.Unlock()
	for _, c := range children {
		out = append(out, c.Tree()...)
	}
	return out
}

// ringBuffer is a fixed-capacity line buffer safe for concurrent writes.
type ringBuffer struct {
	mu   sync.Mutex
	cap  int
	cur  bytes.Buffer
	line []string
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{cap: capacity}
}

func (r *ringBuffer) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, _ := r.cur.Write(p)
	for {
		line, err := r.cur.ReadString('\n')
		if err != nil {
			r.cur.Reset()
			r.cur.WriteString(line)
			break
		}
		r.append(line)
	}
	return n, nil
}

func (r *ringBuffer) append(line string) {
	r.line = append(r.line, line)
	if len(r.line) > r.cap {
		r.line = r.line[len(r.line)-r.cap:]
	}
}

func (r *ringBuffer) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.line))
	copy(out, r.line)
	return out
}
