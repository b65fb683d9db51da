// Package logging writes one JSON object per line for application events.
package logging

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Fields are arbitrary key/value pairs attached to an event.
type Fields map[string]any

// Logger emits JSON lines with ts and level fields. It is safe for concurrent use.
type Logger struct {
	mu        *sync.Mutex
	out       io.Writer
	loc       *time.Location
	component string
}

// New returns a Logger writing to stdout with timestamps in loc.
func New(loc *time.Location) *Logger {
	return NewWithWriter(os.Stdout, loc)
}

// NewWithWriter returns a Logger writing to w.
func NewWithWriter(w io.Writer, loc *time.Location) *Logger {
	if loc == nil {
		loc = time.Local
	}
	return &Logger{mu: &sync.Mutex{}, out: w, loc: loc}
}

// Nop discards everything.
func Nop() *Logger {
	return NewWithWriter(io.Discard, time.UTC)
}

// With returns a Logger that tags every entry with the given component.
func (l *Logger) With(component string) *Logger {
	return &Logger{mu: l.mu, out: l.out, loc: l.loc, component: component}
}

// Location returns the zone used for ts.
func (l *Logger) Location() *time.Location { return l.loc }

func (l *Logger) Debug(msg string, f Fields) { l.write("debug", msg, f) }
func (l *Logger) Info(msg string, f Fields)  { l.write("info", msg, f) }
func (l *Logger) Warn(msg string, f Fields)  { l.write("warn", msg, f) }
func (l *Logger) Error(msg string, f Fields) { l.write("error", msg, f) }

func (l *Logger) write(level, msg string, f Fields) {
	entry := make(map[string]any, len(f)+4)
	for k, v := range f {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		entry[k] = v
	}
	entry["ts"] = time.Now().In(l.loc).Format(time.RFC3339Nano)
	entry["level"] = level
	entry["msg"] = msg
	if l.component != "" {
		entry["component"] = l.component
	}

	b, err := json.Marshal(entry)
	if err != nil {
		log.Printf("failed to marshal log entry %q: %v", msg, err)
		return
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(b)
}
