// Package notify delivers user-visible notifications.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/jwalitptl/clinic-admin/pkg/logger"
)

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Error   Level = "error"
)

// Notification is one message shown to the operator.
type Notification struct {
	Level   Level
	Message string
}

// Notifier receives user-visible notifications. Implementations must not block.
type Notifier interface {
	Notify(level Level, message string)
}

// Console prints notifications to an io.Writer and mirrors them to the log.
type Console struct {
	mu  sync.Mutex
	out io.Writer
	log *logger.Logger
}

func NewConsole(out io.Writer, log *logger.Logger) *Console {
	return &Console{out: out, log: log}
}

func (c *Console) Notify(level Level, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] %s\n", level, message)
	if c.log != nil {
		c.log.Debug("notification", "level", string(level), "message", message)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, Notification{Level: level, Message: message})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent notification and whether there was one.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Reset drops everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = nil
}

// Discard drops notifications.
type Discard struct{}

func (Discard) Notify(Level, string) {}
