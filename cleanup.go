package taskrunner

import (
	"log/slog"
	"sync"
)

// cleanupEntry is a named deferred action.
type cleanupEntry struct {
	name string
	fn   func()
}

// CleanupStack is a mutex-protected LIFO of named thunks. Run contexts
// push an entry on entry and pop it on clean exit; a signal-watcher
// drains whatever remains, in reverse order, when a stop signal
// arrives (see cmd/taskrunner/signal.go). Each thunk runs exactly
// once: Pop removes it from the stack before invoking it, and Drain
// clears the whole stack atomically before running any of them, so a
// concurrent Pop can never double-fire an entry Drain already claimed.
type CleanupStack struct {
	mu      sync.Mutex
	entries []cleanupEntry
}

func NewCleanupStack() *CleanupStack {
	return &CleanupStack{}
}

// Push adds a named thunk to the top of the stack.
func (c *CleanupStack) Push(name string, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, cleanupEntry{name: name, fn: fn})
}

// Pop removes and runs the most recently pushed entry named name, if
// present. Used by a run context on its own clean exit to undo a
// cleanup it registered itself without disturbing entries pushed by
// others in the meantime.
func (c *CleanupStack) Pop(name string) {
	c.mu.Lock()
	idx := -1
	for i := len(c.entries) - 1; i >= 0; i-- {
		if c.entries[i].name == name {
			idx = i
			break
		}
	}
	var fn func()
	if idx >= 0 {
		fn = c.entries[idx].fn
		c.entries = append(c.entries[:idx], c.entries[idx+1:]...)
	}
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Drain empties the stack and runs every entry in reverse (LIFO)
// order. Errors are not a first-class concept here: thunks log their
// own failures (see ContainerCommand.Run in target.go) rather than
// returning them, so a failing cleanup never blocks the rest of the
// drain.
func (c *CleanupStack) Drain() {
	c.mu.Lock()
	entries := c.entries
	c.entries = nil
	c.mu.Unlock()
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		slog.Debug("cleanup.drain", "name", e.name)
		e.fn()
	}
}

// Len reports how many entries are currently pending, mostly useful
// for tests.
func (c *CleanupStack) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
