package lvar

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// Warner receives advisory diagnostics emitted during extraction.
type Warner interface {
	Warn(message string)
}

// WarnFunc adapts a function to the Warner interface.
type WarnFunc func(message string)

// Warn implements Warner.
func (f WarnFunc) Warn(message string) { f(message) }

// Discard drops every diagnostic.
var Discard Warner = WarnFunc(func(string) {})

// SlogWarner logs diagnostics at WARN level.
type SlogWarner struct {
	Logger *slog.Logger
}

// Warn implements Warner.
func (w SlogWarner) Warn(message string) {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.LogAttrs(context.Background(), slog.LevelWarn, message, slog.String("component", "lvar"))
}

// Collector keeps diagnostics in memory. The zero value is ready to use and
// safe for concurrent use.
type Collector struct {
	mu       sync.Mutex
	messages []string
}

// Warn implements Warner.
func (c *Collector) Warn(message string) {
	c.mu.Lock()
	c.messages = append(c.messages, message)
	c.mu.Unlock()
}

// Messages returns a copy of the collected diagnostics in emission order.
func (c *Collector) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.messages)
}
