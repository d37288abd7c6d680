// Package sessiontest provides an in-memory session.Conn for tests.
package sessiontest

import (
	"errors"
	"strings"
	"sync"
)

var ErrClosed = errors.New("conn closed")

// Conn records every message sent to it.
type Conn struct {
	mu     sync.Mutex
	msgs   []string
	closed bool
}

func NewConn() *Conn { return &Conn{} }

func (c *Conn) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *Conn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Messages returns a copy of everything received so far.
func (c *Conn) Messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.msgs...)
}

// WithPrefix filters received messages by prefix, e.g. "STATS:".
func (c *Conn) WithPrefix(prefix string) []string {
	var out []string
	for _, m := range c.Messages() {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the most recent message starting with prefix.
func (c *Conn) Last(prefix string) (string, bool) {
	got := c.WithPrefix(prefix)
	if len(got) == 0 {
		return "", false
	}
	return got[len(got)-1], true
}

func (c *Conn) Reset() {
	c.mu.Lock()
	c.msgs = nil
	c.mu.Unlock()
}
