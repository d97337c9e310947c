package engine

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// broker is an in-memory topic. Delivery is synchronous and includes the
// publisher's own subscription, like an MQTT broker without no-local.
type broker struct {
	mu       sync.Mutex
	handlers []func([]byte)
	retained []byte
	sent     [][]byte
	retains  []bool
}

func (b *broker) conn() *memConn { return &memConn{b: b} }

func (b *broker) messages() [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([][]byte(nil), b.sent...)
}

func (b *broker) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

type memConn struct {
	b       *broker
	failPub error
	closed  bool
}

func (c *memConn) Publish(_ context.Context, msg []byte, retained bool) error {
	if c.failPub != nil {
		return c.failPub
	}
	c.b.mu.Lock()
	c.b.sent = append(c.b.sent, msg)
	c.b.retains = append(c.b.retains, retained)
	if retained {
		c.b.retained = msg
	}
	handlers := slices.Clone(c.b.handlers)
	c.b.mu.Unlock()

	for _, h := range handlers {
		h(msg)
	}
	return nil
}

func (c *memConn) Subscribe(_ context.Context, handler func([]byte)) error {
	if c.closed {
		return errors.New("closed")
	}
	c.b.mu.Lock()
	c.b.handlers = append(c.b.handlers, handler)
	retained := c.b.retained
	c.b.mu.Unlock()

	if retained != nil {
		handler(retained)
	}
	return nil
}

func (c *memConn) Close() error {
	c.closed = true
	return nil
}
