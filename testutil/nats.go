package testutil

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
)

// MockNATSClient is an in-memory NATS client. Its Publish and Subscribe
// match natsclient.Client. Safe for concurrent use.
type MockNATSClient struct {
	mu            sync.RWMutex
	messages      map[string][][]byte
	subscriptions map[string][]func(context.Context, []byte)
	err           error
	closed        bool
}

// NewMockNATSClient creates a new mock NATS client.
func NewMockNATSClient() *MockNATSClient {
	return &MockNATSClient{
		messages:      make(map[string][][]byte),
		subscriptions: make(map[string][]func(context.Context, []byte)),
	}
}

// Publish records data under subject and runs the subject's handlers.
func (c *MockNATSClient) Publish(ctx context.Context, subject string, data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("client is closed")
	}
	if c.err != nil {
		err := c.err
		c.mu.Unlock()
		return err
	}
	c.messages[subject] = append(c.messages[subject], slices.Clone(data))
	handlers := slices.Clone(c.subscriptions[subject])
	c.mu.Unlock()

	// outside the lock so handlers may publish
	for _, handler := range handlers {
		handler(ctx, data)
	}
	return nil
}

// Subscribe registers handler for an exact subject.
func (c *MockNATSClient) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("client is closed")
	}
	c.subscriptions[subject] = append(c.subscriptions[subject], handler)
	return nil
}

// SetError makes every following Publish fail with err. Nil clears it.
func (c *MockNATSClient) SetError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// Messages returns the payloads published to subject in order.
func (c *MockNATSClient) Messages(subject string) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.messages[subject])
}

// Subjects lists the subjects that received messages, sorted.
func (c *MockNATSClient) Subjects() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.messages))
}

// Count is the total number of published messages.
func (c *MockNATSClient) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, msgs := range c.messages {
		n += len(msgs)
	}
	return n
}

// Close makes later calls fail.
func (c *MockNATSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}
