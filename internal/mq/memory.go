package mq

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend delivers messages in process. Messages published before a
// subscriber attaches are buffered per channel.
type MemoryBackend struct {
	mu       sync.Mutex
	channels map[string]chan Message
	closed   bool
	size     int
}

// NewMemoryBackend constructs a backend whose channels buffer up to size messages.
func NewMemoryBackend(size int) *MemoryBackend {
	if size < 1 {
		size = 1
	}
	return &MemoryBackend{channels: make(map[string]chan Message), size: size}
}

func (b *MemoryBackend) channel(name string) (chan Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memory backend closed")
	}
	ch, ok := b.channels[name]
	if !ok {
		ch = make(chan Message, b.size)
		b.channels[name] = ch
	}
	return ch, nil
}

// Publish buffers a message on the named channel.
func (b *MemoryBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("memory channel is required")
	}
	ch, err := b.channel(channel)
	if err != nil {
		return "", err
	}
	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	select {
	case ch <- msg:
		return msg.ID, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Subscribe hands buffered and future messages to handler until ctx is done.
// A failed message is redelivered at the back of the channel.
func (b *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch, err := b.channel(channel)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			if err := handler(ctx, msg); err != nil {
				select {
				case ch <- msg:
				default:
				}
			}
		}
	}
}

// Close rejects further publishes.
func (b *MemoryBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
