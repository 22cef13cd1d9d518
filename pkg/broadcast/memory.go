package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryHub is an in-process Hub implementation.
// All methods are safe for concurrent use.
type MemoryHub[T any] struct {
	topics     map[string]*topic[T]
	bufferSize int
	closed     bool
	mu         sync.RWMutex
	wg         sync.WaitGroup
}

type topic[T any] struct {
	name        string
	subscribers map[string]*subscriber[T]
	mu          sync.RWMutex
}

type subscriber[T any] struct {
	id        string
	topicName string
	messages  chan Message[T]
	hub       *MemoryHub[T]
	closed    bool
	mu        sync.RWMutex
}

// NewMemoryHub creates an in-memory hub. bufferSize is the default channel
// buffer per subscriber; a minimum of 1 is enforced so sends stay
// non-blocking.
func NewMemoryHub[T any](bufferSize int) *MemoryHub[T] {
	return &MemoryHub[T]{
		topics:     make(map[string]*topic[T]),
		bufferSize: max(bufferSize, 1),
	}
}

func (h *MemoryHub[T]) Subscribe(ctx context.Context, topicName string, opts ...SubscribeOption) (Subscriber[T], error) {
	cfg := subscribeConfig{bufferSize: h.bufferSize}
	for _, opt := range opts {
		opt(&cfg)
	}

	sub := &subscriber[T]{
		id:        uuid.New().String(),
		topicName: topicName,
		messages:  make(chan Message[T], cfg.bufferSize),
		hub:       h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrHubClosed
	}

	tp, ok := h.topics[topicName]
	if !ok {
		tp = &topic[T]{
			name:        topicName,
			subscribers: make(map[string]*subscriber[T]),
		}
		h.topics[topicName] = tp
	}

	// Register while still holding h.mu: unsubscribe removes empty topics
	// under the same lock, so releasing it before registration would let a
	// concurrent Close strand the subscriber on a dropped topic object.
	tp.mu.Lock()
	tp.subscribers[sub.id] = sub
	tp.mu.Unlock()
	h.mu.Unlock()

	if ctx.Done() != nil {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			<-ctx.Done()
			_ = sub.Close()
		}()
	}

	return sub, nil
}

func (h *MemoryHub[T]) Publish(ctx context.Context, topicName string, payload T) error {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrHubClosed
	}
	tp, ok := h.topics[topicName]
	h.mu.RUnlock()

	if !ok {
		// No subscribers yet; the message is simply lost, per contract.
		return nil
	}

	msg := Message[T]{
		ID:        uuid.New().String(),
		Topic:     topicName,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	tp.mu.RLock()
	defer tp.mu.RUnlock()

	for _, sub := range tp.subscribers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			sub.send(msg)
		}
	}

	return nil
}

func (h *MemoryHub[T]) SubscriberCount(topicName string) int {
	h.mu.RLock()
	tp, ok := h.topics[topicName]
	h.mu.RUnlock()

	if !ok {
		return 0
	}

	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return len(tp.subscribers)
}

func (h *MemoryHub[T]) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	topics := make([]*topic[T], 0, len(h.topics))
	for _, tp := range h.topics {
		topics = append(topics, tp)
	}
	clear(h.topics)
	h.mu.Unlock()

	for _, tp := range topics {
		tp.mu.Lock()
		for _, sub := range tp.subscribers {
			sub.markClosed()
		}
		clear(tp.subscribers)
		tp.mu.Unlock()
	}

	h.wg.Wait()
	return nil
}

func (h *MemoryHub[T]) unsubscribe(sub *subscriber[T]) {
	h.mu.Lock()
	defer h.mu.Unlock()

	tp, ok := h.topics[sub.topicName]
	if !ok {
		return
	}

	tp.mu.Lock()
	delete(tp.subscribers, sub.id)
	empty := len(tp.subscribers) == 0
	tp.mu.Unlock()

	if empty {
		delete(h.topics, sub.topicName)
	}
}

func (s *subscriber[T]) Messages() <-chan Message[T] {
	return s.messages
}

func (s *subscriber[T]) Topic() string {
	return s.topicName
}

func (s *subscriber[T]) Close() error {
	if !s.markClosed() {
		return nil
	}
	// Registry removal happens outside the subscriber lock to keep the lock
	// ordering consistent with Publish (topic lock before subscriber lock).
	s.hub.unsubscribe(s)
	return nil
}

// markClosed closes the message channel exactly once. Returns false if the
// subscriber was already closed.
func (s *subscriber[T]) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	close(s.messages)
	return true
}

// send delivers a message without blocking. Full buffers and closed
// subscribers drop the message.
func (s *subscriber[T]) send(msg Message[T]) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}

	select {
	case s.messages <- msg:
		return true
	default:
		return false
	}
}
