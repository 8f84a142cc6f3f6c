// Package notify delivers fire-and-forget success/error toasts to the browser.
package notify

import (
	"sync"
	"time"
)

// Level is the kind of toast.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// DefaultMaxPending bounds the toasts kept for a browser that is not polling.
const DefaultMaxPending = 50

// Toast is a single notification.
type Toast struct {
	Level   Level     `json:"level" msgpack:"level"`
	Message string    `json:"message" msgpack:"message"`
	At      time.Time `json:"at" msgpack:"at"`
}

// Notifier is the contract the session controller uses. Nothing is returned;
// delivery is best effort.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Queue buffers toasts until the browser drains them and fans each one out to
// live subscribers (WebSocket connections).
type Queue struct {
	mu         sync.Mutex
	pending    []Toast
	maxPending int
	subs       map[int]chan Toast
	nextSubID  int
}

// NewQueue creates a queue holding at most maxPending undelivered toasts;
// older toasts are dropped first.
func NewQueue(maxPending int) *Queue {
	if maxPending <= 0 {
		maxPending = DefaultMaxPending
	}
	return &Queue{
		maxPending: maxPending,
		subs:       make(map[int]chan Toast),
	}
}

// Success queues a success toast.
func (q *Queue) Success(message string) {
	q.push(Toast{Level: LevelSuccess, Message: message, At: time.Now()})
}

// Error queues an error toast.
func (q *Queue) Error(message string) {
	q.push(Toast{Level: LevelError, Message: message, At: time.Now()})
}

func (q *Queue) push(t Toast) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.pending = append(q.pending, t)
	if over := len(q.pending) - q.maxPending; over > 0 {
		q.pending = q.pending[over:]
	}

	for _, ch := range q.subs {
		select {
		case ch <- t:
		default:
			// slow subscriber; the toast is still in pending
		}
	}
}

// Drain returns and clears the pending toasts, oldest first.
func (q *Queue) Drain() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.pending
	q.pending = nil
	if out == nil {
		return []Toast{}
	}
	return out
}

// Pending reports how many toasts are waiting to be drained.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Subscribe registers a live listener. The returned cancel func must be called
// when the listener goes away; it closes the channel.
func (q *Queue) Subscribe(buffer int) (<-chan Toast, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSubID
	q.nextSubID++
	ch := make(chan Toast, buffer)
	q.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			q.mu.Lock()
			delete(q.subs, id)
			q.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Discard is a Notifier that drops everything.
type Discard struct{}

func (Discard) Success(string) {}
func (Discard) Error(string)   {}
