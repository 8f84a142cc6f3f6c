package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_DrainOrder(t *testing.T) {
	q := NewQueue(10)
	q.Success("File uploaded successfully!")
	q.Error("Error fetching answer.")

	toasts := q.Drain()
	require.Len(t, toasts, 2)
	assert.Equal(t, LevelSuccess, toasts[0].Level)
	assert.Equal(t, "File uploaded successfully!", toasts[0].Message)
	assert.Equal(t, LevelError, toasts[1].Level)

	assert.Empty(t, q.Drain())
	assert.NotNil(t, q.Drain())
}

func TestQueue_DropsOldestBeyondLimit(t *testing.T) {
	q := NewQueue(2)
	q.Error("one")
	q.Error("two")
	q.Error("three")

	assert.Equal(t, 2, q.Pending())
	toasts := q.Drain()
	assert.Equal(t, "two", toasts[0].Message)
	assert.Equal(t, "three", toasts[1].Message)
}

func TestQueue_Subscribe(t *testing.T) {
	q := NewQueue(0)
	ch, cancel := q.Subscribe(4)

	q.Success("hello")
	toast := <-ch
	assert.Equal(t, "hello", toast.Message)

	cancel()
	cancel() // second call is a no-op
	_, open := <-ch
	assert.False(t, open)

	// Publishing after cancel must not panic.
	q.Error("after")
	assert.Equal(t, 2, q.Pending())
}

func TestQueue_SlowSubscriberDoesNotBlock(t *testing.T) {
	q := NewQueue(0)
	_, cancel := q.Subscribe(0)
	defer cancel()

	q.Error("not received")
	assert.Equal(t, 1, q.Pending())
}
