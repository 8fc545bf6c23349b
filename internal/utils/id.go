package utils

import (
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// NewID returns a random unique identifier for connections.
func NewID() string {
	return uuid.NewString()
}

// Clock hands out strictly increasing millisecond timestamps.
// Room and message ids are derived from it so they stay unique within the process
// even when several are created in the same millisecond.
type Clock struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewClock creates a clock backed by time.Now.
func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Next returns max(now, previous+1) in unix milliseconds.
func (c *Clock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	ms := c.now().UnixMilli()
	if ms <= c.last {
		ms = c.last + 1
	}
	c.last = ms
	return ms
}

// RoomID returns a new room id of the form room_<millis>.
func (c *Clock) RoomID() string {
	return "room_" + strconv.FormatInt(c.Next(), 10)
}

// MessageID returns a new timestamp-derived message id.
func (c *Clock) MessageID() string {
	return strconv.FormatInt(c.Next(), 10)
}
