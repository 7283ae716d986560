// Package notify carries user-facing success and failure notices.
package notify

import (
	"sync"
	"time"
)

// Level classifies a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelError   Level = "error"
)

// Notice is a single message surfaced to the user.
type Notice struct {
	Level   Level     `json:"level"`
	Op      string    `json:"op"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Sink receives notices from the navigator and the drag-move controller.
type Sink interface {
	Success(op, message string)
	Info(op, message string)
	Failure(op string, err error)
}

// Describer turns an error into a message fit for the user.
type Describer func(err error) string

// Queue is a bounded in-memory Sink. The oldest notices are dropped first.
type Queue struct {
	mu       sync.Mutex
	notices  []Notice
	max      int
	describe Describer
	now      func() time.Time
}

// NewQueue creates a queue holding at most max notices.
func NewQueue(max int, describe Describer) *Queue {
	if max <= 0 {
		max = 50
	}
	if describe == nil {
		describe = func(err error) string { return err.Error() }
	}
	return &Queue{max: max, describe: describe, now: time.Now}
}

// Success records a success notice.
func (q *Queue) Success(op, message string) {
	q.push(Notice{Level: LevelSuccess, Op: op, Message: message})
}

// Info records an informational notice.
func (q *Queue) Info(op, message string) {
	q.push(Notice{Level: LevelInfo, Op: op, Message: message})
}

// Failure records an error notice.
func (q *Queue) Failure(op string, err error) {
	if err == nil {
		return
	}
	q.push(Notice{Level: LevelError, Op: op, Message: q.describe(err)})
}

func (q *Queue) push(n Notice) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n.At = q.now()
	q.notices = append(q.notices, n)
	if over := len(q.notices) - q.max; over > 0 {
		q.notices = append([]Notice(nil), q.notices[over:]...)
	}
}

// Recent returns up to n of the newest notices, oldest first.
func (q *Queue) Recent(n int) []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || n > len(q.notices) {
		n = len(q.notices)
	}
	out := make([]Notice, n)
	copy(out, q.notices[len(q.notices)-n:])
	return out
}

// Last returns the newest notice, if any.
func (q *Queue) Last() (Notice, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.notices) == 0 {
		return Notice{}, false
	}
	return q.notices[len(q.notices)-1], true
}

// Drain returns every queued notice and empties the queue.
func (q *Queue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.notices
	q.notices = nil
	return out
}

// Discard is a Sink that drops everything.
type Discard struct{}

func (Discard) Success(string, string) {}
func (Discard) Info(string, string)    {}
func (Discard) Failure(string, error)  {}
