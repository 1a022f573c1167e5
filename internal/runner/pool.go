// Bounded background execution with one completion message per task
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultSlots is the number of tasks allowed to run at once.
const DefaultSlots = 2

var ErrPoolClosed = errors.New("task pool is closed")

// Task is one unit of background work.
type Task[T any] func(ctx context.Context) (T, error)

// Completion is delivered exactly once per submitted task.
type Completion[T any] struct {
	ID      string
	Value   T
	Err     error
	Elapsed time.Duration
}

// Ticket identifies a submitted task. Done yields one Completion and is
// then closed.
type Ticket[T any] struct {
	ID   string
	Done <-chan Completion[T]
}

// Pool runs at most Slots tasks at a time. Tasks beyond the limit wait for a
// free slot. Running tasks cannot be cancelled.
type Pool[T any] struct {
	logger *logrus.Logger
	slots  chan struct{}

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	pending int
}

func NewPool[T any](slots int, logger *logrus.Logger) *Pool[T] {
	if slots <= 0 {
		slots = DefaultSlots
	}
	return &Pool[T]{
		logger: logger,
		slots:  make(chan struct{}, slots),
	}
}

// Submit schedules task and returns immediately.
func (p *Pool[T]) Submit(task Task[T]) (Ticket[T], error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return Ticket[T]{}, ErrPoolClosed
	}
	p.wg.Add(1)
	p.pending++
	p.mu.Unlock()

	id := uuid.NewString()
	done := make(chan Completion[T], 1)

	p.logger.WithFields(logrus.Fields{
		"job_id":   id,
		"capacity": cap(p.slots),
	}).Debug("RUNNER: Task submitted")

	go p.run(id, task, done)

	return Ticket[T]{ID: id, Done: done}, nil
}

func (p *Pool[T]) run(id string, task Task[T], done chan<- Completion[T]) {
	defer p.wg.Done()

	p.slots <- struct{}{}
	start := time.Now()

	completion := Completion[T]{ID: id}
	func() {
		defer func() {
			if r := recover(); r != nil {
				completion.Err = fmt.Errorf("task %s panicked: %v", id, r)
				p.logger.WithFields(logrus.Fields{
					"job_id": id,
					"panic":  r,
				}).Error("RUNNER: Task panicked")
			}
		}()
		completion.Value, completion.Err = task(context.Background())
	}()
	completion.Elapsed = time.Since(start)

	<-p.slots

	p.mu.Lock()
	p.pending--
	p.mu.Unlock()

	p.logger.WithFields(logrus.Fields{
		"job_id":     id,
		"elapsed_ms": completion.Elapsed.Milliseconds(),
		"failed":     completion.Err != nil,
	}).Debug("RUNNER: Task finished")

	done <- completion
	close(done)
}

// Pending returns the number of tasks queued or running.
func (p *Pool[T]) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Slots returns the concurrency ceiling.
func (p *Pool[T]) Slots() int {
	return cap(p.slots)
}

// Close stops accepting tasks and waits for the submitted ones to finish.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
}
