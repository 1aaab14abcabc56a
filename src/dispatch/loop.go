package dispatch

import (
	"context"
	"errors"
	"time"
)

var ErrStopped = errors.New("dispatch loop stopped")

// expiryInterval is how often an armed learn session is checked for timeout.
const expiryInterval = 250 * time.Millisecond

// Loop runs every operation on the controller from one goroutine, strictly
// in submission order.
type Loop struct {
	controller *Controller
	ops        chan func(*Controller)
	done       chan struct{}
}

func NewLoop(controller *Controller, buffer int) *Loop {
	return &Loop{
		controller: controller,
		ops:        make(chan func(*Controller), buffer),
		done:       make(chan struct{}),
	}
}

// Do queues op. It blocks while the queue is full and drops op once the
// loop has stopped.
func (l *Loop) Do(op func(*Controller)) {
	select {
	case l.ops <- op:
	case <-l.done:
	}
}

// Message queues a short MIDI message. The bytes are copied.
func (l *Loop) Message(msg []byte) {
	msg = append([]byte(nil), msg...)
	l.Do(func(c *Controller) { c.HandleMessage(msg) })
}

// SysEx queues a system exclusive message. The bytes are copied.
func (l *Loop) SysEx(data []byte) {
	data = append([]byte(nil), data...)
	l.Do(func(c *Controller) { c.HandleSysEx(data) })
}

// Call runs fn on the loop and waits for its error.
func (l *Loop) Call(ctx context.Context, fn func(*Controller) error) error {
	result := make(chan error, 1)
	select {
	case l.ops <- func(c *Controller) { result <- fn(c) }:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-result:
		return err
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns a snapshot taken on the loop.
func (l *Loop) State(ctx context.Context) (State, error) {
	snapshot := make(chan State, 1)
	if err := l.Call(ctx, func(c *Controller) error {
		snapshot <- c.State()
		return nil
	}); err != nil {
		return State{}, err
	}
	return <-snapshot, nil
}

// Run processes operations until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	ticker := time.NewTicker(expiryInterval)
	defer ticker.Stop()

	l.controller.Init()
	for {
		select {
		case op := <-l.ops:
			op(l.controller)
		case <-ticker.C:
			l.controller.Expire()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
