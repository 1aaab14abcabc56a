// Package learn records which CC a physical control sends, one slot at a time
// or for a whole group in sequence.
package learn

import (
	"errors"
	"fmt"
	"time"

	"github.com/0h41/learnkontrol/src/control"
)

type State int

const (
	Idle State = iota
	LearningSingle
	LearningSequence
)

func (s State) String() string {
	switch s {
	case LearningSingle:
		return "single"
	case LearningSequence:
		return "sequence"
	}
	return "idle"
}

var (
	ErrBusy        = errors.New("a learn session is already active")
	ErrUnavailable = errors.New("control group is disabled or has no slots")
	ErrSlot        = errors.New("slot out of range")
)

const (
	finishedNotice  = "Midi Learn finished."
	cancelledNotice = "Midi Learn cancelled."
	timedOutNotice  = "Midi Learn timed out."
)

// Session is the single learn state of the controller. At most one group
// and slot is armed at any time.
type Session struct {
	state   State
	group   control.Group
	slot    int
	total   int
	timeout time.Duration
	since   time.Time
	now     func() time.Time
}

// New creates an idle session. A zero timeout keeps an armed session until
// it completes or is cancelled.
func New(timeout time.Duration) *Session {
	return &Session{timeout: timeout, now: time.Now}
}

// Outcome describes what a CC did to the session.
type Outcome struct {
	// Consumed is set whenever a session was active; the event must not be
	// dispatched any further.
	Consumed  bool
	Committed bool
	Finished  bool
	Group     control.Group
	Slot      int
	CC        uint8
	Notices   []string
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Active() bool {
	return s.state != Idle
}

// Armed returns the group and slot waiting for a CC.
func (s *Session) Armed() (control.Group, int, bool) {
	return s.group, s.slot, s.Active()
}

// Total is the number of slots of a running sequence.
func (s *Session) Total() int {
	return s.total
}

func (s *Session) Timeout() time.Duration {
	return s.timeout
}

func (s *Session) SetTimeout(timeout time.Duration) {
	s.timeout = timeout
}

// SetClock replaces the time source, for tests.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

func prompt(group control.Group, slot int) string {
	return fmt.Sprintf("Please %s %s.", group.Verb(), group.SlotName(slot))
}

func (s *Session) check(table *control.Table, group control.Group) error {
	if s.Active() {
		return fmt.Errorf("%w: %s %s", ErrBusy, s.group, s.group.SlotName(s.slot))
	}
	if !table.Enabled(group) {
		return fmt.Errorf("%w: %s", ErrUnavailable, group)
	}
	return nil
}

func (s *Session) start(state State, group control.Group, slot int, total int) string {
	s.state = state
	s.group = group
	s.slot = slot
	s.total = total
	s.since = s.now()
	return prompt(group, slot)
}

// Arm waits for the next CC to bind a single slot.
func (s *Session) Arm(table *control.Table, group control.Group, slot int) (string, error) {
	if err := s.check(table, group); err != nil {
		return "", err
	}
	if slot < 0 || slot >= table.Size(group) {
		return "", fmt.Errorf("%w: %s has %d slots, got %d", ErrSlot, group, table.Size(group), slot)
	}
	return s.start(LearningSingle, group, slot, 1), nil
}

// ArmSequence learns every slot of the group in order, starting at slot 0.
func (s *Session) ArmSequence(table *control.Table, group control.Group) (string, error) {
	if err := s.check(table, group); err != nil {
		return "", err
	}
	return s.start(LearningSequence, group, 0, table.Size(group)), nil
}

func (s *Session) reset() {
	s.state = Idle
	s.slot = 0
	s.total = 0
}

// Cancel stops any running session. It reports whether one was active.
func (s *Session) Cancel() (string, bool) {
	if !s.Active() {
		return "", false
	}
	s.reset()
	return cancelledNotice, true
}

// Expire ends a session that has waited longer than the timeout.
func (s *Session) Expire() (string, bool) {
	if !s.Active() || s.timeout <= 0 || s.now().Sub(s.since) < s.timeout {
		return "", false
	}
	s.reset()
	return timedOutNotice, true
}

// OnCC feeds a learned controller number into the session. cc must not be
// control.Unbound; callers filter it out before any learn handling.
func (s *Session) OnCC(table *control.Table, cc uint8) Outcome {
	if !s.Active() {
		return Outcome{}
	}
	outcome := Outcome{Consumed: true, Group: s.group, Slot: s.slot, CC: cc}

	if s.state == LearningSingle {
		table.Set(s.group, s.slot, cc)
		s.reset()
		outcome.Committed = true
		outcome.Finished = true
		outcome.Notices = []string{finishedNotice}
		return outcome
	}

	// A control that keeps sending after its slot was learned must not be
	// bound to the next slot as well.
	if s.slot > 0 && table.Get(s.group, s.slot-1) == cc {
		return outcome
	}

	table.Set(s.group, s.slot, cc)
	outcome.Committed = true
	if s.slot >= s.total-1 {
		s.reset()
		outcome.Finished = true
		outcome.Notices = []string{finishedNotice}
		return outcome
	}
	s.slot++
	s.since = s.now()
	outcome.Notices = []string{prompt(s.group, s.slot)}
	return outcome
}
