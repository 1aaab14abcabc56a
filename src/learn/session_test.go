package learn

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0h41/learnkontrol/src/control"
)

func newTable(t *testing.T, buttons int) *control.Table {
	t.Helper()
	sizes := control.DefaultSizes()
	sizes[control.KnobModeButton] = buttons
	table := control.NewTable(sizes)
	for _, group := range control.Groups {
		table.SetEnabled(group, true)
	}
	return table
}

func TestLearnSingle(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)

	notice, err := session.Arm(table, control.Fader, 3)
	require.NoError(t, err)
	assert.Equal(t, "Please move Fader 4.", notice)
	assert.Equal(t, LearningSingle, session.State())

	group, slot, armed := session.Armed()
	assert.True(t, armed)
	assert.Equal(t, control.Fader, group)
	assert.Equal(t, 3, slot)

	table.Set(control.Transport, control.Stop, 40)
	outcome := session.OnCC(table, 40)
	assert.True(t, outcome.Consumed)
	assert.True(t, outcome.Committed)
	assert.True(t, outcome.Finished)
	assert.Equal(t, []string{"Midi Learn finished."}, outcome.Notices)
	assert.Equal(t, uint8(40), table.Get(control.Fader, 3), "collisions are allowed")
	assert.Equal(t, Idle, session.State())

	assert.Equal(t, Outcome{}, session.OnCC(table, 41), "idle sessions consume nothing")
}

func TestLearnSequenceOfKnobs(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)

	notices := []string{}
	notice, err := session.ArmSequence(table, control.Knob)
	require.NoError(t, err)
	notices = append(notices, notice)

	ccs := []uint8{21, 22, 23, 24, 25, 26, 27, 28}
	finished := 0
	for i, cc := range ccs {
		require.Equal(t, LearningSequence, session.State())
		_, slot, _ := session.Armed()
		require.Equal(t, i, slot)

		outcome := session.OnCC(table, cc)
		require.True(t, outcome.Committed)
		notices = append(notices, outcome.Notices...)
		if outcome.Finished {
			finished++
		}
	}

	assert.Equal(t, 1, finished)
	assert.Equal(t, Idle, session.State())
	assert.Equal(t, ccs, table.Bindings(control.Knob))
	assert.Equal(t, []string{
		"Please move Knob 1.",
		"Please move Knob 2.",
		"Please move Knob 3.",
		"Please move Knob 4.",
		"Please move Knob 5.",
		"Please move Knob 6.",
		"Please move Knob 7.",
		"Please move Knob 8.",
		"Midi Learn finished.",
	}, notices)
}

func TestLearnSequenceDebounce(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)
	_, err := session.ArmSequence(table, control.TrackButton)
	require.NoError(t, err)

	session.OnCC(table, 50)
	session.OnCC(table, 51)

	before := table.Get(control.TrackButton, 2)
	outcome := session.OnCC(table, 51)
	assert.True(t, outcome.Consumed)
	assert.False(t, outcome.Committed)
	assert.Empty(t, outcome.Notices)
	assert.Equal(t, before, table.Get(control.TrackButton, 2))
	_, slot, _ := session.Armed()
	assert.Equal(t, 2, slot)

	outcome = session.OnCC(table, 52)
	assert.True(t, outcome.Committed)
	assert.Equal(t, []string{"Please press Track Select 4."}, outcome.Notices)
}

func TestLearnTwoButtons(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)
	notice, err := session.ArmSequence(table, control.FaderBankButton)
	require.NoError(t, err)
	assert.Equal(t, "Please press Button 1.", notice)

	outcome := session.OnCC(table, 60)
	assert.Equal(t, []string{"Please press Button 2."}, outcome.Notices)

	outcome = session.OnCC(table, 60)
	assert.False(t, outcome.Committed, "the same button twice is ignored")

	outcome = session.OnCC(table, 61)
	assert.True(t, outcome.Finished)
	assert.Equal(t, []uint8{60, 61}, table.Bindings(control.FaderBankButton))
}

func TestLearnOneModeButton(t *testing.T) {
	table := newTable(t, 1)
	session := New(0)
	_, err := session.ArmSequence(table, control.KnobModeButton)
	require.NoError(t, err)

	outcome := session.OnCC(table, 70)
	assert.True(t, outcome.Finished)
	assert.Equal(t, []string{"Midi Learn finished."}, outcome.Notices)
	assert.False(t, session.Active())
}

func TestOnlyOneSession(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)
	_, err := session.Arm(table, control.Knob, 0)
	require.NoError(t, err)

	_, err = session.ArmSequence(table, control.Fader)
	assert.True(t, errors.Is(err, ErrBusy))
	_, err = session.Arm(table, control.Knob, 1)
	assert.True(t, errors.Is(err, ErrBusy))

	group, slot, _ := session.Armed()
	assert.Equal(t, control.Knob, group)
	assert.Equal(t, 0, slot)
}

func TestArmRejected(t *testing.T) {
	table := newTable(t, 0)
	session := New(0)

	_, err := session.ArmSequence(table, control.KnobModeButton)
	assert.True(t, errors.Is(err, ErrUnavailable))

	table.SetEnabled(control.Fader, false)
	_, err = session.Arm(table, control.Fader, 0)
	assert.True(t, errors.Is(err, ErrUnavailable))

	_, err = session.Arm(table, control.Transport, 6)
	assert.True(t, errors.Is(err, ErrSlot))
	assert.False(t, session.Active())
}

func TestCancel(t *testing.T) {
	table := newTable(t, 2)
	session := New(0)

	_, ok := session.Cancel()
	assert.False(t, ok)

	_, err := session.ArmSequence(table, control.Knob)
	require.NoError(t, err)
	session.OnCC(table, 30)

	notice, ok := session.Cancel()
	assert.True(t, ok)
	assert.Equal(t, "Midi Learn cancelled.", notice)
	assert.False(t, session.Active())
	assert.Equal(t, uint8(30), table.Get(control.Knob, 0), "committed slots survive a cancel")

	_, err = session.ArmSequence(table, control.Knob)
	require.NoError(t, err, "re-entry after cancel starts over")
	_, slot, _ := session.Armed()
	assert.Equal(t, 0, slot)
}

func TestTimeout(t *testing.T) {
	table := newTable(t, 2)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	session := New(5 * time.Second)
	session.SetClock(func() time.Time { return now })

	_, err := session.ArmSequence(table, control.Fader)
	require.NoError(t, err)

	now = now.Add(4 * time.Second)
	_, expired := session.Expire()
	assert.False(t, expired)

	session.OnCC(table, 10)
	now = now.Add(4 * time.Second)
	_, expired = session.Expire()
	assert.False(t, expired, "every accepted step restarts the wait")

	now = now.Add(2 * time.Second)
	notice, expired := session.Expire()
	assert.True(t, expired)
	assert.Equal(t, "Midi Learn timed out.", notice)
	assert.False(t, session.Active())
}

func TestNoTimeout(t *testing.T) {
	table := newTable(t, 2)
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	session := New(0)
	session.SetClock(func() time.Time { return now })
	_, err := session.Arm(table, control.Knob, 0)
	require.NoError(t, err)

	now = now.Add(24 * time.Hour)
	_, expired := session.Expire()
	assert.False(t, expired)
	assert.True(t, session.Active())
}
