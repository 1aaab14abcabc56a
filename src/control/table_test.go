package control

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTableSizes(t *testing.T) {
	sizes := DefaultSizes()
	sizes[KnobModeButton] = 1
	sizes[FaderBankButton] = 0
	table := NewTable(sizes)

	assert.Equal(t, 6, table.Size(Transport))
	assert.Equal(t, 8, table.Size(Knob))
	assert.Equal(t, 8, table.Size(Fader))
	assert.Equal(t, 8, table.Size(TrackButton))
	assert.Equal(t, 1, table.Size(KnobModeButton))
	assert.Equal(t, 0, table.Size(FaderBankButton))

	assert.Panics(t, func() { NewTable(Sizes{Knob: 9}) })
	assert.Panics(t, func() { NewTable(Sizes{Fader: -1}) })
}

func TestTableSetGet(t *testing.T) {
	table := NewTable(DefaultSizes())
	assert.False(t, table.IsBound(Knob, 2))
	assert.Equal(t, Unbound, table.Get(Knob, 2))

	before := table.Version()
	table.Set(Knob, 2, 21)
	assert.True(t, table.IsBound(Knob, 2))
	assert.Equal(t, uint8(21), table.Get(Knob, 2))
	assert.Greater(t, table.Version(), before)

	// duplicates are legal, within and across groups
	table.Set(Knob, 3, 21)
	table.Set(Fader, 0, 21)
	assert.Equal(t, uint8(21), table.Get(Knob, 3))
	assert.Equal(t, uint8(21), table.Get(Fader, 0))

	slot, ok := table.SlotOf(Knob, 21)
	assert.True(t, ok)
	assert.Equal(t, 2, slot)

	_, ok = table.SlotOf(Knob, Unbound)
	assert.False(t, ok)

	bindings := table.Bindings(Knob)
	bindings[2] = 99
	assert.Equal(t, uint8(21), table.Get(Knob, 2), "Bindings must return a copy")
}

func TestTableContractViolations(t *testing.T) {
	table := NewTable(DefaultSizes())
	assert.Panics(t, func() { table.Get(Transport, 6) })
	assert.Panics(t, func() { table.Set(Fader, -1, 10) })
	assert.Panics(t, func() { table.Set(Fader, 0, 128) })
	assert.Panics(t, func() { table.Get(Group(42), 0) })
}

func TestTableEnabled(t *testing.T) {
	sizes := DefaultSizes()
	sizes[FaderBankButton] = 0
	table := NewTable(sizes)

	assert.False(t, table.Enabled(Fader))
	table.SetEnabled(Fader, true)
	assert.True(t, table.Enabled(Fader))

	table.SetEnabled(FaderBankButton, true)
	assert.False(t, table.Enabled(FaderBankButton), "a group without slots is never enabled")
}

func TestGroupNames(t *testing.T) {
	for _, group := range Groups {
		parsed, err := ParseGroup(group.String())
		require.NoError(t, err)
		assert.Equal(t, group, parsed)
	}

	group, err := ParseGroup("KNOBS")
	require.NoError(t, err)
	assert.Equal(t, Knob, group)

	_, err = ParseGroup("pads")
	assert.True(t, errors.Is(err, ErrUnknownGroup))

	assert.Equal(t, "Stop", Transport.SlotName(Stop))
	assert.Equal(t, "Knob 2", Knob.SlotName(1))
	assert.Equal(t, "Track Select 8", TrackButton.SlotName(7))
	assert.Equal(t, "Button 1", KnobModeButton.SlotName(0))
	assert.Equal(t, "move", Fader.Verb())
	assert.Equal(t, "press", FaderBankButton.Verb())
}
