package control

import (
	"fmt"

	"github.com/samber/lo"
)

// Unbound is the reserved CC code of a slot that has not been learned.
// Controllers commonly report data1 = 0 at rest, so CC 0 can never be bound.
const Unbound uint8 = 0

// MaxCC is the highest 7-bit controller number.
const MaxCC uint8 = 127

// Sizes holds the slot count of each group.
type Sizes map[Group]int

// DefaultSizes returns every group at its maximum size.
func DefaultSizes() Sizes {
	sizes := Sizes{}
	for _, group := range Groups {
		sizes[group] = group.MaxSize()
	}
	return sizes
}

// Table maps every (group, slot) to a CC code. Slot counts are fixed when the
// table is built. Version changes on every mutation so readers can cache
// derived lookups.
type Table struct {
	slots   map[Group][]uint8
	enabled map[Group]bool
	version uint64
}

func NewTable(sizes Sizes) *Table {
	table := &Table{
		slots:   make(map[Group][]uint8, len(Groups)),
		enabled: make(map[Group]bool, len(Groups)),
	}
	for _, group := range Groups {
		size := sizes[group]
		if size < 0 || size > group.MaxSize() {
			panic(fmt.Sprintf("control: %s cannot have %d slots (max %d)", group, size, group.MaxSize()))
		}
		table.slots[group] = make([]uint8, size)
	}
	return table
}

func (t *Table) check(group Group, slot int) []uint8 {
	slots, ok := t.slots[group]
	if !ok {
		panic(fmt.Sprintf("control: unknown group %s", group))
	}
	if slot < 0 || slot >= len(slots) {
		panic(fmt.Sprintf("control: slot %d out of range for %s (size %d)", slot, group, len(slots)))
	}
	return slots
}

// Size is the fixed slot count of the group.
func (t *Table) Size(group Group) int {
	return len(t.slots[group])
}

func (t *Table) Get(group Group, slot int) uint8 {
	return t.check(group, slot)[slot]
}

// Set overwrites the binding. Duplicate codes across slots are allowed; the
// resolver decides which one wins.
func (t *Table) Set(group Group, slot int, cc uint8) {
	slots := t.check(group, slot)
	if cc > MaxCC {
		panic(fmt.Sprintf("control: cc %d is not a 7-bit controller number", cc))
	}
	slots[slot] = cc
	t.version++
}

func (t *Table) IsBound(group Group, slot int) bool {
	return t.Get(group, slot) != Unbound
}

// Bindings returns a copy of the group's CC codes indexed by slot.
func (t *Table) Bindings(group Group) []uint8 {
	return append([]uint8(nil), t.slots[group]...)
}

// SlotOf returns the lowest slot of the group bound to cc.
func (t *Table) SlotOf(group Group, cc uint8) (int, bool) {
	if cc == Unbound {
		return -1, false
	}
	slot := lo.IndexOf(t.slots[group], cc)
	return slot, slot >= 0
}

// Enabled reports whether the group is switched on and has at least one slot.
func (t *Table) Enabled(group Group) bool {
	return t.enabled[group] && len(t.slots[group]) > 0
}

func (t *Table) SetEnabled(group Group, enabled bool) {
	if t.enabled[group] == enabled {
		return
	}
	t.enabled[group] = enabled
	t.version++
}

func (t *Table) Version() uint64 {
	return t.version
}
