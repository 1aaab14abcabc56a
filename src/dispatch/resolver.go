package dispatch

import (
	"github.com/0h41/learnkontrol/src/control"
)

// Binding identifies the slot a CC resolved to.
type Binding struct {
	Group control.Group
	Slot  int
}

type tier struct {
	group control.Group
	slots map[uint8]int
}

// Resolver finds the slot bound to a CC. Groups are searched in
// control.Groups order and the first tier holding the CC wins; inside a tier
// the lowest slot wins. Lookups are rebuilt lazily when the table changes.
type Resolver struct {
	table   *control.Table
	version uint64
	built   bool
	tiers   []tier
}

func NewResolver(table *control.Table) *Resolver {
	return &Resolver{table: table}
}

func (r *Resolver) rebuild() {
	r.tiers = r.tiers[:0]
	for _, group := range control.Groups {
		if !r.table.Enabled(group) {
			continue
		}
		slots := make(map[uint8]int)
		for slot, cc := range r.table.Bindings(group) {
			if cc == control.Unbound {
				continue
			}
			if _, taken := slots[cc]; !taken {
				slots[cc] = slot
			}
		}
		r.tiers = append(r.tiers, tier{group: group, slots: slots})
	}
	r.version = r.table.Version()
	r.built = true
}

// Resolve returns the binding for cc. CC 0 never resolves.
func (r *Resolver) Resolve(cc uint8) (Binding, bool) {
	if cc == control.Unbound {
		return Binding{}, false
	}
	if !r.built || r.version != r.table.Version() {
		r.rebuild()
	}
	for _, t := range r.tiers {
		if slot, ok := t.slots[cc]; ok {
			return Binding{Group: t.group, Slot: slot}, true
		}
	}
	return Binding{}, false
}
