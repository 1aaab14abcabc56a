package control

import (
	"errors"
	"fmt"
	"strings"
)

// Group is a kind of physical control on the controller.
type Group int

const (
	Transport Group = iota
	Knob
	Fader
	TrackButton
	KnobModeButton
	FaderBankButton
)

// Groups lists every group in dispatch precedence order.
var Groups = []Group{Transport, KnobModeButton, FaderBankButton, Knob, Fader, TrackButton}

var ErrUnknownGroup = errors.New("unknown control group")

// Transport slots, fixed semantic per index.
const (
	Rewind = iota
	FastForward
	Stop
	Play
	Record
	Loop
)

var transportNames = [...]string{"Rewind", "FastForward", "Stop", "Play/Pause", "Record", "Loop"}

var groupNames = map[Group]string{
	Transport:       "transport",
	Knob:            "knobs",
	Fader:           "faders",
	TrackButton:     "trackButtons",
	KnobModeButton:  "knobModeButtons",
	FaderBankButton: "faderBankButtons",
}

func (g Group) String() string {
	if name, ok := groupNames[g]; ok {
		return name
	}
	return fmt.Sprintf("Group(%d)", int(g))
}

// MaxSize is the largest slot count the group can be built with.
func (g Group) MaxSize() int {
	switch g {
	case Transport:
		return len(transportNames)
	case Knob, Fader, TrackButton:
		return 8
	case KnobModeButton, FaderBankButton:
		return 2
	}
	return 0
}

// IsButton reports whether the group's controls are pressed rather than moved.
func (g Group) IsButton() bool {
	return g != Knob && g != Fader
}

// Verb is the word used when asking the user to operate a control of the group.
func (g Group) Verb() string {
	if g.IsButton() {
		return "press"
	}
	return "move"
}

// SlotName is the human readable label of a slot, e.g. "Knob 3" or "Stop".
func (g Group) SlotName(slot int) string {
	switch g {
	case Transport:
		if slot >= 0 && slot < len(transportNames) {
			return transportNames[slot]
		}
	case Knob:
		return fmt.Sprintf("Knob %d", slot+1)
	case Fader:
		return fmt.Sprintf("Fader %d", slot+1)
	case TrackButton:
		return fmt.Sprintf("Track Select %d", slot+1)
	case KnobModeButton, FaderBankButton:
		return fmt.Sprintf("Button %d", slot+1)
	}
	return fmt.Sprintf("%s %d", g, slot+1)
}

// ParseGroup accepts the configuration name of a group, case-insensitively.
func ParseGroup(name string) (Group, error) {
	for group, groupName := range groupNames {
		if strings.EqualFold(groupName, name) {
			return group, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
}
