package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// Kind classifies a message by its status byte.
type Kind int

const (
	Other Kind = iota
	CC
	NoteOn
	NoteOff
	KeyPressure
	ProgramChange
	ChannelPressure
	PitchBend
	SystemRealtime
)

var kindNames = [...]string{
	Other:           "Other",
	CC:              "CC",
	NoteOn:          "NoteOn",
	NoteOff:         "NoteOff",
	KeyPressure:     "KeyPressure",
	ProgramChange:   "ProgramChange",
	ChannelPressure: "ChannelPressure",
	PitchBend:       "PitchBend",
	SystemRealtime:  "SystemRealtime",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[Other]
}

// Event is a decoded short message.
type Event struct {
	Status  uint8
	Channel uint8
	Kind    Kind
	Data1   uint8
	Data2   uint8
	bend    int16
	msg     gomidi.Message
}

// Decode classifies a short message. Truncated messages and anything
// unrecognised become Other.
func Decode(msg []byte) Event {
	message := gomidi.Message(msg)
	event := Event{msg: message}
	if len(msg) > 0 {
		event.Status = msg[0]
	}

	var bend int16
	switch {
	case message.GetControlChange(&event.Channel, &event.Data1, &event.Data2):
		event.Kind = CC
	case message.GetNoteOn(&event.Channel, &event.Data1, &event.Data2):
		event.Kind = NoteOn
	case message.GetNoteOff(&event.Channel, &event.Data1, &event.Data2):
		event.Kind = NoteOff
	case message.GetPolyAfterTouch(&event.Channel, &event.Data1, &event.Data2):
		event.Kind = KeyPressure
	case message.GetProgramChange(&event.Channel, &event.Data1):
		event.Kind = ProgramChange
	case message.GetAfterTouch(&event.Channel, &event.Data1):
		event.Kind = ChannelPressure
	case message.GetPitchBend(&event.Channel, &bend, nil):
		event.Kind = PitchBend
		event.bend = bend
	case len(msg) == 1 && message.Is(gomidi.RealTimeMsg):
		event.Kind = SystemRealtime
	default:
		event = Event{Status: event.Status, msg: message}
	}
	return event
}

// IsOn is the button convention for CCs: a value of 64 or more means pressed.
func (e Event) IsOn() bool {
	return e.Data2 >= 64
}

// PitchBend is the signed bend value in [-8192, 8191].
func (e Event) PitchBend() int {
	return int(e.bend)
}

func (e Event) IsStart() bool {
	return e.Kind == SystemRealtime && e.msg.Is(gomidi.StartMsg)
}

func (e Event) IsStop() bool {
	return e.Kind == SystemRealtime && e.msg.Is(gomidi.StopMsg)
}

func (e Event) IsContinue() bool {
	return e.Kind == SystemRealtime && e.msg.Is(gomidi.ContinueMsg)
}

// Describe renders the event for the MIDI monitor.
func (e Event) Describe() string {
	switch e.Kind {
	case CC:
		return fmt.Sprintf("CC %d  -  Value:  %d", e.Data1, e.Data2)
	case NoteOn, NoteOff:
		return fmt.Sprintf("%s: %d  -  Velocity:  %d", e.Kind, e.Data1, e.Data2)
	case KeyPressure:
		return fmt.Sprintf("%s: %d  -  Pressure:  %d", e.Kind, e.Data1, e.Data2)
	case ProgramChange, ChannelPressure:
		return fmt.Sprintf("%s:  %d", e.Kind, e.Data1)
	case PitchBend:
		return fmt.Sprintf("%s:  %d", e.Kind, e.PitchBend())
	case SystemRealtime:
		return fmt.Sprintf("%s:  %02X", e.Kind, e.Status)
	}
	return e.Kind.String()
}

// Pretty renders the raw bytes in decimal and hex, e.g. "176, 20, 100   [B01464]".
// Missing data bytes print as zero.
func (e Event) Pretty() string {
	var raw [3]uint8
	copy(raw[:], e.msg)
	return fmt.Sprintf("%d, %d, %d   [%02X%02X%02X]", raw[0], raw[1], raw[2], raw[0], raw[1], raw[2])
}
