package midi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	gomidi "gitlab.com/gomidi/midi/v2"
)

type sinkRecorder struct {
	messages [][]byte
	sysex    [][]byte
}

func (s *sinkRecorder) Message(msg []byte) { s.messages = append(s.messages, msg) }
func (s *sinkRecorder) SysEx(data []byte)  { s.sysex = append(s.sysex, data) }

func TestClientRoutesMessages(t *testing.T) {
	sink := &sinkRecorder{}
	client := NewMidiClient("nanoKONTROL2", "", sink)
	assert.Equal(t, "nanoKONTROL2", client.inPort)

	client.onMessage(gomidi.ControlChange(0, 20, 100), 0)
	client.onMessage(gomidi.SysEx([]byte{0x7F, 0x7F, 0x06, 0x02}), 1)
	client.onMessage(gomidi.NoteOn(1, 60, 90), 2)

	assert.Equal(t, [][]byte{{0xB0, 20, 100}, {0x91, 60, 90}}, sink.messages)
	if assert.Len(t, sink.sysex, 1) {
		command, ok := MatchMMC(sink.sysex[0])
		assert.True(t, ok)
		assert.Equal(t, MMCPlay, command)
	}
}

func TestClientPrefersInPort(t *testing.T) {
	client := NewMidiClient("device", "device MIDI 1", &sinkRecorder{})
	assert.Equal(t, "device MIDI 1", client.inPort)
}
