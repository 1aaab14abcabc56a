package midi

import (
	"encoding/hex"
	"strings"
)

const (
	sysExStart uint8 = 0xF0
	sysExEnd   uint8 = 0xF7
)

// MMCCommand is a MIDI Machine Control transport command.
type MMCCommand int

const (
	MMCStop MMCCommand = iota + 1
	MMCPlay
	MMCFastForward
	MMCRewind
	MMCRecord
)

var mmcNames = map[MMCCommand]string{
	MMCStop:        "Stop",
	MMCPlay:        "Play",
	MMCFastForward: "FastForward",
	MMCRewind:      "Rewind",
	MMCRecord:      "Record",
}

func (c MMCCommand) String() string {
	return mmcNames[c]
}

// mmcSignatures are the broadcast (device 7f) MMC messages we react to.
var mmcSignatures = map[string]MMCCommand{
	"f07f7f0605f7": MMCRewind,
	"f07f7f0604f7": MMCFastForward,
	"f07f7f0601f7": MMCStop,
	"f07f7f0602f7": MMCPlay,
	"f07f7f0606f7": MMCRecord,
}

// frame adds the F0/F7 delimiters when a driver hands over the payload only.
func frame(data []byte) []byte {
	if len(data) > 0 && data[0] == sysExStart {
		return data
	}
	framed := make([]byte, 0, len(data)+2)
	framed = append(framed, sysExStart)
	framed = append(framed, data...)
	return append(framed, sysExEnd)
}

// HexString is the compact lower-case hex form of a sysex message.
func HexString(data []byte) string {
	return hex.EncodeToString(frame(data))
}

// PrettyHex is the spaced upper-case hex form used by the monitor.
func PrettyHex(data []byte) string {
	parts := make([]string, 0, len(data)+2)
	for _, b := range frame(data) {
		parts = append(parts, strings.ToUpper(hex.EncodeToString([]byte{b})))
	}
	return strings.Join(parts, " ")
}

// MatchMMC recognises the fixed MMC transport messages.
func MatchMMC(data []byte) (MMCCommand, bool) {
	command, ok := mmcSignatures[HexString(data)]
	return command, ok
}
