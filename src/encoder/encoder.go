// Package encoder interprets knob CC values as absolute levels or as signed
// increments sent by relative encoders.
package encoder

import "github.com/0h41/learnkontrol/src/host"

type Mode int

const (
	Absolute Mode = iota
	Relative
)

func (m Mode) String() string {
	if m == Relative {
		return "relative"
	}
	return "absolute"
}

// Value is a decoded knob movement. Level is set for Absolute, Delta for Relative.
type Value struct {
	Mode  Mode
	Level int
	Delta int
}

// Increment decodes a 7-bit two's complement delta: 1..63 turn up, 127..64 turn down.
func Increment(raw uint8) int {
	raw &= 0x7F
	if raw < 64 {
		return int(raw)
	}
	return -(128 - int(raw))
}

func Decode(relative bool, raw uint8) Value {
	if relative {
		return Value{Mode: Relative, Delta: Increment(raw)}
	}
	return Value{Mode: Absolute, Level: int(raw & 0x7F)}
}

// Apply sets or increments the parameter on the 0..127 scale.
func (v Value) Apply(parameter host.Parameter) {
	switch v.Mode {
	case Relative:
		parameter.Inc(v.Delta, host.Resolution)
	default:
		parameter.Set(v.Level, host.Resolution)
	}
}
