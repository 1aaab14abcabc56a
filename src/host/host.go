// Package host describes the application side the controller acts upon.
package host

// Resolution is the scale of 7-bit MIDI values handed to Set and Inc.
const Resolution = 128

type Transport interface {
	Rewind()
	FastForward()
	Stop()
	Play()
	Record()
	ToggleLoop()
	Restart()
}

// Parameter is a handle on one host parameter. Set and Inc interpret value
// and delta on a scale of resolution steps.
type Parameter interface {
	Name() string
	Set(value int, resolution int)
	Inc(delta int, resolution int)
	SetIndication(on bool)
}

// Device is the currently focused device with its parameter groups.
type Device interface {
	Macro(index int) Parameter
	CommonParameter(index int) Parameter
	EnvelopeParameter(index int) Parameter
	Parameter(index int) Parameter
	SetParameterPage(page int)
	PageNames() []string
}

type Channel interface {
	Select()
	Volume() Parameter
}

// Mixer exposes a bank of channels that can be scrolled.
type Mixer interface {
	Channel(index int) Channel
	ScrollChannelsUp()
	ScrollChannelsDown()
}

// Notifier shows short transient messages to the user.
type Notifier interface {
	Notify(message string)
}

type Host struct {
	Transport Transport
	Device    Device
	Mixer     Mixer
	Notifier  Notifier
}

// Normalize converts value on a resolution scale to [0, 1].
func Normalize(value int, resolution int) float64 {
	if resolution <= 1 {
		return 0
	}
	return clamp(float64(value) / float64(resolution-1))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
