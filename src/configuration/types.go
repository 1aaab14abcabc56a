package configuration

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/0h41/learnkontrol/src/control"
)

// PulseAudioTargetType selects which PulseAudio objects the faders drive.
type PulseAudioTargetType string

const (
	PlaybackStream PulseAudioTargetType = "PlaybackStream"
	RecordStream   PulseAudioTargetType = "RecordStream"
	OutputDevice   PulseAudioTargetType = "OutputDevice"
	InputDevice    PulseAudioTargetType = "InputDevice"
)

// MixerBackend selects the implementation behind faders and track buttons.
type MixerBackend string

const (
	VirtualMixer    MixerBackend = "virtual"
	PulseAudioMixer MixerBackend = "pulseaudio"
)

// DeviceConfig contains MIDI device settings
type DeviceConfig struct {
	Name   string `yaml:"name"`             // Display name for the device
	InPort string `yaml:"inPort,omitempty"` // MIDI input port name, defaults to Name
}

type LearnConfig struct {
	// Timeout ends an unanswered learn session. Zero waits forever.
	Timeout time.Duration `yaml:"timeout"`
}

// UnmarshalYAML also takes a bare 0 for the timeout, which yaml.v3 refuses
// to decode into a time.Duration.
func (l *LearnConfig) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Timeout yaml.Node `yaml:"timeout"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	l.Timeout = 0
	if raw.Timeout.Kind == 0 || (raw.Timeout.ShortTag() == "!!int" && raw.Timeout.Value == "0") {
		return nil
	}
	return raw.Timeout.Decode(&l.Timeout)
}

type MixerConfig struct {
	Backend    MixerBackend         `yaml:"backend"`
	TargetType PulseAudioTargetType `yaml:"targetType,omitempty"`
	// Tracks is the track count of the virtual mixer.
	Tracks int `yaml:"tracks,omitempty"`
}

// VirtualDeviceConfig names the parameter pages of the in-process device.
type VirtualDeviceConfig struct {
	Pages []string `yaml:"pages"`
}

// GroupConfig holds one control group. CCs lists the learned controller
// numbers by slot; 0 marks a slot that has not been learned.
type GroupConfig struct {
	Enabled  bool  `yaml:"enabled"`
	Count    *int  `yaml:"count,omitempty"`
	Relative bool  `yaml:"relative,omitempty"`
	CCs      []int `yaml:"ccs"`
}

// Size is the slot count of the group, its maximum unless Count is set.
func (g GroupConfig) Size(group control.Group) int {
	if g.Count == nil {
		return group.MaxSize()
	}
	return *g.Count
}

// Bindings returns exactly size codes, padding unlearned slots with 0.
func (g GroupConfig) Bindings(size int) []uint8 {
	ccs := make([]uint8, size)
	for slot, cc := range g.CCs {
		if slot >= size {
			break
		}
		if cc > 0 && cc <= int(control.MaxCC) {
			ccs[slot] = uint8(cc)
		}
	}
	return ccs
}

// Controls contains all controller mappings
type Controls struct {
	Transport        GroupConfig `yaml:"transport"`
	Knobs            GroupConfig `yaml:"knobs"`
	Faders           GroupConfig `yaml:"faders"`
	TrackButtons     GroupConfig `yaml:"trackButtons"`
	KnobModeButtons  GroupConfig `yaml:"knobModeButtons"`
	FaderBankButtons GroupConfig `yaml:"faderBankButtons"`
}

// Group returns the settings of a control group.
func (c *Controls) Group(group control.Group) *GroupConfig {
	switch group {
	case control.Transport:
		return &c.Transport
	case control.Knob:
		return &c.Knobs
	case control.Fader:
		return &c.Faders
	case control.TrackButton:
		return &c.TrackButtons
	case control.KnobModeButton:
		return &c.KnobModeButtons
	case control.FaderBankButton:
		return &c.FaderBankButtons
	}
	panic("configuration: unknown control group " + group.String())
}

// Config is the root configuration structure
type Config struct {
	Device        DeviceConfig        `yaml:"device"`
	Learn         LearnConfig         `yaml:"learn"`
	Mixer         MixerConfig         `yaml:"mixer"`
	VirtualDevice VirtualDeviceConfig `yaml:"virtualDevice"`
	Controls      Controls            `yaml:"controls"`
}

// Sizes returns the slot count of every group.
func (c *Config) Sizes() control.Sizes {
	sizes := control.Sizes{}
	for _, group := range control.Groups {
		sizes[group] = c.Controls.Group(group).Size(group)
	}
	return sizes
}
