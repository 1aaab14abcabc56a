package pulseaudio

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/0h41/learnkontrol/src/configuration"
	"github.com/0h41/learnkontrol/src/host"
)

// Mixer exposes the PulseAudio objects of one type as a bank of channels.
// The object list is read again on every access, so streams that come and go
// shift through the bank.
type Mixer struct {
	log        zerolog.Logger
	backend    backend
	targetType configuration.PulseAudioTargetType
	bankSize   int

	mu       sync.Mutex
	offset   int
	levels   map[string]float64
	selected string
}

func NewMixer(client *PAClient, targetType configuration.PulseAudioTargetType, bankSize int) *Mixer {
	return newMixer(client, targetType, bankSize)
}

func newMixer(b backend, targetType configuration.PulseAudioTargetType, bankSize int) *Mixer {
	return &Mixer{
		log:        log.With().Str("module", "PulseAudio").Str("target", string(targetType)).Logger(),
		backend:    b,
		targetType: targetType,
		bankSize:   bankSize,
		levels:     map[string]float64{},
	}
}

func (m *Mixer) streams() []Stream {
	streams, err := m.backend.streams(m.targetType)
	if err != nil {
		m.log.Error().Err(err).Msg("Could not read streams")
		return nil
	}
	return streams
}

// Channel returns the index-th stream of the current bank, or nil.
func (m *Mixer) Channel(index int) host.Channel {
	if index < 0 || index >= m.bankSize {
		return nil
	}
	streams := m.streams()
	m.mu.Lock()
	track := m.offset + index
	m.mu.Unlock()
	if track >= len(streams) {
		return nil
	}
	return &channel{mixer: m, stream: streams[track]}
}

func (m *Mixer) ScrollChannelsUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = lo.Max([]int{0, m.offset - m.bankSize})
	m.log.Info().Int("offset", m.offset).Msg("Scrolled bank up")
}

func (m *Mixer) ScrollChannelsDown() {
	count := len(m.streams())
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offset+m.bankSize < count {
		m.offset += m.bankSize
	}
	m.log.Info().Int("offset", m.offset).Msg("Scrolled bank down")
}

func (m *Mixer) Offset() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.offset
}

// Selected is the name of the stream last selected with a track button.
func (m *Mixer) Selected() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selected
}

type channel struct {
	mixer  *Mixer
	stream Stream
}

// Select makes an output device the default sink. Other targets only
// remember the selection.
func (c *channel) Select() {
	m := c.mixer
	m.mu.Lock()
	m.selected = c.stream.name
	m.mu.Unlock()

	if m.targetType != configuration.OutputDevice {
		m.log.Info().Str("stream", c.stream.name).Msg("Selected stream")
		return
	}
	m.log.Debug().Msgf("Setting %s as default output", c.stream.name)
	if err := m.backend.setDefaultSink(c.stream.fullName); err != nil {
		m.log.Error().Err(err).Str("stream", c.stream.name).Msg("Could not set default output")
	}
}

func (c *channel) Volume() host.Parameter {
	return volume{c}
}

// volume remembers the last level it set; PulseAudio levels are not read back.
type volume struct {
	*channel
}

func (v volume) Name() string {
	return v.stream.name
}

func (v volume) key() string {
	if v.stream.fullName != "" {
		return v.stream.fullName
	}
	return v.stream.name
}

func (v volume) store(level float64) {
	m := v.mixer
	m.mu.Lock()
	m.levels[v.key()] = level
	m.mu.Unlock()
	m.backend.setVolume(v.stream, float32(level))
}

func (v volume) Set(value int, resolution int) {
	v.store(host.Normalize(value, resolution))
}

func (v volume) Inc(delta int, resolution int) {
	m := v.mixer
	m.mu.Lock()
	level := m.levels[v.key()]
	m.mu.Unlock()
	v.store(lo.Clamp(level+float64(delta)/float64(resolution-1), 0, 1))
}

func (v volume) SetIndication(bool) {}
