package host

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// VirtualChannel is a mixer track with a volume parameter.
type VirtualChannel struct {
	mixer  *VirtualMixer
	track  int
	volume *VirtualParameter
}

func (c *VirtualChannel) Select() {
	c.mixer.mu.Lock()
	defer c.mixer.mu.Unlock()
	c.mixer.selected = c.track
	c.mixer.log.Info().Str("track", c.volume.Name()).Msg("Selected track")
}

func (c *VirtualChannel) Volume() Parameter {
	return c.volume
}

// VirtualMixer holds a fixed number of tracks and exposes them through a
// scrollable bank window.
type VirtualMixer struct {
	mu       sync.RWMutex
	log      zerolog.Logger
	tracks   []*VirtualChannel
	bankSize int
	offset   int
	selected int
}

func NewVirtualMixer(trackCount int, bankSize int) *VirtualMixer {
	mixer := &VirtualMixer{
		log:      log.With().Str("module", "Host").Str("mixer", "virtual").Logger(),
		bankSize: bankSize,
		selected: -1,
	}
	mixer.tracks = lo.Map(lo.Range(trackCount), func(i int, _ int) *VirtualChannel {
		return &VirtualChannel{
			mixer:  mixer,
			track:  i,
			volume: NewVirtualParameter(fmt.Sprintf("Track %d", i+1)),
		}
	})
	return mixer
}

// Channel returns the index-th channel of the current bank, or nil past the end.
func (m *VirtualMixer) Channel(index int) Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	track := m.offset + index
	if index < 0 || index >= m.bankSize || track >= len(m.tracks) {
		return nil
	}
	return m.tracks[track]
}

func (m *VirtualMixer) ScrollChannelsUp() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offset = lo.Max([]int{0, m.offset - m.bankSize})
	m.log.Info().Int("offset", m.offset).Msg("Scrolled bank up")
}

func (m *VirtualMixer) ScrollChannelsDown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offset+m.bankSize < len(m.tracks) {
		m.offset += m.bankSize
	}
	m.log.Info().Int("offset", m.offset).Msg("Scrolled bank down")
}

func (m *VirtualMixer) Offset() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.offset
}

// Selected is the absolute track index last selected, -1 if none.
func (m *VirtualMixer) Selected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.selected
}

// Track returns a track by absolute index.
func (m *VirtualMixer) Track(track int) *VirtualChannel {
	if track < 0 || track >= len(m.tracks) {
		return nil
	}
	return m.tracks[track]
}
