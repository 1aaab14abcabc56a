package host

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// VirtualParameter keeps a normalised value in memory.
type VirtualParameter struct {
	mu         sync.RWMutex
	log        zerolog.Logger
	name       string
	value      float64
	indication bool
}

func NewVirtualParameter(name string) *VirtualParameter {
	return &VirtualParameter{log: log.With().Str("module", "Host").Logger(), name: name}
}

func (p *VirtualParameter) Name() string {
	return p.name
}

func (p *VirtualParameter) Set(value int, resolution int) {
	p.mu.Lock()
	p.value = Normalize(value, resolution)
	current := p.value
	p.mu.Unlock()
	p.log.Debug().Str("parameter", p.name).Float64("value", current).Msg("Set parameter")
}

func (p *VirtualParameter) Inc(delta int, resolution int) {
	if resolution <= 1 {
		return
	}
	p.mu.Lock()
	p.value = clamp(p.value + float64(delta)/float64(resolution-1))
	current := p.value
	p.mu.Unlock()
	p.log.Debug().Str("parameter", p.name).Int("delta", delta).Float64("value", current).Msg("Increment parameter")
}

func (p *VirtualParameter) SetIndication(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.indication = on
}

func (p *VirtualParameter) Value() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.value
}

func (p *VirtualParameter) Indicated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.indication
}

func newParameters(prefix string, count int) []*VirtualParameter {
	return lo.Map(lo.Range(count), func(i int, _ int) *VirtualParameter {
		return NewVirtualParameter(fmt.Sprintf("%s %d", prefix, i+1))
	})
}

// VirtualDevice is an in-memory device: 8 macros, 8 common parameters,
// 9 envelope parameters and 8 parameters per named page.
type VirtualDevice struct {
	mu       sync.RWMutex
	log      zerolog.Logger
	macros   []*VirtualParameter
	common   []*VirtualParameter
	envelope []*VirtualParameter
	pages    [][]*VirtualParameter
	names    []string
	page     int
}

func NewVirtualDevice(pageNames []string) *VirtualDevice {
	device := &VirtualDevice{
		log:      log.With().Str("module", "Host").Str("device", "virtual").Logger(),
		macros:   newParameters("Macro", 8),
		common:   newParameters("Common", 8),
		envelope: newParameters("Envelope", 9),
	}
	device.SetPages(pageNames)
	return device
}

// SetPages replaces the device's parameter pages, as if another device got focus.
func (d *VirtualDevice) SetPages(names []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append([]string(nil), names...)
	d.pages = lo.Map(d.names, func(name string, _ int) []*VirtualParameter {
		return newParameters(name, 8)
	})
	d.page = 0
}

func pick(parameters []*VirtualParameter, index int) Parameter {
	if index < 0 || index >= len(parameters) {
		return nil
	}
	return parameters[index]
}

func (d *VirtualDevice) Macro(index int) Parameter {
	return pick(d.macros, index)
}

func (d *VirtualDevice) CommonParameter(index int) Parameter {
	return pick(d.common, index)
}

func (d *VirtualDevice) EnvelopeParameter(index int) Parameter {
	return pick(d.envelope, index)
}

// Parameter returns a parameter of the selected page, nil without pages.
func (d *VirtualDevice) Parameter(index int) Parameter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.pages) == 0 {
		return nil
	}
	return pick(d.pages[d.page], index)
}

func (d *VirtualDevice) SetParameterPage(page int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if page < 0 || page >= len(d.pages) {
		d.log.Warn().Int("page", page).Int("pages", len(d.pages)).Msg("Ignoring unknown parameter page")
		return
	}
	d.page = page
	d.log.Debug().Str("page", d.names[page]).Msg("Selected parameter page")
}

func (d *VirtualDevice) SelectedPage() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.page
}

func (d *VirtualDevice) PageNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.names...)
}

// VirtualTransport tracks transport state without a real sequencer behind it.
type VirtualTransport struct {
	mu        sync.RWMutex
	log       zerolog.Logger
	playing   bool
	recording bool
	looping   bool
	position  int
}

func NewVirtualTransport() *VirtualTransport {
	return &VirtualTransport{log: log.With().Str("module", "Host").Str("transport", "virtual").Logger()}
}

func (t *VirtualTransport) Rewind() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.position > 0 {
		t.position--
	}
	t.log.Info().Int("position", t.position).Msg("Rewind")
}

func (t *VirtualTransport) FastForward() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position++
	t.log.Info().Int("position", t.position).Msg("Fast forward")
}

func (t *VirtualTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.recording = false
	t.log.Info().Msg("Stop")
}

// Play toggles between playing and paused.
func (t *VirtualTransport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = !t.playing
	t.log.Info().Bool("playing", t.playing).Msg("Play/Pause")
}

func (t *VirtualTransport) Record() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.recording = !t.recording
	t.log.Info().Bool("recording", t.recording).Msg("Record")
}

func (t *VirtualTransport) ToggleLoop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.looping = !t.looping
	t.log.Info().Bool("loop", t.looping).Msg("Loop")
}

func (t *VirtualTransport) Restart() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.position = 0
	t.playing = true
	t.log.Info().Msg("Restart")
}

// TransportState is a copy of the virtual transport's flags.
type TransportState struct {
	Playing   bool `json:"playing"`
	Recording bool `json:"recording"`
	Looping   bool `json:"looping"`
	Position  int  `json:"position"`
}

func (t *VirtualTransport) State() TransportState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return TransportState{Playing: t.playing, Recording: t.recording, Looping: t.looping, Position: t.position}
}
