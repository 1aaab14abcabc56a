// Package dispatch owns the controller state and routes every incoming
// message to learning or to the bound host action.
package dispatch

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/encoder"
	"github.com/0h41/learnkontrol/src/host"
	"github.com/0h41/learnkontrol/src/knobmode"
	"github.com/0h41/learnkontrol/src/learn"
	"github.com/0h41/learnkontrol/src/midi"
)

// MonitorLine is one message as shown by the MIDI monitor.
type MonitorLine struct {
	Channel string `json:"channel"`
	Type    string `json:"type"`
	Data    string `json:"data"`
}

type Options struct {
	LearnTimeout time.Duration
	Relative     bool
	Monitor      bool
	// OnCommit is called for every slot a learn session binds.
	OnCommit func(group control.Group, slot int, cc uint8)
	// OnMonitor receives monitor lines while the monitor is on.
	OnMonitor func(line MonitorLine)
	// OnChange is called after learn state, knob mode or settings change.
	OnChange func(state State)
}

// State is a snapshot of the controller for display.
type State struct {
	Learn         string           `json:"learn"`
	LearnGroup    string           `json:"learnGroup,omitempty"`
	LearnSlot     int              `json:"learnSlot"`
	LearnTotal    int              `json:"learnTotal"`
	KnobMode      int              `json:"knobMode"`
	KnobModeLabel string           `json:"knobModeLabel"`
	LoopLength    int              `json:"loopLength"`
	Pages         []string         `json:"pages"`
	Relative      bool             `json:"relative"`
	Monitor       bool             `json:"monitor"`
	Enabled       map[string]bool  `json:"enabled"`
	Bindings      map[string][]int `json:"bindings"`
}

// Controller is the single owner of bindings, learn session, knob mode and
// encoder setting. It is not safe for concurrent use; Loop serialises access.
type Controller struct {
	log      zerolog.Logger
	host     host.Host
	table    *control.Table
	resolver *Resolver
	session  *learn.Session
	cycle    *knobmode.Cycle
	relative bool
	monitor  bool
	options  Options
}

func NewController(h host.Host, table *control.Table, options Options) *Controller {
	var pages []string
	if h.Device != nil {
		pages = h.Device.PageNames()
	}
	return &Controller{
		log:      log.With().Str("module", "Dispatch").Logger(),
		host:     h,
		table:    table,
		resolver: NewResolver(table),
		session:  learn.New(options.LearnTimeout),
		cycle:    knobmode.NewCycle(pages),
		relative: options.Relative,
		monitor:  options.Monitor,
		options:  options,
	}
}

// Init pushes the initial knob mode and fader highlights to the host.
func (c *Controller) Init() {
	c.cycle.Apply(c.host.Device)
	c.indicateChannels()
}

// Table exposes the binding table, for tests and configuration loading.
func (c *Controller) Table() *control.Table {
	return c.table
}

func (c *Controller) Session() *learn.Session {
	return c.session
}

func (c *Controller) Cycle() *knobmode.Cycle {
	return c.cycle
}

func (c *Controller) notify(notices ...string) {
	for _, notice := range notices {
		if c.host.Notifier != nil {
			c.host.Notifier.Notify(notice)
		}
	}
}

func (c *Controller) changed() {
	if c.options.OnChange != nil {
		c.options.OnChange(c.State())
	}
}

// Expire ends a learn session that waited too long.
func (c *Controller) Expire() {
	if notice, expired := c.session.Expire(); expired {
		c.log.Info().Msg("Learn session timed out")
		c.notify(notice)
		c.changed()
	}
}

// HandleMessage processes one short MIDI message to completion.
func (c *Controller) HandleMessage(msg []byte) {
	event := midi.Decode(msg)
	c.monitorEvent(event)

	switch event.Kind {
	case midi.CC:
		c.handleCC(event)
	case midi.SystemRealtime:
		switch {
		case event.IsStart():
			c.host.Transport.Restart()
		case event.IsStop():
			c.host.Transport.Stop()
		case event.IsContinue():
			c.host.Transport.Play()
		}
	}
}

func (c *Controller) handleCC(event midi.Event) {
	cc := event.Data1
	if cc == control.Unbound {
		return
	}

	c.Expire()
	if c.session.Active() {
		outcome := c.session.OnCC(c.table, cc)
		if outcome.Committed {
			c.log.Info().
				Str("group", outcome.Group.String()).
				Str("control", outcome.Group.SlotName(outcome.Slot)).
				Uint8("cc", cc).
				Msg("Learned control")
			if c.options.OnCommit != nil {
				c.options.OnCommit(outcome.Group, outcome.Slot, cc)
			}
		} else {
			c.log.Debug().Uint8("cc", cc).Msg("Ignoring repeated CC while learning")
		}
		c.notify(outcome.Notices...)
		if outcome.Committed {
			c.changed()
		}
		return
	}

	binding, ok := c.resolver.Resolve(cc)
	if !ok {
		c.log.Debug().Uint8("cc", cc).Msg("No binding for CC")
		return
	}
	c.apply(binding, event)
}

func (c *Controller) apply(binding Binding, event midi.Event) {
	c.log.Debug().
		Str("group", binding.Group.String()).
		Str("control", binding.Group.SlotName(binding.Slot)).
		Uint8("value", event.Data2).
		Msg("Dispatching CC")

	switch binding.Group {
	case control.Transport:
		if !event.IsOn() {
			return
		}
		c.transport(binding.Slot)
	case control.KnobModeButton:
		if binding.Slot == 0 {
			c.NextKnobMode()
		} else {
			c.PreviousKnobMode()
		}
	case control.FaderBankButton:
		if binding.Slot == 0 {
			c.ScrollBankUp()
		} else {
			c.ScrollBankDown()
		}
	case control.Knob:
		target := c.cycle.Target(c.host.Device, binding.Slot)
		if target == nil {
			return
		}
		encoder.Decode(c.relative, event.Data2).Apply(target)
	case control.Fader:
		if channel := c.host.Mixer.Channel(binding.Slot); channel != nil {
			channel.Volume().Set(int(event.Data2), host.Resolution)
		}
	case control.TrackButton:
		if channel := c.host.Mixer.Channel(binding.Slot); channel != nil {
			channel.Select()
		}
	}
}

func (c *Controller) transport(slot int) {
	transport := c.host.Transport
	switch slot {
	case control.Rewind:
		transport.Rewind()
	case control.FastForward:
		transport.FastForward()
	case control.Stop:
		transport.Stop()
	case control.Play:
		transport.Play()
	case control.Record:
		transport.Record()
	case control.Loop:
		transport.ToggleLoop()
	}
}

// HandleSysEx processes one system exclusive message. Only the MMC
// transport commands have an effect.
func (c *Controller) HandleSysEx(data []byte) {
	if c.monitor && c.options.OnMonitor != nil {
		c.options.OnMonitor(MonitorLine{Type: "Sysex Data", Data: "[" + midi.PrettyHex(data) + "]"})
	}
	command, ok := midi.MatchMMC(data)
	if !ok {
		c.log.Debug().Str("sysex", midi.HexString(data)).Msg("Ignoring sysex")
		return
	}
	c.log.Debug().Str("command", command.String()).Msg("MMC")
	transport := c.host.Transport
	switch command {
	case midi.MMCRewind:
		transport.Rewind()
	case midi.MMCFastForward:
		transport.FastForward()
	case midi.MMCStop:
		transport.Stop()
	case midi.MMCPlay:
		transport.Play()
	case midi.MMCRecord:
		transport.Record()
	}
}

func (c *Controller) monitorEvent(event midi.Event) {
	if !c.monitor {
		return
	}
	line := MonitorLine{Type: event.Describe(), Data: event.Pretty()}
	if event.Kind != midi.SystemRealtime && event.Kind != midi.Other {
		line.Channel = strconv.Itoa(int(event.Channel) + 1)
	}
	c.log.Info().Str("channel", line.Channel).Str("type", line.Type).Str("data", line.Data).Msg("MIDI")
	if c.options.OnMonitor != nil {
		c.options.OnMonitor(line)
	}
}
