package dispatch

import (
	"time"

	"github.com/samber/lo"

	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/knobmode"
)

// ArmLearn waits for the next CC to bind one slot.
func (c *Controller) ArmLearn(group control.Group, slot int) error {
	notice, err := c.session.Arm(c.table, group, slot)
	if err != nil {
		c.log.Warn().Err(err).Str("group", group.String()).Int("slot", slot).Msg("Cannot start learn")
		return err
	}
	c.log.Info().Str("group", group.String()).Str("control", group.SlotName(slot)).Msg("Learning control")
	c.notify(notice)
	c.changed()
	return nil
}

// ArmLearnAll learns every slot of the group in order.
func (c *Controller) ArmLearnAll(group control.Group) error {
	notice, err := c.session.ArmSequence(c.table, group)
	if err != nil {
		c.log.Warn().Err(err).Str("group", group.String()).Msg("Cannot start learn")
		return err
	}
	c.log.Info().Str("group", group.String()).Int("slots", c.table.Size(group)).Msg("Learning all controls")
	c.notify(notice)
	c.changed()
	return nil
}

func (c *Controller) CancelLearn() bool {
	notice, ok := c.session.Cancel()
	if !ok {
		return false
	}
	c.log.Info().Msg("Learn cancelled")
	c.notify(notice)
	c.changed()
	return true
}

func (c *Controller) SetLearnTimeout(timeout time.Duration) {
	c.session.SetTimeout(timeout)
}

func (c *Controller) NextKnobMode() {
	c.cycle.Advance()
	c.applyKnobMode()
}

func (c *Controller) PreviousKnobMode() {
	c.cycle.Retreat()
	c.applyKnobMode()
}

func (c *Controller) applyKnobMode() {
	c.cycle.Apply(c.host.Device)
	c.log.Info().Int("mode", c.cycle.Mode()).Str("label", c.cycle.Label()).Msg("Knob mode")
	c.notify(c.cycle.Label())
	c.changed()
}

func (c *Controller) ScrollBankUp() {
	c.host.Mixer.ScrollChannelsUp()
}

func (c *Controller) ScrollBankDown() {
	c.host.Mixer.ScrollChannelsDown()
}

// DeviceChanged takes a new page list from the host. A different device
// starts over in macro mode; otherwise the mode is only clamped.
func (c *Controller) DeviceChanged(pageNames []string, newDevice bool) {
	if newDevice {
		c.cycle.Reset()
	}
	if c.cycle.SetPageNames(pageNames) {
		c.log.Info().Int("mode", c.cycle.Mode()).Msg("Knob mode clamped to the new page list")
	}
	c.cycle.Apply(c.host.Device)
	c.changed()
}

func (c *Controller) SetRelative(relative bool) {
	if c.relative == relative {
		return
	}
	c.relative = relative
	c.changed()
}

func (c *Controller) SetMonitor(on bool) {
	c.monitor = on
	c.changed()
}

// SetGroupEnabled switches a group on or off. A learn session on a group
// being switched off is cancelled.
func (c *Controller) SetGroupEnabled(group control.Group, enabled bool) {
	c.table.SetEnabled(group, enabled)
	if armed, _, active := c.session.Armed(); active && armed == group && !enabled {
		c.CancelLearn()
	}
	if group == control.Fader {
		c.indicateChannels()
	}
	c.changed()
}

// LoadBindings overwrites a group's bindings from configuration. Extra codes
// beyond the group's size are ignored.
func (c *Controller) LoadBindings(group control.Group, ccs []uint8) {
	for slot, cc := range ccs {
		if slot >= c.table.Size(group) {
			c.log.Warn().Str("group", group.String()).Int("slots", c.table.Size(group)).Int("configured", len(ccs)).Msg("Ignoring extra bindings")
			break
		}
		c.table.Set(group, slot, cc)
	}
}

func (c *Controller) indicateChannels() {
	on := c.table.Enabled(control.Fader)
	for i := 0; i < c.table.Size(control.Fader); i++ {
		if channel := c.host.Mixer.Channel(i); channel != nil {
			channel.Volume().SetIndication(on)
		}
	}
}

func (c *Controller) State() State {
	state := State{
		Learn:         c.session.State().String(),
		KnobMode:      c.cycle.Mode(),
		KnobModeLabel: c.cycle.Label(),
		LoopLength:    c.cycle.LoopLength(),
		Pages:         c.cycle.PageNames(),
		Relative:      c.relative,
		Monitor:       c.monitor,
		Enabled:       map[string]bool{},
		Bindings:      map[string][]int{},
	}
	if group, slot, active := c.session.Armed(); active {
		state.LearnGroup = group.String()
		state.LearnSlot = slot
		state.LearnTotal = c.session.Total()
	}
	for _, group := range control.Groups {
		state.Enabled[group.String()] = c.table.Enabled(group)
		state.Bindings[group.String()] = lo.Map(c.table.Bindings(group), func(cc uint8, _ int) int {
			return int(cc)
		})
	}
	return state
}

// KnobPage is the parameter group the knobs currently address.
func (c *Controller) KnobPage() knobmode.Page {
	return c.cycle.Page()
}
