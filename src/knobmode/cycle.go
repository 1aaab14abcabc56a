// Package knobmode selects which parameter group the knob bank addresses.
package knobmode

import (
	"fmt"

	"github.com/0h41/learnkontrol/src/host"
)

// Page is the kind of parameter group the knobs address.
type Page int

const (
	Macro Page = iota
	Common
	Envelope
	User
)

// fixedPages is the number of positions before the device's own pages.
const fixedPages = 3

// Knobs is the number of physical knobs in the bank.
const Knobs = 8

// envelopeParameters is one more than the knob count.
const envelopeParameters = 9

func (p Page) String() string {
	switch p {
	case Macro:
		return "macro"
	case Common:
		return "common"
	case Envelope:
		return "envelope"
	}
	return "user"
}

// Cycle is a modulo counter over Macro, Common, Envelope and the device's
// parameter pages. Mode runs from 0 to LoopLength inclusive.
type Cycle struct {
	mode      int
	pageNames []string
}

func NewCycle(pageNames []string) *Cycle {
	cycle := &Cycle{}
	cycle.SetPageNames(pageNames)
	return cycle
}

func (c *Cycle) Mode() int {
	return c.mode
}

func (c *Cycle) PageCount() int {
	return len(c.pageNames)
}

func (c *Cycle) PageNames() []string {
	return append([]string(nil), c.pageNames...)
}

// LoopLength is the highest valid mode.
func (c *Cycle) LoopLength() int {
	return fixedPages - 1 + len(c.pageNames)
}

func (c *Cycle) Page() Page {
	if c.mode < fixedPages {
		return Page(c.mode)
	}
	return User
}

// UserPage is the device page index, or -1 outside the user region.
func (c *Cycle) UserPage() int {
	if c.mode < fixedPages {
		return -1
	}
	return c.mode - fixedPages
}

func (c *Cycle) Advance() {
	if c.mode < c.LoopLength() {
		c.mode++
	} else {
		c.mode = 0
	}
}

func (c *Cycle) Retreat() {
	if c.mode > 0 {
		c.mode--
	} else {
		c.mode = c.LoopLength()
	}
}

// SetPageNames takes a new page list from the host and clamps the mode when
// its page no longer exists. It reports whether the mode was clamped.
func (c *Cycle) SetPageNames(names []string) bool {
	c.pageNames = append([]string(nil), names...)
	if c.mode > c.LoopLength() {
		c.mode = c.LoopLength()
		return true
	}
	return false
}

// Reset goes back to macro mode, used when a different device gets focus.
func (c *Cycle) Reset() {
	c.mode = 0
}

func (c *Cycle) Label() string {
	switch c.Page() {
	case Macro:
		return "Macro Mode"
	case Common:
		return "Common Parameters"
	case Envelope:
		return "Envelope Parameters"
	}
	page := c.UserPage()
	if page < len(c.pageNames) {
		return "Mapping: " + c.pageNames[page]
	}
	return fmt.Sprintf("Mapping: Page %d", page+1)
}

// Apply selects the device page for user modes and highlights the parameters
// of the active group only.
func (c *Cycle) Apply(device host.Device) {
	page := c.Page()
	for i := 0; i < Knobs; i++ {
		indicate(device.Parameter(i), false)
	}
	if page == User {
		device.SetParameterPage(c.UserPage())
	}
	for i := 0; i < Knobs; i++ {
		indicate(device.Macro(i), page == Macro)
		indicate(device.CommonParameter(i), page == Common)
		indicate(device.EnvelopeParameter(i), page == Envelope)
		indicate(device.Parameter(i), page == User)
	}
	for i := Knobs; i < envelopeParameters; i++ {
		indicate(device.EnvelopeParameter(i), page == Envelope)
	}
}

func indicate(parameter host.Parameter, on bool) {
	if parameter != nil {
		parameter.SetIndication(on)
	}
}

// Target is the parameter the index-th knob drives in the current mode.
func (c *Cycle) Target(device host.Device, index int) host.Parameter {
	switch c.Page() {
	case Macro:
		return device.Macro(index)
	case Common:
		return device.CommonParameter(index)
	case Envelope:
		return device.EnvelopeParameter(index)
	}
	return device.Parameter(index)
}
