package dispatch

import (
	"fmt"
	"testing"

	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/host"
)

// recorder collects every host call as a string, in order.
type recorder struct {
	calls   []string
	notices []string
	pages   []string
}

func (r *recorder) record(format string, args ...interface{}) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) Rewind()      { r.record("transport.rewind") }
func (r *recorder) FastForward() { r.record("transport.fastForward") }
func (r *recorder) Stop()        { r.record("transport.stop") }
func (r *recorder) Play()        { r.record("transport.play") }
func (r *recorder) Record()      { r.record("transport.record") }
func (r *recorder) ToggleLoop()  { r.record("transport.toggleLoop") }
func (r *recorder) Restart()     { r.record("transport.restart") }

func (r *recorder) Notify(message string) {
	r.notices = append(r.notices, message)
}

type fakeParameter struct {
	r    *recorder
	name string
}

func (p fakeParameter) Name() string { return p.name }
func (p fakeParameter) Set(value int, resolution int) {
	p.r.record("%s.set(%d/%d)", p.name, value, resolution-1)
}
func (p fakeParameter) Inc(delta int, resolution int) {
	p.r.record("%s.inc(%d/%d)", p.name, delta, resolution-1)
}

// Highlights are not actions; they are checked through the virtual device.
func (p fakeParameter) SetIndication(bool) {}

type fakeDevice struct{ r *recorder }

func (d fakeDevice) Macro(i int) host.Parameter {
	return fakeParameter{d.r, fmt.Sprintf("macro%d", i)}
}
func (d fakeDevice) CommonParameter(i int) host.Parameter {
	return fakeParameter{d.r, fmt.Sprintf("common%d", i)}
}
func (d fakeDevice) EnvelopeParameter(i int) host.Parameter {
	return fakeParameter{d.r, fmt.Sprintf("envelope%d", i)}
}
func (d fakeDevice) Parameter(i int) host.Parameter {
	return fakeParameter{d.r, fmt.Sprintf("page.param%d", i)}
}
func (d fakeDevice) SetParameterPage(page int) { d.r.record("device.page(%d)", page) }
func (d fakeDevice) PageNames() []string      { return d.r.pages }

type fakeChannel struct {
	r     *recorder
	index int
}

func (c fakeChannel) Select() { c.r.record("channel%d.select", c.index) }
func (c fakeChannel) Volume() host.Parameter {
	return fakeParameter{c.r, fmt.Sprintf("channel%d.volume", c.index)}
}

type fakeMixer struct{ r *recorder }

func (m fakeMixer) Channel(i int) host.Channel { return fakeChannel{m.r, i} }
func (m fakeMixer) ScrollChannelsUp()          { m.r.record("bank.up") }
func (m fakeMixer) ScrollChannelsDown()        { m.r.record("bank.down") }

func (r *recorder) host() host.Host {
	return host.Host{Transport: r, Device: fakeDevice{r}, Mixer: fakeMixer{r}, Notifier: r}
}

// reset forgets calls and notices made so far.
func (r *recorder) reset() {
	r.calls = nil
	r.notices = nil
}

func enabledTable(t *testing.T) *control.Table {
	t.Helper()
	table := control.NewTable(control.DefaultSizes())
	for _, group := range control.Groups {
		table.SetEnabled(group, true)
	}
	return table
}

func newController(t *testing.T, pages []string, options Options) (*Controller, *recorder) {
	t.Helper()
	r := &recorder{pages: pages}
	controller := NewController(r.host(), enabledTable(t), options)
	controller.Init()
	r.reset()
	return controller, r
}
