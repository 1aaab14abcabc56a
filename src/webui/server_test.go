package webui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/dispatch"
	"github.com/0h41/learnkontrol/src/host"
)

type fixture struct {
	server *WebUIServer
	mixer  *host.VirtualMixer
	table  *control.Table
	url    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	server := NewWebUIServer("", nil)
	mixer := host.NewVirtualMixer(16, 8)
	h := host.Host{
		Transport: host.NewVirtualTransport(),
		Device:    host.NewVirtualDevice([]string{"Osc"}),
		Mixer:     mixer,
		Notifier:  server,
	}
	table := control.NewTable(control.DefaultSizes())
	for _, group := range control.Groups {
		table.SetEnabled(group, true)
	}
	table.SetEnabled(control.Transport, false)
	controller := dispatch.NewController(h, table, dispatch.Options{OnChange: server.BroadcastState})
	loop := dispatch.NewLoop(controller, 16)
	server.Attach(loop)

	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	go server.handleBroadcasts()

	handler, err := server.Handler()
	require.NoError(t, err)
	httpServer := httptest.NewServer(handler)
	t.Cleanup(func() {
		server.Stop()
		httpServer.Close()
		cancel()
	})
	return &fixture{server: server, mixer: mixer, table: table, url: httpServer.URL}
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(f.url, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	welcome := readUntil(t, conn, "welcome")
	assert.NotEmpty(t, welcome["clientId"])
	return conn
}

// readUntil skips messages until one of the given type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, messageType string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", messageType)
		var message map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &message))
		if message["type"] == messageType {
			return message
		}
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, message interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(message))
}

func TestServesStaticPage(t *testing.T) {
	f := newFixture(t)
	response, err := http.Get(f.url + "/")
	require.NoError(t, err)
	defer response.Body.Close()
	assert.Equal(t, http.StatusOK, response.StatusCode)
}

func TestGetState(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	sendJSON(t, conn, map[string]interface{}{"type": "getState"})
	message := readUntil(t, conn, "state")
	state := message["state"].(map[string]interface{})
	assert.Equal(t, "idle", state["learn"])
	assert.Equal(t, "Macro Mode", state["knobModeLabel"])
	assert.Equal(t, false, state["enabled"].(map[string]interface{})["transport"])
}

func TestLearnBroadcastsNoticeAndState(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)
	other := f.dial(t)

	sendJSON(t, conn, map[string]interface{}{"type": "learn", "group": "faders", "slot": 2})
	notice := readUntil(t, other, "notice")
	assert.Equal(t, "Please move Fader 3.", notice["message"])
	state := readUntil(t, other, "state")["state"].(map[string]interface{})
	assert.Equal(t, "single", state["learn"])
	assert.Equal(t, "faders", state["learnGroup"])
	assert.EqualValues(t, 2, state["learnSlot"])

	sendJSON(t, conn, map[string]interface{}{"type": "cancelLearn"})
	assert.Equal(t, "Midi Learn cancelled.", readUntil(t, other, "notice")["message"])
}

func TestLearnErrorsGoToSender(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	sendJSON(t, conn, map[string]interface{}{"type": "learn", "group": "transport", "slot": 0})
	reply := readUntil(t, conn, "error")
	assert.Equal(t, "learn", reply["command"])
	assert.Contains(t, reply["message"], "disabled")

	sendJSON(t, conn, map[string]interface{}{"type": "learnAll", "group": "sliders"})
	reply = readUntil(t, conn, "error")
	assert.Contains(t, reply["message"], "sliders")
}

func TestKnobModeAndBank(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	sendJSON(t, conn, map[string]interface{}{"type": "knobMode", "direction": "previous"})
	assert.Equal(t, "Mapping: Osc", readUntil(t, conn, "notice")["message"])

	sendJSON(t, conn, map[string]interface{}{"type": "faderBank", "direction": "down"})
	sendJSON(t, conn, map[string]interface{}{"type": "getState"})
	readUntil(t, conn, "state")
	assert.Equal(t, 8, f.mixer.Offset())

	sendJSON(t, conn, map[string]interface{}{"type": "faderBank", "direction": "sideways"})
	assert.Contains(t, readUntil(t, conn, "error")["message"], "sideways")
}

func TestSetEnabledAndRelative(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	sendJSON(t, conn, map[string]interface{}{"type": "setEnabled", "group": "knobs", "enabled": false})
	sendJSON(t, conn, map[string]interface{}{"type": "setRelative", "relative": true})

	sendJSON(t, conn, map[string]interface{}{"type": "getState"})

	// earlier broadcasts may show only the first change
	for {
		state := readUntil(t, conn, "state")["state"].(map[string]interface{})
		if state["relative"] == true {
			assert.Equal(t, false, state["enabled"].(map[string]interface{})["knobs"])
			break
		}
	}
}

func TestMonitorBroadcast(t *testing.T) {
	f := newFixture(t)
	conn := f.dial(t)

	f.server.BroadcastMonitor(dispatch.MonitorLine{Channel: "1", Type: "CC 20  -  Value:  100", Data: "176, 20, 100   [B01464]"})
	line := readUntil(t, conn, "monitor")["line"].(map[string]interface{})
	assert.Equal(t, "CC 20  -  Value:  100", line["type"])
}
