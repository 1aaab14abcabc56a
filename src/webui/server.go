package webui

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0h41/learnkontrol/src/configuration"
	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/dispatch"
)

//go:embed static
var staticFiles embed.FS

const (
	broadcastBuffer = 64
	callTimeout     = 5 * time.Second
)

// Dispatcher runs commands on the controller's loop.
type Dispatcher interface {
	Do(op func(*dispatch.Controller))
	Call(ctx context.Context, fn func(*dispatch.Controller) error) error
	State(ctx context.Context) (dispatch.State, error)
}

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) send(message []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

type WebUIServer struct {
	Addr          string
	log           zerolog.Logger
	upgrader      websocket.Upgrader
	mu            sync.Mutex
	clients       map[*websocket.Conn]*client
	broadcast     chan []byte
	dispatcher    Dispatcher
	configManager *configuration.ConfigManager
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// clientMessage is any command a browser sends. Fields are used by type.
type clientMessage struct {
	Type      string `json:"type"`
	Group     string `json:"group"`
	Slot      int    `json:"slot"`
	Direction string `json:"direction"`
	Enabled   bool   `json:"enabled"`
	Relative  bool   `json:"relative"`
}

// NewWebUIServer creates a server; Attach must be called before Start.
func NewWebUIServer(addr string, configManager *configuration.ConfigManager) *WebUIServer {
	return &WebUIServer{
		Addr: addr,
		log:  log.With().Str("module", "WebUI").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all connections for now
			},
		},
		clients:       make(map[*websocket.Conn]*client),
		broadcast:     make(chan []byte, broadcastBuffer),
		configManager: configManager,
		stopChan:      make(chan struct{}),
	}
}

// Attach sets the loop commands run on. The controller usually notifies this
// server, so the two are created first and connected afterwards.
func (s *WebUIServer) Attach(dispatcher Dispatcher) {
	s.dispatcher = dispatcher
}

// Handler serves the static page and the websocket endpoint.
func (s *WebUIServer) Handler() (http.Handler, error) {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to create static filesystem: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", s.handleWebSocket)
	return mux, nil
}

// Start serves until ctx is cancelled.
func (s *WebUIServer) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}
	go s.handleBroadcasts()
	defer s.Stop()

	s.log.Info().Msgf("Starting web server on %s", s.Addr)
	server := &http.Server{
		Addr:         s.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop ends the broadcast goroutine and disconnects every client.
func (s *WebUIServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.mu.Lock()
		defer s.mu.Unlock()
		for conn := range s.clients {
			conn.Close()
			delete(s.clients, conn)
		}
	})
}

func (s *WebUIServer) snapshot() []*client {
	s.mu.Lock()
	defer s.mu.Unlock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

func (s *WebUIServer) drop(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c.conn]; ok {
		c.conn.Close()
		delete(s.clients, c.conn)
	}
}

func (s *WebUIServer) handleBroadcasts() {
	for {
		select {
		case message := <-s.broadcast:
			clients := s.snapshot()
			s.log.Trace().Int("clientCount", len(clients)).Str("message", string(message)).Msg("Broadcasting message to WebSocket clients")
			for _, c := range clients {
				if err := c.send(message); err != nil {
					s.log.Error().Err(err).Str("client", c.id).Msg("Failed to send message to client")
					s.drop(c)
				}
			}
		case <-s.stopChan:
			return
		}
	}
}

// BroadcastMessage queues a message for every client. Messages are dropped
// when the queue is full so MIDI processing never waits on a browser.
func (s *WebUIServer) BroadcastMessage(message []byte) {
	select {
	case s.broadcast <- message:
	default:
		s.log.Warn().Msg("Broadcast queue full, dropping message")
	}
}

func (s *WebUIServer) broadcastJSON(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to marshal message")
		return
	}
	s.BroadcastMessage(data)
}

// Notify shows a notice in every browser.
func (s *WebUIServer) Notify(message string) {
	s.broadcastJSON(map[string]interface{}{"type": "notice", "message": message})
}

func (s *WebUIServer) BroadcastState(state dispatch.State) {
	s.broadcastJSON(map[string]interface{}{"type": "state", "state": state})
}

func (s *WebUIServer) BroadcastMonitor(line dispatch.MonitorLine) {
	s.broadcastJSON(map[string]interface{}{"type": "monitor", "line": line})
}

// NotifyConfigUpdate forwards a configuration topic to every browser.
func (s *WebUIServer) NotifyConfigUpdate(topic string, update interface{}) {
	if topic == configuration.Reloaded {
		// the full config is not for the browser; a state push follows
		update = nil
	}
	s.broadcastJSON(map[string]interface{}{"type": "configUpdate", "topic": topic, "update": update})
}

func (s *WebUIServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to upgrade to websocket")
		return
	}
	c := &client{id: uuid.NewString(), conn: conn}
	s.mu.Lock()
	s.clients[conn] = c
	s.mu.Unlock()
	defer s.drop(c)
	s.log.Info().Str("client", c.id).Msgf("New WebSocket client connected: %s", conn.RemoteAddr())

	welcome, _ := json.Marshal(map[string]string{
		"type":     "welcome",
		"message":  "Connected to learnkontrol",
		"clientId": c.id,
	})
	if err := c.send(welcome); err != nil {
		s.log.Error().Err(err).Msg("Failed to send welcome message")
		return
	}

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.log.Info().Str("client", c.id).Msg("WebSocket client disconnected")
			return
		}
		s.log.Debug().Str("client", c.id).Msgf("Received message: %s", string(message))

		var msg clientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.log.Error().Err(err).Msg("Failed to parse client message")
			continue
		}
		if err := s.handleMessage(r.Context(), c, msg); err != nil {
			s.log.Warn().Err(err).Str("type", msg.Type).Msg("Command failed")
			reply, _ := json.Marshal(map[string]string{"type": "error", "command": msg.Type, "message": err.Error()})
			if err := c.send(reply); err != nil {
				return
			}
		}
	}
}

func (s *WebUIServer) handleMessage(ctx context.Context, c *client, msg clientMessage) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	switch msg.Type {
	case "getState":
		state, err := s.dispatcher.State(ctx)
		if err != nil {
			return err
		}
		data, err := json.Marshal(map[string]interface{}{"type": "state", "state": state})
		if err != nil {
			return err
		}
		return c.send(data)
	case "learn":
		group, err := control.ParseGroup(msg.Group)
		if err != nil {
			return err
		}
		return s.dispatcher.Call(ctx, func(controller *dispatch.Controller) error {
			return controller.ArmLearn(group, msg.Slot)
		})
	case "learnAll":
		group, err := control.ParseGroup(msg.Group)
		if err != nil {
			return err
		}
		return s.dispatcher.Call(ctx, func(controller *dispatch.Controller) error {
			return controller.ArmLearnAll(group)
		})
	case "cancelLearn":
		s.dispatcher.Do(func(controller *dispatch.Controller) { controller.CancelLearn() })
	case "knobMode":
		switch msg.Direction {
		case "next":
			s.dispatcher.Do((*dispatch.Controller).NextKnobMode)
		case "previous":
			s.dispatcher.Do((*dispatch.Controller).PreviousKnobMode)
		default:
			return fmt.Errorf("unknown direction %q", msg.Direction)
		}
	case "faderBank":
		switch msg.Direction {
		case "up":
			s.dispatcher.Do((*dispatch.Controller).ScrollBankUp)
		case "down":
			s.dispatcher.Do((*dispatch.Controller).ScrollBankDown)
		default:
			return fmt.Errorf("unknown direction %q", msg.Direction)
		}
	case "setRelative":
		s.dispatcher.Do(func(controller *dispatch.Controller) { controller.SetRelative(msg.Relative) })
		if s.configManager != nil {
			s.configManager.SetRelative(msg.Relative)
		}
	case "setEnabled":
		group, err := control.ParseGroup(msg.Group)
		if err != nil {
			return err
		}
		s.dispatcher.Do(func(controller *dispatch.Controller) { controller.SetGroupEnabled(group, msg.Enabled) })
		if s.configManager != nil {
			s.configManager.SetGroupEnabled(group, msg.Enabled)
		}
	case "setMonitor":
		s.dispatcher.Do(func(controller *dispatch.Controller) { controller.SetMonitor(msg.Enabled) })
	default:
		s.log.Debug().Str("type", msg.Type).Msg("Unknown message type")
	}
	return nil
}
