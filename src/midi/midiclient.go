package midi

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	driver "gitlab.com/gomidi/midi/v2/drivers/portmididrv"
)

// Sink receives raw messages in arrival order.
type Sink interface {
	Message(msg []byte)
	SysEx(data []byte)
}

const reconnectInterval = 5 * time.Second

func listDevices() ([]string, []string, error) {
	drv, err := driver.New()
	if err != nil {
		return nil, nil, fmt.Errorf("open midi driver: %w", err)
	}
	// make sure to close all open ports at the end
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, nil, err
	}
	outs, err := drv.Outs()
	if err != nil {
		return nil, nil, err
	}
	inNames := make([]string, 0, len(ins))
	outNames := make([]string, 0, len(outs))
	for _, port := range ins {
		inNames = append(inNames, port.String())
	}
	for _, port := range outs {
		outNames = append(outNames, port.String())
	}
	return inNames, outNames, nil
}

// List logs every MIDI port the driver can see.
func List() error {
	log := log.Logger.With().Str("module", "Midi").Logger()
	ins, outs, err := listDevices()
	if err != nil {
		return err
	}
	for _, port := range ins {
		log.Info().Msgf("Found midi in device:\t%s", port)
	}
	for _, port := range outs {
		log.Info().Msgf("Found midi out device:\t%s", port)
	}
	return nil
}

// MidiClient reads the configured input port and forwards every message to
// a Sink.
type MidiClient struct {
	log    zerolog.Logger
	inPort string
	sink   Sink
}

func NewMidiClient(deviceName string, inPort string, sink Sink) *MidiClient {
	if inPort == "" {
		inPort = deviceName
	}
	return &MidiClient{
		log:    log.With().Str("module", "Midi").Str("device", deviceName).Logger(),
		inPort: inPort,
		sink:   sink,
	}
}

// onMessage routes one message from the driver. System exclusive data goes
// to the sysex path, everything else is forwarded as is.
func (client *MidiClient) onMessage(message gomidi.Message, timestampMs int32) {
	if message.Type() == gomidi.SysExMsg {
		var data []byte
		if message.GetSysEx(&data) {
			client.sink.SysEx(data)
		}
		return
	}
	client.log.Trace().Msgf("Received MIDI message (%s)", message.String())
	client.sink.Message(message)
}

// Run listens on the input port until ctx is cancelled. A missing port is
// retried periodically so the controller can be plugged in later.
func (client *MidiClient) Run(ctx context.Context) error {
	drv, err := driver.New()
	if err != nil {
		return fmt.Errorf("open midi driver: %w", err)
	}
	// make sure to close all open ports at the end
	defer drv.Close()

	for {
		in, err := gomidi.FindInPort(client.inPort)
		if err == nil {
			return client.listen(ctx, in)
		}
		client.log.Warn().Msgf("Could not find MIDI In %s, retrying in %s", client.inPort, reconnectInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectInterval):
		}
	}
}

func (client *MidiClient) listen(ctx context.Context, port drivers.In) error {
	if err := port.Open(); err != nil {
		return fmt.Errorf("open midi in %s: %w", port.String(), err)
	}
	defer port.Close()

	stop, err := gomidi.ListenTo(port, client.onMessage, gomidi.UseSysEx())
	if err != nil {
		return fmt.Errorf("listen to %s: %w", port.String(), err)
	}
	defer stop()
	client.log.Info().Str("port", port.String()).Msg("Listening")

	<-ctx.Done()
	return nil
}
