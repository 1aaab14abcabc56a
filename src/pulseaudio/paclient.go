// Package pulseaudio drives PulseAudio volumes from the faders.
package pulseaudio

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/the-jonsey/pulseaudio"

	"github.com/0h41/learnkontrol/src/configuration"
)

// Stream is one sink, source, sink input or source output.
type Stream struct {
	name     string
	fullName string
	paStream interface{}
}

func (s Stream) Name() string {
	return s.name
}

// backend is the part of the PulseAudio connection the mixer needs.
type backend interface {
	streams(targetType configuration.PulseAudioTargetType) ([]Stream, error)
	setVolume(stream Stream, volume float32)
	setDefaultSink(name string) error
}

type PAClient struct {
	log     zerolog.Logger
	context *pulseaudio.Client
}

func NewPAClient() (*PAClient, error) {
	context, err := pulseaudio.NewClient()
	if err != nil {
		return nil, fmt.Errorf("connect to pulseaudio: %w", err)
	}
	return &PAClient{
		log:     log.With().Str("module", "PulseAudio").Logger(),
		context: context,
	}, nil
}

func streamName(propList map[string]string) string {
	name := propList["application.name"]
	if len(name) < 1 {
		name = propList["media.name"]
	}
	return name
}

func (client *PAClient) streams(targetType configuration.PulseAudioTargetType) ([]Stream, error) {
	switch targetType {
	case configuration.OutputDevice:
		sinks, err := client.context.Sinks()
		if err != nil {
			return nil, err
		}
		return lo.Map(sinks, func(sink pulseaudio.Sink, i int) Stream {
			return Stream{name: sink.Description, fullName: sink.Name, paStream: sink}
		}), nil
	case configuration.InputDevice:
		sources, err := client.context.Sources()
		if err != nil {
			return nil, err
		}
		return lo.Map(sources, func(source pulseaudio.Source, i int) Stream {
			return Stream{name: source.Description, fullName: source.Name, paStream: source}
		}), nil
	case configuration.PlaybackStream:
		sinkInputs, err := client.context.SinkInputs()
		if err != nil {
			return nil, err
		}
		return lo.Map(sinkInputs, func(sinkInput pulseaudio.SinkInput, i int) Stream {
			return Stream{
				name:     streamName(sinkInput.PropList),
				fullName: sinkInput.PropList["module-stream-restore.id"],
				paStream: sinkInput,
			}
		}), nil
	case configuration.RecordStream:
		sourceOutputs, err := client.context.SourceOutputs()
		if err != nil {
			return nil, err
		}
		return lo.Map(sourceOutputs, func(sourceOutput pulseaudio.SourceOutput, i int) Stream {
			return Stream{
				name:     streamName(sourceOutput.PropList),
				fullName: sourceOutput.PropList["module-stream-restore.id"],
				paStream: sourceOutput,
			}
		}), nil
	}
	return nil, fmt.Errorf("unknown target type %q", targetType)
}

func (client *PAClient) setVolume(stream Stream, volume float32) {
	switch st := stream.paStream.(type) {
	case pulseaudio.Sink:
		st.SetVolume(volume)
	case pulseaudio.SinkInput:
		st.SetVolume(volume)
	case pulseaudio.Source:
		st.SetVolume(volume)
	case pulseaudio.SourceOutput:
		st.SetVolume(volume)
	default:
		return
	}
	client.log.Debug().Msgf("Set %s volume to %f", stream.name, volume)
}

func (client *PAClient) setDefaultSink(name string) error {
	// The pulseaudio library expects a name string, not a Sink object
	return client.context.SetDefaultSink(name)
}

// List logs every PulseAudio object a fader bank can address.
func (client *PAClient) List() error {
	labels := []struct {
		targetType configuration.PulseAudioTargetType
		label      string
	}{
		{configuration.OutputDevice, "output device"},
		{configuration.InputDevice, "input device"},
		{configuration.PlaybackStream, "playback stream"},
		{configuration.RecordStream, "record stream"},
	}
	for _, l := range labels {
		streams, err := client.streams(l.targetType)
		if err != nil {
			return err
		}
		lo.ForEach(streams, func(stream Stream, i int) {
			client.log.Info().Msgf("Found %s:\t%s", l.label, stream.name)
		})
	}
	if defaultSink, err := client.context.GetDefaultSink(); err == nil {
		client.log.Info().Msgf("Default output device:\t%s", defaultSink.Description)
	}
	return nil
}
