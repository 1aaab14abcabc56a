package pulseaudio

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0h41/learnkontrol/src/configuration"
	"github.com/0h41/learnkontrol/src/host"
)

type fakeBackend struct {
	list        []Stream
	err         error
	volumes     map[string]float32
	defaultSink string
}

func newFakeBackend(count int) *fakeBackend {
	b := &fakeBackend{volumes: map[string]float32{}}
	for i := 0; i < count; i++ {
		b.list = append(b.list, Stream{name: fmt.Sprintf("App %d", i), fullName: fmt.Sprintf("sink-input-%d", i)})
	}
	return b
}

func (b *fakeBackend) streams(configuration.PulseAudioTargetType) ([]Stream, error) {
	return b.list, b.err
}

func (b *fakeBackend) setVolume(stream Stream, volume float32) {
	b.volumes[stream.name] = volume
}

func (b *fakeBackend) setDefaultSink(name string) error {
	b.defaultSink = name
	return nil
}

func TestMixerFaderSetsVolume(t *testing.T) {
	backend := newFakeBackend(3)
	mixer := newMixer(backend, configuration.PlaybackStream, 8)

	channel := mixer.Channel(2)
	require.NotNil(t, channel)
	channel.Volume().Set(127, host.Resolution)
	assert.Equal(t, float32(1), backend.volumes["App 2"])

	mixer.Channel(0).Volume().Set(0, host.Resolution)
	assert.Equal(t, float32(0), backend.volumes["App 0"])

	assert.Nil(t, mixer.Channel(3))
	assert.Nil(t, mixer.Channel(8))
}

func TestMixerRelativeVolume(t *testing.T) {
	backend := newFakeBackend(1)
	mixer := newMixer(backend, configuration.PlaybackStream, 8)
	volume := mixer.Channel(0).Volume()

	volume.Set(100, host.Resolution)
	volume.Inc(27, host.Resolution)
	assert.Equal(t, float32(1), backend.volumes["App 0"])

	volume.Inc(-127, host.Resolution)
	volume.Inc(-5, host.Resolution)
	assert.Equal(t, float32(0), backend.volumes["App 0"])
}

func TestMixerBank(t *testing.T) {
	backend := newFakeBackend(10)
	mixer := newMixer(backend, configuration.PlaybackStream, 8)

	mixer.ScrollChannelsDown()
	assert.Equal(t, 8, mixer.Offset())
	assert.Equal(t, "App 9", mixer.Channel(1).Volume().Name())
	assert.Nil(t, mixer.Channel(2))

	mixer.ScrollChannelsDown()
	assert.Equal(t, 8, mixer.Offset(), "no bank past the last stream")

	mixer.ScrollChannelsUp()
	mixer.ScrollChannelsUp()
	assert.Equal(t, 0, mixer.Offset())
}

func TestMixerSelect(t *testing.T) {
	backend := newFakeBackend(2)
	outputs := newMixer(backend, configuration.OutputDevice, 8)
	outputs.Channel(1).Select()
	assert.Equal(t, "sink-input-1", backend.defaultSink)
	assert.Equal(t, "App 1", outputs.Selected())

	backend.defaultSink = ""
	streams := newMixer(backend, configuration.PlaybackStream, 8)
	streams.Channel(0).Select()
	assert.Empty(t, backend.defaultSink)
	assert.Equal(t, "App 0", streams.Selected())
}

func TestMixerBackendError(t *testing.T) {
	backend := newFakeBackend(2)
	backend.err = errors.New("connection refused")
	mixer := newMixer(backend, configuration.PlaybackStream, 8)
	assert.Nil(t, mixer.Channel(0))
}
