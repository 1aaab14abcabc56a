package configuration

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/0h41/learnkontrol/src/control"
)

const appName = "learnkontrol"

func intPtr(v int) *int {
	return &v
}

// Default KORG nanoKONTROL2 configuration. Nothing is learned yet.
func GetDefaultConfig() Config {
	unbound := func(group control.Group) []int {
		return lo.Map(lo.Range(group.MaxSize()), func(int, int) int { return 0 })
	}
	enabled := func(group control.Group) GroupConfig {
		return GroupConfig{Enabled: true, CCs: unbound(group)}
	}
	return Config{
		Device: DeviceConfig{
			Name:   "KORG nanoKONTROL2",
			InPort: "nanoKONTROL2 nanoKONTROL2 _ CTR",
		},
		Learn: LearnConfig{Timeout: 30 * time.Second},
		Mixer: MixerConfig{
			Backend:    VirtualMixer,
			TargetType: PlaybackStream,
			Tracks:     16,
		},
		VirtualDevice: VirtualDeviceConfig{
			Pages: []string{"Oscillator", "Filter", "Amp", "FX"},
		},
		Controls: Controls{
			Transport:        enabled(control.Transport),
			Knobs:            enabled(control.Knob),
			Faders:           enabled(control.Fader),
			TrackButtons:     enabled(control.TrackButton),
			KnobModeButtons:  GroupConfig{Enabled: true, Count: intPtr(2), CCs: unbound(control.KnobModeButton)},
			FaderBankButtons: GroupConfig{Enabled: true, Count: intPtr(2), CCs: unbound(control.FaderBankButton)},
		},
	}
}

// DefaultPath is where a new configuration is written when none exists.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", appName, "config.yaml")
}

// Load reads the configuration from path, or from the first of
// ./config.yaml and ~/.config/learnkontrol/config.yaml when path is empty.
// A default configuration is written when no file exists.
func Load(path string) (Config, string, error) {
	paths := []string{"./config.yaml", DefaultPath()}
	if path != "" {
		paths = []string{path}
	}

	for _, candidate := range paths {
		content, err := os.ReadFile(candidate)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return Config{}, candidate, fmt.Errorf("could not read config: %w", err)
		}
		config, err := Parse(content)
		if err != nil {
			return Config{}, candidate, fmt.Errorf("%s: %w", candidate, err)
		}
		return config, candidate, nil
	}

	// If no config found, create a default one
	configPath := paths[len(paths)-1]
	config := GetDefaultConfig()
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return config, "", fmt.Errorf("could not create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return config, "", fmt.Errorf("failed to marshal default config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return config, "", fmt.Errorf("failed to write default config: %w", err)
	}
	return config, configPath, nil
}

// Parse validates content against the schema and decodes it.
func Parse(content []byte) (Config, error) {
	if err := Validate(content); err != nil {
		return Config{}, err
	}
	var config Config
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, fmt.Errorf("error parsing config: %w", err)
	}
	ensureDefaults(&config)
	return config, nil
}

// Set default values for any missing parts of the config
func ensureDefaults(config *Config) {
	if config.Device.InPort == "" {
		config.Device.InPort = config.Device.Name
	}
	if config.Mixer.Backend == "" {
		config.Mixer.Backend = VirtualMixer
	}
	if config.Mixer.TargetType == "" {
		config.Mixer.TargetType = PlaybackStream
	}
	if config.Mixer.Tracks == 0 {
		config.Mixer.Tracks = 16
	}
	if config.Learn.Timeout < 0 {
		config.Learn.Timeout = 0
	}
}
