package configuration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/0h41/learnkontrol/src/control"
)

// Topics published by ConfigManager.
const (
	BindingUpdated = "binding.updated"
	GroupUpdated   = "group.updated"
	Reloaded       = "config.reloaded"
)

// BindingUpdate is published on BindingUpdated.
type BindingUpdate struct {
	Group string `json:"group"`
	Slot  int    `json:"slot"`
	CC    int    `json:"cc"`
}

// GroupUpdate is published on GroupUpdated.
type GroupUpdate struct {
	Group    string `json:"group"`
	Enabled  bool   `json:"enabled"`
	Relative bool   `json:"relative"`
}

const defaultSaveDelay = 2 * time.Second

// ConfigManager handles the runtime configuration with persistence
type ConfigManager struct {
	log           zerolog.Logger
	mu            sync.Mutex
	config        Config
	configPath    string
	saveMutex     sync.Mutex
	saveDelay     time.Duration
	saveDebouncer *time.Timer
	lastWritten   []byte
	subscribers   map[string][]func(interface{})
}

// NewConfigManager creates a new configuration manager with the loaded configuration
func NewConfigManager(config Config, configPath string) *ConfigManager {
	return &ConfigManager{
		log:         log.With().Str("module", "Config").Logger(),
		config:      config,
		configPath:  configPath,
		saveDelay:   defaultSaveDelay,
		subscribers: make(map[string][]func(interface{})),
	}
}

// GetConfig returns a copy of the current configuration
func (cm *ConfigManager) GetConfig() Config {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return cm.config
}

func (cm *ConfigManager) Path() string {
	return cm.configPath
}

// SetSaveDelay changes the debounce delay of SaveWithDebounce.
func (cm *ConfigManager) SetSaveDelay(delay time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.saveDelay = delay
}

// Subscribe registers a callback for configuration changes
func (cm *ConfigManager) Subscribe(topic string, callback func(interface{})) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.subscribers[topic] = append(cm.subscribers[topic], callback)
}

// Notify sends updates to subscribers
func (cm *ConfigManager) Notify(topic string, data interface{}) {
	cm.mu.Lock()
	callbacks := append(([]func(interface{}))(nil), cm.subscribers[topic]...)
	cm.mu.Unlock()
	for _, callback := range callbacks {
		callback(data)
	}
}

// SetBinding stores a learned CC and schedules a save.
func (cm *ConfigManager) SetBinding(group control.Group, slot int, cc uint8) {
	cm.mu.Lock()
	groupConfig := cm.config.Controls.Group(group)
	ccs := make([]int, max(len(groupConfig.CCs), slot+1))
	copy(ccs, groupConfig.CCs)
	ccs[slot] = int(cc)
	groupConfig.CCs = ccs
	cm.mu.Unlock()

	cm.log.Debug().Str("group", group.String()).Int("slot", slot).Uint8("cc", cc).Msg("Binding updated")
	cm.Notify(BindingUpdated, BindingUpdate{Group: group.String(), Slot: slot, CC: int(cc)})
	cm.SaveWithDebounce()
}

func (cm *ConfigManager) SetGroupEnabled(group control.Group, enabled bool) {
	cm.mu.Lock()
	groupConfig := cm.config.Controls.Group(group)
	groupConfig.Enabled = enabled
	update := GroupUpdate{Group: group.String(), Enabled: enabled, Relative: groupConfig.Relative}
	cm.mu.Unlock()

	cm.Notify(GroupUpdated, update)
	cm.SaveWithDebounce()
}

// SetRelative switches the knobs between absolute and relative decoding.
func (cm *ConfigManager) SetRelative(relative bool) {
	cm.mu.Lock()
	cm.config.Controls.Knobs.Relative = relative
	update := GroupUpdate{Group: control.Knob.String(), Enabled: cm.config.Controls.Knobs.Enabled, Relative: relative}
	cm.mu.Unlock()

	cm.Notify(GroupUpdated, update)
	cm.SaveWithDebounce()
}

// SaveWithDebounce schedules a save after a brief delay, debouncing multiple rapid changes
func (cm *ConfigManager) SaveWithDebounce() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.saveDebouncer != nil {
		cm.saveDebouncer.Stop()
	}
	cm.saveDebouncer = time.AfterFunc(cm.saveDelay, func() {
		if err := cm.SaveNow(); err != nil {
			cm.log.Error().Err(err).Msg("Failed to save configuration")
		}
	})
}

// Flush writes a pending debounced save immediately.
func (cm *ConfigManager) Flush() error {
	cm.mu.Lock()
	pending := cm.saveDebouncer != nil && cm.saveDebouncer.Stop()
	cm.mu.Unlock()
	if !pending {
		return nil
	}
	return cm.SaveNow()
}

// SaveNow immediately saves the configuration to disk
func (cm *ConfigManager) SaveNow() error {
	cm.saveMutex.Lock()
	defer cm.saveMutex.Unlock()

	cm.log.Debug().Msg("Saving configuration to disk")
	config := cm.GetConfig()
	data, err := yaml.Marshal(&config)
	if err != nil {
		return fmt.Errorf("failed to marshal configuration: %w", err)
	}

	// Write to temporary file first, then rename over the config
	tempPath := cm.configPath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tempPath, err)
	}
	cm.mu.Lock()
	cm.lastWritten = data
	cm.mu.Unlock()
	if err := os.Rename(tempPath, cm.configPath); err != nil {
		return fmt.Errorf("failed to rename %s: %w", tempPath, err)
	}

	cm.log.Info().Str("path", cm.configPath).Msg("Configuration saved")
	return nil
}

// Reload reads the file again. Content this manager wrote itself is
// skipped. It reports whether a new configuration was taken over.
func (cm *ConfigManager) Reload() (bool, error) {
	content, err := os.ReadFile(cm.configPath)
	if err != nil {
		return false, err
	}
	cm.mu.Lock()
	own := bytes.Equal(content, cm.lastWritten)
	cm.mu.Unlock()
	if own {
		return false, nil
	}

	config, err := Parse(content)
	if err != nil {
		return false, err
	}
	cm.mu.Lock()
	cm.config = config
	cm.lastWritten = content
	cm.mu.Unlock()

	cm.log.Info().Str("path", cm.configPath).Msg("Configuration reloaded")
	cm.Notify(Reloaded, config)
	return true, nil
}

// Watch reloads the configuration whenever the file changes on disk, until
// ctx is cancelled. The directory is watched since saves replace the file.
func (cm *ConfigManager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(cm.configPath)); err != nil {
		return fmt.Errorf("could not watch %s: %w", cm.configPath, err)
	}
	target := filepath.Clean(cm.configPath)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if _, err := cm.Reload(); err != nil {
				cm.log.Warn().Err(err).Msg("Ignoring invalid configuration change")
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cm.log.Error().Err(err).Msg("Watcher error")
		}
	}
}
