package learnkontrol

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/DavidGamba/go-getoptions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/0h41/learnkontrol/src/configuration"
	"github.com/0h41/learnkontrol/src/control"
	"github.com/0h41/learnkontrol/src/dispatch"
	"github.com/0h41/learnkontrol/src/host"
	"github.com/0h41/learnkontrol/src/midi"
	"github.com/0h41/learnkontrol/src/pulseaudio"
	"github.com/0h41/learnkontrol/src/webui"
)

var (
	commit    string
	version   string
	buildTime string
)

const (
	bankSize   = 8
	loopBuffer = 256
)

type options struct {
	webAddr string
	noWebUI bool
	monitor bool
}

type app struct {
	log           zerolog.Logger
	configManager *configuration.ConfigManager
	device        *host.VirtualDevice
	mixer         host.Mixer
	controller    *dispatch.Controller
	loop          *dispatch.Loop
	web           *webui.WebUIServer
	midiClient    *midi.MidiClient
}

func Run() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Parse command line
	opt := getoptions.New()
	opt.Self("", "MIDI-learn a control surface and drive a DAW-like host with it")
	opt.HelpSynopsisArg("", "")
	opt.HelpCommand("help", opt.Alias("h"), opt.Description("Show this help"))
	configPath := opt.StringOptional("config", "", opt.Alias("c"), opt.Description("Configuration file"))
	opt.Bool("list-midi", false, opt.Alias("m"), opt.Description("List MIDI ports"))
	opt.Bool("list-pulse", false, opt.Alias("p"), opt.Description("List PulseAudio objects"))
	opt.Bool("version", false, opt.Alias("v"), opt.Description("Show version"))
	opt.Bool("no-webui", false, opt.Description("Disable web interface"))
	webAddr := opt.StringOptional("web-addr", "127.0.0.1:6080", opt.Description("Web interface address:port"))
	opt.Bool("monitor", false, opt.Description("Log every incoming MIDI message"))
	opt.Bool("debug", false, opt.Alias("d"), opt.Description("Debug logging"))
	if _, err := opt.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n\n%s", err, opt.Help())
		os.Exit(1)
	}
	if opt.Called("help") {
		fmt.Fprint(os.Stderr, opt.Help())
		os.Exit(0)
	}
	if opt.Called("version") {
		fmt.Printf("Version %s, commit %s, built on %s\n", version, commit, buildTime)
		os.Exit(0)
	}
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if opt.Called("debug") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if opt.Called("list-midi") {
		if err := midi.List(); err != nil {
			log.Fatal().Err(err).Msg("Could not list MIDI ports")
		}
		os.Exit(0)
	}
	if opt.Called("list-pulse") {
		paClient, err := pulseaudio.NewPAClient()
		if err == nil {
			err = paClient.List()
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Could not list PulseAudio objects")
		}
		os.Exit(0)
	}

	// Configuration
	config, path, err := configuration.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Configuration error")
	}
	log.Info().Msgf("Loaded configuration from %s", path)
	configManager := configuration.NewConfigManager(config, path)

	a, err := newApp(configManager, options{
		webAddr: *webAddr,
		noWebUI: opt.Called("no-webui"),
		monitor: opt.Called("monitor"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Startup failed")
	}

	ctx, cancel := setupSignalHandling()
	defer cancel()
	if err := a.run(ctx); err != nil {
		log.Error().Err(err).Msg("Stopped")
	}
	if err := configManager.Flush(); err != nil {
		log.Error().Err(err).Msg("Failed to save configuration")
	}
}

func newMixer(config configuration.Config) (host.Mixer, error) {
	switch config.Mixer.Backend {
	case configuration.PulseAudioMixer:
		paClient, err := pulseaudio.NewPAClient()
		if err != nil {
			return nil, err
		}
		return pulseaudio.NewMixer(paClient, config.Mixer.TargetType, bankSize), nil
	case configuration.VirtualMixer:
		return host.NewVirtualMixer(config.Mixer.Tracks, bankSize), nil
	}
	return nil, fmt.Errorf("unknown mixer backend %q", config.Mixer.Backend)
}

func newApp(configManager *configuration.ConfigManager, opts options) (*app, error) {
	config := configManager.GetConfig()
	a := &app{
		log:           log.With().Str("module", "Main").Logger(),
		configManager: configManager,
		device:        host.NewVirtualDevice(config.VirtualDevice.Pages),
	}

	mixer, err := newMixer(config)
	if err != nil {
		return nil, err
	}
	a.mixer = mixer

	notifiers := host.Notifiers{host.NewLogNotifier()}
	dispatchOptions := dispatch.Options{
		LearnTimeout: config.Learn.Timeout,
		Relative:     config.Controls.Knobs.Relative,
		Monitor:      opts.monitor,
		OnCommit:     configManager.SetBinding,
	}
	if !opts.noWebUI {
		a.web = webui.NewWebUIServer(opts.webAddr, configManager)
		notifiers = append(notifiers, a.web)
		dispatchOptions.OnMonitor = a.web.BroadcastMonitor
		dispatchOptions.OnChange = a.web.BroadcastState
		for _, topic := range []string{configuration.BindingUpdated, configuration.GroupUpdated, configuration.Reloaded} {
			topic := topic
			configManager.Subscribe(topic, func(data interface{}) {
				a.web.NotifyConfigUpdate(topic, data)
			})
		}
	}

	h := host.Host{
		Transport: host.NewVirtualTransport(),
		Device:    a.device,
		Mixer:     mixer,
		Notifier:  notifiers,
	}
	a.controller = dispatch.NewController(h, control.NewTable(config.Sizes()), dispatchOptions)
	a.apply(a.controller, config)
	a.loop = dispatch.NewLoop(a.controller, loopBuffer)
	if a.web != nil {
		a.web.Attach(a.loop)
	}

	configManager.Subscribe(configuration.Reloaded, func(data interface{}) {
		config := data.(configuration.Config)
		a.loop.Do(func(c *dispatch.Controller) { a.apply(c, config) })
	})

	a.midiClient = midi.NewMidiClient(config.Device.Name, config.Device.InPort, a.loop)
	return a, nil
}

// apply pushes a configuration into the controller. Slot counts are fixed
// for the life of the process; a changed count is only reported.
func (a *app) apply(c *dispatch.Controller, config configuration.Config) {
	table := c.Table()
	for _, group := range control.Groups {
		groupConfig := config.Controls.Group(group)
		if size := groupConfig.Size(group); size != table.Size(group) {
			a.log.Warn().
				Str("group", group.String()).
				Int("current", table.Size(group)).
				Int("configured", size).
				Msg("Slot count changes need a restart")
		}
		c.SetGroupEnabled(group, groupConfig.Enabled)
		c.LoadBindings(group, groupConfig.Bindings(table.Size(group)))
	}
	c.SetRelative(config.Controls.Knobs.Relative)
	c.SetLearnTimeout(config.Learn.Timeout)

	if pages := config.VirtualDevice.Pages; !slices.Equal(a.device.PageNames(), pages) {
		a.device.SetPages(pages)
		c.DeviceChanged(pages, false)
	}
}

// run starts every component and waits until ctx is cancelled or one of
// them fails.
func (a *app) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 4)
	start := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	start("dispatch", a.loop.Run)
	start("midi", a.midiClient.Run)
	start("config", a.configManager.Watch)
	if a.web != nil {
		start("webui", a.web.Start)
		a.log.Info().Msgf("Web interface available at http://%s", a.web.Addr)
	}

	<-ctx.Done()
	wg.Wait()
	close(errs)
	return <-errs
}

func setupSignalHandling() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Info().Msgf("Received signal %s, shutting down...", sig)
		cancel()
	}()
	return ctx, cancel
}
