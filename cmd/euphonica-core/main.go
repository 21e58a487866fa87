// Command euphonica-core wires together the connection manager,
// metadata cache, provider pipeline, and spectrum analyzer into a
// single long-running process: the headless core a UI shell talks to.
// Grounded on the teacher's cmd/ingest/main.go (cobra root command,
// flag-overridable env defaults, RunE entry point).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"euphonica-core/internal/cache"
	"euphonica-core/internal/config"
	"euphonica-core/internal/credentials"
	"euphonica-core/internal/discovery"
	"euphonica-core/internal/eventbus"
	"euphonica-core/internal/mpdconn"
	"euphonica-core/internal/providers"
	"euphonica-core/internal/spectrum"

	"github.com/spf13/cobra"
)

var (
	flagConfigPath string
	flagDataDir    string
	flagHost       string
	flagPort       int
	flagPassword   string
	flagDiscover   bool
)

var rootCmd = &cobra.Command{
	Use:   "euphonica-core",
	Short: "Headless MPD client core: connection, cache, enrichment, and spectrum analysis",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagConfigPath, "config", config.Env("EUPHONICA_CONFIG", ""), "Path to a YAML config file (defaults built in)")
	rootCmd.Flags().StringVar(&flagDataDir, "data-dir", config.Env("EUPHONICA_DATA_DIR", defaultDataDir()), "Directory for the metadata cache database and cached images")
	rootCmd.Flags().StringVar(&flagHost, "mpd-host", "", "Override the configured MPD host")
	rootCmd.Flags().IntVar(&flagPort, "mpd-port", 0, "Override the configured MPD port")
	rootCmd.Flags().StringVar(&flagPassword, "mpd-password", "", "MPD password (overrides the OS credential store)")
	rootCmd.Flags().BoolVar(&flagDiscover, "discover", false, "Browse mDNS for MPD daemons and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func defaultDataDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "euphonica-core")
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flagDiscover {
		return runDiscover(ctx)
	}

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flagHost != "" {
		cfg.Connection.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Connection.Port = flagPort
	}

	if err := os.MkdirAll(flagDataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %q: %w", flagDataDir, err)
	}

	creds := credentials.New()
	password := flagPassword
	if password == "" {
		password, err = creds.DaemonPassword()
		if err != nil {
			slog.Warn("reading daemon password from credential store failed", "err", err)
		}
	}

	bus := eventbus.New()

	mgr := mpdconn.New(fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port), password, cfg.Connection.PingInterval, bus)
	if err := mgr.Connect(ctx); err != nil {
		slog.Warn("initial MPD connection failed, will retry on command use", "err", err)
	}
	defer mgr.Disconnect()

	controller, pipeline, err := wireCacheAndProviders(ctx, cfg, bus, mgr, creds)
	if err != nil {
		return fmt.Errorf("wire cache/providers: %w", err)
	}
	defer pipeline.Stop()

	analyzer := wireSpectrum(cfg, bus)
	if err := analyzer.Start(); err != nil {
		slog.Warn("spectrum analyzer unavailable at startup", "err", err)
	}
	defer analyzer.Stop(false)

	slog.Info("euphonica-core ready",
		"mpd", fmt.Sprintf("%s:%d", cfg.Connection.Host, cfg.Connection.Port),
		"data_dir", flagDataDir,
	)
	_ = controller // kept alive via the daemon provider's task runner and the pipeline's schedule calls

	go logBusEvents(ctx, bus)

	<-ctx.Done()
	slog.Info("shutting down")
	return nil
}

// logBusEvents is the minimal UI-context stand-in (spec.md §5): the
// single consumer that logs the connection-state, queue-changed,
// spectrum-status and error topics; other topics are not subscribed.
// A real UI shell subscribes per-topic instead of logging.
func logBusEvents(ctx context.Context, bus *eventbus.Bus) {
	topics := []eventbus.Topic{
		eventbus.TopicConnectionState,
		eventbus.TopicQueueChanged,
		eventbus.TopicSpectrumStatus,
		eventbus.TopicError,
	}
	for _, topic := range topics {
		ch, unsub := bus.Subscribe(topic)
		defer unsub()
		go func(topic eventbus.Topic, ch <-chan eventbus.Event) {
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					slog.Debug("event", "topic", topic, "payload", ev.Payload)
				}
			}
		}(topic, ch)
	}
	<-ctx.Done()
}

func runDiscover(ctx context.Context) error {
	daemons, err := discovery.Browse(ctx, 3*time.Second)
	if err != nil {
		return fmt.Errorf("discover: %w", err)
	}
	if len(daemons) == 0 {
		fmt.Println("no MPD daemons found")
		return nil
	}
	for _, d := range daemons {
		fmt.Printf("%s\t%s:%d\n", d.Name, d.Host, d.Port)
	}
	return nil
}

// wireCacheAndProviders builds the metadata cache (spec.md §4.2) and
// the provider pipeline (spec.md §4.3), resolving their mutual
// construction dependency via providers.DeferredScheduler.
func wireCacheAndProviders(ctx context.Context, cfg config.Config, bus *eventbus.Bus, mgr *mpdconn.Manager, creds *credentials.Store) (*cache.Controller, *providers.Pipeline, error) {
	store, err := cache.Open(ctx, filepath.Join(flagDataDir, "metadata.sqlite"))
	if err != nil {
		return nil, nil, fmt.Errorf("open cache db: %w", err)
	}

	images, err := cache.NewImageStore(filepath.Join(flagDataDir, "albumart"), cfg.Library.HiResImageSize, cfg.Library.ThumbnailImageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("open cover image store: %w", err)
	}
	avatars, err := cache.NewImageStore(filepath.Join(flagDataDir, "avatar"), cfg.Library.HiResImageSize, cfg.Library.ThumbnailImageSize)
	if err != nil {
		return nil, nil, fmt.Errorf("open avatar image store: %w", err)
	}

	// The budget is in cost units, not bytes: each thumbnail costs
	// cache.ThumbnailCost and each hi-res image cache.HiResCost, so
	// 64<<20 units admit about 67 million thumbnails.
	lru := cache.NewTextureLRU(64 << 20)

	deferred := &providers.DeferredScheduler{}
	controller := cache.NewController(store, images, avatars, lru, bus, deferred, cfg.Library.MetadataMaxAge)

	daemon := providers.NewDaemonProvider(mgr)

	var mb *providers.MusicBrainzProvider
	var remote []providers.Provider
	for _, pc := range cfg.Providers {
		switch pc.Key {
		case "musicbrainz":
			mb = providers.NewMusicBrainzProvider(userAgent(), pc.MinRequestDelay, pc.Priority)
			mb.SetEnabled(pc.Enabled)
			remote = append(remote, mb)
		case "lyrics":
			lp := providers.NewLyricsProvider(userAgent(), pc.MinRequestDelay, pc.Priority)
			lp.SetEnabled(pc.Enabled)
			remote = append(remote, lp)
		case "mpd":
			// Handled separately: daemon cover fetches bypass the
			// generic daisy chain (spec.md §4.3).
		default:
			if apiKey, err := creds.ProviderAPIKey(pc.Key); err != nil {
				slog.Warn("reading provider API key failed", "provider", pc.Key, "err", err)
			} else if apiKey == "" {
				slog.Debug("unrecognized provider in config, skipping", "provider", pc.Key)
			}
		}
	}

	pipeline := providers.NewPipeline(controller, daemon, remote, mb, providers.PipelineConfig{})
	deferred.Bind(pipeline)

	return controller, pipeline, nil
}

func userAgent() string {
	return "euphonica-core/1.0 (+https://github.com/euphonica/euphonica-core)"
}

// wireSpectrum builds the Audio Spectrum Analyzer (spec.md §4.4). The
// named-pipe backend is preferred whenever a FIFO path and format are
// configured; otherwise it falls back to local audio-graph capture.
func wireSpectrum(cfg config.Config, bus *eventbus.Bus) *spectrum.Analyzer {
	params := spectrum.Params{
		FPS:            cfg.Player.FPS,
		NSamples:       cfg.Player.FFTSamples,
		NBins:          cfg.Player.Bins,
		MinHz:          cfg.Player.MinHz,
		MaxHz:          cfg.Player.MaxHz,
		SmoothingAlpha: cfg.Player.SmoothingAlpha,
	}
	if cfg.Player.LogBins {
		params.BinMode = spectrum.BinLogarithmic
	} else {
		params.BinMode = spectrum.BinLinear
	}

	var backend spectrum.Backend
	if cfg.Connection.FIFOPath != "" && cfg.Connection.FIFOFormat != "" {
		format, err := spectrum.ParsePCMFormat(cfg.Connection.FIFOFormat)
		if err != nil {
			slog.Warn("invalid fifo_format, falling back to audio-graph capture", "err", err)
			backend = spectrum.NewCaptureBackend(44100)
		} else {
			backend = spectrum.NewFifoBackend(cfg.Connection.FIFOPath, format, false)
		}
	} else {
		backend = spectrum.NewCaptureBackend(44100)
	}

	return spectrum.NewAnalyzer(backend, bus, params)
}
