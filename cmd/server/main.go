package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	flag "github.com/spf13/pflag"

	"linkwatch/internal/adapter"
	"linkwatch/internal/auth"
	"linkwatch/internal/codec"
	"linkwatch/internal/config"
	"linkwatch/internal/domain"
	"linkwatch/internal/handler"
	"linkwatch/internal/hub"
	"linkwatch/internal/loader"
	"linkwatch/internal/metrics"
	"linkwatch/internal/repository"
	"linkwatch/internal/repository/sqlite"
	"linkwatch/internal/service"
	"linkwatch/internal/watcher"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "", "config file path (default: search $LINKWATCH_CONFIG, ./linkwatch.yaml, ...)")
	topologyFlag := flag.String("topology", "", "topology YAML file (default: config topology.path, stored topology, then built-in lab)")
	dbFlag := flag.String("db", "", "SQLite database path, \"none\" to disable persistence")
	listenFlag := flag.String("listen", "", "HTTP listen address")
	onceFlag := flag.Bool("once", false, "run a single monitoring pass, print edge status and exit")
	formatFlag := flag.String("format", "json", "output format for --once (json, yaml, table)")
	baselineFlag := flag.String("baseline", "", "snapshot from an earlier --once run; edges that changed since are logged")
	printTokenFlag := flag.Bool("print-token", false, "print an operator token and exit")
	operatorFlag := flag.String("operator", "operator", "operator name embedded in --print-token tokens")
	initConfigFlag := flag.Bool("init-config", false, "write a default config file and exit")
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	// godotenv does not override existing env vars
	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verboseFlag {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
	slog.SetDefault(logger)

	if *initConfigFlag {
		return initConfig(*configFlag)
	}

	cfg, cfgPath, err := loadConfig(*configFlag)
	if err != nil {
		return err
	}
	if *topologyFlag != "" {
		cfg.Topology.Path = *topologyFlag
	}
	if *dbFlag != "" {
		cfg.Database.Path = *dbFlag
	}
	if *listenFlag != "" {
		cfg.Server.Listen = *listenFlag
	}

	var signer *auth.Signer
	if cfg.AuthEnabled() {
		signer = auth.NewSigner(cfg.Auth.Secret)
	}

	if *printTokenFlag {
		if signer == nil {
			return fmt.Errorf("%w: set auth.secret or %s", auth.ErrNoSecret, config.EnvAuthSecret)
		}
		token, err := signer.Generate(*operatorFlag, cfg.TokenTTL())
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		fmt.Println(token)
		return nil
	}

	if cfgPath != "" {
		logger.Info("config loaded", "path", cfgPath)
	}
	logger.Debug("effective config", "summary", cfg.Summary())
	metrics.BuildInfo.WithLabelValues(version, commit).Set(1)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.TopologyStore
	if cfg.Database.Path != "" && cfg.Database.Path != "none" {
		repo, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer repo.Close()
		store = repo
		logger.Info("database opened", "path", cfg.Database.Path)
	}

	topo, err := loadTopology(ctx, cfg.Topology.Path, store, logger)
	if err != nil {
		return err
	}

	timing := cfg.EffectiveTiming()
	routerProbe := adapter.NewRouterProbe(adapter.Timing{
		Dial:      timing.DialTimeout,
		Prompt:    timing.PromptTimeout,
		Page:      timing.PageTimeout,
		Ping:      timing.PingTimeout,
		Liveness:  timing.LivenessTimeout,
		LocalPing: timing.LocalPingTimeout,
	}, logger)
	localProbe := adapter.NewLocalProbe(timing.LocalPingTimeout, logger)

	mc, err := service.NewMonitoringContext(topo, routerProbe, localProbe)
	if err != nil {
		return fmt.Errorf("build monitoring context: %w", err)
	}

	clock := clockwork.NewRealClock()
	bus := service.NewEventBus()
	monitor := service.NewHealthMonitor(mc, bus, clock, logger)

	if *onceFlag {
		return runOnce(ctx, monitor, *formatFlag, *baselineFlag, clock, logger)
	}

	diag := service.NewDiagnosticsService(monitor, routerProbe, bus, clock, logger)
	caps := cfg.Capabilities

	sseHub := hub.New(logger)
	go sseHub.Run(ctx)
	sinks := []hub.Sink{sseHub}

	var wsHub *hub.WSHub
	if caps.Optional.WebSocket.Enabled {
		wsHub = hub.NewWSHub(cfg.Server.CORSOrigins, logger)
		sinks = append(sinks, wsHub)
	}

	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	defer bus.Unsubscribe(events)
	go hub.Forward[service.Event](ctx, events, sinks...)

	opts := handler.RouterOptions{
		CORSOrigins: cfg.Server.CORSOrigins,
		Signer:      signer,
		Events:      sseHub,
		Metrics:     caps.Optional.Metrics.Enabled,
		Diagnostics: caps.Optional.Diagnostics.Enabled,
		Logger:      logger,
	}
	if wsHub != nil {
		opts.WebSocket = wsHub
	}
	h := handler.New(monitor, diag, store, logger)

	server := &http.Server{
		Addr:        cfg.Server.Listen,
		Handler:     handler.NewRouter(h, opts),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	var scheduler *service.Scheduler
	if caps.Optional.Scheduler.Enabled {
		scheduler = service.NewScheduler(monitor, timing.MonitorInterval, clock, logger)
		scheduler.Start(ctx)
	}

	if caps.Optional.Watch.Enabled && cfg.Topology.Path != "" {
		reloader := service.NewReloader(monitor, routerProbe, localProbe, loader.LoadYAML, store, clock, logger)
		w := watcher.New(cfg.Topology.Path, func() {
			if err := reloader.Reload(ctx, cfg.Topology.Path); err != nil && ctx.Err() == nil {
				logger.Warn("topology reload failed; keeping current topology", "error", err)
			}
		}, logger)
		go func() {
			if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("topology watcher stopped", "error", err)
			}
		}()
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Listen, "auth", signer != nil, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}

	logger.Info("shutting down")

	if scheduler != nil {
		scheduler.Stop()
	}
	monitor.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if wsHub != nil {
		wsHub.CloseAll()
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown error", "error", err)
	}
	monitor.Wait()

	logger.Info("server stopped")
	return nil
}

func loadConfig(path string) (*config.Config, string, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func initConfig(path string) error {
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}

// loadTopology picks the topology source: an explicit file wins, then the
// stored topology, then the built-in lab. File and built-in topologies are
// written back to the store.
func loadTopology(ctx context.Context, path string, store repository.TopologyStore, logger *slog.Logger) (*domain.Topology, error) {
	if path == "" && store != nil {
		topo, err := store.LoadTopology(ctx)
		if err == nil {
			logger.Info("topology loaded from store", "devices", len(topo.Devices), "edges", len(topo.Edges))
			return topo, nil
		}
		if !errors.Is(err, repository.ErrNoTopology) {
			return nil, fmt.Errorf("load stored topology: %w", err)
		}
	}

	topo, err := loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load topology: %w", err)
	}
	source := path
	if source == "" {
		source = "built-in"
	}
	logger.Info("topology loaded", "source", source, "devices", len(topo.Devices), "edges", len(topo.Edges))

	if store != nil {
		if err := store.SaveTopology(ctx, topo, source); err != nil {
			return nil, fmt.Errorf("save topology: %w", err)
		}
	}
	return topo, nil
}

// runOnce performs a single monitoring pass and prints the resulting edge
// status. A failed run is reported as an error after printing.
func runOnce(ctx context.Context, monitor *service.HealthMonitor, format, baselinePath string, clock clockwork.Clock, logger *slog.Logger) error {
	exporter, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	if tc, ok := exporter.(*codec.TableCodec); ok {
		exporter = tc.WithColors(isatty.IsTerminal(os.Stdout.Fd()))
	}

	var baseline *codec.Snapshot
	if baselinePath != "" {
		if baseline, err = codec.ReadSnapshotFile(baselinePath); err != nil {
			return fmt.Errorf("read baseline: %w", err)
		}
	}

	summary, runErr := monitor.Run(ctx)

	runID := ""
	if summary != nil {
		runID = summary.ID
	}
	snapshot := codec.NewSnapshot(monitor.Edges(), runID, clock.Now())
	if err := exporter.Export(snapshot, os.Stdout); err != nil {
		return fmt.Errorf("write %s output: %w", exporter.Format(), err)
	}

	if baseline != nil {
		changes := codec.Diff(baseline, snapshot)
		for _, c := range changes {
			logger.Warn("edge status changed since baseline", "edge", c.ID, "from", c.From, "to", c.To)
		}
		logger.Info("baseline compared", "baseline_run", baseline.RunID, "changed", len(changes))
	}

	if runErr != nil {
		return fmt.Errorf("monitoring run failed: %w", runErr)
	}
	return nil
}
