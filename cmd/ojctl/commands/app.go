package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/OpenTasmania/oj-server-sub001/pkg/catalog"
	"github.com/OpenTasmania/oj-server-sub001/pkg/config"
	"github.com/OpenTasmania/oj-server-sub001/pkg/engine"
	"github.com/OpenTasmania/oj-server-sub001/pkg/ledger"
	"github.com/OpenTasmania/oj-server-sub001/pkg/stores"
	"github.com/OpenTasmania/oj-server-sub001/pkg/telemetry"
)

// app bundles the wired engine and its telemetry for one command
// invocation.
type app struct {
	cfg     *config.Config
	logger  *telemetry.Logger
	tracer  *telemetry.Tracer
	orch    *engine.Orchestrator
	history *stores.SQLiteStore
}

// newApp loads the configuration and wires the registry, ledger, hooks,
// history store, and telemetry into an orchestrator. The returned app must
// be closed.
func newApp(ctx context.Context, version string, continueOnError bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	tc := cfg.TelemetryConfig(version)

	logger, err := telemetry.NewLogger(tc.Logging)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	metrics, err := telemetry.NewMetrics(tc.Metrics)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	if tc.Metrics.Enabled {
		go func() {
			if err := metrics.Serve(); err != nil {
				logger.WithError(err).Warn("metrics endpoint stopped")
			}
		}()
	}

	tracer, err := telemetry.NewTracer(tc.Tracing, tc.ServiceName, tc.ServiceVersion, tc.Environment)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	registry := engine.NewRegistry()
	prov := catalog.NewScriptProvisioner(cfg.Provision.ScriptsDir, logger)
	if err := catalog.Register(registry, prov); err != nil {
		return nil, err
	}

	hooks := engine.NewHooks()
	if err := catalog.RegisterHooks(hooks); err != nil {
		return nil, err
	}

	capability := catalog.NewCapability(
		cfg.Provision.Database,
		cfg.Provision.SchemaDir,
		cfg.Provision.ManifestDir,
		logger,
	)

	opener := engine.StoreOpenerFunc(func() (engine.StateStore, error) {
		return ledger.Open(ledger.Config{
			Path:        cfg.StatePath,
			Fingerprint: ledger.DefaultFingerprinter(cfg.SourceRoot),
		})
	})

	var history *stores.SQLiteStore
	var sink engine.EventSink
	if cfg.HistoryDB != "" {
		history, err = stores.NewSQLiteStore(stores.Config{Path: cfg.HistoryDB})
		if err != nil {
			return nil, err
		}
		if err := history.Init(ctx); err != nil {
			return nil, err
		}
		if err := history.Migrate(ctx); err != nil {
			_ = history.Close()
			return nil, err
		}
		sink = stores.NewSink(history)
	}

	orch, err := engine.NewOrchestrator(engine.Options{
		Registry:        registry,
		Store:           opener,
		Hooks:           hooks,
		Confirm:         newConfirm(),
		Capability:      capability,
		Events:          sink,
		Flags:           cfg.Features,
		Logger:          logger,
		Metrics:         metrics,
		Tracer:          tracer,
		ContinueOnError: continueOnError || cfg.ContinueOnError,
	})
	if err != nil {
		if history != nil {
			_ = history.Close()
		}
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		tracer:  tracer,
		orch:    orch,
		history: history,
	}, nil
}

func (a *app) close(ctx context.Context) {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close history store")
		}
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("failed to shut down tracer")
	}
}

// newConfirm builds the re-run confirmation. --yes accepts everything;
// without a terminal on stdin every prompt is declined, keeping scripted
// runs deterministic.
func newConfirm() engine.ConfirmFunc {
	if assumeYes {
		return engine.AcceptAll
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return engine.DeclineAll
	}
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string) bool {
		fmt.Fprintf(os.Stderr, "%s [y/N]: ", prompt)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes"
	}
}
