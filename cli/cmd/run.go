package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/preload/adapter"
	"github.com/pithecene-io/preload/adapter/redis"
	"github.com/pithecene-io/preload/adapter/webhook"
	"github.com/pithecene-io/preload/archive"
	"github.com/pithecene-io/preload/classpath"
	"github.com/pithecene-io/preload/cli/config"
	"github.com/pithecene-io/preload/cli/render"
	"github.com/pithecene-io/preload/iox"
	"github.com/pithecene-io/preload/lode"
	"github.com/pithecene-io/preload/log"
	"github.com/pithecene-io/preload/metrics"
	"github.com/pithecene-io/preload/policy"
	"github.com/pithecene-io/preload/preload"
	"github.com/pithecene-io/preload/types"
)

// defaultAdapterRetries applies when neither config nor flags set retries.
const defaultAdapterRetries = 3

// RunCommand returns the run command, the only command that resolves
// classes and writes an archive.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Preload a class list in parallel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "Config file (default: ./" + config.DefaultFileName + " when present)",
			},
			&cli.StringFlag{
				Name:    "manifest",
				Aliases: []string{"m"},
				Usage:   "Path to the class list",
			},
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"w"},
				Usage:   "Partition count (default: number of CPUs)",
			},
			&cli.StringFlag{
				Name:  "run-id",
				Usage: "Run ID (default: random UUID)",
			},
			// Class resolution
			&cli.StringSliceFlag{
				Name:    "classpath",
				Aliases: []string{"cp"},
				Usage:   "Primary class path element, directory or jar (repeatable)",
			},
			&cli.StringSliceFlag{
				Name:  "boot-append",
				Usage: "Fallback class path element (repeatable)",
			},
			&cli.UintFlag{
				Name:  "max-class-version",
				Usage: "Newest accepted class file major version",
			},
			&cli.StringSliceFlag{
				Name:  "protected-prefix",
				Usage: "Namespace that may not be loaded from a source (repeatable)",
			},
			// Archive
			&cli.StringFlag{
				Name:  "archive-backend",
				Usage: "Archive backend: none, frame or lode",
			},
			&cli.StringFlag{
				Name:  "archive-path",
				Usage: "Frame file, Lode root, or bucket/prefix for S3",
			},
			&cli.StringFlag{
				Name:  "dataset",
				Usage: "Lode dataset ID",
			},
			&cli.StringFlag{
				Name:  "lode-storage",
				Usage: "Lode storage: fs or s3",
			},
			&cli.StringFlag{
				Name:  "s3-region",
				Usage: "AWS region for S3 storage",
			},
			&cli.StringFlag{
				Name:  "s3-endpoint",
				Usage: "Custom S3 endpoint (MinIO, R2)",
			},
			&cli.BoolFlag{
				Name:  "s3-path-style",
				Usage: "Force path-style S3 addressing",
			},
			// Write policy
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Write policy: strict or buffered",
			},
			&cli.IntFlag{
				Name:  "buffer-records",
				Usage: "Max buffered records (buffered policy)",
			},
			&cli.Int64Flag{
				Name:  "buffer-bytes",
				Usage: "Max buffered bytes (buffered policy)",
			},
			// Notification
			&cli.StringFlag{
				Name:  "adapter",
				Usage: "Completion notification: webhook or redis",
			},
			&cli.StringFlag{
				Name:  "adapter-url",
				Usage: "Webhook endpoint or Redis URL",
			},
			&cli.StringFlag{
				Name:  "adapter-channel",
				Usage: "Redis channel (default: " + redis.DefaultChannel + ")",
			},
			&cli.DurationFlag{
				Name:  "adapter-timeout",
				Usage: "Per-attempt notification timeout",
			},
			&cli.IntFlag{
				Name:  "adapter-retries",
				Usage: "Notification retry attempts",
			},
			// Output
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "Suppress the result and info logs",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable debug logs",
			},
			FormatFlag,
			NoColorFlag,
		},
		Action: runAction,
	}
}

// runPlan is everything a run needs once config and flags are merged.
type runPlan struct {
	meta      types.RunMeta
	classpath classpath.Config
	protected []string
	archive   archive.Config
	adapter   adapter.Adapter
	level     zapcore.Level
}

func runAction(c *cli.Context) error {
	cfg, err := config.LoadOptional(c.String("config"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := applyFlags(c, cfg); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	if err := cfg.Validate(); err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	plan, err := newRunPlan(cfg, c.String("run-id"), c.Bool("quiet"), c.Bool("verbose"))
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}

	// Validate the output format before doing any work.
	var r *render.Renderer
	if !c.Bool("quiet") {
		if r, err = render.NewRenderer(c); err != nil {
			return cli.Exit(err.Error(), exitConfigError)
		}
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := executeRun(ctx, plan, c.App.ErrWriter)
	if err != nil {
		return cli.Exit(fmt.Sprintf("preload failed: %v", err), exitCode(err))
	}
	if r != nil {
		if err := r.Render(res); err != nil {
			return err
		}
	}
	return nil
}

// override copies flag name into dst when it was given on the command line.
func override[T any](c *cli.Context, name string, dst *T, get func(string) T) {
	if c.IsSet(name) {
		*dst = get(name)
	}
}

// applyFlags layers command-line flags over the config file.
func applyFlags(c *cli.Context, cfg *config.Config) error {
	override(c, "manifest", &cfg.Manifest, c.String)
	override(c, "workers", &cfg.Workers, c.Int)
	override(c, "classpath", &cfg.Classpath, c.StringSlice)
	override(c, "boot-append", &cfg.BootAppend, c.StringSlice)
	override(c, "protected-prefix", &cfg.ProtectedPrefixes, c.StringSlice)
	if c.IsSet("max-class-version") {
		v := c.Uint("max-class-version")
		if v > math.MaxUint16 {
			return fmt.Errorf("--max-class-version %d out of range", v)
		}
		cfg.MaxClassVersion = uint16(v)
	}

	override(c, "archive-backend", &cfg.Archive.Backend, c.String)
	override(c, "archive-path", &cfg.Archive.Path, c.String)
	override(c, "dataset", &cfg.Archive.Lode.Dataset, c.String)
	override(c, "lode-storage", &cfg.Archive.Lode.Backend, c.String)
	override(c, "s3-region", &cfg.Archive.Lode.Region, c.String)
	override(c, "s3-endpoint", &cfg.Archive.Lode.Endpoint, c.String)
	override(c, "s3-path-style", &cfg.Archive.Lode.S3PathStyle, c.Bool)

	override(c, "policy", &cfg.Policy.Name, c.String)
	override(c, "buffer-records", &cfg.Policy.BufferRecords, c.Int)
	override(c, "buffer-bytes", &cfg.Policy.BufferBytes, c.Int64)

	override(c, "adapter", &cfg.Adapter.Type, c.String)
	override(c, "adapter-url", &cfg.Adapter.URL, c.String)
	override(c, "adapter-channel", &cfg.Adapter.Channel, c.String)
	override(c, "adapter-timeout", &cfg.Adapter.Timeout.Duration, c.Duration)
	if c.IsSet("adapter-retries") {
		n := c.Int("adapter-retries")
		cfg.Adapter.Retries = &n
	}
	return nil
}

// newRunPlan turns a validated config into a run plan. It builds the
// notification adapter but opens nothing else.
func newRunPlan(cfg *config.Config, runID string, quiet, verbose bool) (*runPlan, error) {
	if cfg.Manifest == "" {
		return nil, errors.New("manifest is required (--manifest or manifest: in config)")
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	backend, err := archive.ParseBackend(cfg.Archive.Backend)
	if err != nil {
		return nil, err
	}
	pol, err := policy.ParseName(cfg.Policy.Name)
	if err != nil {
		return nil, err
	}

	plan := &runPlan{
		meta: types.RunMeta{RunID: runID, Manifest: cfg.Manifest, Workers: workers},
		classpath: classpath.Config{
			Primary:         cfg.Classpath,
			Fallback:        cfg.BootAppend,
			MaxClassVersion: cfg.MaxClassVersion,
		},
		protected: cfg.ProtectedPrefixes,
		archive: archive.Config{
			Backend: backend,
			Path:    cfg.Archive.Path,
			Lode: archive.LodeOptions{
				Storage:   cfg.Archive.Lode.Backend,
				Dataset:   cfg.Archive.Lode.Dataset,
				Region:    cfg.Archive.Lode.Region,
				Endpoint:  cfg.Archive.Lode.Endpoint,
				PathStyle: cfg.Archive.Lode.S3PathStyle,
			},
			Policy:        pol,
			BufferRecords: cfg.Policy.BufferRecords,
			BufferBytes:   cfg.Policy.BufferBytes,
			RunID:         runID,
		},
		level: zapcore.InfoLevel,
	}
	switch {
	case verbose:
		plan.level = zapcore.DebugLevel
	case quiet:
		plan.level = zapcore.WarnLevel
	}
	if err := plan.meta.Validate(); err != nil {
		return nil, err
	}

	if plan.adapter, err = buildAdapter(cfg.Adapter); err != nil {
		return nil, err
	}
	return plan, nil
}

// buildAdapter returns nil when no adapter is configured.
func buildAdapter(ac config.AdapterConfig) (adapter.Adapter, error) {
	retries := defaultAdapterRetries
	if ac.Retries != nil {
		retries = *ac.Retries
	}
	switch ac.Type {
	case "":
		return nil, nil
	case config.AdapterWebhook:
		return webhook.New(webhook.Config{
			URL:     ac.URL,
			Headers: ac.Headers,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case config.AdapterRedis:
		return redis.New(redis.Config{
			URL:     ac.URL,
			Channel: ac.Channel,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type %q", ac.Type)
	}
}

// executeRun opens the resolver and the archive, runs the preloader, then
// closes the archive, writes run metrics and publishes the completion
// event. Logs go to logOut.
func executeRun(ctx context.Context, plan *runPlan, logOut io.Writer) (*preload.Result, error) {
	logger := log.NewLoggerWithWriter(&plan.meta, logOut, plan.level)
	defer func() { _ = logger.Sync() }()
	if plan.adapter != nil {
		defer iox.DiscardClose(plan.adapter)
	}

	collector := metrics.NewCollector(string(plan.archive.Policy), string(plan.archive.Backend), plan.meta.RunID)

	resolver, err := classpath.Open(plan.classpath)
	if err != nil {
		return nil, fmt.Errorf("class path: %w", err)
	}
	defer iox.DiscardClose(resolver)
	logger.Sugar().Debugf("class path: %d primary, %d fallback elements, max class version %d",
		len(plan.classpath.Primary), len(plan.classpath.Fallback), resolver.MaxClassVersion())

	archiveLog := logger.With(map[string]any{
		"archive_backend": string(plan.archive.Backend),
		"policy":          string(plan.archive.Policy),
	})
	engine, err := archive.Open(ctx, plan.archive, archiveLog, collector)
	if err != nil {
		return nil, fmt.Errorf("archive: %w", err)
	}

	opts := []preload.Option{
		preload.WithLogger(logger),
		preload.WithMetrics(collector),
		preload.WithRunID(plan.meta.RunID),
	}
	if len(plan.protected) > 0 {
		opts = append(opts, preload.WithProtectedPrefixes(plan.protected...))
	}

	start := time.Now()
	res, runErr := preload.New(resolver, engine, opts...).Run(ctx, plan.meta.Manifest, plan.meta.Workers)
	if err := engine.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("archive: %w", err)
	}

	summary := adapter.RunSummary{
		RunID:    plan.meta.RunID,
		Manifest: plan.meta.Manifest,
		Workers:  plan.meta.Workers,
		Err:      runErr,
		Duration: time.Since(start),
	}
	snap := collector.Snapshot()
	if res != nil {
		res.Metrics = snap
		summary.Loaded = res.Loaded
		summary.Entries = res.Entries
		summary.Segments = res.Segments
	}
	event := adapter.NewEvent(summary, time.Now())

	// Finish and Notify run even when ctx was cancelled.
	finishCtx := context.WithoutCancel(ctx)
	body, err := json.Marshal(event)
	if err == nil {
		err = engine.Finish(finishCtx, snap, body)
	}
	if err != nil {
		if runErr == nil {
			runErr = fmt.Errorf("archive: %w", err)
		} else {
			logger.Warn("run metrics not written", map[string]any{"error": err.Error()})
		}
	}

	adapter.Notify(finishCtx, plan.adapter, event, logger)

	if runErr != nil {
		return nil, runErr
	}
	return res, nil
}

// exitCode maps a run error to the process exit code. Errors caused by
// configuration exit with 2, everything else with 1.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, classpath.ErrInvalidElement),
		errors.Is(err, archive.ErrUnknownBackend),
		errors.Is(err, archive.ErrPathRequired),
		errors.Is(err, policy.ErrUnknownPolicy),
		errors.Is(err, policy.ErrInvalidConfig),
		errors.Is(err, lode.ErrBucketRequired),
		errors.Is(err, preload.ErrInvalidWorkers):
		return exitConfigError
	default:
		return exitRunError
	}
}
