package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fxnlabs/kernel-bench/internal/artifact"
	"github.com/fxnlabs/kernel-bench/internal/bench"
	"github.com/fxnlabs/kernel-bench/internal/config"
	"github.com/fxnlabs/kernel-bench/internal/metrics"
	"github.com/fxnlabs/kernel-bench/internal/stats"
	"github.com/fxnlabs/kernel-bench/internal/workload"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// ErrUsage is returned for malformed positional arguments.
var ErrUsage = errors.New("invalid usage")

const keyUsage = "Usage: kbench <platform> <N> <K> <M> <threads>"

const (
	formatText = "text"
	formatJSON = "json"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "root", Usage: "Artifact cache root, overrides the config file"},
		&cli.StringFlag{Name: "format", Value: formatText, Usage: "Report format: text or json"},
		&cli.StringFlag{Name: "verify", Usage: "Correctness check: off, reference or freivalds"},
		&cli.IntFlag{Name: "warmup", Usage: "Untimed warmup invocations"},
		&cli.IntFlag{Name: "runs", Usage: "Timed invocations"},
		&cli.StringFlag{Name: "metrics-textfile", Usage: "Write session metrics in the node_exporter textfile format"},
		&cli.StringFlag{Name: "pushgateway", Usage: "Push session metrics to this Pushgateway URL"},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Resolve a kernel and benchmark it",
		ArgsUsage: "<platform> <N> <K> <M> <threads>",
		Flags:     runFlags(),
		Action:    runAction,
	}
}

func runAction(c *cli.Context) error {
	cfg := appConfig(c)
	log := appLogger(c).Named("run")

	key, err := parseKey(c.Args().Slice())
	if err != nil {
		fmt.Fprintln(c.App.Writer, keyUsage)
		return err
	}
	format, err := applyRunFlags(c, cfg)
	if err != nil {
		return err
	}
	return runBenchmark(c.Context, cfg, key, format, c.App.Writer, log)
}

// parseKey reads <platform> <N> <K> <M> <threads>.
func parseKey(args []string) (artifact.Key, error) {
	if len(args) != 5 {
		return artifact.Key{}, fmt.Errorf("%w: expected 5 arguments, got %d", ErrUsage, len(args))
	}
	var dims [4]int
	for i, arg := range args[1:] {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return artifact.Key{}, fmt.Errorf("%w: %q is not an integer", ErrUsage, arg)
		}
		dims[i] = v
	}
	key := artifact.Key{Platform: args[0], N: dims[0], K: dims[1], M: dims[2], Threads: dims[3]}
	if err := key.Validate(); err != nil {
		return artifact.Key{}, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	return key, nil
}

// flagContext returns the innermost context in which name was set, so run
// flags work both before and after the run command name.
func flagContext(c *cli.Context, name string) *cli.Context {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx
		}
	}
	return nil
}

// applyRunFlags overrides cfg with explicitly set flags and returns the
// report format.
func applyRunFlags(c *cli.Context, cfg *config.Config) (string, error) {
	if ctx := flagContext(c, "root"); ctx != nil {
		cfg.Cache.Root = ctx.String("root")
	}
	if ctx := flagContext(c, "verify"); ctx != nil {
		cfg.Benchmark.Verify = ctx.String("verify")
	}
	if ctx := flagContext(c, "warmup"); ctx != nil {
		cfg.Benchmark.Warmup = ctx.Int("warmup")
	}
	if ctx := flagContext(c, "runs"); ctx != nil {
		cfg.Benchmark.Runs = ctx.Int("runs")
	}
	if ctx := flagContext(c, "metrics-textfile"); ctx != nil {
		cfg.Metrics.Textfile = ctx.String("metrics-textfile")
	}
	if ctx := flagContext(c, "pushgateway"); ctx != nil {
		cfg.Metrics.Pushgateway = ctx.String("pushgateway")
	}

	format := formatText
	if ctx := flagContext(c, "format"); ctx != nil {
		format = ctx.String("format")
	}
	if format != formatText && format != formatJSON {
		return "", fmt.Errorf("unknown report format %q", format)
	}
	return format, nil
}

func newResolver(cfg *config.Config, observer artifact.Observer, log *zap.Logger) (*artifact.Resolver, error) {
	ext := cfg.ArtifactExt()

	var loader artifact.Loader
	switch cfg.Cache.Loader {
	case config.LoaderManifest:
		loader = artifact.ManifestLoader{}
	default:
		loader = artifact.PluginLoader{}
	}

	var builder artifact.Builder
	switch cfg.Generator.Kind {
	case config.GeneratorManifest:
		b, err := artifact.NewManifestBuilder(cfg.Cache.Root, ext, cfg.Cache.Symbol, cfg.Generator.Backend, log)
		if err != nil {
			return nil, err
		}
		builder = b
	default:
		// Generators write relative to their working directory, which is
		// the cache root unless configured otherwise.
		dir := cfg.Generator.Dir
		if dir == "" {
			dir = cfg.Cache.Root
		}
		b, err := artifact.NewCommandBuilder(cfg.Generator.Command, cfg.Generator.Args, dir, log)
		if err != nil {
			return nil, err
		}
		builder = b
	}

	opts := artifact.Options{
		Root:     cfg.Cache.Root,
		Ext:      ext,
		Symbol:   cfg.Cache.Symbol,
		Observer: observer,
	}
	return artifact.NewResolver(opts, loader, builder, log), nil
}

// runBenchmark resolves, measures and reports one configuration. The
// report is written only once every phase has succeeded.
func runBenchmark(ctx context.Context, cfg *config.Config, key artifact.Key, format string, out io.Writer, log *zap.Logger) error {
	verify, err := bench.ParseVerifyMode(cfg.Benchmark.Verify)
	if err != nil {
		return err
	}
	opts := bench.Options{
		Warmup:    cfg.Benchmark.Warmup,
		Runs:      cfg.Benchmark.Runs,
		Verify:    verify,
		Tolerance: cfg.Benchmark.Tolerance,
	}

	recorder := metrics.NewRecorder(key)
	defer exportMetrics(ctx, cfg, recorder, log)

	executor, err := bench.NewExecutor(opts, recorder, log)
	if err != nil {
		return err
	}
	resolver, err := newResolver(cfg, recorder, log)
	if err != nil {
		return err
	}

	k, err := resolver.Resolve(ctx, key)
	if err != nil {
		return err
	}

	shape := key.Shape()
	buf := workload.Generate(shape, workload.Seed)
	log.Debug("Generated workload", zap.Stringer("shape", shape), zap.Int64("bytes", buf.Bytes()))

	result, err := executor.Run(ctx, k, buf)
	if err != nil {
		return err
	}

	report, err := stats.Summarize(result.Samples, shape.FLOPs())
	if err != nil {
		return err
	}
	report.Name = key.Name()
	report.Warmup = opts.Warmup
	recorder.SetReport(report)

	if format == formatJSON {
		return report.WriteJSON(out)
	}
	return report.WriteText(out)
}

// exportMetrics writes and pushes whatever the session recorded. Export
// failures are logged and never change the outcome of the run.
func exportMetrics(ctx context.Context, cfg *config.Config, recorder *metrics.Recorder, log *zap.Logger) {
	if path := cfg.Metrics.Textfile; path != "" {
		if err := recorder.WriteTextfile(path); err != nil {
			log.Warn("Metrics export failed", zap.Error(err))
		}
	}
	if url := cfg.Metrics.Pushgateway; url != "" {
		if err := recorder.Push(ctx, url, cfg.Metrics.Job); err != nil {
			log.Warn("Metrics push failed", zap.Error(err))
		}
	}
}
