package main

import (
	"fmt"
	"io"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/kernel-bench/internal/config"
	"github.com/fxnlabs/kernel-bench/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app := newApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		if log, ok := app.Metadata["logger"].(*zap.Logger); ok {
			log.Error("kbench failed", zap.Error(err))
			_ = log.Sync()
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newApp builds the CLI. Reports go to stdout, everything else to stderr.
// Invoking kbench with bare positional arguments runs a benchmark.
func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "kbench",
		Usage:     "Benchmark compiled matrix multiplication kernels",
		UsageText: "kbench [global options] [run] <platform> <N> <K> <M> <threads>",
		Version:   version,
		Writer:    stdout,
		ErrWriter: stderr,
		Metadata:  map[string]interface{}{},
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to a YAML config file, defaults apply when unset",
				EnvVars: []string{"KBENCH_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "verbosity",
				Usage: "Log level, overrides the config file",
			},
			&cli.BoolFlag{
				Name:  "banner",
				Usage: "Print a banner before running",
			},
		}, runFlags()...),
		Before: func(c *cli.Context) error {
			cfg := config.Default()
			if path := c.String("config"); path != "" {
				var err error
				cfg, err = config.LoadConfig(path)
				if err != nil {
					return err
				}
			}
			if c.IsSet("verbosity") {
				cfg.Logger.Verbosity = c.String("verbosity")
			}
			zapLogger, err := logger.New(cfg.Logger.Verbosity, cfg.Logger.Encoding)
			if err != nil {
				return err
			}
			c.App.Metadata["config"] = cfg
			c.App.Metadata["logger"] = zapLogger
			if c.Bool("banner") {
				fmt.Fprintln(c.App.ErrWriter, figure.NewFigure("kbench", "", true).String())
			}
			return nil
		},
		Action: runAction,
		// Errors are reported by main.
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			runCommand(),
			locateCommand(),
			mergeCommand(),
			initCommand(),
			versionCommand(),
		},
	}
}

func appConfig(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func appLogger(c *cli.Context) *zap.Logger {
	return c.App.Metadata["logger"].(*zap.Logger)
}
