package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fxnlabs/kernel-bench/internal/artifact"
	"github.com/fxnlabs/kernel-bench/internal/codegen"
	"github.com/fxnlabs/kernel-bench/internal/logger"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	var log *zap.Logger
	app := newApp(os.Stdout, &log)
	if err := app.Run(os.Args); err != nil {
		if log != nil {
			log.Error("kgen failed", zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// newApp takes the same flags as regenerateLibrary.py, so it can replace
// the TVM script as the kbench generator command.
func newApp(stdout io.Writer, log **zap.Logger) *cli.App {
	return &cli.App{
		Name:   "kgen",
		Usage:  "Generate a matmul kernel plugin for one configuration",
		Writer: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "cpu", Required: true, Usage: "CPU model, e.g. r9"},
			&cli.IntFlag{Name: "threadnum", Required: true, Usage: "Number of threads"},
			&cli.IntFlag{Name: "N", Required: true, Usage: "Rows of A and C"},
			&cli.IntFlag{Name: "K", Required: true, Usage: "Columns of A, rows of B"},
			&cli.IntFlag{Name: "M", Required: true, Usage: "Columns of B and C"},
			&cli.StringFlag{Name: "root", Value: ".", Usage: "Artifact cache root"},
			&cli.IntFlag{Name: "tile", Value: codegen.DefaultTile, Usage: "K blocking factor"},
			&cli.StringFlag{Name: "go", Value: "go", Usage: "Path to the go tool"},
			&cli.StringFlag{Name: "verbosity", Value: "info", Usage: "Log level"},
		},
		Before: func(c *cli.Context) error {
			zapLogger, err := logger.New(c.String("verbosity"), "console")
			if err != nil {
				return err
			}
			*log = zapLogger.Named("kgen")
			return nil
		},
		ExitErrHandler: func(*cli.Context, error) {},
		Action: func(c *cli.Context) error {
			params := codegen.Params{
				Key: artifact.Key{
					Platform: c.String("cpu"),
					Threads:  c.Int("threadnum"),
					N:        c.Int("N"),
					K:        c.Int("K"),
					M:        c.Int("M"),
				},
				Tile: c.Int("tile"),
			}
			g := codegen.NewGenerator(c.String("root"), c.String("go"), *log)
			path, err := g.Generate(c.Context, params)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, path)
			return err
		},
	}
}
