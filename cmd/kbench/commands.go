package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/common-nighthawk/go-figure"
	"github.com/fxnlabs/kernel-bench/fixtures"
	"github.com/fxnlabs/kernel-bench/internal/merge"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func locateCommand() *cli.Command {
	return &cli.Command{
		Name:      "locate",
		Usage:     "Print the cache path of a kernel artifact",
		ArgsUsage: "<platform> <N> <K> <M> <threads>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Usage: "Artifact cache root, overrides the config file"},
		},
		Action: func(c *cli.Context) error {
			cfg := appConfig(c)
			key, err := parseKey(c.Args().Slice())
			if err != nil {
				fmt.Fprintln(c.App.Writer, keyUsage)
				return err
			}
			root := cfg.Cache.Root
			if ctx := flagContext(c, "root"); ctx != nil {
				root = ctx.String("root")
			}
			_, err = fmt.Fprintln(c.App.Writer, key.Location(root, cfg.ArtifactExt()))
			return err
		},
	}
}

func mergeCommand() *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Merge saved text reports into merge_<cpu>_<threads>.csv",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "model", Required: true, Usage: "Model directory, e.g. llama3"},
			&cli.StringFlag{Name: "cpu", Required: true, Usage: "CPU identifier, e.g. r9"},
			&cli.IntFlag{Name: "threads", Required: true, Usage: "Thread count, e.g. 16"},
		},
		Action: func(c *cli.Context) error {
			log := appLogger(c).Named("merge")
			path, err := merge.Run(c.String("model"), c.String("cpu"), c.Int("threads"), log)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.App.Writer, "Data merged into %s successfully.\n", path)
			return err
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:      "init",
		Usage:     "Write the default config file",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
		},
		Action: func(c *cli.Context) error {
			log := appLogger(c)
			if c.NArg() != 1 {
				return fmt.Errorf("%w: init takes exactly one file argument", ErrUsage)
			}
			path := c.Args().First()

			flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
			if c.Bool("force") {
				flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
			}
			f, err := os.OpenFile(path, flags, 0o644)
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("config file %s already exists, use --force to overwrite", path)
			}
			if err != nil {
				return err
			}
			if _, err := f.Write(fixtures.ConfigTemplate); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			log.Info("Wrote config file", zap.String("path", path))
			return nil
		},
	}
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version",
		Action: func(c *cli.Context) error {
			banner := figure.NewFigure("kbench", "", true)
			_, err := fmt.Fprintf(c.App.Writer, "%s\nkbench %s\n", banner.String(), version)
			return err
		},
	}
}
