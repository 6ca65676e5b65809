package config

import (
	"fmt"
	"os"
	"slices"

	"github.com/fxnlabs/kernel-bench/internal/artifact"
	"github.com/fxnlabs/kernel-bench/internal/bench"
	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"github.com/fxnlabs/kernel-bench/internal/metrics"
	"gopkg.in/yaml.v3"
)

const (
	LoaderPlugin   = "plugin"
	LoaderManifest = "manifest"

	GeneratorCommand  = "command"
	GeneratorManifest = "manifest"
)

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
		Encoding  string `yaml:"encoding"`
	} `yaml:"logger"`
	Cache struct {
		Root   string `yaml:"root"`
		Loader string `yaml:"loader"`
		Ext    string `yaml:"ext"`
		Symbol string `yaml:"symbol"`
	} `yaml:"cache"`
	Generator struct {
		Kind    string   `yaml:"kind"`
		Command string   `yaml:"command"`
		Args    []string `yaml:"args"`
		Dir     string   `yaml:"dir"`
		Backend string   `yaml:"backend"`
	} `yaml:"generator"`
	Benchmark struct {
		Warmup    int     `yaml:"warmup"`
		Runs      int     `yaml:"runs"`
		Verify    string  `yaml:"verify"`
		Tolerance float64 `yaml:"tolerance"`
	} `yaml:"benchmark"`
	Metrics struct {
		Textfile    string `yaml:"textfile"`
		Pushgateway string `yaml:"pushgateway"`
		Job         string `yaml:"job"`
	} `yaml:"metrics"`
}

// Default returns the configuration used when no file is given: plugin
// artifacts under the working directory, regenerated by the TVM script.
func Default() *Config {
	var c Config
	c.Logger.Verbosity = "info"
	c.Logger.Encoding = "json"
	c.Cache.Root = "."
	c.Cache.Loader = LoaderPlugin
	c.Cache.Symbol = artifact.DefaultSymbol
	c.Generator.Kind = GeneratorCommand
	c.Generator.Command = artifact.DefaultGeneratorCommand
	c.Generator.Args = slices.Clone(artifact.DefaultGeneratorArgs)
	c.Generator.Backend = kernel.BackendBLAS
	c.Benchmark.Warmup = bench.DefaultWarmup
	c.Benchmark.Runs = bench.DefaultRuns
	c.Benchmark.Verify = string(bench.VerifyOff)
	c.Benchmark.Tolerance = bench.DefaultTolerance
	c.Metrics.Job = metrics.DefaultJob
	return &c
}

// LoadConfig reads path on top of Default, so keys absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config := Default()
	err = yaml.Unmarshal(data, config)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the enumerated fields. Numeric ranges are checked by the
// components that consume them.
func (c *Config) Validate() error {
	switch c.Cache.Loader {
	case LoaderPlugin, LoaderManifest:
	default:
		return fmt.Errorf("unknown cache loader %q", c.Cache.Loader)
	}
	switch c.Generator.Kind {
	case GeneratorCommand, GeneratorManifest:
	default:
		return fmt.Errorf("unknown generator kind %q", c.Generator.Kind)
	}
	if c.Generator.Kind == GeneratorManifest && c.Cache.Loader != LoaderManifest {
		return fmt.Errorf("manifest generator requires the manifest loader")
	}
	return nil
}

// ArtifactExt returns the configured extension, or the loader's default.
func (c *Config) ArtifactExt() string {
	if c.Cache.Ext != "" {
		return c.Cache.Ext
	}
	if c.Cache.Loader == LoaderManifest {
		return ".yaml"
	}
	return ".so"
}
