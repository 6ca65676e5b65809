package artifact

import (
	"fmt"
	"os"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"gopkg.in/yaml.v3"
)

// ManifestVersion is the only manifest version this build understands.
const ManifestVersion = 1

// Manifest is a native kernel artifact: a YAML document binding exported
// entry points to kernels built into this binary.
type Manifest struct {
	Version  int               `yaml:"version"`
	Platform string            `yaml:"platform"`
	Threads  int               `yaml:"threads"`
	Shape    ManifestShape     `yaml:"shape"`
	Exports  map[string]Export `yaml:"exports"`
}

type ManifestShape struct {
	N int `yaml:"n"`
	K int `yaml:"k"`
	M int `yaml:"m"`
}

// Export names the native backend behind one entry point.
type Export struct {
	Backend string `yaml:"backend"`
}

// NewManifest describes a kernel for key whose entry point symbol runs
// backend.
func NewManifest(key Key, symbol, backend string) *Manifest {
	return &Manifest{
		Version:  ManifestVersion,
		Platform: key.Platform,
		Threads:  key.Threads,
		Shape:    ManifestShape{N: key.N, K: key.K, M: key.M},
		Exports:  map[string]Export{symbol: {Backend: backend}},
	}
}

// Key returns the configuration key the manifest was generated for.
func (m *Manifest) Key() Key {
	return Key{Platform: m.Platform, Threads: m.Threads, N: m.Shape.N, K: m.Shape.K, M: m.Shape.M}
}

// ReadManifest parses the manifest stored at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}
	return &manifest, nil
}

// WriteManifest stores m at path.
func WriteManifest(path string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ManifestLoader loads YAML kernel manifests.
type ManifestLoader struct{}

// Load parses the manifest at path and checks it was built for key.
func (ManifestLoader) Load(key Key, path string) (Module, error) {
	manifest, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	if got := manifest.Key(); got != key {
		return nil, fmt.Errorf("manifest built for %+v, want %+v", got, key)
	}
	return &manifestModule{manifest: manifest}, nil
}

type manifestModule struct {
	manifest *Manifest
}

func (m *manifestModule) Lookup(symbol string) (kernel.Kernel, error) {
	export, ok := m.manifest.Exports[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: manifest does not export %q", ErrSymbolMissing, symbol)
	}
	key := m.manifest.Key()
	k, err := kernel.New(export.Backend, key.Shape(), key.Threads)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSymbolMissing, symbol, err)
	}
	return k, nil
}
