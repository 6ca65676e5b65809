package artifact

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"text/template"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"go.uber.org/zap"
)

// Builder regenerates the artifact for a key. A successful Build leaves a
// loadable artifact at the key's location; the resolver checks that
// post-condition itself and does not trust the returned error.
type Builder interface {
	Build(ctx context.Context, key Key) error
}

// BuilderFunc adapts a function to the Builder interface.
type BuilderFunc func(ctx context.Context, key Key) error

func (f BuilderFunc) Build(ctx context.Context, key Key) error {
	return f(ctx, key)
}

// DefaultGeneratorCommand and DefaultGeneratorArgs invoke the TVM
// regeneration script that ships next to the kernel cache.
const DefaultGeneratorCommand = "python3"

var DefaultGeneratorArgs = []string{
	"./regenerateLibrary.py",
	"--cpu", "{{.Platform}}",
	"--threadnum", "{{.Threads}}",
	"--N", "{{.N}}",
	"--K", "{{.K}}",
	"--M", "{{.M}}",
}

// CommandBuilder runs an external generator process and blocks until it
// exits. Each argument is a text/template rendered against the Key.
type CommandBuilder struct {
	command string
	args    []*template.Template
	dir     string
	stdout  io.Writer
	stderr  io.Writer
	log     *zap.Logger
}

// NewCommandBuilder parses the argument templates up front so a broken
// configuration fails before any cache lookup.
func NewCommandBuilder(command string, args []string, dir string, log *zap.Logger) (*CommandBuilder, error) {
	if command == "" {
		return nil, fmt.Errorf("generator command must not be empty")
	}
	tmpls := make([]*template.Template, len(args))
	for i, arg := range args {
		t, err := template.New(fmt.Sprintf("arg%d", i)).Option("missingkey=error").Parse(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid generator argument %q: %w", arg, err)
		}
		tmpls[i] = t
	}
	return &CommandBuilder{
		command: command,
		args:    tmpls,
		dir:     dir,
		stdout:  os.Stderr,
		stderr:  os.Stderr,
		log:     log,
	}, nil
}

// SetOutput redirects the generator's stdout and stderr. Both default to
// the harness stderr so generator chatter never mixes with the report.
func (b *CommandBuilder) SetOutput(stdout, stderr io.Writer) {
	b.stdout = stdout
	b.stderr = stderr
}

// Args renders the argument list for key.
func (b *CommandBuilder) Args(key Key) ([]string, error) {
	out := make([]string, len(b.args))
	for i, t := range b.args {
		var buf bytes.Buffer
		if err := t.Execute(&buf, key); err != nil {
			return nil, fmt.Errorf("failed to render generator argument: %w", err)
		}
		out[i] = buf.String()
	}
	return out, nil
}

// Build runs the generator for key. The returned error reports a failed
// start or a non-zero exit status.
func (b *CommandBuilder) Build(ctx context.Context, key Key) error {
	args, err := b.Args(key)
	if err != nil {
		return err
	}

	if b.dir != "" {
		if err := os.MkdirAll(b.dir, 0o755); err != nil {
			return fmt.Errorf("failed to create generator directory: %w", err)
		}
	}

	cmd := exec.CommandContext(ctx, b.command, args...)
	cmd.Dir = b.dir
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	b.log.Info("Regenerating library", zap.String("command", cmd.String()), zap.String("dir", b.dir))
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("generator %s failed: %w", b.command, err)
	}
	return nil
}

// ManifestBuilder generates native kernel manifests without any external
// toolchain. It writes the manifest straight to the key's cache location.
type ManifestBuilder struct {
	root    string
	ext     string
	symbol  string
	backend string
	log     *zap.Logger
}

// NewManifestBuilder returns a builder producing manifests that export
// symbol backed by backend.
func NewManifestBuilder(root, ext, symbol, backend string, log *zap.Logger) (*ManifestBuilder, error) {
	if !slices.Contains(kernel.Backends, backend) {
		return nil, fmt.Errorf("unknown kernel backend: %s", backend)
	}
	return &ManifestBuilder{root: root, ext: ext, symbol: symbol, backend: backend, log: log}, nil
}

func (b *ManifestBuilder) Build(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := key.Location(b.root, b.ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := WriteManifest(path, NewManifest(key, b.symbol, b.backend)); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	b.log.Info("Generated kernel manifest", zap.String("path", path), zap.String("backend", b.backend))
	return nil
}
