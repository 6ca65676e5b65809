// Package codegen renders shape-specialised matmul kernels as Go plugin
// sources and compiles them into the artifact cache.
package codegen

import (
	"bytes"
	"context"
	"fmt"
	"go/format"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/fxnlabs/kernel-bench/internal/artifact"
	"go.uber.org/zap"
)

// DefaultTile is the K blocking factor of generated kernels.
const DefaultTile = 64

// Params select the kernel to generate.
type Params struct {
	Key  artifact.Key
	Tile int
}

func (p Params) Validate() error {
	if err := p.Key.Validate(); err != nil {
		return err
	}
	if p.Tile <= 0 {
		return fmt.Errorf("tile must be positive, got %d", p.Tile)
	}
	return nil
}

var pluginTemplate = template.Must(template.New("kernel").Parse(`// Code generated by kgen. DO NOT EDIT.

// Kernel for {{.Key.Name}}.
package main

import "sync"

const (
	n       = {{.Key.N}}
	k       = {{.Key.K}}
	m       = {{.Key.M}}
	threads = {{.Key.Threads}}
	tile    = {{.Tile}}
)

// Main accumulates A×B into C. Operand sizes are checked by the host.
func Main(a, b, c []float32) error {
	rows := (n + threads - 1) / threads
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += rows {
		hi := min(lo+rows, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			multiply(a, b, c, lo, hi)
		}(lo, hi)
	}
	wg.Wait()
	return nil
}

func multiply(a, b, c []float32, lo, hi int) {
	for l0 := 0; l0 < k; l0 += tile {
		l1 := min(l0+tile, k)
		for i := lo; i < hi; i++ {
			ci := c[i*m : i*m+m]
			for l := l0; l < l1; l++ {
				av := a[i*k+l]
				for j, bv := range b[l*m : l*m+m] {
					ci[j] += av * bv
				}
			}
		}
	}
}

func main() {}
`))

// Render writes the gofmt'ed plugin source for p.
func Render(w io.Writer, p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := pluginTemplate.Execute(&buf, p); err != nil {
		return err
	}
	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("generated source does not parse: %w", err)
	}
	_, err = w.Write(src)
	return err
}

// Generator compiles rendered kernels with the go tool.
type Generator struct {
	root   string
	goTool string
	stdout io.Writer
	stderr io.Writer
	log    *zap.Logger
}

// NewGenerator writes artifacts below root. goTool defaults to "go".
func NewGenerator(root, goTool string, log *zap.Logger) *Generator {
	if goTool == "" {
		goTool = "go"
	}
	return &Generator{root: root, goTool: goTool, stdout: os.Stderr, stderr: os.Stderr, log: log.Named("codegen")}
}

// SetOutput redirects the go tool's output.
func (g *Generator) SetOutput(stdout, stderr io.Writer) {
	g.stdout, g.stderr = stdout, stderr
}

// SourcePath is where the generated source is kept next to the artifact.
func SourcePath(location string) string {
	return strings.TrimSuffix(location, filepath.Ext(location)) + "_source.txt"
}

// Generate renders and compiles the kernel for p and returns the artifact
// path. The build runs in a scratch directory so no Go package is left in
// the cache; a copy of the source is kept beside the artifact.
func (g *Generator) Generate(ctx context.Context, p Params) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	var src bytes.Buffer
	if err := Render(&src, p); err != nil {
		return "", err
	}

	location, err := filepath.Abs(p.Key.Location(g.root, ".so"))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(location), 0o755); err != nil {
		return "", fmt.Errorf("failed to create cache directory: %w", err)
	}

	scratch, err := os.MkdirTemp("", "kgen-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(scratch)

	srcFile := filepath.Join(scratch, "kernel.go")
	if err := os.WriteFile(srcFile, src.Bytes(), 0o644); err != nil {
		return "", err
	}

	g.log.Info("Compiling kernel", zap.String("kernel", p.Key.Name()), zap.String("path", location))
	cmd := exec.CommandContext(ctx, g.goTool, "build", "-buildmode=plugin", "-o", location, srcFile)
	cmd.Dir = scratch
	cmd.Stdout = g.stdout
	cmd.Stderr = g.stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s build failed: %w", g.goTool, err)
	}

	if err := os.WriteFile(SourcePath(location), src.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("failed to save kernel source: %w", err)
	}
	return location, nil
}
