package artifact

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCommandBuilder_Args(t *testing.T) {
	b, err := NewCommandBuilder(DefaultGeneratorCommand, DefaultGeneratorArgs, ".", zap.NewNop())
	require.NoError(t, err)

	args, err := b.Args(Key{Platform: "r9", Threads: 16, N: 1024, K: 512, M: 256})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"./regenerateLibrary.py",
		"--cpu", "r9",
		"--threadnum", "16",
		"--N", "1024",
		"--K", "512",
		"--M", "256",
	}, args)
}

func TestNewCommandBuilder_Invalid(t *testing.T) {
	_, err := NewCommandBuilder("", nil, ".", zap.NewNop())
	assert.Error(t, err)

	_, err = NewCommandBuilder("python3", []string{"{{.Platform"}, ".", zap.NewNop())
	assert.ErrorContains(t, err, "invalid generator argument")

	b, err := NewCommandBuilder("python3", []string{"{{.Device}}"}, ".", zap.NewNop())
	require.NoError(t, err)
	_, err = b.Args(testKey)
	assert.Error(t, err)
}

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("generator tests use sh")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestCommandBuilder_Build(t *testing.T) {
	requireShell(t)

	t.Run("runs in the cache root", func(t *testing.T) {
		root := t.TempDir()
		b, err := NewCommandBuilder("sh", []string{
			"-c", `mkdir -p "$1/$2" && echo generated > "$1/$2/$3_$4_$5.so" && echo done`,
			"generator", "{{.Platform}}", "{{.Threads}}", "{{.N}}", "{{.K}}", "{{.M}}",
		}, root, zap.NewNop())
		require.NoError(t, err)

		var stdout, stderr bytes.Buffer
		b.SetOutput(&stdout, &stderr)

		require.NoError(t, b.Build(context.Background(), testKey))

		data, err := os.ReadFile(filepath.Join(root, "r9", "2", "2_2_2.so"))
		require.NoError(t, err)
		assert.Equal(t, "generated\n", string(data))
		assert.Equal(t, "done\n", stdout.String())
	})

	t.Run("creates a missing working directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "fresh", "cache")
		b, err := NewCommandBuilder("sh", []string{"-c", "pwd > marker"}, dir, zap.NewNop())
		require.NoError(t, err)
		b.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})

		require.NoError(t, b.Build(context.Background(), testKey))
		assert.FileExists(t, filepath.Join(dir, "marker"))
	})

	t.Run("non-zero exit is reported", func(t *testing.T) {
		b, err := NewCommandBuilder("sh", []string{"-c", "echo boom >&2; exit 3"}, t.TempDir(), zap.NewNop())
		require.NoError(t, err)
		var stderr bytes.Buffer
		b.SetOutput(&bytes.Buffer{}, &stderr)

		err = b.Build(context.Background(), testKey)
		assert.ErrorContains(t, err, "exit status 3")
		assert.Equal(t, "boom\n", stderr.String())
	})

	t.Run("missing executable", func(t *testing.T) {
		b, err := NewCommandBuilder("kbench-no-such-generator", nil, t.TempDir(), zap.NewNop())
		require.NoError(t, err)
		assert.Error(t, b.Build(context.Background(), testKey))
	})
}

func TestCommandBuilder_WithResolver(t *testing.T) {
	requireShell(t)

	root := t.TempDir()
	b, err := NewCommandBuilder("sh", []string{"-c", "exit 1"}, root, zap.NewNop())
	require.NoError(t, err)
	b.SetOutput(&bytes.Buffer{}, &bytes.Buffer{})

	r := newManifestResolver(t, root, b, nil)
	_, err = r.Resolve(context.Background(), testKey)
	assert.ErrorIs(t, err, ErrArtifactMissing)
}

func TestManifestBuilder(t *testing.T) {
	root := t.TempDir()
	b, err := NewManifestBuilder(root, ".yaml", DefaultSymbol, kernel.BackendParallel, zap.NewNop())
	require.NoError(t, err)

	key := Key{Platform: "i7", Threads: 4, N: 8, K: 16, M: 32}
	require.NoError(t, b.Build(context.Background(), key))

	m, err := ReadManifest(filepath.Join(root, "i7", "4", "8_16_32.yaml"))
	require.NoError(t, err)
	assert.Equal(t, key, m.Key())
	assert.Equal(t, Export{Backend: kernel.BackendParallel}, m.Exports[DefaultSymbol])

	_, err = NewManifestBuilder(root, ".yaml", DefaultSymbol, "tvm", zap.NewNop())
	assert.ErrorContains(t, err, "unknown kernel backend")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.Build(ctx, key), context.Canceled)
}
