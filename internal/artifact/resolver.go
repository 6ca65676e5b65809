package artifact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
	"go.uber.org/zap"
)

// Observer is notified of resolution outcomes. Metrics implement it.
type Observer interface {
	CacheHit(key Key)
	Regenerated(key Key)
	Failed(key Key)
}

// Options configure where a Resolver looks for artifacts.
type Options struct {
	// Root is the cache directory. Artifacts live at
	// <Root>/<platform>/<threads>/<N>_<K>_<M><Ext>.
	Root string
	// Ext is the artifact file extension including the dot.
	Ext string
	// Symbol is the entry point to look up. Defaults to DefaultSymbol.
	Symbol string
	// Observer is optional.
	Observer Observer
}

// Resolver maps configuration keys to loaded kernels, regenerating a
// missing or broken artifact exactly once.
type Resolver struct {
	opts    Options
	loader  Loader
	builder Builder
	log     *zap.Logger
}

// NewResolver creates a resolver over the cache described by opts.
func NewResolver(opts Options, loader Loader, builder Builder, log *zap.Logger) *Resolver {
	if opts.Root == "" {
		opts.Root = "."
	}
	if opts.Symbol == "" {
		opts.Symbol = DefaultSymbol
	}
	return &Resolver{
		opts:    opts,
		loader:  loader,
		builder: builder,
		log:     log.Named("resolver"),
	}
}

// Locate returns the cache location of key's artifact.
func (r *Resolver) Locate(key Key) string {
	return key.Location(r.opts.Root, r.opts.Ext)
}

// Resolve returns the kernel for key. A cached artifact is used as is. When
// it is missing or unusable the builder runs once and the load is retried
// once. A second failure is returned as an error matching
// ErrArtifactMissing; the resolver never loops.
func (r *Resolver) Resolve(ctx context.Context, key Key) (kernel.Kernel, error) {
	if err := key.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration key: %w", err)
	}
	path := r.Locate(key)
	log := r.log.With(zap.String("path", path))

	k, err := r.load(key, path)
	if err == nil {
		log.Debug("Artifact cache hit")
		r.observe(func(o Observer) { o.CacheHit(key) })
		return k, nil
	}
	log.Info("Artifact unavailable, regenerating", zap.Error(err))

	if err := r.builder.Build(ctx, key); err != nil {
		// Only the file left behind matters.
		log.Warn("Generator reported failure", zap.Error(err))
	}
	if err := ctx.Err(); err != nil {
		r.observe(func(o Observer) { o.Failed(key) })
		return nil, err
	}

	k, err = r.load(key, path)
	if err != nil {
		log.Error("Artifact unavailable after regeneration", zap.Error(err))
		r.observe(func(o Observer) { o.Failed(key) })
		return nil, fmt.Errorf("failed to resolve kernel %s: %w", path, err)
	}
	log.Info("Artifact regenerated")
	r.observe(func(o Observer) { o.Regenerated(key) })
	return k, nil
}

func (r *Resolver) load(key Key, path string) (kernel.Kernel, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: couldn't find %s", ErrArtifactMissing, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrArtifactMissing, err)
	}

	mod, err := r.loader.Load(key, path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load %s: %v", ErrArtifactMissing, path, err)
	}

	k, err := mod.Lookup(r.opts.Symbol)
	if err != nil {
		if !errors.Is(err, ErrArtifactMissing) {
			err = fmt.Errorf("%w: %v", ErrSymbolMissing, err)
		}
		return nil, err
	}
	if k == nil {
		return nil, fmt.Errorf("%w: couldn't find %s inside %s", ErrSymbolMissing, r.opts.Symbol, path)
	}
	return k, nil
}

func (r *Resolver) observe(fn func(Observer)) {
	if r.opts.Observer != nil {
		fn(r.opts.Observer)
	}
}
