package artifact

import (
	"fmt"
	"plugin"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/fxnlabs/kernel-bench/internal/kernel"
)

// PluginLoader loads kernels compiled as Go plugins (go build
// -buildmode=plugin). The exported symbol must be one of
//
//	func(a, b, c []float32) error
//	var Main func(a, b, c []float32) error
//	var Main kernel.Kernel
//
// Go plugins only export capitalised identifiers, so the entry point "main"
// is looked up as "Main".
//
// The runtime caches plugins by path and never unloads them. A plugin that
// opened successfully is therefore not re-read after regeneration within
// the same process.
type PluginLoader struct{}

func (PluginLoader) Load(key Key, path string) (Module, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, err
	}
	return &pluginModule{plugin: p, key: key}, nil
}

type pluginModule struct {
	plugin *plugin.Plugin
	key    Key
}

func (m *pluginModule) Lookup(symbol string) (kernel.Kernel, error) {
	name := exportedName(symbol)
	sym, err := m.plugin.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSymbolMissing, err)
	}

	var k kernel.Kernel
	switch v := sym.(type) {
	case func(a, b, c []float32) error:
		k = kernel.Func(v)
	case *func(a, b, c []float32) error:
		if v != nil && *v != nil {
			k = kernel.Func(*v)
		}
	case *kernel.Kernel:
		if v != nil {
			k = *v
		}
	case kernel.Kernel:
		k = v
	}
	if k == nil {
		return nil, fmt.Errorf("%w: symbol %s has unsupported type %T", ErrSymbolMissing, name, sym)
	}
	return kernel.Bind(m.key.Shape(), k), nil
}

func exportedName(symbol string) string {
	r, size := utf8.DecodeRuneInString(symbol)
	if r == utf8.RuneError || unicode.IsUpper(r) {
		return symbol
	}
	return strings.ToUpper(string(r)) + symbol[size:]
}
