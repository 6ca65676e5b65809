package artifact

import (
	"github.com/fxnlabs/kernel-bench/internal/kernel"
)

// DefaultSymbol is the entry point every artifact must export.
const DefaultSymbol = "main"

// Loader opens the artifact stored at path for key.
//
// A load error means the file is not a usable artifact (corrupt, partially
// written, built for another key). The resolver treats it like a missing
// file and regenerates.
type Loader interface {
	Load(key Key, path string) (Module, error)
}

// Module is a loaded artifact.
type Module interface {
	// Lookup returns the kernel exported under symbol. Errors match
	// ErrSymbolMissing when the symbol is absent or has the wrong type.
	Lookup(symbol string) (kernel.Kernel, error)
}
