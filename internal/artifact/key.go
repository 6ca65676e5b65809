package artifact

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fxnlabs/kernel-bench/internal/workload"
)

// Key identifies one compiled kernel variant. Keys are comparable values
// and are never mutated after construction.
type Key struct {
	Platform string
	Threads  int
	N        int
	K        int
	M        int
}

// Shape returns the matrix shape encoded in the key.
func (k Key) Shape() workload.Shape {
	return workload.Shape{N: k.N, K: k.K, M: k.M}
}

// Validate rejects keys that cannot map to a unique cache location.
func (k Key) Validate() error {
	if k.Platform == "" {
		return fmt.Errorf("platform must not be empty")
	}
	if k.Platform == "." || k.Platform == ".." || strings.ContainsAny(k.Platform, `/\`) {
		return fmt.Errorf("platform %q must be a single path element", k.Platform)
	}
	if k.Threads <= 0 {
		return fmt.Errorf("thread count must be positive, got %d", k.Threads)
	}
	return k.Shape().Validate()
}

// Location returns the cache path of the key's artifact:
// <root>/<platform>/<threads>/<N>_<K>_<M><ext>.
func (k Key) Location(root, ext string) string {
	name := strconv.Itoa(k.N) + "_" + strconv.Itoa(k.K) + "_" + strconv.Itoa(k.M) + ext
	return filepath.Join(root, k.Platform, strconv.Itoa(k.Threads), name)
}

// Name is the benchmark name printed in reports.
func (k Key) Name() string {
	return fmt.Sprintf("Kernel CPUModel=%s %d_%d_%d ThreadNum=%d", k.Platform, k.N, k.K, k.M, k.Threads)
}
