package blur

import (
	"slices"
	"sync"
)

// DefaultAccelerator is the accelerator used when none is named.
const DefaultAccelerator = "bild"

var (
	registryMu   sync.RWMutex
	accelerators = make(map[string]Accelerator)
)

// Register makes an accelerator available by name, replacing any previous
// registration with the same name.
func Register(name string, acc Accelerator) {
	registryMu.Lock()
	defer registryMu.Unlock()
	accelerators[name] = acc
}

// Unregister removes an accelerator. Mostly useful in tests.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(accelerators, name)
}

// Lookup returns the named accelerator, or nil if it is not registered. An
// empty name selects DefaultAccelerator.
func Lookup(name string) Accelerator {
	if name == "" {
		name = DefaultAccelerator
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	return accelerators[name]
}

// Accelerators returns the sorted names of all registered accelerators.
func Accelerators() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(accelerators))
	for name := range accelerators {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
