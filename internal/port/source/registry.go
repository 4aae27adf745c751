package source

import (
	"fmt"
	"sync"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
)

// Factory builds a Provider over an already-configured forge client.
// The client carries the token, rate gate, budget, and read-only
// guard; the factory only adds the forge's API dialect.
type Factory func(client *forgehttp.Client) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes a source provider factory available by name.
// It is typically called from an init() function in the adapter
// package.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("source: duplicate registration for %q", name))
	}
	factories[name] = factory
}

// New creates a Provider by name using the registered factory.
func New(name string, client *forgehttp.Client) (Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("source: unknown provider %q", name)
	}
	return factory(client)
}

// Available returns the names of all registered providers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	return names
}
