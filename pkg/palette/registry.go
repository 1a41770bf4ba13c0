package palette

import (
	"fmt"
	"slices"
	"sync"
)

// Default is the palette used when none is configured.
const Default = "hsl"

var (
	mu       sync.RWMutex
	registry = make(map[string]Func)
)

func init() {
	_ = Register("hsl", HSL)
	_ = Register("wheel", Wheel)
	_ = Register("grey", Grey)
}

func Register(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("palette %q: nil func", name)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("palette already registered: %s", name)
	}
	registry[name] = fn
	return nil
}

func Get(name string) (Func, error) {
	mu.RLock()
	defer mu.RUnlock()
	fn, exists := registry[name]
	if !exists {
		return nil, fmt.Errorf("palette not found: %s", name)
	}
	return fn, nil
}

// List returns the registered palette names in sorted order.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
