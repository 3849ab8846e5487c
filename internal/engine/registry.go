// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package engine

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.RWMutex
	registry   = map[string]func() (Factory, error){}
)

// Register makes a backend available by name. Backends behind build tags
// call it from init.
func Register(name string, newFactory func() (Factory, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = newFactory
}

// Open instantiates the named backend.
func Open(name string) (Factory, error) {
	registryMu.RLock()
	newFactory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown engine backend %q (available: %v)", name, Backends())
	}
	return newFactory()
}

// Backends lists registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
