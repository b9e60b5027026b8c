package formkit

import (
	"fmt"
	"sort"
	"sync"
)

// StrategyFactory is a function that creates a Strategy from a config
type StrategyFactory func(cfg *Config) (Strategy, error)

var (
	strategyFactories = make(map[string]StrategyFactory)
	factoryMutex      sync.RWMutex
)

// RegisterStrategy registers a strategy factory function. Driver packages
// call it from init, so a driver is available once its package is imported.
func RegisterStrategy(name string, factory StrategyFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	strategyFactories[name] = factory
}

// CreateStrategy creates a strategy instance from config
func CreateStrategy(cfg *Config) (Strategy, error) {
	factoryMutex.RLock()
	factory, exists := strategyFactories[cfg.Driver]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}

	return factory(cfg)
}

// RegisteredStrategies returns the names of all registered drivers
func RegisteredStrategies() []string {
	factoryMutex.RLock()
	defer factoryMutex.RUnlock()
	names := make([]string, 0, len(strategyFactories))
	for name := range strategyFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
