package config

import "sync"

var (
	mu      sync.RWMutex
	current *Config
)

// Init loads and installs the process-wide config, for entry points (such as
// cmd/space) that don't want to thread a *Config through every call.
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	mu.Lock()
	current = cfg
	mu.Unlock()
	return nil
}

// MustInit is Init but panics on failure — only meant for cmd/ entry points
// during startup, before any goroutines exist.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(err)
	}
}

// Cfg returns the process-wide config installed by Init/MustInit, or nil if
// neither has run yet.
func Cfg() *Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
