package session

import (
	"fmt"
	"sync"
)

// HostConfig holds static display defaults for a widget key. The options
// builder falls back to these when the host omits optional display fields.
type HostConfig struct {
	Key             string
	DisplayName     string
	ThemeColor      string
	DefaultCurrency string
}

// HostConfigRepository defines an interface for fetching host configurations.
// This allows for different implementations (e.g., in-memory, remote).
type HostConfigRepository interface {
	Get(key string) (HostConfig, error)
}

// InMemoryHostConfigRepository is a simple in-memory implementation.
type InMemoryHostConfigRepository struct {
	mu      sync.RWMutex
	configs map[string]HostConfig
}

// NewInMemoryHostConfigRepository creates a new in-memory repository.
func NewInMemoryHostConfigRepository() *InMemoryHostConfigRepository {
	return &InMemoryHostConfigRepository{
		configs: make(map[string]HostConfig),
	}
}

// AddConfig adds a host configuration to the repository.
func (r *InMemoryHostConfigRepository) AddConfig(config HostConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[config.Key] = config
}

// Get fetches a host configuration by widget key.
func (r *InMemoryHostConfigRepository) Get(key string) (HostConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[key]
	if !ok {
		return HostConfig{}, fmt.Errorf("host config not found for key: %s", key)
	}
	return config, nil
}
