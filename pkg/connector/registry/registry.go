package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cellbind/pkg/compression"
	"github.com/ajitpratap0/cellbind/pkg/config"
	"github.com/ajitpratap0/cellbind/pkg/connector/core"
	"github.com/ajitpratap0/cellbind/pkg/errors"
)

// Registry manages connector registration and instantiation
type Registry struct {
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
	extensions   map[string]string
	mu           sync.RWMutex
	logger       *zap.Logger
}

// SheetSource is a row source that can also push cells.
type SheetSource interface {
	core.Source
	core.CellSource
}

// SourceFactory opens the file at path as a source.
type SourceFactory func(path string, opts *config.Options, logger *zap.Logger) (SheetSource, error)

// DestinationFactory creates the file at path as a destination.
type DestinationFactory func(path string, opts *config.Options, logger *zap.Logger) (core.Destination, error)

// NewRegistry creates a new connector registry
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
		extensions:   make(map[string]string),
		logger:       logger.With(zap.String("component", "connector_registry")),
	}
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s already registered", name))
	}

	r.sources[name] = factory
	r.logger.Debug("source connector registered", zap.String("name", name))
	return nil
}

// RegisterDestination registers a destination connector factory
func (r *Registry) RegisterDestination(name string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination connector %s already registered", name))
	}

	r.destinations[name] = factory
	r.logger.Debug("destination connector registered", zap.String("name", name))
	return nil
}

// RegisterExtension maps a file extension such as ".tsv" onto a connector
// name.
func (r *Registry) RegisterExtension(ext, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extensions[strings.ToLower(ext)] = name
}

// FormatOf returns the connector name for path, ignoring a compression
// extension.
func (r *Registry) FormatOf(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(compression.TrimExtension(path)))

	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.extensions[ext]
	if !ok {
		return "", errors.Newf(errors.ErrorTypeConfig, "no connector handles %q files", ext)
	}
	return name, nil
}

// CreateSource creates a source connector instance
func (r *Registry) CreateSource(name, path string, opts *config.Options) (SheetSource, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("source connector %s not found", name))
	}

	source, err := factory(path, opts, r.logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("failed to create source connector %s", name))
	}
	return source, nil
}

// CreateDestination creates a destination connector instance
func (r *Registry) CreateDestination(name, path string, opts *config.Options) (core.Destination, error) {
	r.mu.RLock()
	factory, exists := r.destinations[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("destination connector %s not found", name))
	}

	destination, err := factory(path, opts, r.logger)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeSource, fmt.Sprintf("failed to create destination connector %s", name))
	}
	return destination, nil
}

// ListSources returns the sorted names of registered source connectors
func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sources := make([]string, 0, len(r.sources))
	for name := range r.sources {
		sources = append(sources, name)
	}
	sort.Strings(sources)
	return sources
}

// ListDestinations returns the sorted names of registered destination connectors
func (r *Registry) ListDestinations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	destinations := make([]string, 0, len(r.destinations))
	for name := range r.destinations {
		destinations = append(destinations, name)
	}
	sort.Strings(destinations)
	return destinations
}

// HasSource checks if a source connector is registered
func (r *Registry) HasSource(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sources[name]
	return exists
}

// HasDestination checks if a destination connector is registered
func (r *Registry) HasDestination(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.destinations[name]
	return exists
}
