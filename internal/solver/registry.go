package solver

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var ErrSolverNotFound = errors.New("solver not found")

// Factory builds solvers of one kind.
type Factory interface {
	Name() string
	Create(key uuid.UUID, cfg Config) Solver
}

// FactoryFunc adapts a constructor into a Factory.
type FactoryFunc struct {
	FactoryName string
	New         func(key uuid.UUID, cfg Config) Solver
}

func (f FactoryFunc) Name() string                            { return f.FactoryName }
func (f FactoryFunc) Create(key uuid.UUID, cfg Config) Solver { return f.New(key, cfg) }

// Registry maps solver names to factories. It is filled at process start.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds f, replacing any factory with the same name.
func (r *Registry) Register(f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[f.Name()] = f
}

// NamedFactories returns a copy of the name -> factory map.
func (r *Registry) NamedFactories() map[string]Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Factory, len(r.factories))
	for name, f := range r.factories {
		out[name] = f
	}
	return out
}

// Names returns the registered solver names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) CreateSolver(name string, key uuid.UUID, cfg Config) (Solver, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("create solver %q: %w", name, ErrSolverNotFound)
	}
	return f.Create(key, cfg), nil
}
