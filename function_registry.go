package expect

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrRegistrySealed reports a registration after the registry was sealed.
var ErrRegistrySealed = errors.New("expect: function registry is sealed")

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions keyed by case-insensitive name.
// Registries are populated at startup and sealed when an engine adopts
// them; lookups never change afterwards.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]Function
	sealed    bool
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]Function),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("expect: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("expect: function name must not be empty")
	}
	if isReservedName(name) {
		return fmt.Errorf("expect: function name %q is reserved", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrRegistrySealed, name)
	}
	if r.functions == nil {
		r.functions = make(map[string]Function)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("expect: function %q already registered", name)
	}
	r.functions[key] = fn
	return nil
}

// MustRegister is Register for startup wiring.
func (r *FunctionRegistry) MustRegister(name string, fn Function) *FunctionRegistry {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
	return r
}

// Seal rejects any further registration.
func (r *FunctionRegistry) Seal() {
	if r == nil {
		return
	}
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// Sealed reports whether Seal was called.
func (r *FunctionRegistry) Sealed() bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Clone returns a sealed shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]Function, len(r.functions)),
		sealed:    true,
	}
	for name, fn := range r.functions {
		clone.functions[name] = fn
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("expect: function registry is nil")
	}
	r.mu.RLock()
	fn := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("expect: function %q not registered", name)
	}
	return fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isReservedName(name string) bool {
	switch name {
	case CandidateBinding, PresentBinding, MissingBinding, "call", "Expected", "ExpectedEmpty":
		return true
	}
	return false
}

// WithFunctionRegistry configures the default evaluator to expose the
// functions in registry. The registry is sealed.
func WithFunctionRegistry(registry *FunctionRegistry) Option {
	return func(cfg *engineConfig) {
		if registry == nil {
			return
		}
		registry.Seal()
		cfg.functions = registry.Clone()
	}
}
