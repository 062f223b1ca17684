package mutation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownMutator = errors.New("unknown mutator")
	ErrInvalidArgs    = errors.New("invalid mutator arguments")
	ErrUnknownRoom    = errors.New("unknown room")
)

// Mutator is a named state transition. It runs once speculatively on the
// issuing client and once authoritatively on the server, and must reach the
// same result from the same logical state.
type Mutator func(ctx context.Context, tx WriteTransaction, args json.RawMessage) error

// Middleware wraps a named mutator
type Middleware func(name string, next Mutator) Mutator

// Defs maps mutator names to implementations
type Defs map[string]Mutator

// Registry holds the mutators callable in one kind of room
type Registry struct {
	mutators map[string]Mutator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{mutators: make(map[string]Mutator)}
}

// Register adds defs wrapped by mws. The first middleware is outermost.
// Wrapping happens here once, not per call.
func (r *Registry) Register(defs Defs, mws ...Middleware) *Registry {
	for name, m := range defs {
		wrapped := m
		for i := len(mws) - 1; i >= 0; i-- {
			wrapped = mws[i](name, wrapped)
		}
		r.mutators[name] = wrapped
	}
	return r
}

// Lookup returns the wrapped mutator for name
func (r *Registry) Lookup(name string) (Mutator, bool) {
	m, ok := r.mutators[name]
	return m, ok
}

// Names lists registered mutator names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.mutators))
	for name := range r.mutators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DecodeArgs unmarshals mutator arguments. Empty args leave v untouched.
func DecodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgs, err)
	}
	return nil
}
