package llm

import (
	"context"
	"fmt"
	"sort"

	"github.com/newthinker/nurexia/internal/core"
	"go.uber.org/zap"
)

// Constructor builds a provider bound to model and opts. model is never
// empty when called by the Registry.
type Constructor func(model string, opts Options) (Provider, error)

// Entry registers one provider type.
type Entry struct {
	Capabilities Capabilities
	New          Constructor
}

// Registry resolves provider names to live instances. The table is fixed
// at construction, so concurrent reads need no locking.
type Registry struct {
	entries map[string]Entry
	names   []string
	logger  *zap.Logger
}

// NewRegistry builds a registry from entries. Names must be unique.
func NewRegistry(logger *zap.Logger, entries ...Entry) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		logger:  logger,
	}
	for _, e := range entries {
		name := e.Capabilities.Name
		if name == "" {
			return nil, fmt.Errorf("registering provider: empty name")
		}
		if e.New == nil {
			return nil, fmt.Errorf("registering provider %s: nil constructor", name)
		}
		if _, dup := r.entries[name]; dup {
			return nil, fmt.Errorf("registering provider %s: duplicate name", name)
		}
		e.Capabilities = e.Capabilities.clone()
		r.entries[name] = e
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r, nil
}

// Create returns a provider instance for name. An empty model selects the
// provider's default. On failure no instance is returned.
func (r *Registry) Create(name, model string, opts Options) (Provider, error) {
	e, ok := r.entries[name]
	if !ok {
		return nil, r.unknown(name)
	}
	if model == "" {
		model = e.Capabilities.DefaultModel
	} else if !e.Capabilities.Supports(model) {
		r.logger.Warn("model not in provider catalog",
			zap.String("provider", name),
			zap.String("model", model),
		)
	}

	p, err := e.New(model, opts.Clone())
	if err != nil {
		return nil, core.NewError(core.ErrConnection, fmt.Sprintf("creating %s provider", name), err)
	}
	if p == nil {
		return nil, core.NewError(core.ErrConnection, fmt.Sprintf("creating %s provider", name), fmt.Errorf("constructor returned nil"))
	}
	return p, nil
}

// ListCapabilities returns a copy of every registered descriptor.
func (r *Registry) ListCapabilities() map[string]Capabilities {
	out := make(map[string]Capabilities, len(r.entries))
	for name, e := range r.entries {
		out[name] = e.Capabilities.clone()
	}
	return out
}

// Capabilities returns the descriptor for name.
func (r *Registry) Capabilities(name string) (Capabilities, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Capabilities{}, false
	}
	return e.Capabilities.clone(), true
}

// TestConnection builds a transient instance and delegates to it. It never
// returns an error; every failure is folded into the message.
func (r *Registry) TestConnection(ctx context.Context, name, model string) (bool, string) {
	p, err := r.Create(name, model, nil)
	if err != nil {
		return false, err.Error()
	}
	return p.TestConnection(ctx)
}

// Names returns registered provider names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.entries[name]
	return ok
}

func (r *Registry) unknown(name string) error {
	return core.NewError(core.ErrUnknownProvider,
		fmt.Sprintf("unknown provider %q (available: %v)", name, r.names), nil)
}
