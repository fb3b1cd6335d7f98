package source

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/water-unifier/internal/record"
)

// Registry maps provider names to their implementations.
type Registry struct {
	sources map[string]Source
	order   []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source to the registry. Registering a name twice replaces
// the earlier source and keeps its position.
func (r *Registry) Register(s Source) {
	name := s.Name()
	if _, ok := r.sources[name]; !ok {
		r.order = append(r.order, name)
	}
	r.sources[name] = s
}

// Get returns a source by name.
func (r *Registry) Get(name string) (Source, error) {
	s, ok := r.sources[name]
	if !ok {
		return nil, eris.Errorf("source: unknown source %q", name)
	}
	return s, nil
}

// Select returns the sources supplying kind. If names is non-empty only
// those sources are considered, in registration order; an unknown name or
// a named source that does not supply kind is an error.
func (r *Registry) Select(names []string, kind *record.Kind) ([]Source, error) {
	if len(names) > 0 {
		want := make(map[string]bool, len(names))
		for _, name := range names {
			s, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			if !Supports(s, kind) {
				return nil, eris.Errorf("source: %s does not supply %s records", name, kind.Name)
			}
			want[name] = true
		}

		var result []Source
		for _, name := range r.order {
			if want[name] {
				result = append(result, r.sources[name])
			}
		}
		return result, nil
	}

	var result []Source
	for _, s := range r.All() {
		if Supports(s, kind) {
			result = append(result, s)
		}
	}
	return result, nil
}

// All returns all sources in registration order.
func (r *Registry) All() []Source {
	result := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.sources[name])
	}
	return result
}

// AllNames returns all registered source names in registration order.
func (r *Registry) AllNames() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
