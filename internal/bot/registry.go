package bot

import (
	"fmt"
	"sort"
)

// Registry maps command names to handler specs. Populated once at startup;
// a duplicate registration is a wiring bug, not a runtime condition.
type Registry struct {
	handlers map[string]Spec
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Spec)}
}

func (r *Registry) Register(spec Spec) error {
	if spec.Name == "" {
		return fmt.Errorf("register: empty command name")
	}
	if spec.Fn == nil {
		return fmt.Errorf("register %q: nil handler", spec.Name)
	}
	if spec.Level != LevelNone && spec.Level != LevelAdmin {
		return fmt.Errorf("register %q: unknown level %d", spec.Name, spec.Level)
	}
	if _, exists := r.handlers[spec.Name]; exists {
		return fmt.Errorf("register %q: already registered", spec.Name)
	}
	r.handlers[spec.Name] = spec
	return nil
}

func (r *Registry) MustRegister(specs ...Spec) {
	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(name string) (Spec, bool) {
	s, ok := r.handlers[name]
	return s, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.handlers))
	for n := range r.handlers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
