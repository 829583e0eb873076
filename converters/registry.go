package converters

import (
	"fmt"
	"slices"
	"sync"

	"github.com/HugeFrog24/stimconv/stim"
)

// Registration describes a converter type known to a Registry.
type Registration struct {
	Name   string
	Input  stim.Modality
	Output stim.Modality
	// Remote marks converters that call an external service. Local
	// converters take precedence over remote ones.
	Remote bool
	// New returns a converter with default options.
	New func() Converter
}

// Registry maps modality pairs to converters.
//
// When several converters match a pair, local converters come before remote
// ones and, within each group, earlier registrations come before later ones.
type Registry struct {
	mu    sync.RWMutex
	regs  []Registration
	names map[string]struct{}
}

// DefaultRegistry holds the built-in converters.
var DefaultRegistry = NewRegistry()

// Register adds r to the default registry.
func Register(r Registration) error {
	return DefaultRegistry.Register(r)
}

// GetConverter looks up a converter in the default registry.
func GetConverter(src, dst stim.Modality) Converter {
	return DefaultRegistry.GetConverter(src, dst)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register adds a converter type. Names must be unique.
func (r *Registry) Register(reg Registration) error {
	if reg.Name == "" || reg.New == nil {
		return fmt.Errorf("converters: registration needs a name and a constructor")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.names[reg.Name]; ok {
		return fmt.Errorf("converters: converter already registered for %s", reg.Name)
	}
	r.names[reg.Name] = struct{}{}
	r.regs = append(r.regs, reg)
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(regs ...Registration) {
	for _, reg := range regs {
		if err := r.Register(reg); err != nil {
			panic(err)
		}
	}
}

// Registrations returns every registration in registration order.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.regs)
}

// Lookup finds a registration by converter name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.regs {
		if reg.Name == name {
			return reg, true
		}
	}
	return Registration{}, false
}

// Candidates returns the registrations converting src to dst in precedence
// order.
func (r *Registry) Candidates(src, dst stim.Modality) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.from(src, func(reg Registration) bool { return reg.Output == dst })
}

// from returns the registrations with input src accepted by keep, local ones
// first. Callers hold r.mu.
func (r *Registry) from(src stim.Modality, keep func(Registration) bool) []Registration {
	var local, remote []Registration
	for _, reg := range r.regs {
		if reg.Input != src || !keep(reg) {
			continue
		}
		if reg.Remote {
			remote = append(remote, reg)
		} else {
			local = append(local, reg)
		}
	}
	return append(local, remote...)
}

// GetConverter returns a new instance of the preferred converter from src to
// dst, or nil if there is none.
func (r *Registry) GetConverter(src, dst stim.Modality) Converter {
	cands := r.Candidates(src, dst)
	if len(cands) == 0 {
		return nil
	}
	return cands[0].New()
}

// Path returns the shortest chain of registrations leading from src to dst.
// Ties are broken by the same precedence as Candidates. It returns
// ErrNoConverterPath when dst cannot be reached.
func (r *Registry) Path(src, dst stim.Modality) ([]Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	type hop struct {
		prev stim.Modality
		reg  Registration
	}
	visited := map[stim.Modality]bool{src: true}
	via := map[stim.Modality]hop{}
	queue := []stim.Modality{src}

	build := func(last Registration, at stim.Modality) []Registration {
		path := []Registration{last}
		for at != src {
			h := via[at]
			path = append(path, h.reg)
			at = h.prev
		}
		slices.Reverse(path)
		return path
	}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, reg := range r.from(cur, func(Registration) bool { return true }) {
			if reg.Output == dst {
				return build(reg, cur), nil
			}
			if visited[reg.Output] {
				continue
			}
			visited[reg.Output] = true
			via[reg.Output] = hop{prev: cur, reg: reg}
			queue = append(queue, reg.Output)
		}
	}
	return nil, fmt.Errorf("%w from %s to %s", ErrNoConverterPath, src, dst)
}
