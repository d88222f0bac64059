// Package registry holds the set of known runners and answers
// selection queries against it.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pithecene-io/crier/runner"
)

// Registry is the append-only set of runner candidates for one
// process. Registration happens at startup; queries recompute their
// answer from the current set every time, so no selection state
// survives between calls. Thread-safe.
type Registry struct {
	mu      sync.RWMutex
	runners map[string]runner.Runner
}

// Default is the registry the shipped binary uses. Built-in runners
// register themselves here at init; the CLI re-registers them with
// loaded configuration before a run.
var Default = New()

// New creates an empty Registry.
func New() *Registry {
	return &Registry{runners: make(map[string]runner.Runner)}
}

// Register adds a runner. Registering the same name twice keeps one
// entry; the later registration wins, which lets tests substitute
// doubles. An empty name is rejected.
func (r *Registry) Register(rn runner.Runner) error {
	name := rn.Name()
	if name == "" {
		return fmt.Errorf("registry: runner with empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runners[name] = rn
	return nil
}

// MustRegister is Register for static wiring, panicking on a bad
// runner. A bad built-in is a defect caught on the first start.
func (r *Registry) MustRegister(rn runner.Runner) {
	if err := r.Register(rn); err != nil {
		panic(err)
	}
}

// All returns every registered runner, deduplicated and sorted
// lexicographically, case-sensitively, by name. This order is the
// execution order.
func (r *Registry) All() []runner.Runner {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.runners))
	for name := range r.runners {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]runner.Runner, 0, len(names))
	for _, name := range names {
		out = append(out, r.runners[name])
	}
	return out
}

// Names returns every registered runner name in sorted order.
func (r *Registry) Names() []string {
	all := r.All()
	names := make([]string, len(all))
	for i, rn := range all {
		names[i] = rn.Name()
	}
	return names
}

// Select returns the runners whose names case-insensitively contain at
// least one of the filter terms, preserving sorted order. An empty or
// nil filter list retains every runner. The filter is a value for this
// call only; nothing is remembered for the next one.
func (r *Registry) Select(filters []string) []runner.Runner {
	all := r.All()
	if len(filters) == 0 {
		return all
	}

	lowered := make([]string, len(filters))
	for i, f := range filters {
		lowered[i] = strings.ToLower(f)
	}

	var out []runner.Runner
	for _, rn := range all {
		name := strings.ToLower(rn.Name())
		for _, term := range lowered {
			if strings.Contains(name, term) {
				out = append(out, rn)
				break
			}
		}
	}
	return out
}
