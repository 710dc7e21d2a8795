package carrier

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Registry manages registered pickup carriers.
type Registry struct {
	carriers map[string]Carrier
	mu       sync.RWMutex
}

// NewRegistry creates a new carrier registry.
func NewRegistry() *Registry {
	return &Registry{
		carriers: make(map[string]Carrier),
	}
}

// Register adds a carrier to the registry.
func (r *Registry) Register(c Carrier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[c.Name()] = c
}

// Get returns a carrier by name.
func (r *Registry) Get(name string) (Carrier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carriers[name]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrCarrierNotFound, name)
}

// All returns all registered carriers.
func (r *Registry) All() []Carrier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		result = append(result, c)
	}
	return result
}

// Names returns the names of all registered carriers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.carriers))
	for name := range r.carriers {
		names = append(names, name)
	}
	return names
}

// Count returns the number of registered carriers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.carriers)
}

// QuoteAll fetches pickup rates from all registered carriers in parallel.
// Errors from individual carriers don't fail the entire request; the
// caller receives whatever quotes succeeded plus the per-carrier errors.
func (r *Registry) QuoteAll(ctx context.Context, req *RateRequest) ([]*RateResponse, []error) {
	carriers := r.All()
	if len(carriers) == 0 {
		return nil, []error{ErrCarrierNotFound}
	}

	results := make([]*RateResponse, 0, len(carriers))
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, c := range carriers {
		g.Go(func() error {
			resp, err := c.QuoteRates(ctx, req)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.Name(), err))
				return nil
			}
			results = append(results, resp)
			return nil
		})
	}

	g.Wait()
	return results, errs
}
