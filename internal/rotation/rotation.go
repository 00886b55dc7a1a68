// Package rotation keeps the shared cursor over interchangeable upstream endpoints.
package rotation

import (
	"errors"
	"strings"
	"sync"
)

// Rotator is a cursor into a fixed, ordered endpoint list. It is safe for
// concurrent use; callers snapshot Current once per call and Advance on every
// failed attempt.
type Rotator struct {
	mu        sync.Mutex
	endpoints []string
	cur       int
}

func New(endpoints []string) (*Rotator, error) {
	eps := make([]string, 0, len(endpoints))
	for _, e := range endpoints {
		if e = strings.TrimSpace(e); e != "" {
			eps = append(eps, e)
		}
	}
	if len(eps) == 0 {
		return nil, errors.New("rotation: at least one endpoint is required")
	}
	return &Rotator{endpoints: eps}, nil
}

func (r *Rotator) Len() int { return len(r.endpoints) }

// Current returns the cursor position.
func (r *Rotator) Current() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}

// At returns the endpoint attempt positions after start.
func (r *Rotator) At(start, attempt int) string {
	n := len(r.endpoints)
	idx := ((start+attempt)%n + n) % n
	return r.endpoints[idx]
}

// Advance moves the cursor to the next endpoint and returns the new position.
func (r *Rotator) Advance() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cur = (r.cur + 1) % len(r.endpoints)
	return r.cur
}

// Endpoints returns a copy of the configured list.
func (r *Rotator) Endpoints() []string {
	out := make([]string, len(r.endpoints))
	copy(out, r.endpoints)
	return out
}
