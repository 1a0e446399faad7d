package output

import (
	"context"
	"sync"
)

// StubRenderer records every rendered view.
type StubRenderer struct {
	mu    sync.Mutex
	views []View
}

// NewStubRenderer creates an empty recording renderer.
func NewStubRenderer() *StubRenderer {
	return &StubRenderer{}
}

func (r *StubRenderer) Render(_ context.Context, view View) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, view)
	return nil
}

// Views returns every view rendered so far.
func (r *StubRenderer) Views() []View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]View(nil), r.views...)
}

// Last returns the most recent view, or false if nothing was rendered.
func (r *StubRenderer) Last() (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return View{}, false
	}
	return r.views[len(r.views)-1], true
}
