package runtime

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Handler executes one job_type. Run is called once per delivery; returning an
// error hands the job back to the retry policy.
type Handler interface {
	Type() string
	Run(ctx *Context) error
}

// Registry maps job_type to the handler that owns it. It is filled during wiring
// and read by every dispatcher goroutine afterwards.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{byType: map[string]Handler{}}
}

// Register adds h under h.Type(). A job_type can only be claimed once.
func (r *Registry) Register(h Handler) error {
	if h == nil {
		return fmt.Errorf("register job handler: nil handler")
	}
	jobType := strings.TrimSpace(h.Type())
	if jobType == "" {
		return fmt.Errorf("register job handler: empty job_type")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byType[jobType]; dup {
		return fmt.Errorf("register job handler: job_type=%s already registered", jobType)
	}
	r.byType[jobType] = h
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byType[jobType]
	return h, ok
}

// Types lists the registered job types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byType))
	for t := range r.byType {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
