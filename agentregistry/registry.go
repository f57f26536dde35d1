// Package agentregistry is the coordinator's in-memory directory of
// registered workers, per spec.md §4.2. There is no heartbeat, no
// federation, and no background sync: a worker's AgentRecord lives here
// exactly as long as the coordinator process runs, populated by
// self-registration at worker boot.
package agentregistry

import (
	"context"
	"sync"

	"github.com/archiveflow/coordinator/apperrors"
	"github.com/archiveflow/coordinator/model"
	"github.com/archiveflow/coordinator/telemetry"
)

// Registry is a mutex-protected map of agent name to AgentRecord.
type Registry struct {
	mu     sync.RWMutex
	agents map[string]model.AgentRecord
	logger telemetry.Logger
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithLogger attaches a Logger; defaults to a noop logger when omitted.
func WithLogger(l telemetry.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// New constructs an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		agents: make(map[string]model.AgentRecord),
		logger: telemetry.NoopLogger{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds or replaces the record for record.Name. Re-registration
// under the same name is expected on worker restart and is not an error.
func (r *Registry) Register(ctx context.Context, record model.AgentRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[record.Name] = record
	r.logger.Info(ctx, "agent registered", "name", record.Name, "kind", string(record.Kind), "base_url", record.BaseURL)
}

// Get returns the record for name, or a NotFoundError if no worker has
// registered under that name.
func (r *Registry) Get(name string) (model.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.agents[name]
	if !ok {
		return model.AgentRecord{}, apperrors.NewNotFoundf("agent %s not registered", name)
	}
	return rec, nil
}

// GetByKind returns a registered record of the given kind. Only one worker
// per kind is expected to be registered at a time per spec.md's
// three-worker topology; when several records share a kind, which one is
// returned is not defined (the map is scanned in Go's unordered iteration
// order).
func (r *Registry) GetByKind(kind model.AgentKind) (model.AgentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rec := range r.agents {
		if rec.Kind == kind {
			return rec, nil
		}
	}
	return model.AgentRecord{}, apperrors.NewNotFoundf("no agent registered for kind %s", kind)
}

// List returns a defensive copy of every registered record.
func (r *Registry) List() []model.AgentRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.AgentRecord, 0, len(r.agents))
	for _, rec := range r.agents {
		out = append(out, rec)
	}
	return out
}

// Unregister removes name from the registry. Removing an absent name is
// not an error.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, name)
}
