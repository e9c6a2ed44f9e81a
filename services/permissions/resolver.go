package permissions

import (
	"sync/atomic"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
	"go.uber.org/zap"
)

// AccessSet is the effective set of departments a role may read.
type AccessSet map[models.DepartmentID]bool

// Contains reports whether the department is in the set.
func (s AccessSet) Contains(d models.DepartmentID) bool {
	return s[d]
}

// IsEmpty reports whether the set grants nothing.
func (s AccessSet) IsEmpty() bool {
	return len(s) == 0
}

// Departments returns the set's members in map order; callers that need
// determinism should sort.
func (s AccessSet) Departments() []models.DepartmentID {
	out := make([]models.DepartmentID, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	return out
}

// Resolver expands a role into its effective access set against the current
// role graph generation. Resolution is pure given a fixed snapshot; the only
// mutation is an atomic whole-graph swap on Reload. Readers see the old or
// the new generation, never a partial one.
type Resolver struct {
	graph  atomic.Pointer[Graph]
	logger *zap.Logger
}

// NewResolver creates a resolver over an initial graph snapshot.
func NewResolver(graph *Graph, logger *zap.Logger) *Resolver {
	r := &Resolver{logger: logger}
	r.graph.Store(graph)
	return r
}

// Resolve returns the effective access set for a role. Unknown roles fail
// with ErrUnknownRole, which callers must treat as deny-all.
func (r *Resolver) Resolve(roleID models.RoleID) (AccessSet, error) {
	g := r.graph.Load()
	closure, ok := g.closure[roleID]
	if !ok {
		r.logger.Warn("resolve failed for unknown role",
			zap.String("role", string(roleID)),
			zap.Uint64("generation", g.generation))
		return nil, services.ErrUnknownRole.WithDetail("role", string(roleID))
	}

	set := make(AccessSet, len(closure))
	for _, d := range closure {
		set[d] = true
	}
	return set, nil
}

// ResolveOrdered returns the effective access set as a sorted slice, for
// callers that need deterministic iteration order.
func (r *Resolver) ResolveOrdered(roleID models.RoleID) ([]models.DepartmentID, error) {
	g := r.graph.Load()
	closure, ok := g.closure[roleID]
	if !ok {
		return nil, services.ErrUnknownRole.WithDetail("role", string(roleID))
	}
	return append([]models.DepartmentID(nil), closure...), nil
}

// ValidateAccess reports whether the role may read the department. Unknown
// roles validate as false; this is the pre-flight check UIs use.
func (r *Resolver) ValidateAccess(roleID models.RoleID, department models.DepartmentID) bool {
	set, err := r.Resolve(roleID)
	if err != nil {
		return false
	}
	return set.Contains(department)
}

// Reload atomically swaps in a new graph generation. In-flight requests keep
// resolving against the snapshot they started with.
func (r *Resolver) Reload(graph *Graph) {
	old := r.graph.Swap(graph)
	r.logger.Info("role graph reloaded",
		zap.Uint64("old_generation", old.generation),
		zap.Uint64("new_generation", graph.generation))
}

// Generation returns the current graph generation.
func (r *Resolver) Generation() uint64 {
	return r.graph.Load().generation
}

// KnownDepartments returns every department in the current generation.
func (r *Resolver) KnownDepartments() []models.DepartmentID {
	return r.graph.Load().Departments()
}
