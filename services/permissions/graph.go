package permissions

import (
	"fmt"
	"os"
	"sort"

	"github.com/finsolve/knowledge-gateway/models"
	"gopkg.in/yaml.v3"
)

// Graph is one immutable deployment generation of the role graph. Once built
// it is never mutated; the resolver swaps whole generations atomically.
type Graph struct {
	generation  uint64
	roles       map[models.RoleID]models.Role
	departments []models.DepartmentID
	rootRole    models.RoleID

	// closure holds the effective access set per role, computed once at
	// build time. Sorted for deterministic iteration.
	closure map[models.RoleID][]models.DepartmentID
}

// GraphConfig is the on-disk shape of the role graph.
type GraphConfig struct {
	// RootRole short-circuits to every known department.
	RootRole    models.RoleID          `yaml:"root_role"`
	Departments []models.DepartmentID  `yaml:"departments"`
	Roles       []models.Role          `yaml:"roles"`
}

// LoadGraphFile reads and builds a role graph from a YAML file.
func LoadGraphFile(path string, generation uint64) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read role graph file: %w", err)
	}

	var cfg GraphConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse role graph file: %w", err)
	}

	return BuildGraph(cfg, generation)
}

// BuildGraph validates the config and precomputes every role's effective
// access set. The graph must be acyclic and every parent reference must
// resolve.
func BuildGraph(cfg GraphConfig, generation uint64) (*Graph, error) {
	roles := make(map[models.RoleID]models.Role, len(cfg.Roles))
	for _, r := range cfg.Roles {
		if r.ID == "" {
			return nil, fmt.Errorf("role with empty id")
		}
		if _, dup := roles[r.ID]; dup {
			return nil, fmt.Errorf("duplicate role %q", r.ID)
		}
		roles[r.ID] = r
	}

	known := make(map[models.DepartmentID]bool, len(cfg.Departments))
	for _, d := range cfg.Departments {
		known[d] = true
	}

	for _, r := range roles {
		for _, p := range r.Parents {
			if _, ok := roles[p]; !ok {
				return nil, fmt.Errorf("role %q references unknown parent %q", r.ID, p)
			}
		}
		for _, d := range r.Grants {
			if !known[d] {
				return nil, fmt.Errorf("role %q grants unknown department %q", r.ID, d)
			}
		}
	}

	if cfg.RootRole != "" {
		if _, ok := roles[cfg.RootRole]; !ok {
			return nil, fmt.Errorf("root role %q not defined", cfg.RootRole)
		}
	}

	if err := detectCycles(roles); err != nil {
		return nil, err
	}

	g := &Graph{
		generation:  generation,
		roles:       roles,
		departments: append([]models.DepartmentID(nil), cfg.Departments...),
		rootRole:    cfg.RootRole,
		closure:     make(map[models.RoleID][]models.DepartmentID, len(roles)),
	}
	for id := range roles {
		g.closure[id] = g.computeAccessSet(id)
	}
	return g, nil
}

// detectCycles walks parent edges with the standard three-color DFS.
func detectCycles(roles map[models.RoleID]models.Role) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[models.RoleID]int, len(roles))

	var visit func(id models.RoleID) error
	visit = func(id models.RoleID) error {
		color[id] = gray
		for _, p := range roles[id].Parents {
			switch color[p] {
			case gray:
				return fmt.Errorf("role graph cycle through %q and %q", id, p)
			case white:
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		color[id] = black
		return nil
	}

	for id := range roles {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

// computeAccessSet collects grants breadth-first from the role and all of
// its ancestors. The full-access root short-circuits to every department.
func (g *Graph) computeAccessSet(id models.RoleID) []models.DepartmentID {
	if g.rootRole != "" && id == g.rootRole {
		all := append([]models.DepartmentID(nil), g.departments...)
		sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
		return all
	}

	seen := map[models.RoleID]bool{id: true}
	queue := []models.RoleID{id}
	grants := make(map[models.DepartmentID]bool)

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if g.rootRole != "" && cur == g.rootRole {
			// Inheriting from the root grants everything.
			all := append([]models.DepartmentID(nil), g.departments...)
			sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
			return all
		}

		role := g.roles[cur]
		for _, d := range role.Grants {
			grants[d] = true
		}
		for _, p := range role.Parents {
			if !seen[p] {
				seen[p] = true
				queue = append(queue, p)
			}
		}
	}

	out := make([]models.DepartmentID, 0, len(grants))
	for d := range grants {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Generation returns the deployment generation this graph was built for.
func (g *Graph) Generation() uint64 {
	return g.generation
}

// Departments returns every department the graph knows about.
func (g *Graph) Departments() []models.DepartmentID {
	return append([]models.DepartmentID(nil), g.departments...)
}

// HasRole reports whether the role is defined in this generation.
func (g *Graph) HasRole(id models.RoleID) bool {
	_, ok := g.roles[id]
	return ok
}
