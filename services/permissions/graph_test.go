package permissions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/finsolve/knowledge-gateway/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() GraphConfig {
	return GraphConfig{
		RootRole: "admin",
		Departments: []models.DepartmentID{
			models.DepartmentFinance,
			models.DepartmentHR,
			models.DepartmentEngineering,
			models.DepartmentMarketing,
			models.DepartmentGeneral,
		},
		Roles: []models.Role{
			{ID: "employee", Grants: []models.DepartmentID{models.DepartmentGeneral}},
			{ID: "finance_employee", Parents: []models.RoleID{"employee"}, Grants: []models.DepartmentID{models.DepartmentFinance}},
			{ID: "hr_employee", Parents: []models.RoleID{"employee"}, Grants: []models.DepartmentID{models.DepartmentHR}},
			{ID: "finance_lead", Parents: []models.RoleID{"finance_employee", "hr_employee"}},
			{ID: "admin", Parents: []models.RoleID{"employee"}},
		},
	}
}

func TestBuildGraph(t *testing.T) {
	t.Run("builds valid graph", func(t *testing.T) {
		g, err := BuildGraph(testConfig(), 1)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), g.Generation())
		assert.True(t, g.HasRole("employee"))
		assert.False(t, g.HasRole("contractor"))
	})

	t.Run("rejects duplicate role", func(t *testing.T) {
		cfg := testConfig()
		cfg.Roles = append(cfg.Roles, models.Role{ID: "employee"})
		_, err := BuildGraph(cfg, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate role")
	})

	t.Run("rejects unknown parent", func(t *testing.T) {
		cfg := testConfig()
		cfg.Roles = append(cfg.Roles, models.Role{ID: "ghost", Parents: []models.RoleID{"nobody"}})
		_, err := BuildGraph(cfg, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown parent")
	})

	t.Run("rejects unknown department grant", func(t *testing.T) {
		cfg := testConfig()
		cfg.Roles = append(cfg.Roles, models.Role{ID: "legal", Grants: []models.DepartmentID{"legal"}})
		_, err := BuildGraph(cfg, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown department")
	})

	t.Run("rejects undefined root role", func(t *testing.T) {
		cfg := testConfig()
		cfg.RootRole = "superuser"
		_, err := BuildGraph(cfg, 1)
		require.Error(t, err)
	})

	t.Run("rejects cycles", func(t *testing.T) {
		cfg := testConfig()
		cfg.Roles = append(cfg.Roles,
			models.Role{ID: "a", Parents: []models.RoleID{"b"}},
			models.Role{ID: "b", Parents: []models.RoleID{"a"}},
		)
		_, err := BuildGraph(cfg, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cycle")
	})
}

func TestAccessClosure(t *testing.T) {
	g, err := BuildGraph(testConfig(), 1)
	require.NoError(t, err)

	t.Run("child sees superset of parent", func(t *testing.T) {
		parent := g.closure["employee"]
		child := g.closure["finance_employee"]
		for _, d := range parent {
			assert.Contains(t, child, d)
		}
		assert.Contains(t, child, models.DepartmentFinance)
		assert.NotContains(t, child, models.DepartmentHR)
	})

	t.Run("diamond inheritance unions without duplicates", func(t *testing.T) {
		lead := g.closure["finance_lead"]
		assert.ElementsMatch(t, []models.DepartmentID{
			models.DepartmentFinance,
			models.DepartmentHR,
			models.DepartmentGeneral,
		}, lead)
	})

	t.Run("root role sees every department", func(t *testing.T) {
		admin := g.closure["admin"]
		assert.Len(t, admin, 5)
	})

	t.Run("closure is sorted", func(t *testing.T) {
		for role, closure := range g.closure {
			for i := 1; i < len(closure); i++ {
				assert.LessOrEqual(t, string(closure[i-1]), string(closure[i]),
					"closure of %s not sorted", role)
			}
		}
	})
}

func TestLoadGraphFile(t *testing.T) {
	t.Run("loads yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "roles.yaml")
		data := `
root_role: admin
departments: [finance, general]
roles:
  - id: employee
    grants: [general]
  - id: admin
    parents: [employee]
`
		require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

		g, err := LoadGraphFile(path, 3)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), g.Generation())
		assert.ElementsMatch(t, []models.DepartmentID{"finance", "general"}, g.closure["admin"])
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := LoadGraphFile("/nonexistent/roles.yaml", 1)
		assert.Error(t, err)
	})
}
