package models

// DepartmentID identifies a coarse-grained content category used as the
// unit of access control.
type DepartmentID string

// Well-known departments. The role graph config may define additional ones;
// these exist so tests and seed data share spellings.
const (
	DepartmentFinance     DepartmentID = "finance"
	DepartmentHR          DepartmentID = "hr"
	DepartmentEngineering DepartmentID = "engineering"
	DepartmentMarketing   DepartmentID = "marketing"
	DepartmentGeneral     DepartmentID = "general"
)

// RoleID identifies a named permission bundle assigned to a caller.
type RoleID string

// Role is a node in the role graph: a set of direct department grants plus
// zero or more parent roles whose grants are inherited transitively.
type Role struct {
	ID      RoleID         `yaml:"id" json:"id"`
	Parents []RoleID       `yaml:"parents" json:"parents,omitempty"`
	Grants  []DepartmentID `yaml:"grants" json:"grants,omitempty"`
}
