package model

import (
	"github.com/m-mizutani/goerr/v2"
)

var ErrUnknownRole = goerr.New("unknown role")

// Role is the session-scoped access role of the caller. It is assigned by
// the auth collaborator and never re-derived inside the pipeline.
type Role int

const (
	RoleUnknown Role = iota
	RoleLeadership
	RoleDirector
	RoleSalesperson
	RoleCreativeDirector

	roleCount
)

var roleNames = [roleCount]string{
	RoleUnknown:          "unknown",
	RoleLeadership:       "leadership",
	RoleDirector:         "director",
	RoleSalesperson:      "salesperson",
	RoleCreativeDirector: "creative_director",
}

func (r Role) String() string {
	if r < 0 || r >= roleCount {
		return "unknown"
	}
	return roleNames[r]
}

// ParseRole converts a wire-format role string to a Role. Unknown strings
// map to RoleUnknown so that every downstream check denies by default.
func ParseRole(s string) (Role, error) {
	for r, name := range roleNames {
		if Role(r) != RoleUnknown && name == s {
			return Role(r), nil
		}
	}
	return RoleUnknown, goerr.Wrap(ErrUnknownRole, "failed to parse role", goerr.V("role", s))
}

// SensitivityLevel is a fixed ordinal category of information
// confidentiality. Lower value means more sensitive.
type SensitivityLevel int

const (
	SensitivityBudgets          SensitivityLevel = 1
	SensitivityContracts        SensitivityLevel = 2
	SensitivityInternalStrategy SensitivityLevel = 3
	SensitivityCallSheets       SensitivityLevel = 4
	SensitivityScripts          SensitivityLevel = 5
	SensitivitySalesMaterials   SensitivityLevel = 6

	SensitivityMin = SensitivityBudgets
	SensitivityMax = SensitivitySalesMaterials
)

var sensitivityNames = map[SensitivityLevel]string{
	SensitivityBudgets:          "budgets",
	SensitivityContracts:        "contracts",
	SensitivityInternalStrategy: "internal_strategy",
	SensitivityCallSheets:       "call_sheets",
	SensitivityScripts:          "scripts",
	SensitivitySalesMaterials:   "sales_materials",
}

func (l SensitivityLevel) String() string {
	if name, ok := sensitivityNames[l]; ok {
		return name
	}
	return "invalid"
}

// Valid reports whether the level is one of the six fixed categories.
func (l SensitivityLevel) Valid() bool {
	return l >= SensitivityMin && l <= SensitivityMax
}

// AuthClaims is the trusted identity input from the auth collaborator.
type AuthClaims struct {
	UserID           string   `json:"user_id"`
	Role             Role     `json:"-"`
	RawRole          string   `json:"role"`
	Permissions      []string `json:"permissions"`
	SensitivityFloor int      `json:"data_sensitivity_level"`

	// AssignedProjects scopes Director access to exact budgets and other
	// high-sensitivity content. Empty for every other role.
	AssignedProjects []string `json:"assigned_projects"`
}

// HasProject reports whether the caller is assigned to the given project.
func (c *AuthClaims) HasProject(project string) bool {
	for _, p := range c.AssignedProjects {
		if p == project {
			return true
		}
	}
	return false
}
