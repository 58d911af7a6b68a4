package policy

import (
	"github.com/dirkdd/onevice/pkg/model"
)

// levelSet is a bitmask over the six sensitivity levels; bit (level-1) is
// set when the level is accessible.
type levelSet uint8

func (s levelSet) has(level model.SensitivityLevel) bool {
	if !level.Valid() {
		return false
	}
	return s&(1<<(uint(level)-1)) != 0
}

func set(levels ...model.SensitivityLevel) levelSet {
	var s levelSet
	for _, l := range levels {
		s |= 1 << (uint(l) - 1)
	}
	return s
}

// accessTable is the fixed role to allowed-levels mapping. It is indexed
// by model.Role and never mutated at runtime. RoleUnknown stays zero,
// which denies everything.
var accessTable = func() [5]levelSet {
	var t [5]levelSet
	t[model.RoleLeadership] = set(
		model.SensitivityBudgets,
		model.SensitivityContracts,
		model.SensitivityInternalStrategy,
		model.SensitivityCallSheets,
		model.SensitivityScripts,
		model.SensitivitySalesMaterials,
	)
	t[model.RoleDirector] = set(
		model.SensitivityContracts,
		model.SensitivityInternalStrategy,
		model.SensitivityCallSheets,
		model.SensitivityScripts,
		model.SensitivitySalesMaterials,
	)
	t[model.RoleSalesperson] = set(
		model.SensitivityCallSheets,
		model.SensitivityScripts,
		model.SensitivitySalesMaterials,
	)
	t[model.RoleCreativeDirector] = set(
		model.SensitivityCallSheets,
		model.SensitivityScripts,
		model.SensitivitySalesMaterials,
	)
	return t
}()

// CanAccess reports whether the role may see content of the given
// sensitivity level. Unknown roles and invalid levels are denied.
func CanAccess(role model.Role, level model.SensitivityLevel) bool {
	if role <= model.RoleUnknown || int(role) >= len(accessTable) {
		return false
	}
	return accessTable[role].has(level)
}

// AllowedLevels returns the fixed set of levels accessible to the role,
// ordered most sensitive first. Unknown roles get an empty set.
func AllowedLevels(role model.Role) []model.SensitivityLevel {
	var levels []model.SensitivityLevel
	for l := model.SensitivityMin; l <= model.SensitivityMax; l++ {
		if CanAccess(role, l) {
			levels = append(levels, l)
		}
	}
	return levels
}

// CanRunAgent reports whether the role may be routed to the agent at all.
// Bidding Support is restricted to Leadership and Director before any
// content filtering happens.
func CanRunAgent(role model.Role, agent model.AgentName) bool {
	if role <= model.RoleUnknown {
		return false
	}
	if agent == model.AgentBiddingSupport {
		return role == model.RoleLeadership || role == model.RoleDirector
	}
	return true
}
