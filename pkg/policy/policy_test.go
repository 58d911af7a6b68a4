package policy_test

import (
	"testing"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/dirkdd/onevice/pkg/policy"
	"github.com/m-mizutani/gt"
)

func TestAccessTable(t *testing.T) {
	cases := []struct {
		role    model.Role
		allowed []model.SensitivityLevel
	}{
		{
			role: model.RoleLeadership,
			allowed: []model.SensitivityLevel{
				model.SensitivityBudgets,
				model.SensitivityContracts,
				model.SensitivityInternalStrategy,
				model.SensitivityCallSheets,
				model.SensitivityScripts,
				model.SensitivitySalesMaterials,
			},
		},
		{
			role: model.RoleDirector,
			allowed: []model.SensitivityLevel{
				model.SensitivityContracts,
				model.SensitivityInternalStrategy,
				model.SensitivityCallSheets,
				model.SensitivityScripts,
				model.SensitivitySalesMaterials,
			},
		},
		{
			role: model.RoleSalesperson,
			allowed: []model.SensitivityLevel{
				model.SensitivityCallSheets,
				model.SensitivityScripts,
				model.SensitivitySalesMaterials,
			},
		},
		{
			role: model.RoleCreativeDirector,
			allowed: []model.SensitivityLevel{
				model.SensitivityCallSheets,
				model.SensitivityScripts,
				model.SensitivitySalesMaterials,
			},
		},
		{
			role:    model.RoleUnknown,
			allowed: nil,
		},
	}

	for _, tc := range cases {
		t.Run(tc.role.String(), func(t *testing.T) {
			gt.Equal(t, policy.AllowedLevels(tc.role), tc.allowed)

			allowed := make(map[model.SensitivityLevel]bool)
			for _, l := range tc.allowed {
				allowed[l] = true
			}
			for l := model.SensitivityMin; l <= model.SensitivityMax; l++ {
				gt.Equal(t, policy.CanAccess(tc.role, l), allowed[l])
			}
		})
	}
}

func TestCanAccessInvalidLevel(t *testing.T) {
	gt.False(t, policy.CanAccess(model.RoleLeadership, 0))
	gt.False(t, policy.CanAccess(model.RoleLeadership, 7))
}

func TestCanRunAgent(t *testing.T) {
	for _, name := range model.AgentNames {
		gt.True(t, policy.CanRunAgent(model.RoleLeadership, name))
		gt.True(t, policy.CanRunAgent(model.RoleDirector, name))
		gt.False(t, policy.CanRunAgent(model.RoleUnknown, name))
	}

	gt.True(t, policy.CanRunAgent(model.RoleSalesperson, model.AgentSalesIntelligence))
	gt.False(t, policy.CanRunAgent(model.RoleSalesperson, model.AgentBiddingSupport))
	gt.False(t, policy.CanRunAgent(model.RoleCreativeDirector, model.AgentBiddingSupport))
}
