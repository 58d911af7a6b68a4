package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dirkdd/onevice/pkg/model"
	"github.com/m-mizutani/gt"
)

func TestClaimsFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("X-User-Id", "u1")
	r.Header.Set("X-User-Role", "director")
	r.Header.Set("X-Assigned-Projects", "atlas, meridian")

	claims, err := claimsFromRequest(r)
	gt.NoError(t, err)
	gt.Equal(t, claims.UserID, "u1")
	gt.Equal(t, claims.Role, model.RoleDirector)
	gt.Equal(t, claims.AssignedProjects, []string{"atlas", "meridian"})
}

func TestClaimsMissingUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("X-User-Role", "director")

	_, err := claimsFromRequest(r)
	gt.Error(t, err)
}

func TestClaimsUnknownRoleDenied(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("X-User-Id", "u1")
	r.Header.Set("X-User-Role", "superuser")

	claims, err := claimsFromRequest(r)
	gt.NoError(t, err)
	gt.Equal(t, claims.Role, model.RoleUnknown)
	gt.Equal(t, claims.RawRole, "superuser")
}

func TestHealthz(t *testing.T) {
	srv := New(":0", nil)
	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	gt.Equal(t, rec.Code, http.StatusOK)
}
