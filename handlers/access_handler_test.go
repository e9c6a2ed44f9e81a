package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/finsolve/knowledge-gateway/claims"
	"github.com/finsolve/knowledge-gateway/middleware"
	"github.com/finsolve/knowledge-gateway/models"
	"github.com/finsolve/knowledge-gateway/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubAccessService answers from a fixed role table.
type stubAccessService struct {
	grants map[models.RoleID][]models.DepartmentID
}

func (s *stubAccessService) ValidateAccess(roleID models.RoleID, department models.DepartmentID) bool {
	for _, d := range s.grants[roleID] {
		if d == department {
			return true
		}
	}
	return false
}

func (s *stubAccessService) AccessibleDepartments(roleID models.RoleID) ([]models.DepartmentID, error) {
	depts, ok := s.grants[roleID]
	if !ok {
		return nil, services.ErrUnknownRole
	}
	return depts, nil
}

func newAccessFixture() *AccessHandler {
	return NewAccessHandler(&stubAccessService{
		grants: map[models.RoleID][]models.DepartmentID{
			"finance_employee": {models.DepartmentFinance, models.DepartmentGeneral},
			"employee":         {models.DepartmentGeneral},
		},
	}, zap.NewNop())
}

func withIdentity(req *http.Request, role models.RoleID) *http.Request {
	ctx := middleware.WithIdentity(req.Context(), &claims.Identity{Subject: "u", Role: role})
	return req.WithContext(ctx)
}

func TestHandleListAccess(t *testing.T) {
	h := newAccessFixture()

	t.Run("lists effective departments", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/access", nil), "finance_employee")
		w := httptest.NewRecorder()

		h.HandleListAccess(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp AccessResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, models.RoleID("finance_employee"), resp.Role)
		assert.ElementsMatch(t, []models.DepartmentID{models.DepartmentFinance, models.DepartmentGeneral}, resp.Departments)
	})

	t.Run("unknown role returns 401", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/access", nil), "contractor")
		w := httptest.NewRecorder()

		h.HandleListAccess(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("no identity returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleListAccess(w, httptest.NewRequest(http.MethodGet, "/api/v1/access", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleCheckAccess(t *testing.T) {
	h := newAccessFixture()

	t.Run("granted department is allowed", func(t *testing.T) {
		resp := doCheck(t, h, "finance_employee", "finance")
		assert.True(t, resp.Allowed)
	})

	t.Run("ungranted department is denied", func(t *testing.T) {
		resp := doCheck(t, h, "employee", "finance")
		assert.False(t, resp.Allowed)
	})

	t.Run("unknown role is denied not errored", func(t *testing.T) {
		resp := doCheck(t, h, "contractor", "finance")
		assert.False(t, resp.Allowed)
	})

	t.Run("unknown department is denied", func(t *testing.T) {
		resp := doCheck(t, h, "finance_employee", "legal")
		assert.False(t, resp.Allowed)
	})
}

func doCheck(t *testing.T, h *AccessHandler, role models.RoleID, department string) AccessCheckResponse {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/api/v1/access/{department}", h.HandleCheckAccess)

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/access/"+department, nil), role)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AccessCheckResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestHandleSuggestions(t *testing.T) {
	h := newAccessFixture()

	t.Run("known role gets tailored suggestions", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/suggestions", nil), "finance_employee")
		w := httptest.NewRecorder()

		h.HandleSuggestions(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp SuggestionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Suggestions)
	})

	t.Run("unknown role still gets the generic set", func(t *testing.T) {
		req := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/suggestions", nil), "contractor")
		w := httptest.NewRecorder()

		h.HandleSuggestions(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp SuggestionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Suggestions)
	})

	t.Run("no identity returns 401", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.HandleSuggestions(w, httptest.NewRequest(http.MethodGet, "/api/v1/suggestions", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
