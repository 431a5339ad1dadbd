package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atlas-ims/atlas-ims/internal/auth"
)

func doRequest(t *testing.T, mw func(http.Handler) http.Handler, perms []string) int {
	t.Helper()
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if perms != nil {
		claims := auth.Claims{UserID: 1, Username: "clerk", Permissions: perms}
		req = req.WithContext(auth.ContextWithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAny(t *testing.T) {
	m := Middleware{}

	mw := m.RequireAny("purchasing.edit", "admin")
	require.Equal(t, http.StatusOK, doRequest(t, mw, []string{"purchasing.edit"}))
	require.Equal(t, http.StatusOK, doRequest(t, mw, []string{"admin", "other"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, []string{"inventory.view"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, nil))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{}

	mw := m.RequireAll("purchasing.edit", "inventory.view")
	require.Equal(t, http.StatusOK, doRequest(t, mw, []string{"purchasing.edit", "inventory.view"}))
	require.Equal(t, http.StatusForbidden, doRequest(t, mw, []string{"purchasing.edit"}))
}

func TestPermissionMatchingIsCaseInsensitive(t *testing.T) {
	m := Middleware{}

	mw := m.RequireAny("Purchasing.Edit")
	require.Equal(t, http.StatusOK, doRequest(t, mw, []string{"purchasing.edit"}))
}

func TestEmptyRequirementPasses(t *testing.T) {
	m := Middleware{}

	mw := m.RequireAny()
	require.Equal(t, http.StatusOK, doRequest(t, mw, nil))
}
