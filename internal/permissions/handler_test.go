package permissions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/atelier-works/atelier/internal/platform/httpx"
	"github.com/atelier-works/atelier/internal/shared"
	"github.com/atelier-works/atelier/internal/users"
)

// stubGate grants capabilities from the in-memory repo the same way the real
// gate does, without importing it.
type stubGate struct {
	repo *memoryRepo
}

func (g *stubGate) Authorize(ctx context.Context, actorID int64, c Capability) error {
	grant, err := g.repo.GetGrant(ctx, actorID)
	if err != nil {
		return err
	}
	if !grant.IsActive || !grant.Set.Get(c) {
		return httpx.ErrForbidden
	}
	return nil
}

func newPermissionsRouter(t *testing.T, repo *memoryRepo) chi.Router {
	t.Helper()
	svc := NewService(repo, testCache(t), time.Minute, nil)
	h := NewHandler(nil, svc, &stubGate{repo: repo})
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func doRequest(t *testing.T, router chi.Router, actorID int64, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actorID != 0 {
		sess := &shared.Session{}
		sess.SetUser(strconv.FormatInt(actorID, 10))
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetPermissionsSelf(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(5, users.RoleFactory, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 5, http.MethodGet, "/users/5/permissions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var set PermissionSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.True(t, set.CanViewModels)
	require.False(t, set.CanEditModels)
}

func TestGetPermissionsOfOthersRequiresUserAdmin(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(5, users.RoleFactory, true)
	repo.addUser(1, users.RoleBuyer, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 5, http.MethodGet, "/users/1/permissions", "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doRequest(t, router, 1, http.MethodGet, "/users/5/permissions", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPermissionsUnauthenticated(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(5, users.RoleFactory, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 0, http.MethodGet, "/users/5/permissions", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPutOverridesSparseBody(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(1, users.RoleBuyer, true)
	repo.addUser(5, users.RoleFactory, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 1, http.MethodPut, "/users/5/permissions",
		`{"can_upload_files": true, "can_view_models": false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var set PermissionSet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.True(t, set.CanUploadFiles)
	require.False(t, set.CanViewModels)
	// Capability untouched by the body keeps the role default.
	require.True(t, set.CanDownloadFiles)

	// Explicit null clears back to the role default.
	rec = doRequest(t, router, 1, http.MethodPut, "/users/5/permissions",
		`{"can_view_models": null}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &set))
	require.True(t, set.CanViewModels)
	require.True(t, set.CanUploadFiles, "previous override must survive an unrelated change set")
}

func TestPutOverridesUnknownCapabilityRejected(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(1, users.RoleBuyer, true)
	repo.addUser(5, users.RoleFactory, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 1, http.MethodPut, "/users/5/permissions", `{"can_fly": true}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, repo.overrides[5], "a rejected change set must store nothing")
}

func TestPutOverridesTargetNotFound(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(1, users.RoleBuyer, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 1, http.MethodPut, "/users/404/permissions", `{"can_upload_files": true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutOverridesRequiresEditCapability(t *testing.T) {
	repo := newMemoryRepo()
	repo.addUser(5, users.RoleFactory, true)
	router := newPermissionsRouter(t, repo)

	rec := doRequest(t, router, 5, http.MethodPut, "/users/5/permissions", `{"can_upload_files": true}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
