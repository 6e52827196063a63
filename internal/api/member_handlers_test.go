package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) createMember(t *testing.T, first, last, email string) MemberResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/members", map[string]any{
		"first_name": first,
		"last_name":  last,
		"email":      email,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[MemberResponse](t, resp.Body.Bytes()).Data
}

func TestCreateMember(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/members", map[string]any{
		"first_name":  "Jessica",
		"last_name":   "Atreides",
		"email":       " Jessica@Arrakis.TEST ",
		"phone":       "555-0100",
		"joined_date": "2024-03-15",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	env := decode[map[string]any](t, resp.Body.Bytes())
	assert.Equal(t, "jessica@arrakis.test", env.Data["email"])
	assert.Equal(t, "Jessica Atreides", env.Data["full_name"])
	assert.Equal(t, "2024-03-15", env.Data["joined_date"])
	assert.Equal(t, true, env.Data["is_active"])
}

func TestCreateMember_Validation(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Post("/api/v1/members", map[string]any{
		"first_name": "Gurney",
		"email":      "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, resp.Code, resp.Body.String())

	env := decode[any](t, resp.Body.Bytes())
	assert.Equal(t, "VALIDATION", env.ErrorCode)
	assert.Contains(t, env.Errors, "last_name")
	assert.Contains(t, env.Errors, "email")
}

func TestCreateMember_DuplicateEmail(t *testing.T) {
	ts := setupTestServer(t)
	ts.createMember(t, "Duncan", "Idaho", "duncan@arrakis.test")

	resp := ts.api.Post("/api/v1/members", map[string]any{
		"first_name": "Duncan",
		"last_name":  "Idaho II",
		"email":      "DUNCAN@arrakis.test",
	})
	require.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "DUPLICATE_EMAIL", decode[any](t, resp.Body.Bytes()).ErrorCode)
}

func TestUpdateMember_Deactivate(t *testing.T) {
	ts := setupTestServer(t)
	member := ts.createMember(t, "Leto", "Atreides", "leto@arrakis.test")

	resp := ts.api.Patch("/api/v1/members/"+member.ID, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	env := decode[MemberResponse](t, resp.Body.Bytes())
	assert.False(t, env.Data.IsActive)
	assert.Equal(t, "Leto", env.Data.FirstName)
}

func TestListMembers_ActiveFilter(t *testing.T) {
	ts := setupTestServer(t)
	ts.createMember(t, "Stilgar", "Naib", "stilgar@sietch.test")
	inactive := ts.createMember(t, "Chani", "Kynes", "chani@sietch.test")
	resp := ts.api.Patch("/api/v1/members/"+inactive.ID, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = ts.api.Get("/api/v1/members")
	require.Equal(t, http.StatusOK, resp.Code)
	all := decode[ListResponse[MemberResponse]](t, resp.Body.Bytes())
	require.Len(t, all.Data.Items, 2)
	assert.Equal(t, "Kynes", all.Data.Items[0].LastName)

	resp = ts.api.Get("/api/v1/members?is_active=true")
	require.Equal(t, http.StatusOK, resp.Code)
	active := decode[ListResponse[MemberResponse]](t, resp.Body.Bytes())
	require.Len(t, active.Data.Items, 1)
	assert.Equal(t, "Stilgar", active.Data.Items[0].FirstName)

	resp = ts.api.Get("/api/v1/members?is_active=maybe")
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, decode[any](t, resp.Body.Bytes()).Errors, "is_active")
}

func TestDeleteMember(t *testing.T) {
	ts := setupTestServer(t)
	member := ts.createMember(t, "Thufir", "Hawat", "thufir@arrakis.test")

	resp := ts.api.Delete("/api/v1/members/" + member.ID)
	require.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/members/" + member.ID)
	require.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "MEMBER_NOT_FOUND", decode[any](t, resp.Body.Bytes()).ErrorCode)
}
