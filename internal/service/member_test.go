package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/librarydesk/librarydesk-server/internal/errors"
	"github.com/librarydesk/librarydesk-server/internal/sse"
)

func TestCreateMember_Defaults(t *testing.T) {
	env := setupServices(t)

	m, err := env.members.CreateMember(context.Background(), CreateMemberRequest{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "Ada@Example.COM",
	})
	require.NoError(t, err)

	assert.Contains(t, m.ID, "mbr-")
	assert.Equal(t, "Ada", m.FirstName)
	assert.Equal(t, "ada@example.com", m.Email)
	assert.True(t, m.IsActive)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), m.JoinedDate.Format("2006-01-02"))
	assert.Equal(t, []sse.EventType{sse.EventMemberCreated}, env.notifier.types())
}

func TestCreateMember_Validation(t *testing.T) {
	env := setupServices(t)

	_, err := env.members.CreateMember(context.Background(), CreateMemberRequest{
		FirstName: "Ada",
		Email:     "not-an-email",
		Phone:     "+44 20 7946 0958 123",
	})
	require.ErrorIs(t, err, domainerrors.ErrValidation)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	details, ok := derr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "last_name")
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "phone")
}

func TestCreateMember_DuplicateEmail(t *testing.T) {
	env := setupServices(t)
	env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	_, err := env.members.CreateMember(context.Background(), CreateMemberRequest{
		FirstName: "Augusta",
		LastName:  "King",
		Email:     "ADA@example.com",
	})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateEmail)
}

func TestUpdateMember_Partial(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	m := env.createMember(t, "Ada", "Lovelace", "ada@example.com")

	updated, err := env.members.UpdateMember(ctx, m.ID, UpdateMemberRequest{
		Phone:    ptr("555-0100"),
		IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.Equal(t, "555-0100", updated.Phone)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Ada", updated.FirstName)

	stored, err := env.members.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
	assert.Equal(t, "ada@example.com", stored.Email)
}

func TestUpdateMember_EmailCollision(t *testing.T) {
	env := setupServices(t)
	env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	alan := env.createMember(t, "Alan", "Turing", "alan@example.com")

	_, err := env.members.UpdateMember(context.Background(), alan.ID, UpdateMemberRequest{Email: ptr("ada@example.com")})
	assert.ErrorIs(t, err, domainerrors.ErrDuplicateEmail)
}

func TestReplaceMember(t *testing.T) {
	env := setupServices(t)
	m, err := env.members.CreateMember(context.Background(), CreateMemberRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Phone:     "555-0100",
	})
	require.NoError(t, err)

	updated, err := env.members.ReplaceMember(context.Background(), m.ID, CreateMemberRequest{
		FirstName: "Augusta",
		LastName:  "King",
		Email:     "augusta@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "Augusta King", updated.FullName())
	assert.Empty(t, updated.Phone)
	assert.True(t, updated.IsActive)

	_, err = env.members.ReplaceMember(context.Background(), "mbr-missing", CreateMemberRequest{
		FirstName: "X",
		LastName:  "Y",
		Email:     "xy@example.com",
	})
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)
}

func TestListMembers(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	env.createMember(t, "Alan", "Turing", "alan@example.com")
	ada := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	grace := env.createMember(t, "Grace", "Hopper", "grace@example.com")
	_, err := env.members.UpdateMember(ctx, grace.ID, UpdateMemberRequest{IsActive: ptr(false)})
	require.NoError(t, err)

	all, err := env.members.ListMembers(ctx, MemberListFilter{})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	assert.Equal(t, "Hopper", all.Items[0].LastName, "ordered by last name")

	active, err := env.members.ListMembers(ctx, MemberListFilter{Active: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, 2, active.Total)

	found, err := env.members.ListMembers(ctx, MemberListFilter{Search: "lovelace"})
	require.NoError(t, err)
	require.Equal(t, 1, found.Total)
	assert.Equal(t, ada.ID, found.Items[0].ID)

	inactive, err := env.members.ListMembers(ctx, MemberListFilter{Search: "grace", Active: ptr(false)})
	require.NoError(t, err)
	require.Equal(t, 1, inactive.Total)
	assert.Equal(t, grace.ID, inactive.Items[0].ID)
}

func TestDeleteMember(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	idle := env.createMember(t, "Alan", "Turing", "alan@example.com")
	borrower := env.createMember(t, "Ada", "Lovelace", "ada@example.com")
	b := env.createBook(t, "Dune", "9780441172719", 1)
	env.checkout(t, b.ID, borrower.ID)

	require.NoError(t, env.members.DeleteMember(ctx, idle.ID))
	_, err := env.members.GetMember(ctx, idle.ID)
	assert.ErrorIs(t, err, domainerrors.ErrMemberNotFound)

	err = env.members.DeleteMember(ctx, borrower.ID)
	assert.ErrorIs(t, err, domainerrors.ErrMemberInUse)
}
