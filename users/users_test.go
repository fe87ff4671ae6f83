package users_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/pool-admin/users"
	fakeuserrepo "github.com/jrsteele09/pool-admin/users/repofake"
	"github.com/stretchr/testify/require"
)

func newUser() *users.User {
	return &users.User{
		ID:          "123e4567-e89b-12d3-a456-426614174000",
		Email:       "csm@claritypool.com",
		FirstName:   "Sarah",
		LastName:    "CSM",
		Role:        users.RoleCSM,
		Permissions: []string{users.PermBookingsRead, users.PermBookingsWrite, users.PermTechniciansRead},
		CreatedAt:   time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, newUser().Validate())

	tests := []struct {
		name   string
		mutate func(u *users.User)
	}{
		{"missing id", func(u *users.User) { u.ID = "" }},
		{"bad email", func(u *users.User) { u.Email = "not-an-email" }},
		{"unknown role", func(u *users.User) { u.Role = "SUPER_ADMIN" }},
		{"missing permissions", func(u *users.User) { u.Permissions = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := newUser()
			tt.mutate(u)
			require.Error(t, u.Validate())
		})
	}

	var nilUser *users.User
	require.Error(t, nilUser.Validate())
}

func TestCloneIsIndependent(t *testing.T) {
	u := newUser()
	cp := u.Clone()
	cp.Permissions[0] = "reports:write"
	cp.Role = users.RoleAdmin

	require.Equal(t, users.PermBookingsRead, u.Permissions[0])
	require.Equal(t, users.RoleCSM, u.Role)
}

func TestHasPermissionAndFullName(t *testing.T) {
	u := newUser()
	require.True(t, u.HasPermission(users.PermBookingsWrite))
	require.False(t, u.HasPermission(users.PermReportsWrite))
	require.Equal(t, "Sarah CSM", u.FullName())

	u.LastName = ""
	require.Equal(t, "Sarah", u.FullName())
}

func TestCheckPassword(t *testing.T) {
	u := newUser()
	require.False(t, u.CheckPassword("csm123"))

	hash, err := users.HashPassword("csm123")
	require.NoError(t, err)
	u.PasswordHash = hash

	require.True(t, u.CheckPassword("csm123"))
	require.False(t, u.CheckPassword("wrong-password"))
}

func TestFakeUserRepo(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	u := newUser()
	require.NoError(t, repo.Upsert(u))

	got, err := repo.GetByEmail("CSM@claritypool.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	got.Permissions[0] = "mutated"
	again, err := repo.GetByID(u.ID)
	require.NoError(t, err)
	require.Equal(t, users.PermBookingsRead, again.Permissions[0])

	_, err = repo.GetByEmail("nobody@claritypool.com")
	require.Error(t, err)

	second := newUser()
	second.ID = ""
	second.Email = "admin@claritypool.com"
	require.NoError(t, repo.Upsert(second))
	require.NotEmpty(t, second.ID)

	list, err := repo.List(0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	list, err = repo.List(5, 10)
	require.NoError(t, err)
	require.Empty(t, list)
}
