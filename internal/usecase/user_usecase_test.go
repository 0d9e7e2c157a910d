package usecase

import (
	"context"
	"testing"

	"github.com/FeruzyNtillah/my-e-commerce/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterLoginAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})

	res, err := f.user.Register(ctx, " Asha ", "Asha@Shop.Test", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", res.User.Name)
	assert.Equal(t, "asha@shop.test", res.User.Email)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.NotEmpty(t, res.Token)

	_, err = f.user.Register(ctx, "Other", "asha@shop.test", "secret1")
	assert.ErrorIs(t, err, domain.ErrConflict)

	login, err := f.user.Login(ctx, "ASHA@shop.test", "secret1")
	require.NoError(t, err)

	actor, err := f.user.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, actor.UserID)
	assert.Equal(t, domain.RoleUser, actor.Role)

	_, err = f.user.Login(ctx, "asha@shop.test", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = f.user.Login(ctx, "nobody@shop.test", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	for name, in := range map[string][3]string{
		"empty name":     {"", "a@shop.test", "secret1"},
		"bad email":      {"A", "not-an-email", "secret1"},
		"short password": {"A", "a@shop.test", "12345"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := f.user.Register(ctx, in[0], in[1], in[2])
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestAuthenticateReadsRoleFromStorage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	res, err := f.user.Register(ctx, "Asha", "asha@shop.test", "secret1")
	require.NoError(t, err)

	_, err = f.users.UpdateRole(ctx, res.User.ID, domain.RoleAdmin)
	require.NoError(t, err)
	actor, err := f.user.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, actor.Role)

	require.NoError(t, f.users.DeleteUser(ctx, res.User.ID))
	_, err = f.user.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.user.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestUpdatePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	res, err := f.user.Register(ctx, "Asha", "asha@shop.test", "secret1")
	require.NoError(t, err)
	actor := domain.Actor{UserID: res.User.ID, Role: res.User.Role}

	assert.ErrorIs(t, f.user.UpdatePassword(ctx, actor, "wrong1", "secret2"), domain.ErrValidation)
	assert.ErrorIs(t, f.user.UpdatePassword(ctx, actor, "secret1", "123"), domain.ErrValidation)
	require.NoError(t, f.user.UpdatePassword(ctx, actor, "secret1", "secret2"))

	_, err = f.user.Login(ctx, "asha@shop.test", "secret2")
	assert.NoError(t, err)
	_, err = f.user.Login(ctx, "asha@shop.test", "secret1")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpdateProfileOnlySuppliedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	actor := f.seedUser(t, "asha", domain.RoleUser)

	u, err := f.user.UpdateProfile(ctx, actor, domain.ProfileUpdate{Phone: strPtr("0712345678")})
	require.NoError(t, err)
	assert.Equal(t, "asha", u.Name)
	assert.Equal(t, "0712345678", u.Phone)
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})
	admin := f.seedUser(t, "boss", domain.RoleAdmin)
	user := f.seedUser(t, "asha", domain.RoleUser)

	_, err := f.user.ListUsers(ctx, user, 0, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	users, err := f.user.ListUsers(ctx, admin, 0, 0)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	_, err = f.user.UpdateRole(ctx, admin, user.UserID, "superuser")
	assert.ErrorIs(t, err, domain.ErrValidation)
	promoted, err := f.user.UpdateRole(ctx, admin, user.UserID, domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)

	assert.ErrorIs(t, f.user.DeleteUser(ctx, admin, admin.UserID), domain.ErrValidation)
	require.NoError(t, f.user.DeleteUser(ctx, admin, user.UserID))
	_, err = f.user.GetUser(ctx, admin, user.UserID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil, OrderOptions{})

	created, err := f.user.EnsureAdmin(ctx, "Admin", "admin@shop.test", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, created.Role)

	again, err := f.user.EnsureAdmin(ctx, "Admin", "admin@shop.test", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	res, err := f.user.Register(ctx, "Asha", "asha@shop.test", "secret1")
	require.NoError(t, err)
	promoted, err := f.user.EnsureAdmin(ctx, "Asha", "asha@shop.test", "ignored")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, promoted.ID)
	assert.Equal(t, domain.RoleAdmin, promoted.Role)
}
