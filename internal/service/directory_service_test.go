package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-leave-api/internal/models"
	"github.com/noah-isme/sma-leave-api/internal/repository"
	appErrors "github.com/noah-isme/sma-leave-api/pkg/errors"
)

func newTestDirectory(store Store) *DirectoryService {
	return NewDirectoryService(store, nil, zap.NewNop(), WithPasswordCost(bcrypt.MinCost))
}

func TestDirectoryRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(repository.NewMemoryStore())

	principal, err := dir.Register(ctx, models.RegisterRequest{Username: " Alice ", Password: "s3cret", Role: "student"})
	require.NoError(t, err)
	assert.Equal(t, &models.Principal{Username: "alice", Role: models.RoleStudent}, principal)

	got, err := dir.Authenticate(ctx, "ALICE", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, principal, got)

	_, err = dir.Authenticate(ctx, "alice", "wrong")
	requireCode(t, err, appErrors.ErrInvalidCredentials.Code)
	_, err = dir.Authenticate(ctx, "nobody", "s3cret")
	requireCode(t, err, appErrors.ErrInvalidCredentials.Code)
}

func TestDirectoryRegisterRejections(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(repository.NewMemoryStore())
	_, err := dir.Register(ctx, models.RegisterRequest{Username: "bob", Password: "pw", Role: "teacher"})
	require.NoError(t, err)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "BOB", Password: "pw", Role: "student"})
	requireCode(t, err, appErrors.ErrConflict.Code)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "carol", Password: "pw", Role: "admin"})
	requireCode(t, err, appErrors.ErrForbidden.Code)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "dan", Password: "pw", Role: "janitor"})
	requireCode(t, err, appErrors.ErrValidation.Code)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "ab", Password: "pw", Role: "student"})
	requireCode(t, err, appErrors.ErrValidation.Code)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "erin", Role: "student"})
	requireCode(t, err, appErrors.ErrValidation.Code)

	long := strings.Repeat("p", 80)
	_, err = dir.Register(ctx, models.RegisterRequest{Username: "frank", Password: long, Role: "student"})
	requireCode(t, err, appErrors.ErrValidation.Code)
	_, err = dir.EnsureUser(ctx, "grace", long, models.RoleTeacher)
	requireCode(t, err, appErrors.ErrValidation.Code)

	_, err = dir.Register(ctx, models.RegisterRequest{Username: "heidi", Password: strings.Repeat("p", 72), Role: "student"})
	require.NoError(t, err)
}

func TestDirectoryEnsureUserIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(repository.NewMemoryStore())

	created, err := dir.EnsureUser(ctx, "carol", "admin-pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = dir.EnsureUser(ctx, "carol", "other-pw", models.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = dir.Authenticate(ctx, "carol", "admin-pw")
	require.NoError(t, err)

	_, err = dir.EnsureUser(ctx, "x", "pw", models.UserRole("ROOT"))
	requireCode(t, err, appErrors.ErrValidation.Code)
}

func TestDirectoryListUsersByRoleAndLookup(t *testing.T) {
	ctx := context.Background()
	dir := newTestDirectory(repository.NewMemoryStore())
	for _, req := range []models.RegisterRequest{
		{Username: "zed", Password: "pw", Role: "teacher"},
		{Username: "bob", Password: "pw", Role: "teacher"},
		{Username: "alice", Password: "pw", Role: "student"},
	} {
		_, err := dir.Register(ctx, req)
		require.NoError(t, err)
	}

	teachers, err := dir.ListUsersByRole(ctx, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "zed"}, teachers)

	admins, err := dir.ListUsersByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, admins)

	principal, err := dir.Lookup(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, principal.Role)
	_, err = dir.Lookup(ctx, "ghost")
	requireCode(t, err, appErrors.ErrNotFound.Code)
}

func TestDirectoryRestoreAndFailedPersist(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: repository.NewMemoryStore()}
	dir := newTestDirectory(store)
	_, err := dir.Register(ctx, models.RegisterRequest{Username: "bob", Password: "pw", Role: "teacher"})
	require.NoError(t, err)

	restored := newTestDirectory(store)
	require.NoError(t, restored.Restore(ctx))
	_, err = restored.Authenticate(ctx, "bob", "pw")
	require.NoError(t, err)

	store.fail = true
	_, err = dir.Register(ctx, models.RegisterRequest{Username: "dave", Password: "pw", Role: "teacher"})
	requireCode(t, err, appErrors.ErrInternal.Code)
	teachers, err := dir.ListUsersByRole(ctx, models.RoleTeacher)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, teachers)

	empty := newTestDirectory(repository.NewMemoryStore())
	require.NoError(t, empty.Restore(ctx))
}
