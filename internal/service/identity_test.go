package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/auth"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
	"github.com/dustbooks/dust-server/internal/store/sqlite"
)

var testSigningKey = []byte("test-signing-key-at-least-32-bytes-long")

func setupIdentityTest(t *testing.T) (*IdentityService, store.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	log := logger.New(logger.Config{Writer: io.Discard})
	st, err := sqlite.Open(dbPath, log)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := auth.NewTokenService(testSigningKey, time.Hour)
	require.NoError(t, err)

	return NewIdentityService(st, log, tokens, testSigningKey), st
}

// TestRegister_FirstUserBecomesAdministrator covers testable property 7:
// registering into an empty user table grants the administrator role; the
// next registration only gets member.
func TestRegister_FirstUserBecomesAdministrator(t *testing.T) {
	svc, st := setupIdentityTest(t)
	ctx := context.Background()

	first, err := svc.Register(ctx, "first", "first@example.com", "password123", "First User", "")
	require.NoError(t, err)

	roleIDs, err := st.UserRoleIDs(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, roleIDs, 1)
	adminRole, err := st.GetRoleByName(ctx, domain.RoleNameAdministrator)
	require.NoError(t, err)
	assert.Equal(t, adminRole.ID, roleIDs[0])

	second, err := svc.Register(ctx, "second", "second@example.com", "password123", "Second User", "")
	require.NoError(t, err)

	roleIDs, err = st.UserRoleIDs(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, roleIDs, 1)
	memberRole, err := st.GetRoleByName(ctx, domain.RoleNameMember)
	require.NoError(t, err)
	assert.Equal(t, memberRole.ID, roleIDs[0])
}

// TestRegister_InvitationConsumedExactlyOnce covers testable property 6: a
// fresh invitation validates and registers exactly once; reusing the same
// token fails authentication.
func TestRegister_InvitationConsumedExactlyOnce(t *testing.T) {
	svc, _ := setupIdentityTest(t)
	ctx := context.Background()

	require.NoError(t, svc.SetAuthFlow(ctx, domain.AuthFlowInvitation))

	admin, err := svc.Register(ctx, "admin", "admin@example.com", "password123", "Admin", "")
	require.NoError(t, err)

	_, token, err := svc.CreateInvitation(ctx, admin.ID, "invitee@example.com")
	require.NoError(t, err)

	user, err := svc.Register(ctx, "invitee", "invitee@example.com", "password123", "Invitee", token)
	require.NoError(t, err)
	assert.Equal(t, "invitee", user.Username)

	_, err = svc.Register(ctx, "invitee2", "invitee2@example.com", "password123", "Invitee Two", token)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeAuthentication, appErr.Code)
}

// TestRegister_ExpiredInvitationRejected covers testable property 6's
// expiry edge case.
func TestRegister_ExpiredInvitationRejected(t *testing.T) {
	svc, st := setupIdentityTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SetAuthFlow(ctx, domain.AuthFlowInvitation))

	token := "expired-token-value"
	now := time.Now()
	inv := &domain.Invitation{
		Syncable:  domain.Syncable{ID: id.MustGenerate("inv"), CreatedAt: now, UpdatedAt: now},
		TokenHash: auth.HashInvitationToken(testSigningKey, token),
		CreatedBy: "system",
		ExpiresAt: now.Add(-time.Hour),
	}
	require.NoError(t, st.CreateInvitation(ctx, inv))

	_, err := svc.Register(ctx, "someone", "someone@example.com", "password123", "Someone", token)
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeAuthentication, appErr.Code)
}

// TestRegister_TokenHashMismatchRejected covers testable property 6's
// tampered-token edge case: a presented string whose HMAC does not match
// any stored token_hash is rejected.
func TestRegister_TokenHashMismatchRejected(t *testing.T) {
	svc, _ := setupIdentityTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SetAuthFlow(ctx, domain.AuthFlowInvitation))

	admin, err := svc.Register(ctx, "admin", "admin@example.com", "password123", "Admin", "")
	require.NoError(t, err)
	_, _, err = svc.CreateInvitation(ctx, admin.ID, "invitee@example.com")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "invitee", "invitee@example.com", "password123", "Invitee", "not-the-real-token")
	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.CodeAuthentication, appErr.Code)
}

func TestRegister_InvitationRequiredWhenFlowIsInvitation(t *testing.T) {
	svc, _ := setupIdentityTest(t)
	ctx := context.Background()
	require.NoError(t, svc.SetAuthFlow(ctx, domain.AuthFlowInvitation))

	_, err := svc.Register(ctx, "first", "first@example.com", "password123", "First", "")
	require.NoError(t, err, "the first user bootstraps the instance even under invitation-gated signup")

	_, err = svc.Register(ctx, "second", "second@example.com", "password123", "Second", "")
	require.Error(t, err)
}

func TestLogin_RejectsDeactivatedAccount(t *testing.T) {
	svc, st := setupIdentityTest(t)
	ctx := context.Background()

	u, err := svc.Register(ctx, "user", "user@example.com", "password123", "User", "")
	require.NoError(t, err)

	u.Deactivate()
	require.NoError(t, st.UpdateUser(ctx, u))

	_, _, err = svc.Login(ctx, "user", "password123")
	require.Error(t, err)
}

func TestLogin_IssuesTokenOnValidCredentials(t *testing.T) {
	svc, _ := setupIdentityTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "user", "user@example.com", "password123", "User", "")
	require.NoError(t, err)

	u, token, err := svc.Login(ctx, "user", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.NotNil(t, u.LastLoginAt)
}

func TestLogin_RejectsWrongPassword(t *testing.T) {
	svc, _ := setupIdentityTest(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "user", "user@example.com", "password123", "User", "")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "user", "wrong-password")
	require.Error(t, err)
}
