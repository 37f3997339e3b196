package service

import (
	"context"
	"time"

	"github.com/dustbooks/dust-server/internal/apperr"
	"github.com/dustbooks/dust-server/internal/auth"
	"github.com/dustbooks/dust-server/internal/domain"
	"github.com/dustbooks/dust-server/internal/id"
	"github.com/dustbooks/dust-server/internal/logger"
	"github.com/dustbooks/dust-server/internal/store"
)

// IdentityService handles registration, login, and invitation management.
type IdentityService struct {
	store      store.Store
	log        *logger.Logger
	tokens     *auth.TokenService
	signingKey []byte
	invTTL     time.Duration
}

// NewIdentityService builds an IdentityService. signingKey is reused to
// key invitation-token HMACs as well as session tokens.
func NewIdentityService(st store.Store, log *logger.Logger, tokens *auth.TokenService, signingKey []byte) *IdentityService {
	return &IdentityService{
		store:      st,
		log:        log.Named("identity_service"),
		tokens:     tokens,
		signingKey: signingKey,
		invTTL:     7 * 24 * time.Hour,
	}
}

// Register creates a new user account. If AuthSettings.auth_flow is
// "invitation", inviteToken must resolve to a valid, unconsumed
// invitation, consumed atomically with user creation; while no user exists
// yet, an empty inviteToken is accepted so the first account can be
// created. A token that is given is always validated. The first user ever
// registered is granted the administrator role in the same operation.
func (s *IdentityService) Register(ctx context.Context, username, email, password, displayName, inviteToken string) (*domain.User, error) {
	settings, err := s.store.GetAuthSettings(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, apperr.Storage(err)
	}

	var invitation *domain.Invitation
	if settings.AuthFlow == domain.AuthFlowInvitation {
		if inviteToken != "" {
			hash := auth.HashInvitationToken(s.signingKey, inviteToken)
			invitation, err = s.store.GetInvitationByTokenHash(ctx, hash)
			if err != nil || !invitation.IsValid() {
				return nil, apperr.Authentication("invitation is invalid, expired, or already used")
			}
		} else if count > 0 {
			return nil, apperr.Authorization("an invitation is required to register")
		}
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	now := time.Now()
	user := &domain.User{
		Syncable:     domain.Syncable{ID: id.MustGenerate("user"), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		IsActive:     true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, apperr.Conflict("username or email already in use")
	}

	roleName := domain.RoleNameMember
	if count == 0 {
		roleName = domain.RoleNameAdministrator
	}
	role, err := s.store.GetRoleByName(ctx, roleName)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	if err := s.store.AssignUserRole(ctx, user.ID, role.ID); err != nil {
		return nil, apperr.Storage(err)
	}

	if invitation != nil {
		if err := s.store.ConsumeInvitation(ctx, invitation.ID, user.ID); err != nil {
			return nil, apperr.Storage(err)
		}
	}

	return user, nil
}

// Login verifies credentials and issues a session token on success.
// Transparently rehashes the stored password if it was produced with
// weaker-than-current parameters.
func (s *IdentityService) Login(ctx context.Context, username, password string) (*domain.User, string, error) {
	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, "", apperr.Authentication("invalid credentials")
	}
	if !u.IsActive {
		return nil, "", apperr.Authentication("account is deactivated")
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return nil, "", apperr.Authentication("invalid credentials")
	}

	if auth.NeedsRehash(u.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			u.PasswordHash = newHash
			u.Touch()
			if err := s.store.UpdateUser(ctx, u); err != nil {
				s.log.WithError(err).Warn("password rehash persist failed")
			}
		}
	}

	loginTime := time.Now()
	u.LastLoginAt = &loginTime
	u.Touch()
	if err := s.store.UpdateUser(ctx, u); err != nil {
		s.log.WithError(err).Warn("update last login failed")
	}

	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, "", apperr.Internal("failed to issue session token")
	}
	return u, token, nil
}

// CreateInvitation issues a single-use invitation token, returning the
// plaintext once. Only the HMAC hash is persisted.
func (s *IdentityService) CreateInvitation(ctx context.Context, createdBy, email string) (*domain.Invitation, string, error) {
	token, err := auth.GenerateInvitationToken()
	if err != nil {
		return nil, "", apperr.Internal("failed to generate invitation token")
	}
	now := time.Now()
	inv := &domain.Invitation{
		Syncable:  domain.Syncable{ID: id.MustGenerate("inv"), CreatedAt: now, UpdatedAt: now},
		Email:     email,
		TokenHash: auth.HashInvitationToken(s.signingKey, token),
		CreatedBy: createdBy,
		ExpiresAt: now.Add(s.invTTL),
	}
	if err := s.store.CreateInvitation(ctx, inv); err != nil {
		return nil, "", apperr.Storage(err)
	}
	return inv, token, nil
}

// SetAuthFlow switches registration between open signup and
// invitation-gated signup.
func (s *IdentityService) SetAuthFlow(ctx context.Context, flow domain.AuthFlow) error {
	if flow != domain.AuthFlowSignup && flow != domain.AuthFlowInvitation {
		return apperr.Validation("unknown auth flow")
	}
	if err := s.store.SetAuthFlow(ctx, flow); err != nil {
		return apperr.Storage(err)
	}
	return nil
}
