// Package identity implements user accounts, credentials and the
// role/permission graph that drives authorization decisions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"authcore.io/internal/obs"
	"authcore.io/internal/token"
)

// Service implements the authentication flows: registration, login, token
// refresh and password recovery. Administrative CRUD lives in RBACService.
type Service struct {
	store    Store
	codec    *token.Codec
	notifier Notifier

	defaultRole string
	clientURL   string
	now         func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithNotifier sets the transactional email sender. Without one the service
// skips email delivery entirely.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// WithDefaultRole overrides the role granted to newly registered users.
func WithDefaultRole(name string) ServiceOption {
	return func(s *Service) { s.defaultRole = name }
}

// WithClientURL sets the frontend base URL used in password reset links.
func WithClientURL(u string) ServiceOption {
	return func(s *Service) { s.clientURL = strings.TrimRight(u, "/") }
}

// WithServiceClock injects a time source for tests.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService wires the authentication flows over a store and a token codec.
func NewService(store Store, codec *token.Codec, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("identity: nil store")
	}
	if codec == nil {
		return nil, errors.New("identity: nil token codec")
	}
	s := &Service{
		store:       store,
		codec:       codec,
		defaultRole: RoleStaff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// EnsureBuiltins installs any missing catalog permissions. Safe to call on
// every boot; existing rows and custom grants are left untouched.
func (s *Service) EnsureBuiltins(ctx context.Context) error {
	return s.store.Permissions(ctx).Ensure(ctx, SeedPermissions)
}

// RegisterInput carries a registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates a user, grants the default role and returns the sanitized
// record with a fresh token pair. Returns ErrEmailInUse when the address is
// taken and ErrConfiguration when the default role is missing from storage.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	users := s.store.Users(ctx)
	if _, err := users.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	u := &User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}

	role, err := s.store.Roles(ctx).FindByName(ctx, s.defaultRole)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return nil, fmt.Errorf("%w: default role %q is not seeded", ErrConfiguration, s.defaultRole)
		}
		return nil, err
	}
	if err := users.AssignRoles(ctx, u.ID, []int64{role.ID}); err != nil {
		return nil, err
	}

	subject, body := welcomeEmail(u.FirstName)
	s.sendBestEffort(ctx, u.Email, subject, body)

	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Public(), Tokens: pair}, nil
}

// Login verifies credentials and issues a fresh token pair. Both an unknown
// email and a wrong password produce the same ErrInvalidCredentials so the
// response does not reveal which accounts exist.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(email)

	u, err := s.store.Users(ctx).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u.Public(), Tokens: pair}, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair. Role and
// permission claims are recomputed from storage, so grants revoked since the
// previous issuance disappear from the new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.codec.Verify(refreshToken, token.DomainRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.store.Users(ctx).Find(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	pair, err := s.mintPair(ctx, u)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// ForgotPassword issues a reset token, persists it on the account and emails
// a reset link. An unknown email is reported as success so the endpoint
// cannot be used to enumerate accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)

	users := s.store.Users(ctx)
	u, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil
		}
		return err
	}

	claims := token.Claims{Email: u.Email}
	claims.Subject = u.ID
	raw, expiresAt, err := s.codec.Issue(claims, token.DomainReset)
	if err != nil {
		return err
	}
	if err := users.SetResetToken(ctx, u.ID, raw, expiresAt); err != nil {
		return err
	}

	link := s.clientURL + "/reset-password?token=" + url.QueryEscape(raw)
	subject, body := resetPasswordEmail(link)
	s.sendBestEffort(ctx, u.Email, subject, body)
	return nil
}

// ResetPassword validates a reset token against both its signature and the
// copy persisted on the account, then replaces the password and clears the
// token so it cannot be replayed.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrInvalidInput)
	}
	claims, err := s.codec.Verify(rawToken, token.DomainReset)
	if err != nil {
		return ErrInvalidResetToken
	}

	users := s.store.Users(ctx)
	u, err := users.Find(ctx, claims.Subject)
	if err != nil {
		return err
	}
	if u.ResetToken == "" || u.ResetToken != rawToken {
		return ErrInvalidResetToken
	}
	if u.ResetTokenExpiresAt.IsZero() || s.now().After(u.ResetTokenExpiresAt) {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	return users.ResetPassword(ctx, u.ID, hash)
}

// mintPair computes the user's current roles and effective permissions and
// issues an access/refresh pair carrying them.
func (s *Service) mintPair(ctx context.Context, u *User) (TokenPair, error) {
	roles, perms, err := s.snapshot(ctx, u.ID)
	if err != nil {
		return TokenPair{}, err
	}

	claims := token.Claims{Email: u.Email, Roles: roles, Permissions: perms}
	claims.Subject = u.ID

	access, _, err := s.codec.Issue(claims, token.DomainAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, _, err := s.codec.Issue(claims, token.DomainRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) snapshot(ctx context.Context, userID string) (roles, perms []string, err error) {
	users := s.store.Users(ctx)

	rs, err := users.RolesOf(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roles = make([]string, 0, len(rs))
	for _, r := range rs {
		roles = append(roles, r.Name)
	}

	ps, err := users.PermissionsOf(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	perms = make([]string, 0, len(ps))
	for _, p := range ps {
		perms = append(perms, p.Name)
	}
	return roles, perms, nil
}

// sendBestEffort delivers an email without affecting the caller's outcome.
// Delivery failures are logged, never returned.
func (s *Service) sendBestEffort(ctx context.Context, to, subject, html string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, html); err != nil {
		obs.Event("error", "email_send_failed", map[string]any{
			"to":      to,
			"subject": subject,
			"err":     err.Error(),
		})
	}
}
