package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/security"
)

var (
	// ErrInvalidCredentials covers both "no such email" and "wrong secret".
	// The two cases must stay indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrBadSecretEncoding = errors.New("secret is not valid base64")
)

// DirectoryReader is the slice of the directory store the auth service
// needs. Small interface so tests can fake it easily.
type DirectoryReader interface {
	FindByEmail(ctx context.Context, email string) (user.User, error)
}

// Service composes the token codec with a directory lookup. Both
// collaborators are constructor-passed; there is no ambient resolution.
type Service struct {
	tokens *Manager
	users  DirectoryReader
}

func NewService(tokens *Manager, users DirectoryReader) *Service {
	return &Service{tokens: tokens, users: users}
}

// IssueToken mints a token whose subject is the identity's stable
// username, which is the email.
func (s *Service) IssueToken(id user.Identity) (string, error) {
	return s.tokens.IssueToken(id.Email)
}

// ResolveIdentity verifies the token and re-resolves the subject against
// live storage. The role always comes from the directory, never from the
// token. Any failure, whether a bad token or a subject deleted since
// issuance, is reported as "not resolved", identical to no token at all.
func (s *Service) ResolveIdentity(ctx context.Context, token string) (user.Identity, bool) {
	subject, err := s.tokens.VerifyToken(token)
	if err != nil {
		return user.Identity{}, false
	}

	u, err := s.users.FindByEmail(ctx, subject)
	if err != nil {
		return user.Identity{}, false
	}

	return user.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}, true
}

// Login exchanges an email plus base64-encoded secret for a token and the
// resolved role names. Unknown email and wrong secret fail identically.
func (s *Service) Login(ctx context.Context, email, secretB64 string) (string, []string, error) {
	secret, err := base64.StdEncoding.DecodeString(secretB64)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrBadSecretEncoding, err)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("login lookup: %w", err)
	}

	if !security.VerifySecret(u.PasswordHash, secret) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.tokens.IssueToken(u.Email)
	if err != nil {
		return "", nil, fmt.Errorf("issue token: %w", err)
	}

	return token, []string{u.Role.String()}, nil
}
