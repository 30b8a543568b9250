package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/security"
)

type fakeDirectory struct {
	users map[string]user.User
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) (user.User, error) {
	u, ok := f.users[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func newTestService(t *testing.T, users ...user.User) (*Service, *fakeDirectory) {
	t.Helper()

	dir := &fakeDirectory{users: make(map[string]user.User)}
	for _, u := range users {
		dir.users[u.Email] = u
	}

	return NewService(NewManager("test-secret-key"), dir), dir
}

func testUser(t *testing.T, email, secret string, role user.Role) user.User {
	t.Helper()

	hash, err := security.HashSecret([]byte(secret))
	if err != nil {
		t.Fatalf("HashSecret: %v", err)
	}

	return user.User{
		ID:           "0191e9b2-0000-7000-8000-000000000001",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
}

func TestResolveIdentityRoundTrip(t *testing.T) {
	u := testUser(t, "a@test.com", "123456", user.RoleUser)
	svc, _ := newTestService(t, u)

	token, err := svc.IssueToken(user.Identity{UserID: u.ID, Email: u.Email, Role: u.Role})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	id, ok := svc.ResolveIdentity(context.Background(), token)
	if !ok {
		t.Fatal("identity should resolve while the user exists")
	}
	if id.Email != "a@test.com" || id.Role != user.RoleUser {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestResolveIdentityDeletedSubject(t *testing.T) {
	u := testUser(t, "a@test.com", "123456", user.RoleUser)
	svc, dir := newTestService(t, u)

	token, err := svc.IssueToken(user.Identity{Email: u.Email})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	delete(dir.users, u.Email)

	if _, ok := svc.ResolveIdentity(context.Background(), token); ok {
		t.Fatal("identity must not resolve after the subject is deleted")
	}
}

func TestResolveIdentityGarbageToken(t *testing.T) {
	svc, _ := newTestService(t)

	if _, ok := svc.ResolveIdentity(context.Background(), "garbage"); ok {
		t.Fatal("garbage token must resolve to anonymous")
	}
}

func TestLogin(t *testing.T) {
	u := testUser(t, "a@test.com", "123456", user.RoleUser)
	svc, _ := newTestService(t, u)

	secret := base64.StdEncoding.EncodeToString([]byte("123456"))

	token, roles, err := svc.Login(context.Background(), "a@test.com", secret)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if len(roles) != 1 || roles[0] != "user" {
		t.Fatalf("roles = %v, want [user]", roles)
	}

	id, ok := svc.ResolveIdentity(context.Background(), token)
	if !ok || id.Email != "a@test.com" {
		t.Fatalf("token from login should resolve, got ok=%v id=%+v", ok, id)
	}
}

func TestLoginFailsUniformly(t *testing.T) {
	u := testUser(t, "a@test.com", "123456", user.RoleUser)
	svc, _ := newTestService(t, u)

	wrongSecret := base64.StdEncoding.EncodeToString([]byte("654321"))

	_, _, errWrongSecret := svc.Login(context.Background(), "a@test.com", wrongSecret)
	_, _, errNoUser := svc.Login(context.Background(), "nobody@test.com", wrongSecret)

	if !errors.Is(errWrongSecret, ErrInvalidCredentials) {
		t.Fatalf("wrong secret: want ErrInvalidCredentials, got %v", errWrongSecret)
	}
	if !errors.Is(errNoUser, ErrInvalidCredentials) {
		t.Fatalf("unknown email: want ErrInvalidCredentials, got %v", errNoUser)
	}
	// Same sentinel for both: callers cannot tell the cases apart.
	if errWrongSecret.Error() != errNoUser.Error() {
		t.Fatalf("error text differs: %q vs %q", errWrongSecret, errNoUser)
	}
}

func TestLoginRejectsBadEncoding(t *testing.T) {
	svc, _ := newTestService(t, testUser(t, "a@test.com", "123456", user.RoleUser))

	if _, _, err := svc.Login(context.Background(), "a@test.com", "%%%not-base64%%%"); !errors.Is(err, ErrBadSecretEncoding) {
		t.Fatalf("want ErrBadSecretEncoding, got %v", err)
	}
}
