// Package directory holds the business layer over the user store:
// input decoding, role validation, and the email-uniqueness rule on create.
package directory

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/security"
)

var (
	ErrBadSecretEncoding = errors.New("secret is not valid base64")
	ErrBadAvatarEncoding = errors.New("avatar is not valid base64")
)

// Store is the persistence contract the service needs: point lookups by
// primary and secondary key, a full scan, and batched all-or-nothing writes.
type Store interface {
	ListAll(ctx context.Context) ([]user.User, error)
	FindByID(ctx context.Context, id string) (user.User, error)
	FindByEmail(ctx context.Context, email string) (user.User, error)
	Exists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, u user.User) (string, error)
	Update(ctx context.Context, id string, u user.User) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// UserInput is a whole-record write: create and update both take every
// field, and the store diffs against what it has.
type UserInput struct {
	Email     string
	SecretB64 string
	FirstName string
	LastName  string
	AvatarB64 string
	Role      string
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]user.User, error) {
	return s.store.ListAll(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (user.User, error) {
	return s.store.FindByID(ctx, id)
}

// Create validates the input and writes the record if the email is free.
// The check-then-create pair is optimistic: a concurrent create with the
// same email can slip through, which the store's batch semantics bound to a
// last-write-wins index entry.
func (s *Service) Create(ctx context.Context, in UserInput) (user.User, error) {
	u, err := s.toUser(in)
	if err != nil {
		return user.User{}, err
	}

	taken, err := s.store.Exists(ctx, in.Email)
	if err != nil {
		return user.User{}, fmt.Errorf("uniqueness check: %w", err)
	}

	if taken {
		return user.User{}, user.ErrEmailTaken
	}

	id, err := s.store.Create(ctx, u)
	if err != nil {
		return user.User{}, err
	}

	return s.store.FindByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, in UserInput) (bool, error) {
	u, err := s.toUser(in)
	if err != nil {
		return false, err
	}

	return s.store.Update(ctx, id, u)
}

func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

func (s *Service) toUser(in UserInput) (user.User, error) {
	role, err := user.ParseRole(in.Role)
	if err != nil {
		return user.User{}, err
	}

	secret, err := base64.StdEncoding.DecodeString(in.SecretB64)
	if err != nil {
		return user.User{}, fmt.Errorf("%w: %v", ErrBadSecretEncoding, err)
	}

	hash, err := security.HashSecret(secret)
	if err != nil {
		return user.User{}, err
	}

	var avatar []byte
	if in.AvatarB64 != "" {
		avatar, err = base64.StdEncoding.DecodeString(in.AvatarB64)
		if err != nil {
			return user.User{}, fmt.Errorf("%w: %v", ErrBadAvatarEncoding, err)
		}
	}

	return user.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Avatar:       avatar,
		Role:         role,
	}, nil
}
