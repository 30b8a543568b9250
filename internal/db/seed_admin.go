package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/annvlk/userdir/internal/config"
	"github.com/annvlk/userdir/internal/directory"
	"github.com/annvlk/userdir/internal/domain/user"
)

// EnsureAdminUser creates the configured admin account on first start so a
// fresh deployment has at least one identity that can manage the directory.
// No-op when the account already exists or when no admin is configured.
func EnsureAdminUser(ctx context.Context, dir *directory.Service, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	_, err := dir.Create(ctx, directory.UserInput{
		Email:     cfg.AdminEmail,
		SecretB64: cfg.AdminPassword,
		FirstName: cfg.AdminFirstName,
		LastName:  cfg.AdminLastName,
		Role:      "admin",
	})

	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil
		}

		return fmt.Errorf("seed admin user: %w", err)
	}

	return nil
}
