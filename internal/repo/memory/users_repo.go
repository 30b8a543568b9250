package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo keeps the directory in process memory: a primary map keyed by
// id plus an email index keyed by email, mirroring the consistency
// semantics of the postgres store. Used by handler tests and local dev.
type UsersRepo struct {
	mu    sync.RWMutex
	items map[string]user.User // id -> record
	index map[string]string    // email -> id
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items: make(map[string]user.User),
		index: make(map[string]string),
	}
}

func (r *UsersRepo) ListAll(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		out = append(out, u)
	}

	return out, nil
}

func (r *UsersRepo) FindByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) FindByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.index[email]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	u, ok := r.items[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) Exists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.index[email]

	return ok, nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	u.ID = id.String()
	u.CreatedAt = now
	u.UpdatedAt = now

	r.mu.Lock()
	r.items[u.ID] = u
	r.index[u.Email] = u.ID
	r.mu.Unlock()

	return u.ID, nil
}

func (r *UsersRepo) Update(_ context.Context, id string, incoming user.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return false, nil
	}

	emailChanged := incoming.Email != existing.Email

	if emailChanged {
		if owner, taken := r.index[incoming.Email]; taken && owner != id {
			return false, nil
		}
	} else if !fieldsDiffer(existing, incoming) {
		return false, nil
	}

	updated := existing
	updated.Email = incoming.Email
	updated.PasswordHash = incoming.PasswordHash
	updated.FirstName = incoming.FirstName
	updated.LastName = incoming.LastName
	updated.Avatar = incoming.Avatar
	updated.Role = incoming.Role
	updated.UpdatedAt = time.Now().UTC()

	r.items[id] = updated

	if emailChanged {
		delete(r.index, existing.Email)
		r.index[updated.Email] = id
	}

	return true, nil
}

func (r *UsersRepo) Delete(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return false, nil
	}

	delete(r.items, id)
	delete(r.index, u.Email)

	return true, nil
}

func fieldsDiffer(old, incoming user.User) bool {
	return incoming.Email != old.Email ||
		incoming.PasswordHash != old.PasswordHash ||
		incoming.FirstName != old.FirstName ||
		incoming.LastName != old.LastName ||
		!bytes.Equal(incoming.Avatar, old.Avatar) ||
		incoming.Role != old.Role
}
