package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/annvlk/userdir/internal/domain/user"
	"github.com/annvlk/userdir/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const userColumns = "id, email, password_hash, first_name, last_name, avatar, role, created_at, updated_at"

// Pool is the slice of pgxpool.Pool the repo uses. Keeping it an interface
// lets tests drive the repo with pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// UsersRepo owns the two coupled structures of the directory: the primary
// users table keyed by id, and the user_emails index keyed by email. Writes
// that touch both are issued as a single pgx batch: applied together or not
// at all, with no isolation from concurrent readers. The check-then-act
// window on email uniqueness is an accepted race; see DESIGN.md.
type UsersRepo struct {
	pool Pool
	prom *observability.Prom
}

func NewUsersRepo(pool Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	var roleCode int16

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FirstName,
		&u.LastName,
		&u.Avatar,
		&roleCode,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	if err != nil {
		return user.User{}, err
	}

	u.Role, err = user.RoleFromCode(roleCode)

	if err != nil {
		return user.User{}, fmt.Errorf("corrupt role for user %s: %w", u.ID, err)
	}

	return u, nil
}

// ListAll is a full scan. Order is whatever the storage returns; the
// directory is small enough that pagination is deliberately not offered.
func (r *UsersRepo) ListAll(ctx context.Context) ([]user.User, error) {
	var out []user.User

	err := r.observe("users.list_all", func() error {
		rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`)

		if err != nil {
			return err
		}

		defer rows.Close()

		out = make([]user.User, 0)

		for rows.Next() {
			u, err := scanUser(rows)

			if err != nil {
				return err
			}

			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *UsersRepo) FindByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.observe("users.find_by_id", func() error {
		var err error
		u, err = scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
		return err
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return u, nil
}

// FindByEmail resolves the id through the index, then reads the primary
// record. The index stores only the id, so the extra lookup is the price
// for keeping update fan-out small.
func (r *UsersRepo) FindByEmail(ctx context.Context, email string) (user.User, error) {
	var id string

	err := r.observe("users.find_by_email", func() error {
		return r.pool.QueryRow(ctx, `SELECT user_id FROM user_emails WHERE email = $1`, email).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}

	return r.FindByID(ctx, id)
}

// Exists consults only the index; the primary record is never touched.
func (r *UsersRepo) Exists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.observe("users.exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM user_emails WHERE email = $1)`, email).Scan(&exists)
	})

	if err != nil {
		return false, err
	}

	return exists, nil
}

// Create mints a fresh time-ordered identifier and writes the primary
// record and the index entry in one batch. The caller is expected to have
// checked Exists first; two concurrent creates with the same new email can
// both pass that check, and the last index write wins.
func (r *UsersRepo) Create(ctx context.Context, u user.User) (string, error) {
	id, err := uuid.NewV7()

	if err != nil {
		return "", fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()

	b := &pgx.Batch{}
	b.Queue(`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		id.String(), u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Avatar, u.Role.Code(), now, now)
	b.Queue(`INSERT INTO user_emails (email, user_id) VALUES ($1, $2)`,
		u.Email, id.String())

	err = r.observe("users.create", func() error {
		return r.sendBatch(ctx, b)
	})

	if err != nil {
		return "", err
	}

	return id.String(), nil
}

// Update applies a field-level diff against the stored record. Only changed
// columns are written, so concurrent writers to unrelated fields do not
// clobber each other. Returns false without touching storage when the id
// does not exist, when nothing changed, or when the new email is already
// owned by a different user. An email change rewrites the index entry in
// the same batch as the changed columns; uniqueness is re-checked against
// the new email immediately before the write, which narrows but does not
// close the race window.
func (r *UsersRepo) Update(ctx context.Context, id string, u user.User) (bool, error) {
	existing, err := r.FindByID(ctx, id)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, nil
		}

		return false, err
	}

	changed := diffColumns(existing, u)
	emailChanged := u.Email != existing.Email

	if emailChanged {
		taken, err := r.Exists(ctx, u.Email)

		if err != nil {
			return false, err
		}

		if taken {
			return false, nil
		}
	} else if len(changed) == 0 {
		// Nothing differs: report "nothing happened" as failure-to-change.
		return false, nil
	}

	sets := make([]string, 0, len(changed)+1)
	args := make([]any, 0, len(changed)+2)
	args = append(args, id)

	for _, c := range changed {
		args = append(args, c.value)
		sets = append(sets, fmt.Sprintf("%s = $%d", c.name, len(args)))
	}

	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = $%d", len(args)))

	b := &pgx.Batch{}
	b.Queue(`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)

	if emailChanged {
		b.Queue(`DELETE FROM user_emails WHERE email = $1 AND user_id = $2`, existing.Email, id)
		b.Queue(`INSERT INTO user_emails (email, user_id) VALUES ($1, $2)`, u.Email, id)
	}

	err = r.observe("users.update", func() error {
		return r.sendBatch(ctx, b)
	})

	if err != nil {
		return false, err
	}

	return true, nil
}

// Delete removes the primary record and its index entry together. The email
// is immediately reusable; there is no tombstone.
func (r *UsersRepo) Delete(ctx context.Context, id string) (bool, error) {
	var email string

	err := r.observe("users.delete.find_email", func() error {
		return r.pool.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, id).Scan(&email)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}

		return false, err
	}

	b := &pgx.Batch{}
	b.Queue(`DELETE FROM users WHERE id = $1`, id)
	b.Queue(`DELETE FROM user_emails WHERE email = $1 AND user_id = $2`, email, id)

	err = r.observe("users.delete", func() error {
		return r.sendBatch(ctx, b)
	})

	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *UsersRepo) sendBatch(ctx context.Context, b *pgx.Batch) error {
	br := r.pool.SendBatch(ctx, b)

	for i := 0; i < b.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}

	return br.Close()
}

type column struct {
	name  string
	value any
}

// diffColumns lists the columns whose incoming value differs from the
// stored one, in a fixed order so the generated SQL is deterministic.
// Identifier and timestamps are never part of the diff.
func diffColumns(old, incoming user.User) []column {
	var out []column

	if incoming.Email != old.Email {
		out = append(out, column{"email", incoming.Email})
	}
	if incoming.PasswordHash != old.PasswordHash {
		out = append(out, column{"password_hash", incoming.PasswordHash})
	}
	if incoming.FirstName != old.FirstName {
		out = append(out, column{"first_name", incoming.FirstName})
	}
	if incoming.LastName != old.LastName {
		out = append(out, column{"last_name", incoming.LastName})
	}
	if !bytes.Equal(incoming.Avatar, old.Avatar) {
		out = append(out, column{"avatar", incoming.Avatar})
	}
	if incoming.Role != old.Role {
		out = append(out, column{"role", incoming.Role.Code()})
	}

	return out
}
