package memory

import (
	"context"
	"testing"

	"github.com/annvlk/userdir/internal/domain/user"
)

func create(t *testing.T, r *UsersRepo, email string) string {
	t.Helper()

	id, err := r.Create(context.Background(), user.User{
		Email:        email,
		PasswordHash: "hash-of-" + email,
		FirstName:    "First",
		LastName:     "Last",
		Role:         user.RoleUser,
	})
	if err != nil {
		t.Fatalf("Create(%s): %v", email, err)
	}

	return id
}

func TestCreateThenFindByID(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	id := create(t, r, "a@test.com")

	got, err := r.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}

	if got.ID != id {
		t.Fatalf("id = %q, want %q", got.ID, id)
	}
	if got.Email != "a@test.com" || got.FirstName != "First" || got.LastName != "Last" || got.Role != user.RoleUser {
		t.Fatalf("record does not match input: %+v", got)
	}
	if got.PasswordHash != "hash-of-a@test.com" {
		t.Fatalf("credential hash clobbered: %q", got.PasswordHash)
	}
}

func TestIdentifiersAreTimeOrdered(t *testing.T) {
	r := NewUsersRepo()

	first := create(t, r, "a@test.com")
	second := create(t, r, "b@test.com")

	// UUIDv7 sorts lexically by creation time.
	if !(first < second) {
		t.Fatalf("ids not time-ordered: %q then %q", first, second)
	}
}

func TestExistsTracksLifecycle(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	if ok, _ := r.Exists(ctx, "a@test.com"); ok {
		t.Fatal("email should not exist before create")
	}

	id := create(t, r, "a@test.com")

	if ok, _ := r.Exists(ctx, "a@test.com"); !ok {
		t.Fatal("email should exist immediately after create")
	}

	deleted, err := r.Delete(ctx, id)
	if err != nil || !deleted {
		t.Fatalf("Delete: ok=%v err=%v", deleted, err)
	}

	if ok, _ := r.Exists(ctx, "a@test.com"); ok {
		t.Fatal("email should not exist immediately after delete")
	}
}

func TestUpdateLastNameLeavesOtherFieldsUntouched(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	id := create(t, r, "a@test.com")
	before, _ := r.FindByID(ctx, id)

	for _, name := range []string{"One", "Two"} {
		incoming := before
		incoming.LastName = name

		ok, err := r.Update(ctx, id, incoming)
		if err != nil || !ok {
			t.Fatalf("Update(%s): ok=%v err=%v", name, ok, err)
		}

		before, _ = r.FindByID(ctx, id)
	}

	after, _ := r.FindByID(ctx, id)

	if after.LastName != "Two" {
		t.Fatalf("last name = %q, want Two", after.LastName)
	}
	if after.Email != "a@test.com" {
		t.Fatalf("email changed: %q", after.Email)
	}
	if after.PasswordHash != "hash-of-a@test.com" {
		t.Fatalf("credential hash changed: %q", after.PasswordHash)
	}
}

func TestUpdateNoChangesReportsFalse(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	id := create(t, r, "a@test.com")
	current, _ := r.FindByID(ctx, id)

	ok, err := r.Update(ctx, id, current)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok {
		t.Fatal("no-op update must report false")
	}
}

func TestUpdateToTakenEmailLeavesBothRecordsUnchanged(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	idA := create(t, r, "a@test.com")
	idB := create(t, r, "b@test.com")

	beforeA, _ := r.FindByID(ctx, idA)
	beforeB, _ := r.FindByID(ctx, idB)

	incoming := beforeA
	incoming.Email = "b@test.com"
	incoming.LastName = "Changed"

	ok, err := r.Update(ctx, idA, incoming)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok {
		t.Fatal("update to a taken email must fail")
	}

	afterA, _ := r.FindByID(ctx, idA)
	afterB, _ := r.FindByID(ctx, idB)

	if afterA.LastName != beforeA.LastName || afterA.UpdatedAt != beforeA.UpdatedAt {
		t.Fatalf("record A changed: %+v", afterA)
	}
	if afterA.Email != "a@test.com" || afterB.Email != "b@test.com" {
		t.Fatalf("emails changed: %q %q", afterA.Email, afterB.Email)
	}
	if afterB.UpdatedAt != beforeB.UpdatedAt {
		t.Fatal("record B was touched")
	}
}

func TestUpdateEmailMoveFreesOldAddress(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	id := create(t, r, "a@test.com")
	current, _ := r.FindByID(ctx, id)
	current.Email = "b@test.com"

	ok, err := r.Update(ctx, id, current)
	if err != nil || !ok {
		t.Fatalf("Update: ok=%v err=%v", ok, err)
	}

	if exists, _ := r.Exists(ctx, "a@test.com"); exists {
		t.Fatal("old email should be free after the move")
	}
	if exists, _ := r.Exists(ctx, "b@test.com"); !exists {
		t.Fatal("new email should be indexed after the move")
	}

	found, err := r.FindByEmail(ctx, "b@test.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if found.ID != id {
		t.Fatalf("index points at %q, want %q", found.ID, id)
	}
}

func TestDeleteUnknownIDIsNoOp(t *testing.T) {
	r := NewUsersRepo()
	ctx := context.Background()

	create(t, r, "a@test.com")

	ok, err := r.Delete(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if ok {
		t.Fatal("deleting a nonexistent id must report false")
	}

	users, _ := r.ListAll(ctx)
	if len(users) != 1 {
		t.Fatalf("existing records must survive, got %d", len(users))
	}
}

func TestUpdateUnknownIDReportsFalse(t *testing.T) {
	r := NewUsersRepo()

	ok, err := r.Update(context.Background(), "no-such-id", user.User{Email: "x@test.com"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if ok {
		t.Fatal("updating a nonexistent id must report false")
	}
}
