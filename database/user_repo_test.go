package database

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/models"
)

func addUser(t *testing.T, d Database, name, email string) models.User {
	t.Helper()
	u := models.User{Name: name, Email: email, Role: models.RoleUser}
	if err := d.UserRepo().Add(context.Background(), &u); err != nil {
		t.Fatalf("add %s: %v", email, err)
	}
	return u
}

func TestUserEmailIsUnique(t *testing.T) {
	d := newTestDatabase(t)
	addUser(t, d, "Uma", "uma@example.com")

	dup := models.User{Name: "Other Uma", Email: " UMA@example.com ", Role: models.RoleUser}
	err := d.UserRepo().Add(context.Background(), &dup)
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}

	found, err := d.UserRepo().FindByEmail(context.Background(), "Uma@Example.com")
	if err != nil || found.Name != "Uma" {
		t.Fatalf("expected case-insensitive lookup, got %+v (%v)", found, err)
	}
}

func TestBootstrapAdminOnlyOnce(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()
	first := addUser(t, d, "Ada", "ada@example.com")
	second := addUser(t, d, "Bea", "bea@example.com")

	admin, err := d.UserRepo().BootstrapAdmin(ctx, first.ID)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if admin.Role != models.RoleAdmin {
		t.Fatalf("expected admin, got %s", admin.Role)
	}

	_, err = d.UserRepo().BootstrapAdmin(ctx, second.ID)
	if !errs.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	still, _ := d.UserRepo().FindByID(ctx, second.ID)
	if still.Role != models.RoleUser {
		t.Fatalf("second user was promoted: %s", still.Role)
	}

	_, err = d.UserRepo().BootstrapAdmin(ctx, uuid.New())
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestUpdateProfileAndRole(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()
	u := addUser(t, d, "Uma", "uma@example.com")

	bio := "I draw things"
	updated, err := d.UserRepo().UpdateProfile(ctx, u.ID, ProfileUpdate{Bio: &bio})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Bio != bio || updated.Name != "Uma" {
		t.Fatalf("unexpected profile %+v", updated)
	}

	promoted, err := d.UserRepo().SetRole(ctx, u.ID, models.RoleCreator)
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	if promoted.Role != models.RoleCreator {
		t.Fatalf("expected creator, got %s", promoted.Role)
	}
}

func TestDeleteUser(t *testing.T) {
	d := newTestDatabase(t)
	ctx := context.Background()
	u := addUser(t, d, "Uma", "uma@example.com")

	if err := d.UserRepo().Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.UserRepo().FindByID(ctx, u.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := d.UserRepo().Delete(ctx, u.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found deleting twice, got %v", err)
	}
}
