package store

import (
	"errors"
	"testing"

	"github.com/ebersole/caravan/internal/model"
)

func TestUserCreateAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	user, err := s.Create("Traveler@Example.COM", "Tess", "long-enough-pw")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Email != "traveler@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}

	got, err := s.Authenticate("traveler@example.com", "long-enough-pw")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got == nil || got.ID != user.ID {
		t.Errorf("authenticate returned %+v, want user %d", got, user.ID)
	}
}

func TestUserAuthenticateWrongPassword(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	if _, err := s.Create("a@example.com", "", "long-enough-pw"); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Authenticate("a@example.com", "wrong")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != nil {
		t.Error("expected nil for wrong password")
	}
}

func TestUserAuthenticateUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	got, err := s.Authenticate("nobody@example.com", "whatever1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown email")
	}
}

func TestUserCreateValidation(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	if _, err := s.Create("not-an-email", "", "long-enough-pw"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("bad email: err = %v, want ErrValidation", err)
	}
	if _, err := s.Create("ok@example.com", "", "short"); !errors.Is(err, model.ErrValidation) {
		t.Errorf("short password: err = %v, want ErrValidation", err)
	}
}

func TestUserDuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	if _, err := s.Create("dup@example.com", "", "long-enough-pw"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := s.Create("dup@example.com", "", "long-enough-pw"); err == nil {
		t.Error("expected error for duplicate email")
	}
}

func TestUserGetByEmailNotFound(t *testing.T) {
	db := newTestDB(t)
	s := NewUserStore(db)

	got, err := s.GetByEmail("missing@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got != nil {
		t.Error("expected nil for missing user")
	}
}
