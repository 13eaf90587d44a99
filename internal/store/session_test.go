package store

import (
	"testing"
	"time"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	s := NewSessionStore(db)

	sess, err := s.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("session token should not be empty")
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil || got.UserID != user.ID {
		t.Errorf("got %+v, want session for user %d", got, user.ID)
	}
}

func TestSessionGetExpired(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	s := NewSessionStore(db)

	sess, err := s.Create(user.ID, -time.Minute)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for expired session")
	}
}

func TestSessionDelete(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	s := NewSessionStore(db)

	sess, err := s.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := s.Delete(sess.Token); err != nil {
		t.Fatalf("delete: %v", err)
	}

	got, err := s.GetByToken(sess.Token)
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestSessionDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	user := createTestUser(t, db, "u@example.com")
	s := NewSessionStore(db)

	if _, err := s.Create(user.ID, -time.Minute); err != nil {
		t.Fatalf("create expired: %v", err)
	}
	live, err := s.Create(user.ID, time.Hour)
	if err != nil {
		t.Fatalf("create live: %v", err)
	}

	n, err := s.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}

	got, err := s.GetByToken(live.Token)
	if err != nil {
		t.Fatalf("get live: %v", err)
	}
	if got == nil {
		t.Error("live session should survive cleanup")
	}
}
