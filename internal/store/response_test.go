package store

import (
	"errors"
	"sync"
	"testing"

	"github.com/ebersole/caravan/internal/model"
)

func TestResponseUpsertCreatesThenUpdates(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	trip := createTestTrip(t, db, owner.ID)
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("surf lesson"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	first, err := s.Upsert(activity.ID, owner.ID, true)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Accepted {
		t.Error("first response should be accepted")
	}

	second, err := s.Upsert(activity.ID, owner.ID, false)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.Accepted {
		t.Error("second response should be declined")
	}
	if second.ID != first.ID {
		t.Errorf("second upsert created a new row: id %d -> %d", first.ID, second.ID)
	}

	all, err := s.ListByActivity(activity.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d responses, want 1", len(all))
	}
}

func TestResponseUpsertIdempotent(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	trip := createTestTrip(t, db, owner.ID)
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("dinner"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	for i := 0; i < 3; i++ {
		if _, err := s.Upsert(activity.ID, owner.ID, true); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	all, err := s.ListByActivity(activity.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d responses after repeated identical upserts, want 1", len(all))
	}
	if !all[0].Accepted {
		t.Error("response should still be accepted")
	}
}

func TestResponseUpsertNotFoundActivity(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	createTestTrip(t, db, owner.ID)
	s := NewResponseStore(db)

	_, err := s.Upsert(999, owner.ID, true)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResponseUpsertNonMember(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	stranger := createTestUser(t, db, "stranger@example.com")
	trip := createTestTrip(t, db, owner.ID)
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("hike"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	_, err = s.Upsert(activity.ID, stranger.ID, true)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound for non-member", err)
	}
}

func TestResponseLastWriteWins(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	trip := createTestTrip(t, db, owner.ID)
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("kayaking"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	// accept then decline in quick succession: final state is the last write
	if _, err := s.Upsert(activity.ID, owner.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := s.Upsert(activity.ID, owner.ID, false); err != nil {
		t.Fatalf("decline: %v", err)
	}

	got, err := s.Get(activity.ID, owner.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Accepted {
		t.Errorf("final state = %+v, want declined", got)
	}
}

// Concurrent accept/decline storms from several members must serialize to
// one row per member with no partial writes, and the aggregated accepted
// set must equal the set of members whose last write was an accept.
func TestResponseConcurrentUpserts(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	alice := createTestUser(t, db, "alice@example.com")
	trip := createTestTrip(t, db, owner.ID)
	trips := NewTripStore(db)
	if _, err := trips.AddMember(trip.ID, alice.ID, RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("wine tasting"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	var wg sync.WaitGroup
	for _, userID := range []int64{owner.ID, alice.ID} {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id int64, accepted bool) {
				defer wg.Done()
				if _, err := s.Upsert(activity.ID, id, accepted); err != nil {
					t.Errorf("concurrent upsert: %v", err)
				}
			}(userID, i%2 == 0)
		}
	}
	wg.Wait()

	// Settle both members on a known final state
	if _, err := s.Upsert(activity.ID, owner.ID, true); err != nil {
		t.Fatalf("settle owner: %v", err)
	}
	if _, err := s.Upsert(activity.ID, alice.ID, false); err != nil {
		t.Fatalf("settle alice: %v", err)
	}

	all, err := s.ListByActivity(activity.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d responses, want exactly 2 (one per member)", len(all))
	}

	accepted := 0
	for _, r := range all {
		if r.Accepted {
			accepted++
			if r.UserID != owner.ID {
				t.Errorf("accepted response belongs to user %d, want %d", r.UserID, owner.ID)
			}
		}
	}
	if accepted != 1 {
		t.Errorf("accepted count = %d, want 1", accepted)
	}
}

func TestResponseListByTripGroupsByActivity(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	trip := createTestTrip(t, db, owner.ID)
	activities := NewActivityStore(db)
	s := NewResponseStore(db)

	a, err := activities.Create(trip.ID, owner.ID, testFields("a"))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	b, err := activities.Create(trip.ID, owner.ID, testFields("b"))
	if err != nil {
		t.Fatalf("create b: %v", err)
	}

	if _, err := s.Upsert(a.ID, owner.ID, true); err != nil {
		t.Fatalf("respond a: %v", err)
	}
	if _, err := s.Upsert(b.ID, owner.ID, false); err != nil {
		t.Fatalf("respond b: %v", err)
	}

	byActivity, err := s.ListByTrip(trip.ID)
	if err != nil {
		t.Fatalf("list by trip: %v", err)
	}
	if len(byActivity) != 2 {
		t.Fatalf("got %d activity groups, want 2", len(byActivity))
	}
	if len(byActivity[a.ID]) != 1 || !byActivity[a.ID][0].Accepted {
		t.Errorf("activity a responses = %+v, want one accepted", byActivity[a.ID])
	}
	if len(byActivity[b.ID]) != 1 || byActivity[b.ID][0].Accepted {
		t.Errorf("activity b responses = %+v, want one declined", byActivity[b.ID])
	}
}

func TestRemoveMemberDeletesTheirResponses(t *testing.T) {
	db := newTestDB(t)
	owner := createTestUser(t, db, "owner@example.com")
	alice := createTestUser(t, db, "alice@example.com")
	trip := createTestTrip(t, db, owner.ID)
	trips := NewTripStore(db)
	if _, err := trips.AddMember(trip.ID, alice.ID, RoleMember); err != nil {
		t.Fatalf("add member: %v", err)
	}
	activity, err := NewActivityStore(db).Create(trip.ID, owner.ID, testFields("market visit"))
	if err != nil {
		t.Fatalf("create activity: %v", err)
	}
	s := NewResponseStore(db)

	if _, err := s.Upsert(activity.ID, owner.ID, true); err != nil {
		t.Fatalf("owner respond: %v", err)
	}
	if _, err := s.Upsert(activity.ID, alice.ID, true); err != nil {
		t.Fatalf("alice respond: %v", err)
	}

	if err := trips.RemoveMember(trip.ID, alice.ID); err != nil {
		t.Fatalf("remove member: %v", err)
	}

	all, err := s.ListByActivity(activity.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d responses after member removal, want 1", len(all))
	}
	if all[0].UserID != owner.ID {
		t.Errorf("remaining response belongs to %d, want %d", all[0].UserID, owner.ID)
	}
}
