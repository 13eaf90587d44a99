package view

import (
	"testing"

	"github.com/ebersole/caravan/internal/model"
)

func activity(id int64) model.Activity {
	return model.Activity{ID: id, TripID: 1, Name: "activity"}
}

func response(activityID, userID int64, accepted bool) model.Response {
	return model.Response{ActivityID: activityID, UserID: userID, Accepted: accepted}
}

func TestDeriveParticipantCount(t *testing.T) {
	responses := []model.Response{
		response(1, 10, true),
		response(1, 11, true),
		response(1, 12, false),
	}

	v := Derive(activity(1), responses, 99)
	if v.Participants != 2 {
		t.Errorf("participants = %d, want 2", v.Participants)
	}
	if v.Accepted != nil {
		t.Errorf("caller without response should have nil Accepted, got %v", *v.Accepted)
	}
}

func TestDeriveCallerAccepted(t *testing.T) {
	responses := []model.Response{response(1, 10, true)}

	v := Derive(activity(1), responses, 10)
	if v.Accepted == nil || !*v.Accepted {
		t.Errorf("Accepted = %v, want true", v.Accepted)
	}
}

func TestDeriveCallerDeclined(t *testing.T) {
	responses := []model.Response{response(1, 10, false)}

	v := Derive(activity(1), responses, 10)
	if v.Accepted == nil || *v.Accepted {
		t.Errorf("Accepted = %v, want false", v.Accepted)
	}
	if v.Participants != 0 {
		t.Errorf("participants = %d, want 0", v.Participants)
	}
}

func TestDeriveNoResponses(t *testing.T) {
	v := Derive(activity(1), nil, 10)
	if v.Participants != 0 {
		t.Errorf("participants = %d, want 0", v.Participants)
	}
	if v.Accepted != nil {
		t.Error("Accepted should be nil with no responses")
	}
}

// The board shows everything; the personal schedule shows only what the
// caller accepted: accepted A, declined B, unanswered C.
func TestBoardVersusPersonalSchedule(t *testing.T) {
	const memberX = int64(10)
	activities := []model.Activity{activity(1), activity(2), activity(3)}
	responsesByActivity := map[int64][]model.Response{
		1: {response(1, memberX, true), response(1, 11, true)},
		2: {response(2, memberX, false)},
		3: {response(3, 11, true)},
	}

	board := DeriveAll(activities, responsesByActivity, memberX)
	if len(board) != 3 {
		t.Fatalf("board has %d entries, want all 3", len(board))
	}
	for i, a := range activities {
		if board[i].ID != a.ID {
			t.Errorf("board[%d].ID = %d, want %d (input order preserved)", i, board[i].ID, a.ID)
		}
	}

	schedule := PersonalSchedule(board)
	if len(schedule) != 1 {
		t.Fatalf("schedule has %d entries, want 1", len(schedule))
	}
	if schedule[0].ID != 1 {
		t.Errorf("schedule[0].ID = %d, want 1", schedule[0].ID)
	}
}

func TestPersonalScheduleEmpty(t *testing.T) {
	board := []model.ActivityView{{Activity: activity(1)}}
	schedule := PersonalSchedule(board)
	if len(schedule) != 0 {
		t.Errorf("schedule has %d entries, want 0", len(schedule))
	}
}
