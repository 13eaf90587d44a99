// Package view derives per-caller participation views from raw activities
// and responses. Everything here is a pure function over already-fetched
// rows, so the fan-out path can recompute views without touching storage.
package view

import "github.com/ebersole/caravan/internal/model"

// Derive computes the participation view of one activity for one caller:
// the participant count is the number of accepted responses, and Accepted
// reflects the caller's own stance (nil when they have not responded).
func Derive(activity model.Activity, responses []model.Response, callerID int64) model.ActivityView {
	v := model.ActivityView{Activity: activity}
	for _, r := range responses {
		if r.Accepted {
			v.Participants++
		}
		if r.UserID == callerID {
			accepted := r.Accepted
			v.Accepted = &accepted
		}
	}
	return v
}

// DeriveAll derives the trip board for one caller: every activity, in the
// order given (the store lists them in creation order), regardless of
// anyone's responses. Nobody's decline hides an activity from the board.
func DeriveAll(activities []model.Activity, responsesByActivity map[int64][]model.Response, callerID int64) []model.ActivityView {
	views := make([]model.ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, Derive(a, responsesByActivity[a.ID], callerID))
	}
	return views
}

// PersonalSchedule filters a board down to the activities the caller has
// accepted. Declined and unanswered activities never appear here.
func PersonalSchedule(views []model.ActivityView) []model.ActivityView {
	schedule := make([]model.ActivityView, 0, len(views))
	for _, v := range views {
		if v.Accepted != nil && *v.Accepted {
			schedule = append(schedule, v)
		}
	}
	return schedule
}
