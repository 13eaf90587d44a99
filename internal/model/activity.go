package model

import "time"

// Activity categories. Stored as plain strings; validated on create/update.
const (
	CategoryFood        = "food"
	CategorySightseeing = "sightseeing"
	CategoryOutdoors    = "outdoors"
	CategoryNightlife   = "nightlife"
	CategoryTransit     = "transit"
	CategoryLodging     = "lodging"
	CategoryOther       = "other"
)

var activityCategories = map[string]bool{
	CategoryFood:        true,
	CategorySightseeing: true,
	CategoryOutdoors:    true,
	CategoryNightlife:   true,
	CategoryTransit:     true,
	CategoryLodging:     true,
	CategoryOther:       true,
}

// ValidCategory reports whether s is a known activity category.
func ValidCategory(s string) bool {
	return activityCategories[s]
}

// Activity is a proposed unit of group activity within one trip. Proposer
// and creation time are immutable once created; responses never mutate the
// activity itself.
type Activity struct {
	ID          int64      `json:"id"`
	TripID      int64      `json:"trip_id"`
	ProposerID  int64      `json:"proposer_id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	Category    string     `json:"category"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	CostCents   int64      `json:"cost_cents"`
	Capacity    *int64     `json:"capacity,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Response is one member's accept/decline stance on one activity. At most
// one row exists per (activity, user) pair; repeated responses overwrite.
type Response struct {
	ID         int64     `json:"id"`
	ActivityID int64     `json:"activity_id"`
	UserID     int64     `json:"user_id"`
	Accepted   bool      `json:"accepted"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActivityView is the derived view pushed to clients: the activity plus
// participation computed for one caller. Derived fields are computed at
// read time, never stored. Accepted is nil when the caller has not
// responded at all.
type ActivityView struct {
	Activity
	Participants int   `json:"participants"`
	Accepted     *bool `json:"accepted,omitempty"`
}
