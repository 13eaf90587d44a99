package realtime

// ChangeKind labels what happened to an activity.
type ChangeKind string

const (
	KindCreated  ChangeKind = "created"
	KindUpdated  ChangeKind = "updated"
	KindAccepted ChangeKind = "accepted"
	KindDeclined ChangeKind = "declined"
	KindDeleted  ChangeKind = "deleted"
)

// Event is the change notification fanned out to every live session joined
// to a trip. It carries no entity data: each event is a hint to refetch the
// named activity, which makes duplicate or reordered delivery harmless.
type Event struct {
	TripID     int64      `json:"trip_id"`
	ActivityID int64      `json:"activity_id"`
	Kind       ChangeKind `json:"kind"`
}
