package store

import (
	"database/sql"
	"fmt"

	"github.com/ebersole/caravan/internal/model"
)

type ResponseStore struct {
	db *sql.DB
}

func NewResponseStore(db *sql.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

const responseCols = `id, activity_id, user_id, accepted, created_at, updated_at`

func scanResponse(scanner interface{ Scan(...any) error }) (*model.Response, error) {
	var r model.Response
	var accepted int
	err := scanner.Scan(&r.ID, &r.ActivityID, &r.UserID, &accepted, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Accepted = accepted != 0
	return &r, nil
}

// Upsert records a member's accept/decline for an activity. The write is a
// single INSERT ... ON CONFLICT statement keyed on (activity_id, user_id):
// concurrent responses from the same member serialize at the row and the
// last write wins. The inner SELECT gates on the activity existing and the
// user being a member of its trip; if either fails the statement affects no
// rows and model.ErrNotFound is returned.
func (s *ResponseStore) Upsert(activityID, userID int64, accepted bool) (*model.Response, error) {
	var acceptedInt int
	if accepted {
		acceptedInt = 1
	}

	result, err := s.db.Exec(
		`INSERT INTO responses (activity_id, user_id, accepted)
		 SELECT a.id, tm.user_id, ?
		 FROM activities a
		 JOIN trip_members tm ON tm.trip_id = a.trip_id AND tm.user_id = ?
		 WHERE a.id = ?
		 ON CONFLICT (activity_id, user_id)
		 DO UPDATE SET accepted = excluded.accepted, updated_at = CURRENT_TIMESTAMP`,
		acceptedInt, userID, activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert response: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: activity %d or membership for user %d", model.ErrNotFound, activityID, userID)
	}

	return s.Get(activityID, userID)
}

// Get returns the response for one (activity, user) pair, or nil when the
// member has not responded.
func (s *ResponseStore) Get(activityID, userID int64) (*model.Response, error) {
	row := s.db.QueryRow(
		`SELECT `+responseCols+` FROM responses WHERE activity_id = ? AND user_id = ?`,
		activityID, userID,
	)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get response: %w", err)
	}
	return r, nil
}

// ListByActivity returns all responses for one activity. Order is
// unspecified; callers aggregate.
func (s *ResponseStore) ListByActivity(activityID int64) ([]model.Response, error) {
	rows, err := s.db.Query(`SELECT `+responseCols+` FROM responses WHERE activity_id = ?`, activityID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		responses = append(responses, *r)
	}
	return responses, rows.Err()
}

// ListByTrip returns all responses across a trip's activities, grouped by
// activity id. One query serves a whole board derivation.
func (s *ResponseStore) ListByTrip(tripID int64) (map[int64][]model.Response, error) {
	rows, err := s.db.Query(
		`SELECT r.id, r.activity_id, r.user_id, r.accepted, r.created_at, r.updated_at
		 FROM responses r
		 JOIN activities a ON a.id = r.activity_id
		 WHERE a.trip_id = ?`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trip responses: %w", err)
	}
	defer rows.Close()

	byActivity := make(map[int64][]model.Response)
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		byActivity[r.ActivityID] = append(byActivity[r.ActivityID], *r)
	}
	return byActivity, rows.Err()
}
