package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/ebersole/caravan/internal/model"
)

// Member roles within a trip.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

type TripStore struct {
	db *sql.DB
}

func NewTripStore(db *sql.DB) *TripStore {
	return &TripStore{db: db}
}

const tripCols = `id, name, destination, owner_id, created_at, updated_at`
const tripMemberCols = `id, trip_id, user_id, role, created_at`

func scanTrip(scanner interface{ Scan(...any) error }) (*model.Trip, error) {
	var t model.Trip
	err := scanner.Scan(&t.ID, &t.Name, &t.Destination, &t.OwnerID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func scanTripMember(scanner interface{ Scan(...any) error }) (*model.TripMember, error) {
	var m model.TripMember
	err := scanner.Scan(&m.ID, &m.TripID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a trip and its owner membership in one transaction.
func (s *TripStore) Create(name, destination string, ownerID int64) (*model.Trip, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", model.ErrValidation)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`INSERT INTO trips (name, destination, owner_id) VALUES (?, ?, ?)`, name, destination, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert trip: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO trip_members (trip_id, user_id, role) VALUES (?, ?, ?)`,
		id, ownerID, RoleOwner,
	); err != nil {
		return nil, fmt.Errorf("insert owner member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetByID(id)
}

func (s *TripStore) GetByID(id int64) (*model.Trip, error) {
	row := s.db.QueryRow(`SELECT `+tripCols+` FROM trips WHERE id = ?`, id)
	t, err := scanTrip(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

func (s *TripStore) ListForUser(userID int64) ([]model.Trip, error) {
	rows, err := s.db.Query(
		`SELECT t.id, t.name, t.destination, t.owner_id, t.created_at, t.updated_at
		 FROM trips t
		 JOIN trip_members tm ON t.id = tm.trip_id
		 WHERE tm.user_id = ?
		 ORDER BY t.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list trips for user: %w", err)
	}
	defer rows.Close()

	var trips []model.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// Delete removes a trip; members, activities and responses cascade.
func (s *TripStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM trips WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return nil
}

func (s *TripStore) AddMember(tripID, userID int64, role string) (*model.TripMember, error) {
	result, err := s.db.Exec(
		`INSERT INTO trip_members (trip_id, user_id, role) VALUES (?, ?, ?)`,
		tripID, userID, role,
	)
	if err != nil {
		return nil, fmt.Errorf("add member: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	row := s.db.QueryRow(`SELECT `+tripMemberCols+` FROM trip_members WHERE id = ?`, id)
	return scanTripMember(row)
}

// RemoveMember drops a membership and, in the same transaction, the
// member's responses across the trip's activities. A departed member must
// not keep counting toward any participant total.
func (s *TripStore) RemoveMember(tripID, userID int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM responses
		 WHERE user_id = ?
		   AND activity_id IN (SELECT id FROM activities WHERE trip_id = ?)`,
		userID, tripID,
	); err != nil {
		return fmt.Errorf("delete member responses: %w", err)
	}

	if _, err := tx.Exec(
		`DELETE FROM trip_members WHERE trip_id = ? AND user_id = ?`,
		tripID, userID,
	); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}

	return tx.Commit()
}

func (s *TripStore) GetMember(tripID, userID int64) (*model.TripMember, error) {
	row := s.db.QueryRow(
		`SELECT `+tripMemberCols+` FROM trip_members WHERE trip_id = ? AND user_id = ?`,
		tripID, userID,
	)
	m, err := scanTripMember(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (s *TripStore) ListMembers(tripID int64) ([]model.TripMember, error) {
	rows, err := s.db.Query(
		`SELECT `+tripMemberCols+` FROM trip_members WHERE trip_id = ? ORDER BY created_at ASC`,
		tripID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.TripMember
	for rows.Next() {
		m, err := scanTripMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

// IsMember reports whether userID belongs to tripID. Used by the realtime
// layer to gate join requests.
func (s *TripStore) IsMember(tripID, userID int64) (bool, error) {
	m, err := s.GetMember(tripID, userID)
	if err != nil {
		return false, err
	}
	return m != nil, nil
}
