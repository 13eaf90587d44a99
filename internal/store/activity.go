package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ebersole/caravan/internal/model"
)

type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) *ActivityStore {
	return &ActivityStore{db: db}
}

// ActivityFields are the descriptive fields supplied on create and update.
// Proposer and trip are fixed at creation and never part of an update.
type ActivityFields struct {
	Name        string
	Description string
	Location    string
	Category    string
	StartTime   time.Time
	EndTime     *time.Time
	CostCents   int64
	Capacity    *int64
}

func (f *ActivityFields) validate() error {
	f.Name = strings.TrimSpace(f.Name)
	if f.Name == "" {
		return fmt.Errorf("%w: name is required", model.ErrValidation)
	}
	if f.StartTime.IsZero() {
		return fmt.Errorf("%w: start_time is required", model.ErrValidation)
	}
	if f.Category == "" {
		f.Category = model.CategoryOther
	}
	if !model.ValidCategory(f.Category) {
		return fmt.Errorf("%w: unknown category %q", model.ErrValidation, f.Category)
	}
	if f.EndTime != nil && !f.StartTime.Before(*f.EndTime) {
		return fmt.Errorf("%w: end_time must be after start_time", model.ErrValidation)
	}
	if f.CostCents < 0 {
		return fmt.Errorf("%w: cost_cents must not be negative", model.ErrValidation)
	}
	if f.Capacity != nil && *f.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", model.ErrValidation)
	}
	return nil
}

const activityCols = `id, trip_id, proposer_id, name, description, location, category, start_time, end_time, cost_cents, capacity, created_at, updated_at`

func scanActivity(scanner interface{ Scan(...any) error }) (*model.Activity, error) {
	var a model.Activity
	var endTime sql.NullTime
	var capacity sql.NullInt64
	err := scanner.Scan(&a.ID, &a.TripID, &a.ProposerID, &a.Name, &a.Description, &a.Location, &a.Category,
		&a.StartTime, &endTime, &a.CostCents, &capacity, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if endTime.Valid {
		t := endTime.Time
		a.EndTime = &t
	}
	if capacity.Valid {
		c := capacity.Int64
		a.Capacity = &c
	}
	return &a, nil
}

// Create proposes a new activity in a trip. Each call inserts a new row;
// validation failures wrap model.ErrValidation and commit nothing.
func (s *ActivityStore) Create(tripID, proposerID int64, fields ActivityFields) (*model.Activity, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}

	var endTime sql.NullTime
	if fields.EndTime != nil {
		endTime = sql.NullTime{Time: fields.EndTime.UTC(), Valid: true}
	}
	var capacity sql.NullInt64
	if fields.Capacity != nil {
		capacity = sql.NullInt64{Int64: *fields.Capacity, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO activities (trip_id, proposer_id, name, description, location, category, start_time, end_time, cost_cents, capacity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tripID, proposerID, fields.Name, fields.Description, fields.Location, fields.Category,
		fields.StartTime.UTC(), endTime, fields.CostCents, capacity,
	)
	if err != nil {
		return nil, fmt.Errorf("insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(id)
}

func (s *ActivityStore) GetByID(id int64) (*model.Activity, error) {
	row := s.db.QueryRow(`SELECT `+activityCols+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return a, nil
}

// ListByTrip returns every activity proposed in a trip, in creation order.
func (s *ActivityStore) ListByTrip(tripID int64) ([]model.Activity, error) {
	rows, err := s.db.Query(`SELECT `+activityCols+` FROM activities WHERE trip_id = ? ORDER BY id ASC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []model.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}

// Update replaces the descriptive fields of an activity. Trip, proposer and
// creation time are left untouched.
func (s *ActivityStore) Update(id int64, fields ActivityFields) (*model.Activity, error) {
	if err := fields.validate(); err != nil {
		return nil, err
	}

	var endTime sql.NullTime
	if fields.EndTime != nil {
		endTime = sql.NullTime{Time: fields.EndTime.UTC(), Valid: true}
	}
	var capacity sql.NullInt64
	if fields.Capacity != nil {
		capacity = sql.NullInt64{Int64: *fields.Capacity, Valid: true}
	}

	result, err := s.db.Exec(
		`UPDATE activities
		 SET name = ?, description = ?, location = ?, category = ?, start_time = ?, end_time = ?, cost_cents = ?, capacity = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		fields.Name, fields.Description, fields.Location, fields.Category,
		fields.StartTime.UTC(), endTime, fields.CostCents, capacity, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: activity %d", model.ErrNotFound, id)
	}

	return s.GetByID(id)
}

// Delete removes an activity. Its responses cascade at the schema level, so
// a delete and its response cleanup are a single atomic statement.
func (s *ActivityStore) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM activities WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete activity: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: activity %d", model.ErrNotFound, id)
	}
	return nil
}
