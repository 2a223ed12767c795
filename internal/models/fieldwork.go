package models

import "time"

// SupervisorProfile links an approved supervisor user to a site.
type SupervisorProfile struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	SiteID      string    `db:"site_id" json:"site_id"`
	Credentials string    `db:"credentials" json:"credentials"`
	Approved    bool      `db:"approved" json:"approved"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// FieldClass is the academic class/term a placement belongs to. Its
// RequiredHours is the default requirement unless overridden per placement.
type FieldClass struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	Name          string    `db:"name" json:"name"`
	Term          string    `db:"term" json:"term"`
	RequiredHours float64   `db:"required_hours" json:"required_hours"`
	FacultyID     string    `db:"faculty_id" json:"faculty_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
