package models

import "time"

// Site is an external agency hosting student placements.
type Site struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Address          string    `db:"address" json:"address"`
	City             string    `db:"city" json:"city"`
	State            string    `db:"state" json:"state"`
	ContactName      string    `db:"contact_name" json:"contact_name"`
	ContactEmail     string    `db:"contact_email" json:"contact_email"`
	ContactPhone     string    `db:"contact_phone" json:"contact_phone"`
	RequiresContract bool      `db:"requires_contract" json:"requires_contract"`
	Active           bool      `db:"active" json:"active"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// SiteFilter constrains site listing queries.
type SiteFilter struct {
	Active *bool
	Search string
	Limit  int
	Offset int
}
