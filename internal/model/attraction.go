package model

import "time"

// MaxPrice is the largest price the NUMERIC(10,2) column holds.
const MaxPrice = 99999999.99

// Attraction is a catalog entry for a visitable place.
type Attraction struct {
	ID          int64     `db:"id" json:"id"`
	ExternalID  *string   `db:"external_id" json:"external_id"` // place id of the import source, upsert key
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Category    string    `db:"category" json:"category"` // comma-joined tags
	Location    string    `db:"location" json:"location"`
	Province    string    `db:"province" json:"province"`
	Price       *float64  `db:"price" json:"price"`
	ImageURL    *string   `db:"image_url" json:"image_url"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	Reservations []Reservation `db:"-" json:"reservations,omitempty"`
}

// AttractionFilter holds the optional listing filters. Empty fields are ignored.
type AttractionFilter struct {
	Province string
	Category string
	Search   string
}

// AttractionInput carries the writable fields of an attraction. Nil means "not provided".
type AttractionInput struct {
	ExternalID  *string
	Name        *string
	Description *string
	Category    *string
	Location    *string
	Province    *string
	Price       *float64
	ImageURL    *string
}
