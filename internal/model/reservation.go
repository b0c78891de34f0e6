package model

import "time"

// Status is the moderation state of a reservation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition is defined out of s.
func (s Status) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Reservation is a user's request to visit an attraction at a given date and time.
type Reservation struct {
	ID           int64     `db:"id" json:"id"`
	UserID       int64     `db:"user_id" json:"user_id"`
	AttractionID int64     `db:"attraction_id" json:"attraction_id"`
	Date         string    `db:"date" json:"date"` // YYYY-MM-DD
	Time         string    `db:"time" json:"time"` // HH:MM
	Status       Status    `db:"status" json:"status"`
	Comment      *string   `db:"comment" json:"comment"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`

	Attraction *Attraction `db:"-" json:"attraction,omitempty"`
	User       *User       `db:"-" json:"user,omitempty"`
}

// ReservationUpdate carries the fields of a partial reservation update.
type ReservationUpdate struct {
	Date    *string
	Time    *string
	Status  *Status
	Comment *string
	// IfStatus, when set, applies the update only if the row still has that status.
	IfStatus *Status
}
