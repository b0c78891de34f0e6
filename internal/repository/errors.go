package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects the write.
	ErrDuplicate = errors.New("duplicate record")
	// ErrSlotTaken is returned when the slot already holds an accepted reservation.
	ErrSlotTaken = errors.New("slot already has an accepted reservation")
	// ErrStatusChanged is returned when a conditional update finds a different status.
	ErrStatusChanged = errors.New("reservation status changed")
)

const acceptedSlotIndex = "reservations_accepted_slot"

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		if pqErr.Constraint == acceptedSlotIndex {
			return ErrSlotTaken
		}
		return ErrDuplicate
	}
	return err
}
