package repository

import (
	"context"
	"fmt"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"

	"github.com/jmoiron/sqlx"
)

const reservationColumns = `id, user_id, attraction_id,
	to_char(date, 'YYYY-MM-DD') AS date, to_char(time, 'HH24:MI') AS time,
	status, comment, created_at, updated_at`

// ReservationRepository provides access to the reservations table.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// ListAll returns every reservation, newest first.
func (r *ReservationRepository) ListAll(ctx context.Context) ([]model.Reservation, error) {
	reservations := []model.Reservation{}
	err := r.db.SelectContext(ctx, &reservations,
		"SELECT "+reservationColumns+" FROM reservations ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return reservations, nil
}

// ListByUser returns the reservations owned by userID, newest first.
func (r *ReservationRepository) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	reservations := []model.Reservation{}
	err := r.db.SelectContext(ctx, &reservations,
		"SELECT "+reservationColumns+" FROM reservations WHERE user_id=$1 ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("list user reservations: %w", err)
	}
	return reservations, nil
}

// ListByAttraction returns the reservations of an attraction ordered by slot.
func (r *ReservationRepository) ListByAttraction(ctx context.Context, attractionID int64) ([]model.Reservation, error) {
	reservations := []model.Reservation{}
	err := r.db.SelectContext(ctx, &reservations,
		"SELECT "+reservationColumns+" FROM reservations WHERE attraction_id=$1 ORDER BY date, time, id", attractionID)
	if err != nil {
		return nil, fmt.Errorf("list attraction reservations: %w", err)
	}
	return reservations, nil
}

// GetByID returns the reservation with the given id.
func (r *ReservationRepository) GetByID(ctx context.Context, id int64) (*model.Reservation, error) {
	var res model.Reservation
	err := r.db.GetContext(ctx, &res, "SELECT "+reservationColumns+" FROM reservations WHERE id=$1", id)
	if err != nil {
		return nil, translate(err)
	}
	return &res, nil
}

// Create inserts a pending reservation unless the slot already holds an accepted one.
// The check and the insert share a transaction and a per-attraction advisory lock.
func (r *ReservationRepository) Create(ctx context.Context, res *model.Reservation) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := lockAttraction(ctx, tx, res.AttractionID); err != nil {
			return err
		}
		taken, err := hasAccepted(ctx, tx, res.AttractionID, res.Date, res.Time, 0)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		err = tx.GetContext(ctx, res,
			`INSERT INTO reservations (user_id, attraction_id, date, time, status, comment)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+reservationColumns,
			res.UserID, res.AttractionID, res.Date, res.Time, res.Status, res.Comment)
		if err != nil {
			return fmt.Errorf("create reservation: %w", translate(err))
		}
		return nil
	})
}

// Update applies the partial update in a transaction and returns the new row.
// Moving a reservation onto a slot that holds an accepted reservation, or
// accepting a second reservation for a slot, fails with ErrSlotTaken.
func (r *ReservationRepository) Update(ctx context.Context, id int64, upd model.ReservationUpdate) (*model.Reservation, error) {
	var out model.Reservation
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var cur struct {
			AttractionID int64        `db:"attraction_id"`
			Date         string       `db:"date"`
			Time         string       `db:"time"`
			Status       model.Status `db:"status"`
		}
		err := tx.GetContext(ctx, &cur,
			`SELECT attraction_id, to_char(date, 'YYYY-MM-DD') AS date, to_char(time, 'HH24:MI') AS time, status
			 FROM reservations WHERE id=$1 FOR UPDATE`, id)
		if err != nil {
			return translate(err)
		}
		if upd.IfStatus != nil && cur.Status != *upd.IfStatus {
			return ErrStatusChanged
		}
		if err := lockAttraction(ctx, tx, cur.AttractionID); err != nil {
			return err
		}

		date, tm, status := cur.Date, cur.Time, cur.Status
		if upd.Date != nil {
			date = *upd.Date
		}
		if upd.Time != nil {
			tm = *upd.Time
		}
		if upd.Status != nil {
			status = *upd.Status
		}
		moved := date != cur.Date || tm != cur.Time
		accepting := status == model.StatusAccepted && cur.Status != model.StatusAccepted
		if moved || accepting {
			taken, err := hasAccepted(ctx, tx, cur.AttractionID, date, tm, id)
			if err != nil {
				return err
			}
			if taken {
				return ErrSlotTaken
			}
		}

		err = tx.GetContext(ctx, &out,
			`UPDATE reservations SET
			     date = COALESCE($1::date, date),
			     time = COALESCE($2::time, time),
			     status = COALESCE($3, status),
			     comment = COALESCE($4, comment),
			     updated_at = now()
			 WHERE id = $5
			 RETURNING `+reservationColumns,
			upd.Date, upd.Time, upd.Status, upd.Comment, id)
		return translate(err)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the reservation.
func (r *ReservationRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id=$1", id)
	if err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	return expectAffected(res)
}

func (r *ReservationRepository) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// lockAttraction serializes slot writes of one attraction until the transaction ends.
func lockAttraction(ctx context.Context, tx *sqlx.Tx, attractionID int64) error {
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", attractionID); err != nil {
		return fmt.Errorf("lock attraction %d: %w", attractionID, err)
	}
	return nil
}

func hasAccepted(ctx context.Context, tx *sqlx.Tx, attractionID int64, date, tm string, excludeID int64) (bool, error) {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		`SELECT EXISTS (
		     SELECT 1 FROM reservations
		     WHERE attraction_id=$1 AND date=$2 AND time=$3 AND status='accepted' AND id<>$4
		 )`, attractionID, date, tm, excludeID)
	if err != nil {
		return false, fmt.Errorf("check slot: %w", err)
	}
	return exists, nil
}
