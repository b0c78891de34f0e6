package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/repository"
	"github.com/jeremyviracochaf-eng/evaluacionf/internal/ticket"
)

// ReservationInput is the payload of a new reservation.
type ReservationInput struct {
	AttractionID int64
	Date         string
	Time         string
	Comment      *string
}

// ReservationPatch is a partial update of a reservation. Status is kept as raw text so
// that unknown values can be reported as validation errors.
type ReservationPatch struct {
	Date    *string
	Time    *string
	Status  *string
	Comment *string
}

// ReservationService contains the booking business logic.
type ReservationService struct {
	reservations ReservationStore
	attractions  AttractionStore
	users        UserStore
	vouchers     VoucherRenderer
	log          *zap.Logger
}

// NewReservationService creates a new reservation service.
func NewReservationService(reservations ReservationStore, attractions AttractionStore, users UserStore, vouchers VoucherRenderer, log *zap.Logger) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		attractions:  attractions,
		users:        users,
		vouchers:     vouchers,
		log:          log,
	}
}

// ListForCaller returns every reservation for admins and the caller's own otherwise.
func (s *ReservationService) ListForCaller(ctx context.Context, caller *model.User) ([]model.Reservation, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	var (
		list []model.Reservation
		err  error
	)
	if caller.IsAdmin() {
		list, err = s.reservations.ListAll(ctx)
	} else {
		list, err = s.reservations.ListByUser(ctx, caller.ID)
	}
	if err != nil {
		return nil, err
	}
	if err := s.attach(ctx, list, caller.IsAdmin()); err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns one reservation visible to the caller.
func (s *ReservationService) Get(ctx context.Context, id int64, caller *model.User) (*model.Reservation, error) {
	res, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	list := []model.Reservation{*res}
	if err := s.attach(ctx, list, true); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Create books a slot for the caller. The reservation starts as pending; a slot that
// already holds an accepted reservation yields ErrConflict and nothing is stored.
func (s *ReservationService) Create(ctx context.Context, caller *model.User, in ReservationInput) (*model.Reservation, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	verr := &ValidationError{}
	date, derr := normalizeDate(in.Date)
	if derr != "" {
		verr.add("date", derr)
	}
	tm, terr := normalizeTime(in.Time)
	if terr != "" {
		verr.add("time", terr)
	}
	if in.Comment != nil && utf8.RuneCountInString(*in.Comment) > 1000 {
		verr.add("comment", "The comment may not be greater than 1000 characters.")
	}
	if in.AttractionID <= 0 {
		verr.add("attraction_id", "The attraction id field is required.")
	} else {
		_, err := s.attractions.GetByID(ctx, in.AttractionID)
		if errors.Is(err, repository.ErrNotFound) {
			verr.add("attraction_id", "The selected attraction id is invalid.")
		} else if err != nil {
			return nil, err
		}
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}

	res := &model.Reservation{
		UserID:       caller.ID,
		AttractionID: in.AttractionID,
		Date:         date,
		Time:         tm,
		Status:       model.StatusPending,
		Comment:      in.Comment,
	}
	if err := s.reservations.Create(ctx, res); err != nil {
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, ErrConflict
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NewValidationError("attraction_id", "The selected attraction id is invalid.")
		}
		return nil, err
	}
	s.log.Info("reservation created",
		zap.Int64("reservation_id", res.ID), zap.Int64("attraction_id", res.AttractionID),
		zap.String("date", res.Date), zap.String("time", res.Time), zap.Int64("user_id", caller.ID))
	return res, nil
}

// Update changes date, time, comment or (admins only) status of a reservation.
// Moving it onto a slot that already holds an accepted reservation yields ErrConflict.
func (s *ReservationService) Update(ctx context.Context, id int64, caller *model.User, patch ReservationPatch) (*model.Reservation, error) {
	return retryStatusRace(func() (*model.Reservation, error) {
		return s.update(ctx, id, caller, patch)
	})
}

func (s *ReservationService) update(ctx context.Context, id int64, caller *model.User, patch ReservationPatch) (*model.Reservation, error) {
	current, err := s.load(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	upd := model.ReservationUpdate{Comment: patch.Comment}
	verr := &ValidationError{}
	if patch.Date != nil {
		date, msg := normalizeDate(*patch.Date)
		if msg != "" {
			verr.add("date", msg)
		}
		upd.Date = &date
	}
	if patch.Time != nil {
		tm, msg := normalizeTime(*patch.Time)
		if msg != "" {
			verr.add("time", msg)
		}
		upd.Time = &tm
	}
	if patch.Comment != nil && utf8.RuneCountInString(*patch.Comment) > 1000 {
		verr.add("comment", "The comment may not be greater than 1000 characters.")
	}
	if patch.Status != nil {
		if err := RequireAdmin(caller); err != nil {
			return nil, err
		}
		status, err := checkTransition(current.Status, *patch.Status)
		if err != nil {
			return nil, err
		}
		upd.Status, upd.IfStatus = &status, &current.Status
	}
	if err := verr.orNil(); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, caller, upd)
}

// SetStatus moves a reservation to pending, accepted or rejected. Admin only; accepting
// a reservation whose slot is already taken yields ErrConflict.
func (s *ReservationService) SetStatus(ctx context.Context, id int64, status string, caller *model.User) (*model.Reservation, error) {
	if err := RequireAdmin(caller); err != nil {
		return nil, err
	}
	return retryStatusRace(func() (*model.Reservation, error) {
		current, err := s.reservations.GetByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		next, err := checkTransition(current.Status, status)
		if err != nil {
			return nil, err
		}
		if next == current.Status {
			return current, nil
		}
		return s.apply(ctx, id, caller, model.ReservationUpdate{Status: &next, IfStatus: &current.Status})
	})
}

// retryStatusRace reruns fn once when a concurrent moderation changed the status
// between read and write. The second run sees a terminal status and decides on it.
func retryStatusRace(fn func() (*model.Reservation, error)) (*model.Reservation, error) {
	res, err := fn()
	if errors.Is(err, repository.ErrStatusChanged) {
		res, err = fn()
	}
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, ErrConflict
	}
	return res, err
}

// Delete removes a reservation owned by the caller (or any reservation, for admins).
func (s *ReservationService) Delete(ctx context.Context, id int64, caller *model.User) error {
	if _, err := s.load(ctx, id, caller); err != nil {
		return err
	}
	if err := s.reservations.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	s.log.Info("reservation deleted", zap.Int64("reservation_id", id), zap.Int64("by", caller.ID))
	return nil
}

// Ticket renders the PDF voucher of an accepted reservation.
func (s *ReservationService) Ticket(ctx context.Context, id int64, caller *model.User) ([]byte, error) {
	res, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if res.Status != model.StatusAccepted {
		return nil, NewValidationError("status", "Only accepted reservations have a voucher.")
	}
	v := ticket.Voucher{
		ReservationID: res.ID,
		AttractionID:  res.AttractionID,
		Date:          res.Date,
		Time:          res.Time,
	}
	if res.Attraction != nil {
		v.Attraction = res.Attraction.Name
		v.Location = res.Attraction.Location
		v.Province = res.Attraction.Province
	}
	if res.User != nil {
		v.Holder = res.User.Name
		v.Email = res.User.Email
	}
	return s.vouchers.Render(v)
}

func (s *ReservationService) apply(ctx context.Context, id int64, caller *model.User, upd model.ReservationUpdate) (*model.Reservation, error) {
	res, err := s.reservations.Update(ctx, id, upd)
	switch {
	case errors.Is(err, repository.ErrSlotTaken):
		return nil, ErrConflict
	case err != nil:
		return nil, notFound(err)
	}
	if upd.Status != nil {
		s.log.Info("reservation status changed",
			zap.Int64("reservation_id", id), zap.String("status", string(res.Status)), zap.Int64("by", caller.ID))
	}
	return res, nil
}

// load fetches a reservation the caller may act on: admins any, users only their own.
func (s *ReservationService) load(ctx context.Context, id int64, caller *model.User) (*model.Reservation, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	res, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if !caller.IsAdmin() && res.UserID != caller.ID {
		return nil, ErrForbidden
	}
	return res, nil
}

// attach loads the attraction of every reservation and, if withOwner, its owner.
func (s *ReservationService) attach(ctx context.Context, list []model.Reservation, withOwner bool) error {
	if len(list) == 0 {
		return nil
	}
	attractionIDs := make([]int64, 0, len(list))
	userIDs := make([]int64, 0, len(list))
	for _, r := range list {
		attractionIDs = append(attractionIDs, r.AttractionID)
		userIDs = append(userIDs, r.UserID)
	}
	attractions, err := s.attractions.GetByIDs(ctx, unique(attractionIDs))
	if err != nil {
		return err
	}
	var users map[int64]*model.User
	if withOwner {
		if users, err = s.users.GetByIDs(ctx, unique(userIDs)); err != nil {
			return err
		}
	}
	for i := range list {
		list[i].Attraction = attractions[list[i].AttractionID]
		if withOwner {
			list[i].User = users[list[i].UserID]
		}
	}
	return nil
}

// checkTransition validates a requested status. Accepted and rejected are terminal;
// requesting the current status is a no-op.
func checkTransition(current model.Status, requested string) (model.Status, error) {
	next := model.Status(strings.ToLower(strings.TrimSpace(requested)))
	if !next.Valid() {
		return "", NewValidationError("status", "The selected status is invalid.")
	}
	if next != current && current.Terminal() {
		return "", NewValidationError("status", fmt.Sprintf("The reservation is already %s.", current))
	}
	return next, nil
}

func normalizeDate(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "The date field is required."
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return "", "The date is not a valid date."
	}
	return d.Format(model.DateLayout), ""
}

func normalizeTime(s string) (string, string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", "The time field is required."
	}
	for _, layout := range []string{model.TimeLayout, "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(model.TimeLayout), ""
		}
	}
	return "", "The time is not a valid time."
}

func unique(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
