package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/model"
)

type reservationFixture struct {
	svc          *ReservationService
	attractions  *fakeAttractions
	reservations *fakeReservations
	vouchers     *fakeVouchers
	quilotoa     *model.Attraction
}

func newReservationFixture(t *testing.T) *reservationFixture {
	t.Helper()
	f := &reservationFixture{
		attractions:  newFakeAttractions(),
		reservations: &fakeReservations{},
		vouchers:     &fakeVouchers{},
	}
	f.quilotoa = f.attractions.add("Quilotoa", "Cotopaxi", "lake")
	f.svc = NewReservationService(f.reservations, f.attractions, newFakeUsers(admin, alice, bob), f.vouchers, nopLogger())
	return f
}

func (f *reservationFixture) book(t *testing.T, user *model.User, date, tm string) *model.Reservation {
	t.Helper()
	res, err := f.svc.Create(context.Background(), user, ReservationInput{AttractionID: f.quilotoa.ID, Date: date, Time: tm})
	require.NoError(t, err)
	return res
}

func TestReservationCreatePending(t *testing.T) {
	f := newReservationFixture(t)
	res, err := f.svc.Create(context.Background(), alice, ReservationInput{
		AttractionID: f.quilotoa.ID, Date: "2025-03-01", Time: "10:00:00", Comment: ptr("two adults"),
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, alice.ID, res.UserID)
	assert.Equal(t, "10:00", res.Time)
	assert.Len(t, f.reservations.rows, 1)
}

func TestReservationCreateValidation(t *testing.T) {
	f := newReservationFixture(t)
	cases := []struct {
		name  string
		in    ReservationInput
		field string
	}{
		{"unknown attraction", ReservationInput{AttractionID: 999, Date: "2025-03-01", Time: "10:00"}, "attraction_id"},
		{"missing attraction", ReservationInput{Date: "2025-03-01", Time: "10:00"}, "attraction_id"},
		{"bad date", ReservationInput{AttractionID: 1, Date: "01/03/2025", Time: "10:00"}, "date"},
		{"impossible date", ReservationInput{AttractionID: 1, Date: "2025-02-30", Time: "10:00"}, "date"},
		{"bad time", ReservationInput{AttractionID: 1, Date: "2025-03-01", Time: "25:00"}, "time"},
		{"long comment", ReservationInput{AttractionID: 1, Date: "2025-03-01", Time: "10:00", Comment: ptr(strings.Repeat("a", 1001))}, "comment"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), alice, tc.in)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
	assert.Empty(t, f.reservations.rows)

	_, err := f.svc.Create(context.Background(), nil, ReservationInput{AttractionID: 1, Date: "2025-03-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReservationCreateConflictsWithAcceptedSlot(t *testing.T) {
	f := newReservationFixture(t)
	first := f.book(t, alice, "2025-03-01", "10:00")
	_, err := f.svc.SetStatus(context.Background(), first.ID, "accepted", admin)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), bob, ReservationInput{AttractionID: f.quilotoa.ID, Date: "2025-03-01", Time: "10:00"})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Len(t, f.reservations.rows, 1)

	// other slots stay bookable
	f.book(t, bob, "2025-03-01", "11:00")
	f.book(t, bob, "2025-03-02", "10:00")
}

func TestReservationPendingAndRejectedDoNotBlock(t *testing.T) {
	f := newReservationFixture(t)
	pending := f.book(t, alice, "2025-03-01", "10:00")
	rejected := f.book(t, bob, "2025-03-01", "10:00")
	_, err := f.svc.SetStatus(context.Background(), rejected.ID, "rejected", admin)
	require.NoError(t, err)

	third := f.book(t, bob, "2025-03-01", "10:00")
	assert.Equal(t, model.StatusPending, third.Status)

	accepted, err := f.svc.SetStatus(context.Background(), pending.ID, "accepted", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, accepted.Status)

	_, err = f.svc.SetStatus(context.Background(), third.ID, "accepted", admin)
	assert.ErrorIs(t, err, ErrConflict)
	got, _ := f.reservations.GetByID(context.Background(), third.ID)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestReservationSetStatusRequiresAdmin(t *testing.T) {
	f := newReservationFixture(t)
	res := f.book(t, alice, "2025-03-01", "10:00")

	_, err := f.svc.SetStatus(context.Background(), res.ID, "accepted", alice)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.SetStatus(context.Background(), res.ID, "accepted", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.Update(context.Background(), res.ID, alice, ReservationPatch{Status: ptr("accepted")})
	assert.ErrorIs(t, err, ErrForbidden)

	got, _ := f.reservations.GetByID(context.Background(), res.ID)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestReservationStatusTransitions(t *testing.T) {
	f := newReservationFixture(t)
	res := f.book(t, alice, "2025-03-01", "10:00")

	_, err := f.svc.SetStatus(context.Background(), res.ID, "confirmed", admin)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "status")

	got, err := f.svc.SetStatus(context.Background(), res.ID, " Rejected ", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)

	got, err = f.svc.SetStatus(context.Background(), res.ID, "rejected", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRejected, got.Status)

	_, err = f.svc.SetStatus(context.Background(), res.ID, "accepted", admin)
	assert.True(t, errors.As(err, &verr))

	_, err = f.svc.SetStatus(context.Background(), 999, "accepted", admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationListScopedByRole(t *testing.T) {
	f := newReservationFixture(t)
	f.book(t, alice, "2025-03-01", "10:00")
	f.book(t, alice, "2025-03-02", "10:00")
	f.book(t, bob, "2025-03-01", "10:00")

	mine, err := f.svc.ListForCaller(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, alice.ID, r.UserID)
		require.NotNil(t, r.Attraction)
		assert.Equal(t, "Quilotoa", r.Attraction.Name)
		assert.Nil(t, r.User)
	}

	all, err := f.svc.ListForCaller(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, r := range all {
		require.NotNil(t, r.User)
		assert.Equal(t, r.UserID, r.User.ID)
	}

	_, err = f.svc.ListForCaller(context.Background(), nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestReservationOwnership(t *testing.T) {
	f := newReservationFixture(t)
	res := f.book(t, alice, "2025-03-01", "10:00")

	_, err := f.svc.Get(context.Background(), res.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.svc.Delete(context.Background(), res.ID, bob), ErrForbidden)

	got, err := f.svc.Get(context.Background(), res.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.User.ID)

	updated, err := f.svc.Update(context.Background(), res.ID, alice, ReservationPatch{Time: ptr("11:30"), Comment: ptr("late")})
	require.NoError(t, err)
	assert.Equal(t, "11:30", updated.Time)
	assert.Equal(t, "late", *updated.Comment)

	require.NoError(t, f.svc.Delete(context.Background(), res.ID, alice))
	_, err = f.svc.Get(context.Background(), res.ID, alice)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReservationUpdateIntoAcceptedSlotConflicts(t *testing.T) {
	f := newReservationFixture(t)
	taken := f.book(t, alice, "2025-03-01", "10:00")
	_, err := f.svc.SetStatus(context.Background(), taken.ID, "accepted", admin)
	require.NoError(t, err)

	other := f.book(t, bob, "2025-03-01", "12:00")
	_, err = f.svc.SetStatus(context.Background(), other.ID, "accepted", admin)
	require.NoError(t, err)

	_, err = f.svc.Update(context.Background(), other.ID, admin, ReservationPatch{Time: ptr("10:00")})
	assert.ErrorIs(t, err, ErrConflict)
	got, _ := f.reservations.GetByID(context.Background(), other.ID)
	assert.Equal(t, "12:00", got.Time)
}

func TestReservationTicket(t *testing.T) {
	f := newReservationFixture(t)
	res := f.book(t, alice, "2025-03-01", "10:00")

	_, err := f.svc.Ticket(context.Background(), res.ID, alice)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	_, err = f.svc.SetStatus(context.Background(), res.ID, "accepted", admin)
	require.NoError(t, err)

	pdf, err := f.svc.Ticket(context.Background(), res.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(pdf))
	assert.Equal(t, "Quilotoa", f.vouchers.last.Attraction)
	assert.Equal(t, "Alice", f.vouchers.last.Holder)
	assert.Equal(t, "2025-03-01", f.vouchers.last.Date)

	_, err = f.svc.Ticket(context.Background(), res.ID, bob)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeletesCascadeToReservations(t *testing.T) {
	f := newReservationFixture(t)
	users := newFakeUsers(admin, alice, bob)
	users.cascade = f.reservations
	f.attractions.cascade = f.reservations
	f.svc = NewReservationService(f.reservations, f.attractions, users, f.vouchers, nopLogger())
	catalog := NewAttractionService(f.attractions, f.reservations, &fakeImages{}, nopLogger())
	accounts := NewAuthService(users, newFakeTokens(), nopLogger())

	cuicocha := f.attractions.add("Cuicocha", "Imbabura", "lake")
	f.book(t, alice, "2025-03-01", "10:00")
	f.book(t, bob, "2025-03-01", "11:00")
	_, err := f.svc.Create(context.Background(), bob, ReservationInput{AttractionID: cuicocha.ID, Date: "2025-03-02", Time: "09:00"})
	require.NoError(t, err)

	require.NoError(t, catalog.Delete(context.Background(), admin, f.quilotoa.ID))
	left, err := f.svc.ListForCaller(context.Background(), admin)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, cuicocha.ID, left[0].AttractionID)

	require.NoError(t, accounts.DeleteUser(context.Background(), admin, bob.ID))
	left, err = f.svc.ListForCaller(context.Background(), admin)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestReservationUpdateRejectsMoveOntoAcceptedSlot(t *testing.T) {
	f := newReservationFixture(t)
	taken := f.book(t, bob, "2025-03-01", "10:00")
	_, err := f.svc.SetStatus(context.Background(), taken.ID, "accepted", admin)
	require.NoError(t, err)
	mine := f.book(t, alice, "2025-03-01", "11:00")

	_, err = f.svc.Update(context.Background(), mine.ID, alice, ReservationPatch{Time: ptr("10:00")})
	assert.ErrorIs(t, err, ErrConflict)
	got, _ := f.reservations.GetByID(context.Background(), mine.ID)
	assert.Equal(t, "11:00", got.Time)

	_, err = f.svc.Update(context.Background(), mine.ID, alice, ReservationPatch{Date: ptr("2025-03-02"), Time: ptr("10:00")})
	require.NoError(t, err)
}

func TestSetStatusConcurrentModeration(t *testing.T) {
	f := newReservationFixture(t)
	res := f.book(t, alice, "2025-03-01", "10:00")

	// another moderator accepts between our read and our write
	f.reservations.beforeUpdate = func(r *model.Reservation) { r.Status = model.StatusAccepted }
	_, err := f.svc.SetStatus(context.Background(), res.ID, "rejected", admin)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	got, _ := f.reservations.GetByID(context.Background(), res.ID)
	assert.Equal(t, model.StatusAccepted, got.Status)

	other := f.book(t, bob, "2025-03-01", "12:00")
	f.reservations.beforeUpdate = func(r *model.Reservation) { r.Status = model.StatusAccepted }
	got, err = f.svc.SetStatus(context.Background(), other.ID, "accepted", admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.Status)
}
