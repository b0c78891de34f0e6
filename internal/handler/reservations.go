package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jeremyviracochaf-eng/evaluacionf/internal/service"
)

type reservationRequest struct {
	AttractionID int64   `json:"attraction_id" binding:"required,gt=0"`
	Date         string  `json:"date" binding:"required"`
	Time         string  `json:"time" binding:"required"`
	Comment      *string `json:"comment" binding:"omitempty,max=1000"`
}

type reservationPatchRequest struct {
	Date    *string `json:"date"`
	Time    *string `json:"time"`
	Status  *string `json:"status"`
	Comment *string `json:"comment" binding:"omitempty,max=1000"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending accepted rejected"`
}

// ListReservations handles GET /reservations.
func (h *Handler) ListReservations(c *gin.Context) {
	list, err := h.Bookings.ListForCaller(c.Request.Context(), currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": list})
}

// CreateReservation handles POST /reservations. Booking an accepted slot answers 409.
func (h *Handler) CreateReservation(c *gin.Context) {
	var req reservationRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Bookings.Create(c.Request.Context(), currentUser(c), service.ReservationInput{
		AttractionID: req.AttractionID,
		Date:         req.Date,
		Time:         req.Time,
		Comment:      req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// GetReservation handles GET /reservations/:id.
func (h *Handler) GetReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.Bookings.Get(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UpdateReservation handles PUT /reservations/:id.
func (h *Handler) UpdateReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req reservationPatchRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Bookings.Update(c.Request.Context(), id, currentUser(c), service.ReservationPatch{
		Date:    req.Date,
		Time:    req.Time,
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// SetReservationStatus handles PUT /reservations/:id/status.
func (h *Handler) SetReservationStatus(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req statusRequest
	if !h.bind(c, &req) {
		return
	}
	res, err := h.Bookings.SetStatus(c.Request.Context(), id, req.Status, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DeleteReservation handles DELETE /reservations/:id.
func (h *Handler) DeleteReservation(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Bookings.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reservation deleted."})
}

// ReservationTicket handles GET /reservations/:id/ticket and serves the PDF voucher.
func (h *Handler) ReservationTicket(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	pdf, err := h.Bookings.Ticket(c.Request.Context(), id, currentUser(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=reservation-%d.pdf", id))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
