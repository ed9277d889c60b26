package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"theraslot/internal/api"
	"theraslot/internal/availability"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/bookings", h.Create)
	r.GET("/bookings", h.ListByUser)
	r.GET("/bookings/:bookingID", h.Get)
	r.POST("/bookings/:bookingID/cancel", h.Cancel)
	r.POST("/bookings/:bookingID/reschedule", h.Reschedule)
}

// Create godoc
// @Summary      Book a slot
// @Description  Atomically claims an open slot for a client. Losing a race to another client returns 409 with kind slot_unavailable and no side effects.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      CreateBookingRequest  true  "Booking request"
// @Success      201      {object}  BookingView
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      409      {object}  api.ErrorResponse
// @Router       /bookings [post]
func (h *Handler) Create(c *gin.Context) {
	var req CreateBookingRequest
	if err := api.BindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: err.Error()})
		return
	}

	view, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		status, body := mapEngineError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// Get godoc
// @Summary      Fetch a booking
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        bookingID  path      int     true   "Booking id"
// @Param        tz         query     string  false  "Requester timezone"
// @Success      200        {object}  BookingView
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID} [get]
func (h *Handler) Get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	view, err := h.service.Get(c.Request.Context(), id, c.Query("tz"))
	if err != nil {
		status, body := mapEngineError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ListByUser godoc
// @Summary      List a client's bookings
// @Tags         bookings
// @Security     BearerAuth
// @Produce      json
// @Param        user_id  query     string  true   "Client id"
// @Param        tz       query     string  false  "Requester timezone"
// @Success      200      {object}  ListBookingsResponse
// @Failure      400      {object}  api.ErrorResponse
// @Router       /bookings [get]
func (h *Handler) ListByUser(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: "user_id is required"})
		return
	}

	resp, err := h.service.ListByUser(c.Request.Context(), userID, c.Query("tz"))
	if err != nil {
		status, body := mapEngineError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a booking
// @Description  Releases the referenced slot (when still present) and marks the booking canceled. Canceling twice returns 409 with kind already_canceled.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                   true   "Booking id"
// @Param        request    body      CancelBookingRequest  false  "Cancellation detail"
// @Success      200        {object}  BookingView
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := api.BindStrict(c, &req); err != nil {
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: err.Error()})
			return
		}
	}

	view, err := h.service.Cancel(c.Request.Context(), id, req)
	if err != nil {
		status, body := mapEngineError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Reschedule godoc
// @Summary      Reschedule a booking
// @Description  Moves a scheduled booking onto a new open slot. The steps are sequenced without compensation: a conflict on the new slot leaves the old slot released, reported with kind partial_failure.
// @Tags         bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        bookingID  path      int                       true  "Booking id"
// @Param        request    body      RescheduleBookingRequest  true  "Reschedule request"
// @Success      200        {object}  BookingView
// @Failure      400        {object}  api.ErrorResponse
// @Failure      404        {object}  api.ErrorResponse
// @Failure      409        {object}  api.ErrorResponse
// @Router       /bookings/{bookingID}/reschedule [post]
func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}

	var req RescheduleBookingRequest
	if err := api.BindStrict(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: err.Error()})
		return
	}

	view, err := h.service.Reschedule(c.Request.Context(), id, req)
	if err != nil {
		status, body := mapEngineError(err)
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, view)
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("bookingID"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Kind: api.KindInvalidInput, Error: "booking id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// partialFailureDetails is the machine-readable state carried alongside a
// partial_failure response.
type partialFailureDetails struct {
	Step            string `json:"step"`
	BookingID       int64  `json:"booking_id"`
	OldSlotID       *int64 `json:"old_slot_id,omitempty"`
	NewSlotID       int64  `json:"new_slot_id"`
	OldSlotReleased bool   `json:"old_slot_released"`
	NewSlotClaimed  bool   `json:"new_slot_claimed"`
}

func mapEngineError(err error) (int, api.ErrorResponse) {
	var partial *PartialFailureError
	if errors.As(err, &partial) {
		details := partialFailureDetails{
			Step:            partial.Step,
			BookingID:       partial.BookingID,
			OldSlotID:       partial.OldSlotID,
			NewSlotID:       partial.NewSlotID,
			OldSlotReleased: partial.OldSlotReleased,
			NewSlotClaimed:  partial.NewSlotClaimed,
		}
		if errors.Is(err, availability.ErrSlotAlreadyBooked) {
			return http.StatusConflict, api.ErrorResponse{Kind: api.KindPartialFailure, Error: err.Error(), Details: details}
		}
		return http.StatusInternalServerError, api.ErrorResponse{Kind: api.KindPartialFailure, Error: err.Error(), Details: details}
	}

	switch {
	case errors.Is(err, availability.ErrSlotAlreadyBooked):
		return http.StatusConflict, api.ErrorResponse{Kind: api.KindSlotUnavailable, Error: "slot is already booked"}
	case errors.Is(err, ErrAlreadyCanceled):
		return http.StatusConflict, api.ErrorResponse{Kind: api.KindAlreadyCanceled, Error: "booking is already canceled"}
	case errors.Is(err, ErrCanceledBooking):
		return http.StatusConflict, api.ErrorResponse{Kind: api.KindAlreadyCanceled, Error: "canceled bookings cannot be rescheduled"}
	case errors.Is(err, ErrBookingNotFound):
		return http.StatusNotFound, api.ErrorResponse{Kind: api.KindNotFound, Error: "booking not found"}
	case errors.Is(err, availability.ErrSlotNotFound):
		return http.StatusNotFound, api.ErrorResponse{Kind: api.KindNotFound, Error: "slot not found"}
	case api.IsTimeout(err):
		return http.StatusGatewayTimeout, api.ErrorResponse{Kind: api.KindUpstreamTimeout, Error: "storage timed out; retry"}
	default:
		return http.StatusInternalServerError, api.ErrorResponse{Kind: api.KindInternal, Error: "failed to process booking"}
	}
}
