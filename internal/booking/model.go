package booking

import (
	"time"

	"theraslot/internal/availability"
)

const (
	StatusScheduled = "scheduled"
	StatusCanceled  = "canceled"
)

// Booking is one client's claim on one availability slot. SlotID is
// nullable: it goes nil if the slot row is removed upstream, and the
// cancel path must cope with that.
type Booking struct {
	ID            int64     `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	TherapistCode string    `db:"therapist_code" json:"therapist_code"`
	SlotID        *int64    `db:"slot_id" json:"slot_id"`
	Status        string    `db:"status" json:"status"`
	CancelReason  *string   `db:"cancel_reason" json:"cancel_reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

type CreateBookingRequest struct {
	UserID         string `json:"user_id" validate:"required"`
	AvailabilityID int64  `json:"availability_id" validate:"required,gt=0"`
	RequesterTz    string `json:"requester_tz,omitempty" example:"Asia/Shanghai"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type RescheduleBookingRequest struct {
	NewAvailabilityID int64  `json:"new_availability_id" validate:"required,gt=0"`
	RequesterTz       string `json:"requester_tz,omitempty" example:"Asia/Shanghai"`
}

// BookingView is the engine's response shape: booking state plus the
// referenced slot rendered in both relevant zones.
type BookingView struct {
	BookingID     int64                  `json:"booking_id"`
	UserID        string                 `json:"user_id"`
	TherapistCode string                 `json:"therapist_code"`
	Status        string                 `json:"status"`
	CancelReason  *string                `json:"cancel_reason,omitempty"`
	Slot          *availability.SlotView `json:"slot,omitempty"`
}

type ListBookingsResponse struct {
	Bookings []BookingView `json:"bookings"`
	Count    int           `json:"count"`
}
