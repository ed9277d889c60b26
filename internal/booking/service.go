package booking

import (
	"context"
	"errors"
	"fmt"

	"theraslot/internal/availability"
	"theraslot/internal/logger"
	"theraslot/internal/metrics"
	"theraslot/internal/notify"
	"theraslot/internal/therapist"
	"theraslot/internal/timezone"
)

var ErrCanceledBooking = errors.New("booking is canceled")

// PartialFailureError reports a reschedule that died between steps. The
// reschedule sequence is not transactional: the old slot is released
// before the new one is claimed, and a failure in the middle leaves the
// old slot open. The error carries enough state for a caller (or an
// operator) to see exactly where things stand.
type PartialFailureError struct {
	Step      string
	BookingID int64
	OldSlotID *int64
	NewSlotID int64

	OldSlotReleased bool
	NewSlotClaimed  bool

	Err error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("reschedule booking %d failed at %s: %v", e.BookingID, e.Step, e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }

// Notifier is the slice of the notification service the engine needs.
type Notifier interface {
	Enqueue(ctx context.Context, event notify.Event) error
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*BookingView, error)
	Get(ctx context.Context, id int64, requesterTz string) (*BookingView, error)
	ListByUser(ctx context.Context, userID, requesterTz string) (*ListBookingsResponse, error)
	Cancel(ctx context.Context, id int64, req CancelBookingRequest) (*BookingView, error)
	Reschedule(ctx context.Context, id int64, req RescheduleBookingRequest) (*BookingView, error)
}

type service struct {
	repo      Repository
	slots     availability.Repository
	directory therapist.Directory
	tz        *timezone.Resolver
	notifier  Notifier
}

func NewService(repo Repository, slots availability.Repository, directory therapist.Directory, tz *timezone.Resolver, notifier Notifier) Service {
	return &service{
		repo:      repo,
		slots:     slots,
		directory: directory,
		tz:        tz,
		notifier:  notifier,
	}
}

// Create claims the slot and records the booking. The claim and the
// insert commit together, so losing a race to another client leaves no
// trace beyond the error.
func (s *service) Create(ctx context.Context, req CreateBookingRequest) (*BookingView, error) {
	booking, err := s.repo.Create(ctx, req.UserID, req.AvailabilityID)
	if err != nil {
		switch {
		case errors.Is(err, availability.ErrSlotAlreadyBooked):
			metrics.RecordSlotClaimConflict()
			metrics.RecordBooking("conflict")
		case errors.Is(err, availability.ErrSlotNotFound):
			metrics.RecordBooking("not_found")
		default:
			metrics.RecordBooking("error")
		}
		return nil, err
	}
	metrics.RecordBooking("scheduled")

	view := s.view(ctx, booking, req.RequesterTz)
	s.emit(ctx, notify.Event{
		Type:          notify.EventBookingScheduled,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		TherapistCode: booking.TherapistCode,
		StartUTC:      slotStart(view.Slot),
	})
	return view, nil
}

func (s *service) Get(ctx context.Context, id int64, requesterTz string) (*BookingView, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, booking, requesterTz), nil
}

func (s *service) ListByUser(ctx context.Context, userID, requesterTz string) (*ListBookingsResponse, error) {
	bookings, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]BookingView, 0, len(bookings))
	for i := range bookings {
		views = append(views, *s.view(ctx, &bookings[i], requesterTz))
	}
	return &ListBookingsResponse{Bookings: views, Count: len(views)}, nil
}

// Cancel releases the slot and marks the booking canceled. A second
// cancel comes back as ErrAlreadyCanceled rather than success, so the
// caller can tell whether this call did anything.
func (s *service) Cancel(ctx context.Context, id int64, req CancelBookingRequest) (*BookingView, error) {
	booking, err := s.repo.Cancel(ctx, id, req.Reason)
	if err != nil {
		return nil, err
	}
	metrics.RecordBookingCancellation()

	s.emit(ctx, notify.Event{
		Type:          notify.EventBookingCanceled,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		TherapistCode: booking.TherapistCode,
		Detail:        req.Reason,
	})
	return s.view(ctx, booking, ""), nil
}

// Reschedule moves a booking to a new slot in three sequenced steps:
// release the old slot, claim the new one, repoint the booking. There is
// no compensation between steps. Losing the new slot after the release
// leaves the booking pointing at its old, now-open slot; that outcome is
// reported as a PartialFailureError instead of being papered over.
func (s *service) Reschedule(ctx context.Context, id int64, req RescheduleBookingRequest) (*BookingView, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		metrics.RecordReschedule("not_found")
		return nil, err
	}
	if booking.Status == StatusCanceled {
		metrics.RecordReschedule("canceled")
		return nil, ErrCanceledBooking
	}

	newSlot, err := s.slots.GetSlotByID(ctx, req.NewAvailabilityID)
	if err != nil {
		metrics.RecordReschedule("slot_not_found")
		return nil, err
	}

	oldSlotID := booking.SlotID
	if oldSlotID != nil && *oldSlotID == newSlot.ID {
		// Moving onto the slot the booking already holds is a no-op.
		metrics.RecordReschedule("noop")
		return s.view(ctx, booking, req.RequesterTz), nil
	}

	if oldSlotID != nil {
		if _, err := s.slots.SetBooked(ctx, *oldSlotID, false); err != nil {
			metrics.RecordReschedule("error")
			return nil, fmt.Errorf("release slot %d: %w", *oldSlotID, err)
		}
	}

	if _, err := s.slots.SetBooked(ctx, newSlot.ID, true); err != nil {
		if errors.Is(err, availability.ErrSlotAlreadyBooked) {
			metrics.RecordSlotClaimConflict()
		}
		metrics.RecordReschedule("conflict")
		return nil, &PartialFailureError{
			Step:            "claim_new",
			BookingID:       booking.ID,
			OldSlotID:       oldSlotID,
			NewSlotID:       newSlot.ID,
			OldSlotReleased: oldSlotID != nil,
			Err:             err,
		}
	}

	booking, err = s.repo.Repoint(ctx, booking.ID, newSlot.ID, newSlot.TherapistCode)
	if err != nil {
		metrics.RecordReschedule("error")
		return nil, &PartialFailureError{
			Step:            "repoint",
			BookingID:       id,
			OldSlotID:       oldSlotID,
			NewSlotID:       newSlot.ID,
			OldSlotReleased: oldSlotID != nil,
			NewSlotClaimed:  true,
			Err:             err,
		}
	}
	metrics.RecordReschedule("rescheduled")

	view := s.view(ctx, booking, req.RequesterTz)
	s.emit(ctx, notify.Event{
		Type:          notify.EventBookingRescheduled,
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		TherapistCode: booking.TherapistCode,
		StartUTC:      slotStart(view.Slot),
	})
	return view, nil
}

// view shapes a booking for the API, rendering the referenced slot in
// the therapist's and the requester's zones. A missing slot row is not
// an error: the view just carries no slot.
func (s *service) view(ctx context.Context, booking *Booking, requesterTz string) *BookingView {
	v := &BookingView{
		BookingID:     booking.ID,
		UserID:        booking.UserID,
		TherapistCode: booking.TherapistCode,
		Status:        booking.Status,
		CancelReason:  booking.CancelReason,
	}

	if booking.SlotID == nil {
		return v
	}
	slot, err := s.slots.GetSlotByID(ctx, *booking.SlotID)
	if err != nil {
		logger.Warn("booking slot lookup failed", "booking", booking.ID, "slot", *booking.SlotID, "error", err)
		return v
	}

	slotView := availability.ViewForSlot(s.tz, *slot, s.therapistZone(ctx, booking.TherapistCode), s.tz.Resolve(requesterTz))
	v.Slot = &slotView
	return v
}

func (s *service) therapistZone(ctx context.Context, code string) string {
	zone, err := s.directory.GetTimezone(ctx, code)
	if err != nil {
		if !errors.Is(err, therapist.ErrTherapistNotFound) {
			logger.Warn("therapist timezone lookup failed", "therapist", code, "error", err)
		}
		return s.tz.DefaultZone()
	}
	return s.tz.Resolve(zone)
}

// emit queues a notification. Delivery is best effort and never fails
// the scheduling operation.
func (s *service) emit(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, event); err != nil {
		logger.Warn("notification enqueue failed", "event", event.Type, "booking", event.BookingID, "error", err)
	}
}

func slotStart(view *availability.SlotView) string {
	if view == nil {
		return ""
	}
	return view.StartUTC
}
