package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"theraslot/internal/availability"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrAlreadyCanceled = errors.New("booking already canceled")
)

const bookingColumns = "id, user_id, therapist_code, slot_id, status, cancel_reason, created_at, updated_at"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// Create claims the slot and inserts the booking in one transaction.
// The claim is a conditional update: zero rows means somebody else holds
// the slot (or it never existed), and the whole transaction rolls back,
// so a lost race leaves no booking row behind.
func (r *repository) Create(ctx context.Context, userID string, slotID int64) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create booking: %w", err)
	}
	defer tx.Rollback()

	var therapistCode string
	err = tx.GetContext(ctx, &therapistCode, `
		UPDATE availability_slots
		SET booked = TRUE
		WHERE id = $1 AND booked = FALSE
		RETURNING therapist_code`, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.claimFailure(ctx, tx, slotID)
		}
		return nil, fmt.Errorf("claim slot %d: %w", slotID, err)
	}

	var booking Booking
	err = tx.GetContext(ctx, &booking, `
		INSERT INTO bookings (user_id, therapist_code, slot_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+bookingColumns, userID, therapistCode, slotID, StatusScheduled)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create booking: %w", err)
	}
	return &booking, nil
}

// claimFailure decides, inside the same transaction, whether the zero-row
// claim means a missing slot or a lost race.
func (r *repository) claimFailure(ctx context.Context, tx *sqlx.Tx, slotID int64) error {
	var exists bool
	err := tx.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM availability_slots WHERE id = $1)", slotID)
	if err != nil {
		return fmt.Errorf("check slot %d: %w", slotID, err)
	}
	if !exists {
		return availability.ErrSlotNotFound
	}
	return availability.ErrSlotAlreadyBooked
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Booking, error) {
	var booking Booking
	err := r.db.GetContext(ctx, &booking,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking %d: %w", id, err)
	}
	return &booking, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookings for %s: %w", userID, err)
	}
	return bookings, nil
}

// Cancel releases the referenced slot (when still present) and marks the
// booking canceled, atomically. Canceling twice is rejected rather than
// silently absorbed so callers can tell the states apart.
func (r *repository) Cancel(ctx context.Context, id int64, reason string) (*Booking, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cancel booking: %w", err)
	}
	defer tx.Rollback()

	var booking Booking
	err = tx.GetContext(ctx, &booking,
		"SELECT "+bookingColumns+" FROM bookings WHERE id = $1 FOR UPDATE", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("lock booking %d: %w", id, err)
	}
	if booking.Status == StatusCanceled {
		return nil, ErrAlreadyCanceled
	}

	if booking.SlotID != nil {
		_, err = tx.ExecContext(ctx,
			"UPDATE availability_slots SET booked = FALSE WHERE id = $1", *booking.SlotID)
		if err != nil {
			return nil, fmt.Errorf("release slot %d: %w", *booking.SlotID, err)
		}
	}

	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}
	err = tx.GetContext(ctx, &booking, `
		UPDATE bookings
		SET status = $2, cancel_reason = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+bookingColumns, id, StatusCanceled, cancelReason)
	if err != nil {
		return nil, fmt.Errorf("mark booking %d canceled: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cancel booking: %w", err)
	}
	return &booking, nil
}

// Repoint moves a scheduled booking onto a new, already-claimed slot.
// It is the final step of a reschedule and deliberately does not touch
// the slots table; the engine sequences the claim beforehand.
func (r *repository) Repoint(ctx context.Context, id int64, slotID int64, therapistCode string) (*Booking, error) {
	var booking Booking
	err := r.db.GetContext(ctx, &booking, `
		UPDATE bookings
		SET slot_id = $2, therapist_code = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING `+bookingColumns, id, slotID, therapistCode, StatusScheduled)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("repoint booking %d: %w", id, err)
	}
	return &booking, nil
}
