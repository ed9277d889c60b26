package availability

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrSlotNotFound      = errors.New("slot not found")
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

// UpsertSlot inserts a slot keyed on (therapist_code, start_time, end_time)
// and reports whether a row was created. On conflict the existing row is
// returned untouched: a plain DO UPDATE upsert could clobber the booked
// flag, so the conflict path is an explicit no-op plus re-read.
func (r *repository) UpsertSlot(ctx context.Context, therapistCode string, start, end time.Time) (*Slot, bool, error) {
	insert := `
		INSERT INTO availability_slots (therapist_code, start_time, end_time, booked)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (therapist_code, start_time, end_time) DO NOTHING
		RETURNING id, therapist_code, start_time, end_time, booked, created_at
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, insert, therapistCode, start, end)
	if err == nil {
		return &slot, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("upsert slot for %s: %w", therapistCode, err)
	}

	query := `
		SELECT id, therapist_code, start_time, end_time, booked, created_at
		FROM availability_slots
		WHERE therapist_code = $1 AND start_time = $2 AND end_time = $3
	`

	err = r.db.GetContext(ctx, &slot, query, therapistCode, start, end)
	if err != nil {
		return nil, false, fmt.Errorf("read slot after conflict for %s: %w", therapistCode, err)
	}

	return &slot, false, nil
}

func (r *repository) GetSlotByID(ctx context.Context, id int64) (*Slot, error) {
	query := `
		SELECT id, therapist_code, start_time, end_time, booked, created_at
		FROM availability_slots
		WHERE id = $1
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("get slot %d: %w", id, err)
	}

	return &slot, nil
}

func (r *repository) ListOpenSlots(ctx context.Context, therapistCode string, from, to time.Time, limit int) ([]Slot, error) {
	query := `
		SELECT id, therapist_code, start_time, end_time, booked, created_at
		FROM availability_slots
		WHERE therapist_code = $1
		  AND booked = FALSE
		  AND start_time >= $2
		  AND start_time < $3
		ORDER BY start_time ASC
		LIMIT $4
	`

	slots := []Slot{}
	err := r.db.SelectContext(ctx, &slots, query, therapistCode, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("list open slots for %s: %w", therapistCode, err)
	}

	return slots, nil
}

// SetBooked flips the booked flag with compare-and-set semantics: the row
// is updated only if it currently holds the opposite state. Two concurrent
// claims of the same open slot resolve to exactly one winner; the loser
// gets ErrSlotAlreadyBooked. Releasing an already-released slot is treated
// as an idempotent no-op rather than a conflict.
func (r *repository) SetBooked(ctx context.Context, id int64, desired bool) (*Slot, error) {
	update := `
		UPDATE availability_slots
		SET booked = $2
		WHERE id = $1 AND booked <> $2
		RETURNING id, therapist_code, start_time, end_time, booked, created_at
	`

	var slot Slot
	err := r.db.GetContext(ctx, &slot, update, id, desired)
	if err == nil {
		return &slot, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("set booked=%t on slot %d: %w", desired, id, err)
	}

	// Zero rows: either the slot does not exist or it already holds the
	// desired state. Disambiguate with a read.
	current, err := r.GetSlotByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if desired {
		return nil, fmt.Errorf("claim slot %d: %w", id, ErrSlotAlreadyBooked)
	}

	return current, nil
}
