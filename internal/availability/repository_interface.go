package availability

import (
	"context"
	"time"
)

type Repository interface {
	UpsertSlot(ctx context.Context, therapistCode string, start, end time.Time) (*Slot, bool, error)
	GetSlotByID(ctx context.Context, id int64) (*Slot, error)
	ListOpenSlots(ctx context.Context, therapistCode string, from, to time.Time, limit int) ([]Slot, error)
	SetBooked(ctx context.Context, id int64, desired bool) (*Slot, error)
}
