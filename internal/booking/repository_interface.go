package booking

import "context"

type Repository interface {
	Create(ctx context.Context, userID string, slotID int64) (*Booking, error)
	GetByID(ctx context.Context, id int64) (*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]Booking, error)
	Cancel(ctx context.Context, id int64, reason string) (*Booking, error)
	Repoint(ctx context.Context, id int64, slotID int64, therapistCode string) (*Booking, error)
}
