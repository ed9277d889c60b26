package therapist

import "context"

type Repository interface {
	GetByCode(ctx context.Context, code string) (*Profile, error)
}
