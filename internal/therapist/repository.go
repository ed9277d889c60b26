package therapist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrTherapistNotFound = errors.New("therapist not found")

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Profile, error) {
	query := `
		SELECT code, display_name, timezone, created_at
		FROM therapists
		WHERE code = $1
	`

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTherapistNotFound
		}
		return nil, fmt.Errorf("get therapist %s: %w", code, err)
	}

	return &profile, nil
}
