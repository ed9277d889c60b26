package therapist

import "time"

// Profile is read-only here: the scheduling core only ever looks up a
// therapist's zone for display. Profile management lives upstream.
type Profile struct {
	Code        string    `db:"code" json:"code"`
	DisplayName string    `db:"display_name" json:"display_name"`
	Timezone    string    `db:"timezone" json:"timezone"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
