package availability

import (
	"time"

	"theraslot/internal/timezone"
)

// Slot is one declared open interval for one therapist. Start and end are
// stored as UTC instants; (therapist_code, start_time, end_time) is unique.
type Slot struct {
	ID            int64     `db:"id" json:"id"`
	TherapistCode string    `db:"therapist_code" json:"therapist_code"`
	StartTime     time.Time `db:"start_time" json:"start_time"`
	EndTime       time.Time `db:"end_time" json:"end_time"`
	Booked        bool      `db:"booked" json:"booked"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// TimeRange is one wall-clock interval in a request. Tz overrides the
// batch-level zone for this entry.
type TimeRange struct {
	StartLocal string `json:"start_local" validate:"required" example:"2025-06-01 09:00"`
	EndLocal   string `json:"end_local" validate:"required" example:"2025-06-01 10:00"`
	Tz         string `json:"tz,omitempty" example:"America/Los_Angeles"`
}

type AddSlotsRequest struct {
	TimeRanges  []TimeRange `json:"time_ranges" validate:"required,min=1,dive"`
	Tz          string      `json:"tz,omitempty" example:"America/Los_Angeles"`
	RequesterTz string      `json:"requester_tz,omitempty" example:"Asia/Shanghai"`
}

// SlotDisplay renders one slot in both relevant zones.
type SlotDisplay struct {
	ForTherapist RangeDisplay `json:"for_therapist"`
	ForRequester RangeDisplay `json:"for_requester"`
}

type RangeDisplay struct {
	Start timezone.Display `json:"start"`
	End   timezone.Display `json:"end"`
}

type SlotView struct {
	AvailabilityID int64       `json:"availability_id"`
	TherapistCode  string      `json:"therapist_code"`
	StartUTC       string      `json:"start_utc" example:"2025-06-01T16:00:00Z"`
	EndUTC         string      `json:"end_utc" example:"2025-06-01T17:00:00Z"`
	Display        SlotDisplay `json:"display"`
}

// SlotResult reports the outcome for one entry of an AddSlots batch.
// Partial application is allowed; failed entries carry their error here
// instead of failing the whole batch silently.
type SlotResult struct {
	Index int       `json:"index"`
	Slot  *SlotView `json:"slot,omitempty"`
	Error string    `json:"error,omitempty"`
}

type AddSlotsResponse struct {
	TherapistCode string       `json:"therapist_code"`
	Slots         []SlotResult `json:"slots"`
}

type ListSlotsResponse struct {
	TherapistCode string     `json:"therapist_code"`
	Slots         []SlotView `json:"slots"`
}
