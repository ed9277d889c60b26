package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"theraslot/internal/logger"
	"theraslot/internal/metrics"
	"theraslot/internal/therapist"
	"theraslot/internal/timezone"
)

var (
	ErrMissingTherapistCode = errors.New("therapist code is required")
	ErrInvalidRange         = errors.New("end time must be after start time")
	ErrInvalidWindow        = errors.New("window must be positive")
)

const (
	DefaultWindowHours = 96
	DefaultListLimit   = 20
	MaxListLimit       = 100
)

type Service interface {
	AddSlots(ctx context.Context, therapistCode string, req AddSlotsRequest) (*AddSlotsResponse, error)
	ListOpen(ctx context.Context, therapistCode string, windowHours, limit int, requesterTz string) (*ListSlotsResponse, error)
}

type service struct {
	repo             Repository
	directory        therapist.Directory
	tz               *timezone.Resolver
	defaultTherapist string
}

func NewService(repo Repository, directory therapist.Directory, tz *timezone.Resolver, defaultTherapist string) Service {
	return &service{
		repo:             repo,
		directory:        directory,
		tz:               tz,
		defaultTherapist: defaultTherapist,
	}
}

// AddSlots converts each wall-clock range to UTC and upserts it. Entries
// are applied independently: a bad range fails only its own entry, and the
// per-entry outcome is reported in the response.
func (s *service) AddSlots(ctx context.Context, therapistCode string, req AddSlotsRequest) (*AddSlotsResponse, error) {
	code, err := s.resolveCode(therapistCode)
	if err != nil {
		return nil, err
	}

	therapistZone := s.therapistZone(ctx, code)
	requesterZone := s.tz.Resolve(req.RequesterTz)

	results := make([]SlotResult, 0, len(req.TimeRanges))
	for i, tr := range req.TimeRanges {
		zone := tr.Tz
		if zone == "" {
			zone = req.Tz
		}

		slot, created, err := s.addOne(ctx, code, tr, zone)
		if err != nil {
			logger.Warn("availability entry rejected",
				"therapist", code,
				"index", i,
				"error", err,
			)
			results = append(results, SlotResult{Index: i, Error: err.Error()})
			continue
		}

		result := "existing"
		if created {
			result = "created"
		}
		metrics.RecordSlotUpsert(result)

		view := ViewForSlot(s.tz, *slot, therapistZone, requesterZone)
		results = append(results, SlotResult{Index: i, Slot: &view})
	}

	return &AddSlotsResponse{TherapistCode: code, Slots: results}, nil
}

func (s *service) addOne(ctx context.Context, code string, tr TimeRange, zone string) (*Slot, bool, error) {
	start, err := s.tz.LocalToUTC(tr.StartLocal, zone)
	if err != nil {
		return nil, false, fmt.Errorf("start: %w", err)
	}

	end, err := s.tz.LocalToUTC(tr.EndLocal, zone)
	if err != nil {
		return nil, false, fmt.Errorf("end: %w", err)
	}

	if !end.After(start) {
		return nil, false, ErrInvalidRange
	}

	return s.repo.UpsertSlot(ctx, code, start, end)
}

func (s *service) ListOpen(ctx context.Context, therapistCode string, windowHours, limit int, requesterTz string) (*ListSlotsResponse, error) {
	code, err := s.resolveCode(therapistCode)
	if err != nil {
		return nil, err
	}

	if windowHours == 0 {
		windowHours = DefaultWindowHours
	}
	if windowHours < 0 {
		return nil, ErrInvalidWindow
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	from := time.Now().UTC()
	to := from.Add(time.Duration(windowHours) * time.Hour)

	slots, err := s.repo.ListOpenSlots(ctx, code, from, to, limit)
	if err != nil {
		return nil, err
	}

	therapistZone := s.therapistZone(ctx, code)
	requesterZone := s.tz.Resolve(requesterTz)

	views := make([]SlotView, 0, len(slots))
	for _, slot := range slots {
		views = append(views, ViewForSlot(s.tz, slot, therapistZone, requesterZone))
	}

	return &ListSlotsResponse{TherapistCode: code, Slots: views}, nil
}

func (s *service) resolveCode(code string) (string, error) {
	if code == "" || code == "-" {
		code = s.defaultTherapist
	}
	if code == "" {
		return "", ErrMissingTherapistCode
	}
	return code, nil
}

// therapistZone looks up the therapist's declared zone for display. Unknown
// codes are not an error here: rendering falls back to the default zone.
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

// ViewForSlot renders a slot in both relevant zones. Shared with the
// booking engine so booking responses shape slots identically.
func ViewForSlot(tz *timezone.Resolver, slot Slot, therapistZone, requesterZone string) SlotView {
	return SlotView{
		AvailabilityID: slot.ID,
		TherapistCode:  slot.TherapistCode,
		StartUTC:       timezone.FormatUTC(slot.StartTime),
		EndUTC:         timezone.FormatUTC(slot.EndTime),
		Display: SlotDisplay{
			ForTherapist: RangeDisplay{
				Start: tz.ToDisplay(slot.StartTime, therapistZone),
				End:   tz.ToDisplay(slot.EndTime, therapistZone),
			},
			ForRequester: RangeDisplay{
				Start: tz.ToDisplay(slot.StartTime, requesterZone),
				End:   tz.ToDisplay(slot.EndTime, requesterZone),
			},
		},
	}
}
