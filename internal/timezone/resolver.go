package timezone

import (
	"errors"
	"fmt"
	"time"
)

// LocalLayout is the only accepted wall-clock input format: date plus 24h
// time, no seconds.
const LocalLayout = "2006-01-02 15:04"

// utcLayout is ISO-8601 without fractional seconds, used for every
// timestamp at rest and on the wire.
const utcLayout = "2006-01-02T15:04:05Z07:00"

var (
	ErrInvalidTimeFormat = errors.New("invalid time format")
	ErrInvalidZone       = errors.New("invalid timezone")
)

// Resolver converts between local wall-clock strings and UTC instants.
// The default zone is injected at construction; nothing is read from the
// environment at call time.
type Resolver struct {
	defaultZone string
}

func New(defaultZone string) *Resolver {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &Resolver{defaultZone: defaultZone}
}

func (r *Resolver) DefaultZone() string {
	return r.defaultZone
}

// Resolve returns candidate if it names a valid IANA zone, otherwise the
// configured default. It never fails.
func (r *Resolver) Resolve(candidate string) string {
	if candidate == "" {
		return r.defaultZone
	}
	if _, err := time.LoadLocation(candidate); err != nil {
		return r.defaultZone
	}
	return candidate
}

// LocalToUTC parses a wall-clock string in LocalLayout as local time in the
// given zone and returns the UTC instant. Local times that do not exist in
// the zone (the spring-forward DST gap) are rejected: time.ParseInLocation
// normalizes them forward, so a round-trip through the layout no longer
// matches the input.
func (r *Resolver) LocalToUTC(local, zone string) (time.Time, error) {
	loc, err := time.LoadLocation(r.Resolve(zone))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidZone, zone)
	}

	t, err := time.ParseInLocation(LocalLayout, local, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidTimeFormat, local, LocalLayout)
	}

	if t.Format(LocalLayout) != local {
		return time.Time{}, fmt.Errorf("%w: %q does not exist in zone %s", ErrInvalidTimeFormat, local, loc)
	}

	return t.UTC(), nil
}

// Display is the human-facing rendering of one instant in one zone. Local
// strings are always computed on demand from the UTC instant so displayed
// offsets stay correct across DST transitions.
type Display struct {
	UTC    string `json:"utc" example:"2025-06-01T16:00:00Z"`
	Local  string `json:"local" example:"2025-06-01 09:00"`
	Zone   string `json:"zone" example:"America/Los_Angeles"`
	Offset string `json:"offset" example:"-07:00"`
}

// ToDisplay renders an instant for the given zone. Total for any valid
// instant; an unresolvable zone falls back to the default.
func (r *Resolver) ToDisplay(t time.Time, zone string) Display {
	resolved := r.Resolve(zone)
	loc, err := time.LoadLocation(resolved)
	if err != nil {
		loc = time.UTC
		resolved = "UTC"
	}

	local := t.In(loc)
	return Display{
		UTC:    t.UTC().Format(utcLayout),
		Local:  local.Format(LocalLayout),
		Zone:   resolved,
		Offset: local.Format("-07:00"),
	}
}

// FormatUTC renders an instant as ISO-8601 UTC with no fractional seconds.
func FormatUTC(t time.Time) string {
	return t.UTC().Format(utcLayout)
}
