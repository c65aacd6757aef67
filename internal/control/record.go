// Package control owns the operator control record: the run/stop intent,
// scheduled stop and strategy parameters written by the operator surface and
// read by the engine every cycle.
package control

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeRunning Mode = "running"
)

// Params are the strategy parameters the operator can edit at runtime.
type Params struct {
	PremiumMin   float64 `json:"premium_min" default:"35" validate:"gte=0"`
	PremiumMax   float64 `json:"premium_max" default:"45" validate:"gtefield=PremiumMin"`
	Quantity     int     `json:"qty" default:"1" validate:"gte=1"`
	Simulate     bool    `json:"test_mode" default:"true"`
	BreakoutHigh float64 `json:"candle_high" default:"56000"`
	BreakoutLow  float64 `json:"candle_low" default:"55800"`
}

// Record mirrors control.json. Timestamps are kept as the strings the
// operator surface wrote so a read-modify-write never reformats them.
type Record struct {
	Mode            Mode    `json:"mode" default:"idle" validate:"oneof=idle running"`
	StartAt         *string `json:"start_at"`
	StopAt          *string `json:"stop_at"`
	Params          Params  `json:"params"`
	LastCommandTime *string `json:"last_command_time"`
	LastCommandBy   *string `json:"last_command_by"`
}

var validate = validator.New()

// Default returns the record the engine falls back to when control.json is
// missing or unreadable. Its mode is idle.
func Default() Record {
	var rec Record
	if err := defaults.Set(&rec); err != nil {
		// tags are static; a failure here is a programming error
		panic(err)
	}
	return rec
}

func (r Record) Validate() error {
	return validate.Struct(r)
}

func (r Record) Running() bool {
	return r.Mode == ModeRunning
}

// ErrNoSchedule is returned by ScheduledStop when stop_at is unset.
var ErrNoSchedule = errors.New("no scheduled stop")

// ScheduledStop parses stop_at in loc.
func (r Record) ScheduledStop(loc *time.Location) (time.Time, error) {
	if r.StopAt == nil || strings.TrimSpace(*r.StopAt) == "" {
		return time.Time{}, ErrNoSchedule
	}
	return ParseTimestamp(*r.StopAt, loc)
}

// ApplyScheduledStop forces the record idle when its scheduled stop has
// elapsed at now. It reports whether the record changed.
func (r *Record) ApplyScheduledStop(now time.Time, loc *time.Location) (bool, error) {
	stopAt, err := r.ScheduledStop(loc)
	if err != nil {
		if errors.Is(err, ErrNoSchedule) {
			return false, nil
		}
		return false, err
	}
	if now.Before(stopAt) {
		return false, nil
	}
	stamp := FormatTimestamp(now, loc)
	r.Mode = ModeIdle
	r.StopAt = nil
	r.LastCommandTime = &stamp
	return true, nil
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC 3339 and the zone-less ISO forms the operator
// surface writes; zone-less values are interpreted in loc.
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.UTC
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

func FormatTimestamp(ts time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return ts.In(loc).Format("2006-01-02T15:04:05.000000")
}
