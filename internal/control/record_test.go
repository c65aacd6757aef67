package control

import (
	"testing"
	"time"
)

func TestDefaultRecord(t *testing.T) {
	rec := Default()
	if rec.Mode != ModeIdle {
		t.Fatalf("expected idle default, got %s", rec.Mode)
	}
	p := rec.Params
	if p.PremiumMin != 35 || p.PremiumMax != 45 {
		t.Fatalf("unexpected premium band %v-%v", p.PremiumMin, p.PremiumMax)
	}
	if p.Quantity != 1 || !p.Simulate {
		t.Fatalf("unexpected qty=%d simulate=%v", p.Quantity, p.Simulate)
	}
	if p.BreakoutHigh != 56000 || p.BreakoutLow != 55800 {
		t.Fatalf("unexpected breakout band %v-%v", p.BreakoutLow, p.BreakoutHigh)
	}
	if err := rec.Validate(); err != nil {
		t.Fatalf("default record should validate: %v", err)
	}
}

func TestValidateRejectsInvertedPremiumBand(t *testing.T) {
	rec := Default()
	rec.Params.PremiumMin = 50
	rec.Params.PremiumMax = 40
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected error for premium_min > premium_max")
	}
}

func TestValidateRejectsZeroQuantity(t *testing.T) {
	rec := Default()
	rec.Params.Quantity = 0
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected error for qty 0")
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	rec := Default()
	rec.Mode = "paused"
	if err := rec.Validate(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestParseTimestampForms(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cases := map[string]time.Time{
		"2026-10-19T15:20:00":        time.Date(2026, 10, 19, 15, 20, 0, 0, loc),
		"2026-10-19T15:20:00.250000": time.Date(2026, 10, 19, 15, 20, 0, 250000000, loc),
		"2026-10-19T15:20":           time.Date(2026, 10, 19, 15, 20, 0, 0, loc),
		"2026-10-19T09:50:00Z":       time.Date(2026, 10, 19, 9, 50, 0, 0, time.UTC),
	}
	for input, want := range cases {
		got, err := ParseTimestamp(input, loc)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if !got.Equal(want) {
			t.Fatalf("parse %q: expected %v, got %v", input, want, got)
		}
	}
	if _, err := ParseTimestamp("tomorrow", loc); err == nil {
		t.Fatalf("expected error for unparseable timestamp")
	}
}

func TestApplyScheduledStopElapsed(t *testing.T) {
	loc := time.UTC
	stop := "2026-10-19T15:00:00"
	rec := Default()
	rec.Mode = ModeRunning
	rec.StopAt = &stop
	changed, err := rec.ApplyScheduledStop(time.Date(2026, 10, 19, 15, 0, 1, 0, loc), loc)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !changed {
		t.Fatalf("expected scheduled stop to fire")
	}
	if rec.Mode != ModeIdle || rec.StopAt != nil {
		t.Fatalf("expected idle with cleared schedule, got %s %v", rec.Mode, rec.StopAt)
	}
	if rec.LastCommandTime == nil || *rec.LastCommandTime != "2026-10-19T15:00:01.000000" {
		t.Fatalf("unexpected last_command_time %v", rec.LastCommandTime)
	}
}

func TestApplyScheduledStopPending(t *testing.T) {
	stop := "2026-10-19T15:00:00"
	rec := Default()
	rec.Mode = ModeRunning
	rec.StopAt = &stop
	changed, err := rec.ApplyScheduledStop(time.Date(2026, 10, 19, 14, 59, 0, 0, time.UTC), time.UTC)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if changed || rec.Mode != ModeRunning {
		t.Fatalf("schedule should not fire before stop_at")
	}
}

func TestApplyScheduledStopWithoutSchedule(t *testing.T) {
	rec := Default()
	changed, err := rec.ApplyScheduledStop(time.Now(), time.UTC)
	if err != nil || changed {
		t.Fatalf("expected no-op, got changed=%v err=%v", changed, err)
	}
}
