package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
)

func running(p int64) Observation {
	return Observation{Running: true, Premium: decimal.NewFromInt(p), HasPremium: true}
}

func TestMonitorStopLossSequence(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	if m.Observe(running(38)) != StateMonitoring {
		t.Fatalf("expected %s at entry price", StateMonitoring)
	}
	if m.Observe(running(34)) != StateMonitoring {
		t.Fatalf("expected %s above stop loss", StateMonitoring)
	}
	if m.Observe(running(31)) != StateExitStopLoss {
		t.Fatalf("expected %s at stop loss, got %s", StateExitStopLoss, m.State)
	}
	if m.Apply(EventExitSubmitted) != StateClosed {
		t.Fatalf("expected %s, got %s", StateClosed, m.State)
	}
}

func TestMonitorTargetSequence(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	for _, p := range []int64{38, 45} {
		if m.Observe(running(p)) != StateMonitoring {
			t.Fatalf("premium %d: expected %s, got %s", p, StateMonitoring, m.State)
		}
	}
	if m.Observe(running(50)) != StateExitTarget {
		t.Fatalf("expected %s, got %s", StateExitTarget, m.State)
	}
}

func TestMonitorTargetBoundaryInclusive(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	if m.Observe(running(48)) != StateExitTarget {
		t.Fatalf("expected %s at exactly target, got %s", StateExitTarget, m.State)
	}
}

func TestMonitorOperatorStopWins(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	obs := Observation{Running: false, Premium: decimal.NewFromInt(20), HasPremium: true}
	if m.Observe(obs) != StateExitOperatorStop {
		t.Fatalf("expected %s, got %s", StateExitOperatorStop, m.State)
	}
}

func TestMonitorOperatorStopWithoutPremium(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	if m.Observe(Observation{Running: false}) != StateExitOperatorStop {
		t.Fatalf("expected %s, got %s", StateExitOperatorStop, m.State)
	}
}

func TestMonitorMissingPremiumKeepsMonitoring(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	if m.Observe(Observation{Running: true}) != StateMonitoring {
		t.Fatalf("expected %s without a premium, got %s", StateMonitoring, m.State)
	}
}

func TestMonitorExitStateIsSticky(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	m.Observe(running(30))
	if m.Observe(running(60)) != StateExitStopLoss {
		t.Fatalf("exit state should not change on later ticks, got %s", m.State)
	}
	if !m.Current().Exiting() {
		t.Fatalf("expected exiting state")
	}
}

func TestMonitorInvalidTransition(t *testing.T) {
	m := NewMonitor(NewLevels(decimal.NewFromInt(38), 7, 10))
	if m.Apply(EventExitSubmitted) != StateMonitoring {
		t.Fatalf("invalid transition should not change state")
	}
}

func TestMonitorObservationOrdering(t *testing.T) {
	levels := NewLevels(decimal.NewFromInt(40), 7, 10)
	cases := []struct {
		name  string
		seq   []int64
		final State
	}{
		{"stop loss", []int64{38, 34, 33}, StateExitStopLoss},
		{"target", []int64{38, 45, 50}, StateExitTarget},
	}
	for _, tc := range cases {
		m := NewMonitor(levels)
		for i, p := range tc.seq {
			got := m.Observe(running(p))
			if i < len(tc.seq)-1 && got != StateMonitoring {
				t.Fatalf("%s: exited early at observation %d with %s", tc.name, i+1, got)
			}
		}
		if m.Current() != tc.final {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.final, m.Current())
		}
	}
}
