package strategy

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Observation is one monitor tick: the operator's current mode and the
// latest option premium, if one was available.
type Observation struct {
	Running    bool
	Premium    decimal.Decimal
	HasPremium bool
}

// Monitor tracks an open position until an exit is demanded. Checks run in
// order: operator stop, stop loss, target.
type Monitor struct {
	mu     sync.Mutex
	State  State
	Levels Levels
}

func NewMonitor(levels Levels) *Monitor {
	return &Monitor{State: StateMonitoring, Levels: levels}
}

// Observe classifies obs and applies the resulting event.
func (m *Monitor) Observe(obs Observation) State {
	return m.Apply(Classify(m.Levels, obs))
}

func (m *Monitor) Apply(event Event) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.State = nextState(m.State, event)
	return m.State
}

func (m *Monitor) Current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.State
}

func Classify(levels Levels, obs Observation) Event {
	if !obs.Running {
		return EventStopRequested
	}
	if !obs.HasPremium {
		return EventNone
	}
	if obs.Premium.LessThanOrEqual(levels.StopLoss) {
		return EventStopLossHit
	}
	if obs.Premium.GreaterThanOrEqual(levels.Target) {
		return EventTargetHit
	}
	return EventNone
}

func nextState(current State, event Event) State {
	switch current {
	case StateMonitoring:
		switch event {
		case EventStopRequested:
			return StateExitOperatorStop
		case EventStopLossHit:
			return StateExitStopLoss
		case EventTargetHit:
			return StateExitTarget
		}
	case StateExitStopLoss, StateExitTarget, StateExitOperatorStop:
		if event == EventExitSubmitted {
			return StateClosed
		}
	}
	return current
}
