package strategy

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is the per-cycle breakout decision. It is never persisted.
type Signal string

const (
	SignalNone Signal = "NONE"
	SignalHigh Signal = "HIGH"
	SignalLow  Signal = "LOW"
)

type OptionType string

const (
	OptionCall OptionType = "CE"
	OptionPut  OptionType = "PE"
)

// OptionType maps a breakout direction to the contract type bought on it.
func (s Signal) OptionType() (OptionType, bool) {
	switch s {
	case SignalHigh:
		return OptionCall, true
	case SignalLow:
		return OptionPut, true
	default:
		return "", false
	}
}

// Contract is a resolved tradable option with the premium observed while
// resolving it. It is only valid for the cycle that produced it.
type Contract struct {
	Symbol     string
	Premium    decimal.Decimal
	Strike     int64
	Expiry     time.Time
	OptionType OptionType
}

type State string

type Event string

const (
	StateMonitoring       State = "MONITORING"
	StateExitStopLoss     State = "EXITING_STOP_LOSS"
	StateExitTarget       State = "EXITING_TARGET"
	StateExitOperatorStop State = "EXITING_OPERATOR_STOP"
	StateClosed           State = "CLOSED"
)

const (
	EventNone          Event = "NONE"
	EventStopRequested Event = "STOP_REQUESTED"
	EventStopLossHit   Event = "STOP_LOSS_HIT"
	EventTargetHit     Event = "TARGET_HIT"
	EventExitSubmitted Event = "EXIT_SUBMITTED"
)

// Exiting reports whether s demands an exit order.
func (s State) Exiting() bool {
	switch s {
	case StateExitStopLoss, StateExitTarget, StateExitOperatorStop:
		return true
	}
	return false
}
