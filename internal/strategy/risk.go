package strategy

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrNoSignal         = errors.New("no breakout signal")
	ErrUnresolved       = errors.New("no priced contract among candidates")
	ErrPremiumOutOfBand = errors.New("premium outside admission band")
	ErrInvalidAdmission = errors.New("premium band is inverted")
)

// CheckAdmission accepts a premium inside [min, max], bounds inclusive.
func CheckAdmission(premium decimal.Decimal, min, max float64) error {
	lo := decimal.NewFromFloat(min)
	hi := decimal.NewFromFloat(max)
	if hi.LessThan(lo) {
		return fmt.Errorf("min %s > max %s: %w", lo, hi, ErrInvalidAdmission)
	}
	if premium.LessThan(lo) || premium.GreaterThan(hi) {
		return fmt.Errorf("premium %s not in [%s, %s]: %w", premium, lo, hi, ErrPremiumOutOfBand)
	}
	return nil
}

// Levels are the exit thresholds fixed at entry.
type Levels struct {
	Entry    decimal.Decimal
	StopLoss decimal.Decimal
	Target   decimal.Decimal
}

func NewLevels(entry decimal.Decimal, stopLossOffset, targetOffset float64) Levels {
	return Levels{
		Entry:    entry,
		StopLoss: entry.Sub(decimal.NewFromFloat(stopLossOffset)),
		Target:   entry.Add(decimal.NewFromFloat(targetOffset)),
	}
}
