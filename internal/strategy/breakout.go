package strategy

// Evaluate compares the reference price to the breakout band. Only a strict
// crossing signals; a price equal to either threshold is inside the band.
func Evaluate(price, low, high float64) Signal {
	if price > high {
		return SignalHigh
	}
	if price < low {
		return SignalLow
	}
	return SignalNone
}
