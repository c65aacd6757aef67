package strategy

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RoundStrike rounds spot to the nearest multiple of step; ties go up.
func RoundStrike(spot decimal.Decimal, step int) int64 {
	if step <= 0 {
		step = 1
	}
	s := decimal.NewFromInt(int64(step))
	return spot.Div(s).Round(0).Mul(s).IntPart()
}

// UpcomingExpiries lists the next n dates falling on weekday, starting from
// today inclusive, in ascending order.
func UpcomingExpiries(today time.Time, weekday time.Weekday, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	d := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	d = d.AddDate(0, 0, offset)
	out := make([]time.Time, 0, n)
	for len(out) < n {
		out = append(out, d)
		d = d.AddDate(0, 0, 7)
	}
	return out
}

// CandidateSymbols encodes an option contract in the two naming schemes the
// broker uses, monthly code first: PREFIX+YY+MON+STRIKE+TYPE, then
// PREFIX+YY+MON+DD+STRIKE+TYPE.
func CandidateSymbols(prefix string, expiry time.Time, strike int64, opt OptionType) []string {
	yy := fmt.Sprintf("%02d", expiry.Year()%100)
	mon := strings.ToUpper(expiry.Month().String()[:3])
	dd := fmt.Sprintf("%02d", expiry.Day())
	return []string{
		fmt.Sprintf("%s%s%s%d%s", prefix, yy, mon, strike, opt),
		fmt.Sprintf("%s%s%s%s%d%s", prefix, yy, mon, dd, strike, opt),
	}
}
