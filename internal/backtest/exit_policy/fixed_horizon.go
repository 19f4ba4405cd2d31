package exit_policy

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/calendar"
	"github.com/meanrev-lab/pairback/internal/types"
)

// FixedHorizonPolicy closes a position a fixed number of trading days after
// entry, weekends skipped. The holding period must match the horizon the
// signal pipeline used to label target returns, because the position's PnL
// realizes from the label captured at entry.
type FixedHorizonPolicy struct {
	holdPeriod int
}

func NewFixedHorizonPolicy(holdPeriod int) ExitPolicy {
	return &FixedHorizonPolicy{holdPeriod: holdPeriod}
}

func (p *FixedHorizonPolicy) Kind() Kind {
	return KindFixedHorizon
}

// ScheduledCloseDate steps holdPeriod trading days forward from entryDate.
func (p *FixedHorizonPolicy) ScheduledCloseDate(entryDate time.Time) optional.Option[time.Time] {
	return optional.Some(calendar.AddTradingDays(entryDate, p.holdPeriod))
}

// ShouldClose closes on the first processed date at or after the position's
// scheduled close date. The stream may skip the exact scheduled date (signal
// gaps), so the comparison is >=, not ==.
func (p *FixedHorizonPolicy) ShouldClose(position types.Position, date time.Time, row optional.Option[types.SignalRow]) (bool, types.CloseReason) {
	if position.ScheduledCloseDate.IsNone() {
		return false, ""
	}

	if !date.Before(position.ScheduledCloseDate.Unwrap()) {
		return true, types.CloseReasonHorizon
	}

	return false, ""
}
