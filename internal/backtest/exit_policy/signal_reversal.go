package exit_policy

import (
	"math"
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/types"
)

// SignalReversalPolicy closes a position the first day the pair's z-score
// magnitude drops below the exit threshold, i.e. the spread anomaly the
// position was betting on has reverted.
type SignalReversalPolicy struct {
	exitThreshold float64
}

func NewSignalReversalPolicy(exitThreshold float64) ExitPolicy {
	return &SignalReversalPolicy{exitThreshold: exitThreshold}
}

func (p *SignalReversalPolicy) Kind() Kind {
	return KindSignalReversal
}

// ScheduledCloseDate always returns None: reversal exits are signal-driven.
func (p *SignalReversalPolicy) ScheduledCloseDate(entryDate time.Time) optional.Option[time.Time] {
	return optional.None[time.Time]()
}

// ShouldClose closes when the day's row carries an actionable z-score inside
// the reversion band. Days without a row for the pair, and rows with a NaN
// z-score, take no action.
func (p *SignalReversalPolicy) ShouldClose(position types.Position, date time.Time, row optional.Option[types.SignalRow]) (bool, types.CloseReason) {
	if row.IsNone() {
		return false, ""
	}

	r := row.Unwrap()
	if !r.Actionable() {
		return false, ""
	}

	if math.Abs(r.ZScore) < p.exitThreshold {
		return true, types.CloseReasonMeanReversion
	}

	return false, ""
}
