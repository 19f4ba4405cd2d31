// Package exit_policy decides when an open position must close. The two
// variants are mutually exclusive per simulation run: signal-reversal closes
// when the z-score returns inside the reversion band, fixed-horizon closes a
// fixed number of trading days after entry. The end-of-stream drain is the
// simulation loop's responsibility, not the policy's.
package exit_policy

import (
	"time"

	"github.com/moznion/go-optional"

	"github.com/meanrev-lab/pairback/internal/types"
)

type Kind string

const (
	KindSignalReversal Kind = "signal_reversal"
	KindFixedHorizon   Kind = "fixed_horizon"
)

var AllKinds = []any{
	KindSignalReversal,
	KindFixedHorizon,
}

type ExitPolicy interface {
	// Kind returns the tagged variant this policy implements.
	Kind() Kind
	// ScheduledCloseDate returns the date a position opened on entryDate
	// must close, or None for signal-driven policies.
	ScheduledCloseDate(entryDate time.Time) optional.Option[time.Time]
	// ShouldClose reports whether the position must close on date. row is
	// the pair's signal row for that date when one exists; signal-driven
	// policies take no action without one.
	ShouldClose(position types.Position, date time.Time, row optional.Option[types.SignalRow]) (bool, types.CloseReason)
}

// GetExitPolicyHandler returns the ExitPolicy implementation for the kind.
func GetExitPolicyHandler(kind Kind, exitThreshold float64, holdPeriod int) ExitPolicy {
	switch kind {
	case KindFixedHorizon:
		return NewFixedHorizonPolicy(holdPeriod)
	case KindSignalReversal:
		return NewSignalReversalPolicy(exitThreshold)
	default:
		return NewSignalReversalPolicy(exitThreshold)
	}
}
