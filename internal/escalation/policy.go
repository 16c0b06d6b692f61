// Package escalation decides, for a single open case, whether and which
// notice stage must fire next. It is a pure function of its inputs: the
// caller fetches the latest notice timestamp once per case and passes it in,
// so the policy never touches persistence.
package escalation

import (
	"time"

	"incasso-core/internal/domain"
)

// Input carries everything the decision needs for one case.
type Input struct {
	Stage    domain.Stage
	DueDate  time.Time
	Category domain.Category

	// LastNoticeAt is the sent-at of the case's most recent notice, nil
	// when no notice exists yet (creation-time dispatch failed, or the
	// case predates the notice log).
	LastNoticeAt *time.Time

	Today time.Time

	Params domain.TenantParameters
}

// Next returns the stage to fire for the case, or nil for no action.
//
// Calling Next twice with the same input returns the same result; firing a
// notice changes the input (LastNoticeAt, and usually Stage), which is what
// makes repeated sweeps safe.
func Next(in Input) *domain.Stage {
	if in.Stage.Terminal() {
		return nil
	}

	// Not overdue yet.
	if !in.DueDate.Before(in.Today) {
		return nil
	}

	// The case is overdue but its current stage never went out: the sweep,
	// not creation, must send it. Covers a failed creation-time dispatch.
	if in.LastNoticeAt == nil {
		stage := in.Stage
		return &stage
	}

	threshold, ok := in.Params.ThresholdDays(in.Stage, in.Category)
	if !ok {
		// BLOCKED has no successor; repeated sweeps are no-ops.
		return nil
	}

	if daysBetween(*in.LastNoticeAt, in.Today) < threshold {
		// Still inside the cool-down window.
		return nil
	}

	next, ok := in.Stage.Successor()
	if !ok {
		return nil
	}
	return &next
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}
