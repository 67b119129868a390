// Package liveness holds the pure state-transition and status-projection
// logic for monitored projects. Write-time transitions (Apply) and read-time
// reclassification (EvaluateAt) share one Policy so they can never disagree
// about when a project counts as dead.
package liveness

import (
	"time"

	"github.com/dustin/go-humanize"
)

// Status is the derived liveness state of a project. It is never set
// directly by a client.
type Status string

const (
	// StatusPending means the project was created but never successfully pinged.
	StatusPending Status = "pending"
	// StatusActive means at least one successful ping landed within the window.
	StatusActive Status = "active"
	// StatusDead means the window was exceeded or an explicit failure was reported.
	StatusDead Status = "dead"
)

// Outcome is the reported result carried by a single ping.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// SuccessMarker is the literal body status value that signals a healthy ping.
const SuccessMarker = "ok"

// Policy fixes the expected ping cadence and the tolerated gap before a
// project is considered dead. Both evaluations (write-time and read-time)
// must use the same policy instance.
type Policy struct {
	// Cadence is the expected interval between successful pings.
	Cadence time.Duration
	// Window is the maximum tolerated gap since the last accepted ping.
	Window time.Duration
}

// DefaultPolicy matches a twice-weekly cadence plus a half-day grace margin.
var DefaultPolicy = Policy{
	Cadence: 84 * time.Hour,
	Window:  96 * time.Hour,
}

// OutcomeFromReport derives a ping outcome from the optional body status
// field. An absent field or the literal success marker counts as success;
// anything else is an explicit failure. The permissive default tolerates
// minimal and legacy callers that ping with no body at all.
func OutcomeFromReport(status *string) Outcome {
	if status == nil || *status == SuccessMarker {
		return OutcomeSuccess
	}
	return OutcomeFailure
}

// Apply computes the state transition for one accepted ping. Both outcomes
// advance the last-ping time (a failed check is still "heard from"); only
// the resulting status differs. The monotonic replay guard lives in storage,
// not here.
func Apply(outcome Outcome, now time.Time) (Status, time.Time) {
	if outcome == OutcomeFailure {
		return StatusDead, now
	}
	return StatusActive, now
}

// EvaluateAt reclassifies a stored status at read time. An active project
// whose last ping is older than the window reads back dead, and a pending
// project that has sat unpinged past the window is dead rather than merely
// pending. A stored dead status is terminal until a new success arrives.
func EvaluateAt(st Status, lastPingAt *time.Time, createdAt time.Time, now time.Time, p Policy) Status {
	switch st {
	case StatusActive:
		if lastPingAt == nil || now.Sub(*lastPingAt) > p.Window {
			return StatusDead
		}
		return StatusActive
	case StatusPending:
		if now.Sub(createdAt) > p.Window {
			return StatusDead
		}
		return StatusPending
	default:
		return StatusDead
	}
}

// View carries the human-facing projection of a project's liveness.
type View struct {
	Status       Status `json:"status"`
	LastSeen     string `json:"last_seen"`
	NextExpected string `json:"next_expected"`
}

// Observe derives the display projection for a project at the given instant.
// Pure and read-only; the stored status is re-evaluated against the window
// even when no new ping has arrived to update storage.
func Observe(st Status, lastPingAt *time.Time, createdAt time.Time, now time.Time, p Policy) View {
	effective := EvaluateAt(st, lastPingAt, createdAt, now, p)

	v := View{Status: effective}

	if lastPingAt == nil {
		v.LastSeen = "Waiting..."
	} else {
		v.LastSeen = humanize.RelTime(*lastPingAt, now, "ago", "from now")
	}

	if effective == StatusDead || lastPingAt == nil {
		v.NextExpected = "-"
	} else {
		v.NextExpected = lastPingAt.Add(p.Cadence).Format("Monday 15:04")
	}

	return v
}
