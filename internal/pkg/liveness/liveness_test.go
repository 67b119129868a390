package liveness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestOutcomeFromReport(t *testing.T) {
	tests := []struct {
		name   string
		status *string
		want   Outcome
	}{
		{
			name:   "absent status defaults to success",
			status: nil,
			want:   OutcomeSuccess,
		},
		{
			name:   "explicit ok is success",
			status: strPtr("ok"),
			want:   OutcomeSuccess,
		},
		{
			name:   "failed is failure",
			status: strPtr("failed"),
			want:   OutcomeFailure,
		},
		{
			name:   "empty string is failure",
			status: strPtr(""),
			want:   OutcomeFailure,
		},
		{
			name:   "case matters",
			status: strPtr("OK"),
			want:   OutcomeFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutcomeFromReport(tt.status))
		})
	}
}

func TestApply(t *testing.T) {
	now := time.Now()

	st, ts := Apply(OutcomeSuccess, now)
	assert.Equal(t, StatusActive, st)
	assert.Equal(t, now, ts)

	st, ts = Apply(OutcomeFailure, now)
	assert.Equal(t, StatusDead, st)
	assert.Equal(t, now, ts, "a failure ping still advances the last-ping time")
}

func TestEvaluateAt(t *testing.T) {
	policy := Policy{Cadence: 84 * time.Hour, Window: 4 * 24 * time.Hour}
	now := time.Now()

	recent := now.Add(-2 * time.Hour)
	stale := now.Add(-10 * 24 * time.Hour)

	tests := []struct {
		name       string
		status     Status
		lastPingAt *time.Time
		createdAt  time.Time
		want       Status
	}{
		{
			name:       "active within window stays active",
			status:     StatusActive,
			lastPingAt: &recent,
			createdAt:  now.Add(-30 * 24 * time.Hour),
			want:       StatusActive,
		},
		{
			name:       "active past window reads back dead",
			status:     StatusActive,
			lastPingAt: &stale,
			createdAt:  now.Add(-30 * 24 * time.Hour),
			want:       StatusDead,
		},
		{
			name:      "fresh pending stays pending",
			status:    StatusPending,
			createdAt: now.Add(-time.Hour),
			want:      StatusPending,
		},
		{
			name:      "pending past window is dead, not merely pending",
			status:    StatusPending,
			createdAt: now.Add(-5 * 24 * time.Hour),
			want:      StatusDead,
		},
		{
			name:       "dead stays dead until a new success",
			status:     StatusDead,
			lastPingAt: &recent,
			createdAt:  now.Add(-30 * 24 * time.Hour),
			want:       StatusDead,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EvaluateAt(tt.status, tt.lastPingAt, tt.createdAt, now, policy)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestObserve_NeverPinged(t *testing.T) {
	now := time.Now()

	v := Observe(StatusPending, nil, now.Add(-time.Hour), now, DefaultPolicy)
	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, "Waiting...", v.LastSeen)
	assert.Equal(t, "-", v.NextExpected)
}

func TestObserve_StaleActiveReadsBackDead(t *testing.T) {
	// Last pinged 10 days ago with a 4-day window: dead at render time even
	// though storage still says active.
	policy := Policy{Cadence: 84 * time.Hour, Window: 4 * 24 * time.Hour}
	now := time.Now()
	last := now.Add(-10 * 24 * time.Hour)

	v := Observe(StatusActive, &last, now.Add(-30*24*time.Hour), now, policy)
	assert.Equal(t, StatusDead, v.Status)
	assert.Contains(t, v.LastSeen, "ago")
	assert.Equal(t, "-", v.NextExpected)
}

func TestObserve_ActiveLabels(t *testing.T) {
	now := time.Now()
	last := now.Add(-2 * time.Minute)

	v := Observe(StatusActive, &last, now.Add(-24*time.Hour), now, DefaultPolicy)
	assert.Equal(t, StatusActive, v.Status)
	assert.Equal(t, "2 minutes ago", v.LastSeen)
	assert.Equal(t, last.Add(DefaultPolicy.Cadence).Format("Monday 15:04"), v.NextExpected)
}
