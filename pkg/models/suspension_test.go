package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDelaySuspensionDue(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name       string
		suspension DelaySuspension
		want       bool
	}{
		{
			"resume time passed",
			DelaySuspension{Status: SuspensionStatusWaiting, ResumeAt: &past},
			true,
		},
		{
			"resume time exactly now",
			DelaySuspension{Status: SuspensionStatusWaiting, ResumeAt: &now},
			true,
		},
		{
			"resume time in the future",
			DelaySuspension{Status: SuspensionStatusWaiting, ResumeAt: &future},
			false,
		},
		{
			"wait timeout elapsed",
			DelaySuspension{Status: SuspensionStatusWaiting, TimeoutAt: &past},
			true,
		},
		{
			"waiting for event with no timeout",
			DelaySuspension{Status: SuspensionStatusWaiting, WaitEventType: "purchase"},
			false,
		},
		{
			"already completed",
			DelaySuspension{Status: SuspensionStatusCompleted, ResumeAt: &past},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.suspension.Due(now))
		})
	}
}
