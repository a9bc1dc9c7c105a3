package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanReport_Finalize_SortAndSummaryAndUTC(t *testing.T) {
	r := ScanReport{
		Dir:        "/abs/path",
		StartedAt:  time.Date(2026, 2, 9, 10, 0, 0, 0, time.FixedZone("X", 8*3600)),
		FinishedAt: time.Date(2026, 2, 9, 10, 0, 1, 0, time.FixedZone("X", 8*3600)),
		Items: []ItemResult{
			{Stem: "b", Status: StatusSkipped, Reason: ReasonAlreadyConverted},
			{Stem: "", Status: StatusFailed, Reason: ReasonIOFailed},
			{Stem: "a", Status: StatusProcessed},
			{Stem: "c", Status: StatusUnmatched, Reason: ReasonUnmatchedPair},
			{Stem: "d", Status: StatusFailed, Reason: ReasonTranscodeFailed},
		},
	}

	r.Finalize()

	stems := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		stems = append(stems, it.Stem)
	}
	// stem=="" 必须排在最后。
	assert.Equal(t, []string{"a", "b", "c", "d", ""}, stems)
	assert.Equal(t, ReportSummary{Processed: 1, Skipped: 1, Failed: 2, Unmatched: 1}, r.Summary)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"started_at":"2026-02-09T02:00:00Z"`)
}

func TestScanReport_NoWork(t *testing.T) {
	var r ScanReport
	r.Finalize()
	assert.True(t, r.NoWork())
	assert.Equal(t, ReportSummary{}, r.Summary)
}
