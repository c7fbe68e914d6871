package reporter

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/glimpse/glimpse/internal/models"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	summaries []models.AppSummary
	err       error
	since     time.Time
}

func (f *fakeStore) GetAppSummarySince(since time.Time) ([]models.AppSummary, error) {
	f.since = since
	return f.summaries, f.err
}

// Wednesday
var fixedNow = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

func TestPeriod(t *testing.T) {
	tests := []struct {
		period    string
		wantType  string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"day", "day", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"today", "day", time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"week", "week", time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC)},
		{"month", "month", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			p, err := Period(tt.period, fixedNow)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
		})
	}

	sunday := time.Date(2024, time.March, 17, 10, 0, 0, 0, time.UTC)
	p, err := Period("week", sunday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), p.Start)

	_, err = Period("year", fixedNow)
	assert.Error(t, err)
}

func TestGenerateReport(t *testing.T) {
	store := &fakeStore{summaries: []models.AppSummary{
		{AppName: "code", CaptureCount: 3, MonitorCount: 2},
		{AppName: "", CaptureCount: 1, MonitorCount: 1},
	}}
	r := New(store)
	r.now = func() time.Time { return fixedNow }

	report, err := r.GenerateReport("day")
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC), store.since)
	assert.Equal(t, int64(4), report.TotalCaptures)
	require.Len(t, report.Apps, 2)
	assert.InDelta(t, 75.0, report.Apps[0].Percentage, 1e-9)
	assert.Equal(t, unknownApp, report.Apps[1].AppName)
	assert.InDelta(t, 25.0, report.Apps[1].Percentage, 1e-9)
	assert.Equal(t, fixedNow, report.GeneratedAt)
}

func TestGenerateReportErrors(t *testing.T) {
	r := New(&fakeStore{err: errors.New("db closed")})
	_, err := r.GenerateReport("day")
	assert.ErrorContains(t, err, "db closed")

	_, err = r.GenerateReport("fortnight")
	assert.ErrorContains(t, err, "invalid period type")
}

func TestFormatReportText(t *testing.T) {
	r := New(&fakeStore{summaries: []models.AppSummary{
		{AppName: "a-very-long-application-name-that-overflows", CaptureCount: 2, MonitorCount: 1},
	}})
	r.now = func() time.Time { return fixedNow }
	report, err := r.GenerateReport("week")
	require.NoError(t, err)

	text := FormatReportText(report)
	assert.Contains(t, text, "Capture Report - week")
	assert.Contains(t, text, "(7d)")
	assert.Contains(t, text, "Total Captures: 2")
	assert.Contains(t, text, "a-very-long-application-nam...")
	assert.Contains(t, text, "100.0%")

	empty := FormatReportText(&models.Report{Period: report.Period})
	assert.True(t, strings.HasSuffix(empty, "No captures recorded for this period.\n"))
}

func TestFormatReportJSON(t *testing.T) {
	report := &models.Report{
		Period:        models.ReportPeriod{Type: "day"},
		Apps:          []models.AppSummary{{AppName: "code", CaptureCount: 1, Percentage: 100}},
		TotalCaptures: 1,
	}
	out, err := FormatReportJSON(report)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, float64(1), decoded["total_captures"])
	assert.Equal(t, "day", decoded["period"].(map[string]any)["type"])
}
