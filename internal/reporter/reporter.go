package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/glimpse/glimpse/internal/models"
	"github.com/glimpse/glimpse/pkg/utils"

	"github.com/pkg/errors"
)

// unknownApp labels entries captured without a resolvable focused window
const unknownApp = "(unknown)"

// SummaryStore is the slice of the repository the reporter reads
type SummaryStore interface {
	GetAppSummarySince(since time.Time) ([]models.AppSummary, error)
}

// Reporter handles report generation
type Reporter struct {
	repo SummaryStore
	now  func() time.Time
}

// New creates a new reporter
func New(repo SummaryStore) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport counts captures per application for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := Period(periodType, r.now())
	if err != nil {
		return nil, err
	}

	summaries, err := r.repo.GetAppSummarySince(period.Start)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get app summary")
	}

	var total int64
	for i := range summaries {
		if summaries[i].AppName == "" {
			summaries[i].AppName = unknownApp
		}
		total += summaries[i].CaptureCount
	}

	if total > 0 {
		for i := range summaries {
			summaries[i].Percentage = (float64(summaries[i].CaptureCount) / float64(total)) * 100.0
		}
	}

	return &models.Report{
		Period:        *period,
		Apps:          summaries,
		TotalCaptures: total,
		GeneratedAt:   r.now(),
	}, nil
}

// Period returns the calendar range of periodType containing now. Weeks
// start on Monday.
func Period(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch periodType {
	case "day", "today":
		periodType = "day"
		start = midnight
		end = start.AddDate(0, 0, 1)

	case "week":
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = midnight.AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Capture Report - %s\n", report.Period.Type)
	fmt.Fprintf(&b, "Period: %s to %s (%s)\n",
		report.Period.Start.Format("2006-01-02 15:04"),
		report.Period.End.Format("2006-01-02 15:04"),
		utils.FormatRoundedUnit(report.Period.End.Sub(report.Period.Start)))
	fmt.Fprintf(&b, "Total Captures: %d\n\n", report.TotalCaptures)

	if len(report.Apps) == 0 {
		b.WriteString("No captures recorded for this period.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "%-30s %10s %10s %10s\n", "Application", "Captures", "Monitors", "Percent")
	b.WriteString(strings.Repeat("-", 63) + "\n")

	for _, app := range report.Apps {
		fmt.Fprintf(&b, "%-30s %10d %10d %9.1f%%\n",
			utils.Truncate(app.AppName, 30),
			app.CaptureCount,
			app.MonitorCount,
			app.Percentage)
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}
