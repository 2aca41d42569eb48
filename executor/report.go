package executor

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// buildReport assembles a BatchReport from per-statement results. The caller
// supplies results already indexed by submission order; completion order is
// irrelevant here.
func buildReport(runID string, results []*ExecutionResult) *BatchReport {
	report := &BatchReport{
		RunID:      runID,
		Results:    make([]ExecutionResult, 0, len(results)),
		TotalCount: len(results),
	}
	for _, r := range results {
		report.Results = append(report.Results, *r)
		if r.Succeeded {
			report.SuccessCount++
		}
	}
	return report
}

// Render writes a human-readable run summary: one table row per statement
// followed by a totals line. Output formatting only; programmatic consumers
// should read the report fields directly.
func (r *BatchReport) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Statement", "Status", "Duration", "Rows", "Error"})
	table.SetAutoWrapText(false)

	for _, res := range r.Results {
		status := "OK"
		if !res.Succeeded {
			status = "FAILED"
		}
		table.Append([]string{
			res.Name,
			status,
			fmt.Sprintf("%.2fs", res.DurationSeconds),
			fmt.Sprintf("%d", res.RowsAffected),
			res.Error,
		})
	}
	table.Render()

	fmt.Fprintf(w, "%d/%d statements succeeded\n", r.SuccessCount, r.TotalCount)
}

// Log emits the run summary as structured log lines, one per statement plus
// a totals line. Emitted even for an empty run (reported as 0/0).
func (r *BatchReport) Log(log Logger) {
	for _, res := range r.Results {
		fields := []Field{
			String("run_id", r.RunID),
			String("statement", res.Name),
			Bool("succeeded", res.Succeeded),
			Float64("duration_seconds", res.DurationSeconds),
			Int64("rows", res.RowsAffected),
		}
		if res.Succeeded {
			log.Info("statement result", fields...)
		} else {
			log.Error("statement result", append(fields, String("error", res.Error))...)
		}
	}
	log.Info("batch finished",
		String("run_id", r.RunID),
		Int("succeeded", r.SuccessCount),
		Int("total", r.TotalCount))
}
