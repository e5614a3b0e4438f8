package command

import (
	"fmt"

	"github.com/aj-geddes/revitpy-sub005/domain/entities"
	"github.com/jedib0t/go-pretty/v6/table"
)

func resultsTable(runs []scriptRun) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Script", "Interpreter", "Status", "Duration", "Error"})
	for i, run := range runs {
		status, interp, duration, msg := "ok", "", "", ""
		switch {
		case run.err != nil:
			status, msg = "error", run.err.Error()
		case run.result.Failed():
			status = "failed"
			if run.result.Error != nil {
				msg = run.result.Error.Message
			}
		}
		if run.result != nil {
			interp = run.result.InterpreterID
			duration = formatDuration(run.result.Duration)
		}
		t.AppendRow(table.Row{i + 1, run.file, interp, status, duration, msg})
	}
	return t.Render()
}

func healthTable(report entities.HealthReport) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Slot", "Interpreter", "Checked", "Healthy", "Error"})
	for _, inst := range report.Instances {
		t.AppendRow(table.Row{inst.Slot, inst.InterpreterID, inst.Checked, inst.Healthy, inst.Error})
	}
	t.AppendFooter(table.Row{"", "", "", report.Healthy, ""})
	return t.Render()
}

func statsTable(stats entities.BridgeStats) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Component", "Counter", "Value"})
	rows := []table.Row{
		{"pool", "total/available/busy", fmt.Sprintf("%d/%d/%d", stats.Pool.Total, stats.Pool.Available, stats.Pool.Busy)},
		{"pool", "rentals", stats.Pool.TotalRentals},
		{"pool", "created/destroyed", fmt.Sprintf("%d/%d", stats.Pool.TotalCreated, stats.Pool.TotalDestroyed)},
		{"pool", "timeouts", stats.Pool.TotalTimeouts},
		{"bridge", "executions", stats.Executions},
		{"bridge", "evaluations", stats.Evaluations},
		{"bridge", "function calls", stats.FunctionCalls},
		{"bridge", "script failures", stats.ScriptFailures},
		{"bridge", "failures", stats.Failures},
		{"bridge", "total operations", stats.TotalOperations},
		{"conversion", "conversions/failures", fmt.Sprintf("%d/%d", stats.TypeConversion.Conversions, stats.TypeConversion.Failures)},
		{"transaction", "committed/rolled back", fmt.Sprintf("%d/%d", stats.Transactions.Committed, stats.Transactions.RolledBack)},
		{"element", "operations/failures", fmt.Sprintf("%d/%d", stats.Element.Operations, stats.Element.Failures)},
		{"geometry", "operations/failures", fmt.Sprintf("%d/%d", stats.Geometry.Operations, stats.Geometry.Failures)},
		{"parameter", "operations/failures", fmt.Sprintf("%d/%d", stats.Parameter.Operations, stats.Parameter.Failures)},
	}
	t.AppendRows(rows)
	return t.Render()
}
