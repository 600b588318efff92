package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/san-kum/odestep/internal/dynamo"
)

// CompareRow is one line of a side-by-side stepper comparison.
type CompareRow struct {
	Name        string
	StepsTaken  int
	Final       dynamo.State
	EnergyDrift float64
	Newton      int
	Err         error
}

var (
	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	tableErrStyle    = tableCellStyle.Foreground(lipgloss.Color("#ff4444"))
)

// CompareTable renders rows as a bordered table. The drift column is left
// blank for models without an energy.
func CompareTable(rows []CompareRow, withEnergy bool) string {
	headers := []string{"stepper", "steps", "final state", "newton"}
	if withEnergy {
		headers = append(headers, "energy drift")
	}
	headers = append(headers, "status")

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers(headers...)
	for _, r := range rows {
		cells := []string{r.Name, fmt.Sprintf("%d", r.StepsTaken), formatState(r.Final, 4), fmt.Sprintf("%d", r.Newton)}
		if withEnergy {
			cells = append(cells, fmt.Sprintf("%.3e", r.EnergyDrift))
		}
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		cells = append(cells, status)
		t.Row(cells...)
	}
	statusCol := len(headers) - 1
	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return tableHeaderStyle
		}
		if col == statusCol && row >= 0 && row < len(rows) && rows[row].Err != nil {
			return tableErrStyle
		}
		return tableCellStyle
	})
	return t.Render()
}

func formatState(x dynamo.State, limit int) string {
	parts := make([]string, 0, min(len(x), limit)+1)
	for i, v := range x {
		if i == limit {
			parts = append(parts, "...")
			break
		}
		parts = append(parts, fmt.Sprintf("%.6g", v))
	}
	return "[" + strings.Join(parts, " ") + "]"
}
