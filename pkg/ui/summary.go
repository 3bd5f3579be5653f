package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"hirafetch/pkg/models"
)

const maxCellWidth = 28

// Field is one labelled line of a summary box
type Field struct {
	Label string
	Value string
}

// RenderSummary renders a titled box of label/value lines
func RenderSummary(title string, fields []Field) string {
	labelWidth := 0
	for _, f := range fields {
		if w := lipgloss.Width(f.Label); w > labelWidth {
			labelWidth = w
		}
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render(title))
	for _, f := range fields {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Width(labelWidth + 2).Render(f.Label))
		b.WriteString(ValueStyle.Render(f.Value))
	}
	return BoxStyle.Render(b.String())
}

// RenderRecords renders the first limit records as an aligned table of the
// given columns. Columns no record carries are left out.
func RenderRecords(records []models.Record, columns []string, limit int) string {
	if limit <= 0 || limit > len(records) {
		limit = len(records)
	}
	rows := records[:limit]

	var present []string
	for _, col := range columns {
		for _, r := range rows {
			if _, ok := r[col]; ok {
				present = append(present, col)
				break
			}
		}
	}
	if len(present) == 0 {
		return DimStyle.Render("(no records)")
	}

	widths := make([]int, len(present))
	cells := make([][]string, len(rows))
	for i, col := range present {
		widths[i] = lipgloss.Width(col)
	}
	for r, rec := range rows {
		cells[r] = make([]string, len(present))
		for i, col := range present {
			text := truncate(rec.String(col), maxCellWidth)
			cells[r][i] = text
			if w := lipgloss.Width(text); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	header := make([]string, len(present))
	for i, col := range present {
		header[i] = HeaderStyle.Width(widths[i]).Render(col)
	}
	b.WriteString(strings.Join(header, "  "))
	for r := range rows {
		line := make([]string, len(present))
		for i, col := range present {
			style := lipgloss.NewStyle()
			if col == models.FieldDetailStatus {
				style = StatusStyle(cells[r][i])
			}
			line[i] = style.Width(widths[i]).Render(cells[r][i])
		}
		b.WriteString("\n")
		b.WriteString(strings.Join(line, "  "))
	}
	if len(records) > limit {
		b.WriteString("\n")
		b.WriteString(DimStyle.Render(fmt.Sprintf("… %d more", len(records)-limit)))
	}
	return b.String()
}
