// ABOUTME: Bubble Tea sub-model rendering the current chart and its insight block.
// ABOUTME: Draws horizontal bars for categorical data, an ASCII plot for points, and a lipgloss table for tables.
package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/2389-research/tusk/board"
	"github.com/2389-research/tusk/chart"
	"github.com/2389-research/tusk/insight"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// maxLabelWidth caps the label column of bar charts.
const maxLabelWidth = 16

// maxTableRows caps how many table rows are drawn.
const maxTableRows = 12

// ChartPanelModel displays one normalized chart.
type ChartPanelModel struct {
	view   *board.ChartView
	width  int
	height int
}

// NewChartPanelModel creates an empty chart panel.
func NewChartPanelModel() ChartPanelModel {
	return ChartPanelModel{}
}

// SetChart replaces the chart shown.
func (m *ChartPanelModel) SetChart(cv board.ChartView) {
	m.view = &cv
}

// Clear removes the chart.
func (m *ChartPanelModel) Clear() {
	m.view = nil
}

// Chart returns the chart shown, if any.
func (m ChartPanelModel) Chart() (board.ChartView, bool) {
	if m.view == nil {
		return board.ChartView{}, false
	}
	return *m.view, true
}

// SetSize sets the available dimensions.
func (m *ChartPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

func (m ChartPanelModel) innerWidth() int {
	if m.width <= 4 {
		return 40
	}
	return m.width - 4
}

// View renders the chart panel.
func (m ChartPanelModel) View() string {
	var b strings.Builder
	if m.view == nil {
		b.WriteString(TitleStyle.Render("CHART"))
		b.WriteString("\n\n")
		b.WriteString(IdleStyle.Render("No chart loaded. Press c to load one."))
	} else {
		cv := m.view
		b.WriteString(TitleStyle.Render(fmt.Sprintf("CHART (%s)", familyLabel(cv.Family))))
		b.WriteString("\n\n")
		b.WriteString(RenderChart(*cv, m.innerWidth()))
		if len(cv.Insight) > 0 {
			b.WriteString("\n\n")
			b.WriteString(TitleStyle.Render("INSIGHT"))
			for _, line := range cv.Insight {
				b.WriteString("\n")
				b.WriteString(InsightStyle.Render("  " + line))
			}
		}
	}

	style := BorderStyle
	if m.width > 0 {
		style = style.Width(m.width - 2)
	}
	if m.height > 0 {
		style = style.Height(m.height - 2)
	}
	return style.Render(b.String())
}

// RenderChart draws the records of cv in at most width columns. Unsupported
// charts render their message.
func RenderChart(cv board.ChartView, width int) string {
	if cv.Unsupported || len(cv.Records) == 0 {
		msg := cv.Message
		if msg == "" {
			msg = chart.UnsupportedMessage
		}
		return UnsupportedStyle.Render(msg)
	}
	switch cv.Family.Kind() {
	case chart.KindCategorical:
		return renderBars(chart.Categorical(cv.Records), width)
	case chart.KindPoint:
		return renderScatter(chart.Points(cv.Records), width, 10)
	case chart.KindTable:
		if t, ok := chart.Table(cv.Records); ok {
			return renderTable(t, width)
		}
	}
	return UnsupportedStyle.Render(chart.UnsupportedMessage)
}

func familyLabel(f chart.Family) string {
	if f == "" {
		return "unknown"
	}
	return string(f)
}

func renderBars(records []chart.CategoricalRecord, width int) string {
	labelWidth := 0
	maxAbs := 0.0
	for _, r := range records {
		if n := len([]rune(r.Label)); n > labelWidth {
			labelWidth = n
		}
		if !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0) && math.Abs(r.Value) > maxAbs {
			maxAbs = math.Abs(r.Value)
		}
	}
	if labelWidth > maxLabelWidth {
		labelWidth = maxLabelWidth
	}
	barSpace := width - labelWidth - 12
	if barSpace < 4 {
		barSpace = 4
	}

	lines := make([]string, 0, len(records))
	for _, r := range records {
		label := fmt.Sprintf("%-*s", labelWidth, truncate(r.Label, labelWidth))
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			lines = append(lines, label+" "+AxisStyle.Render("n/a"))
			continue
		}
		n := 0
		if maxAbs > 0 {
			n = int(math.Round(math.Abs(r.Value) / maxAbs * float64(barSpace)))
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", label,
			BarStyle.Render(strings.Repeat("█", n)), insight.FormatNumber(r.Value)))
	}
	return strings.Join(lines, "\n")
}

func renderScatter(points []chart.PointRecord, width, height int) string {
	var finite []chart.PointRecord
	for _, p := range points {
		if !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0) {
			finite = append(finite, p)
		}
	}
	if len(finite) == 0 {
		return UnsupportedStyle.Render(chart.UnsupportedMessage)
	}

	xMin, xMax := finite[0].X, finite[0].X
	yMin, yMax := finite[0].Y, finite[0].Y
	for _, p := range finite[1:] {
		xMin, xMax = math.Min(xMin, p.X), math.Max(xMax, p.X)
		yMin, yMax = math.Min(yMin, p.Y), math.Max(yMax, p.Y)
	}

	cols := width - 10
	if cols < 10 {
		cols = 10
	}
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", cols))
	}
	for _, p := range finite {
		c := scale(p.X, xMin, xMax, cols)
		r := height - 1 - scale(p.Y, yMin, yMax, height)
		grid[r][c] = '•'
	}

	yLabelTop := insight.FormatNumber(yMax)
	yLabelBottom := insight.FormatNumber(yMin)
	gutter := len(yLabelTop)
	if len(yLabelBottom) > gutter {
		gutter = len(yLabelBottom)
	}

	var b strings.Builder
	for i, line := range grid {
		label := ""
		switch i {
		case 0:
			label = yLabelTop
		case height - 1:
			label = yLabelBottom
		}
		b.WriteString(AxisStyle.Render(fmt.Sprintf("%*s │", gutter, label)))
		b.WriteString(PointStyle.Render(string(line)))
		b.WriteString("\n")
	}
	b.WriteString(AxisStyle.Render(strings.Repeat(" ", gutter) + " └" + strings.Repeat("─", cols)))
	b.WriteString("\n")
	xLeft, xRight := insight.FormatNumber(xMin), insight.FormatNumber(xMax)
	pad := cols - len(xLeft) - len(xRight)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(AxisStyle.Render(strings.Repeat(" ", gutter+2) + xLeft + strings.Repeat(" ", pad) + xRight))
	return b.String()
}

// scale maps v from [lo, hi] onto a cell index in [0, n).
func scale(v, lo, hi float64, n int) int {
	if hi == lo || n <= 1 {
		return 0
	}
	i := int(math.Round((v - lo) / (hi - lo) * float64(n-1)))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func renderTable(t chart.TableRecord, width int) string {
	rows := t.Rows
	more := 0
	if len(rows) > maxTableRows {
		more = len(rows) - maxTableRows
		rows = rows[:maxTableRows]
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(AxisStyle).
		Headers(t.Columns...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TitleStyle.Padding(0, 1)
			}
			return ValueStyle.Padding(0, 1)
		})
	for _, r := range rows {
		cells := make([]string, len(t.Columns))
		for i, col := range t.Columns {
			cells[i] = cellText(r[col])
		}
		tbl.Row(cells...)
	}
	if width > 0 {
		tbl.Width(width)
	}

	out := tbl.Render()
	if more > 0 {
		out += "\n" + IdleStyle.Render(fmt.Sprintf("... %d more rows", more))
	}
	return out
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case float64:
		return insight.FormatNumber(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
