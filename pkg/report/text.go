package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"primegap/pkg/common"
)

var textHeaders = []string{"Index", "Prime", "Field", "Raw", "Predicted", "Actual", "Check"}

// Text renders an aligned table once Flush is called.
type Text struct {
	w      io.Writer
	rows   [][]string
	header lipgloss.Style
	cell   lipgloss.Style
	fail   lipgloss.Style
	sep    lipgloss.Style
}

func NewText(w io.Writer) Reporter {
	r := lipgloss.NewRenderer(w)
	return &Text{
		w:      w,
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		fail:   r.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("9")),
		sep:    r.NewStyle().Faint(true),
	}
}

func (t *Text) Write(rec common.Record) error {
	t.rows = append(t.rows, []string{
		fmt.Sprintf("P_%d", rec.Index),
		fmt.Sprintf("%d", rec.Value),
		rec.Regime.String(),
		fmt.Sprintf("%.4f", rec.Raw),
		fmt.Sprintf("%d", rec.Predicted),
		actual(rec),
		check(rec),
	})
	return nil
}

func (t *Text) Flush() error {
	if len(t.rows) == 0 {
		return nil
	}

	widths := make([]int, len(textHeaders))
	for i, h := range textHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Width() on a padded style includes the padding
	for i := range widths {
		widths[i] += 2
	}

	var sb strings.Builder
	t.renderRow(&sb, textHeaders, widths, t.header)

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	sb.WriteString(t.sep.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		style := t.cell
		if row[len(row)-1] == "FAIL" {
			style = t.fail
		}
		t.renderRow(&sb, row, widths, style)
	}

	t.rows = t.rows[:0]
	_, err := io.WriteString(t.w, sb.String())
	return err
}

func (t *Text) renderRow(sb *strings.Builder, cells []string, widths []int, style lipgloss.Style) {
	for i, c := range cells {
		sb.WriteString(style.Width(widths[i]).Render(c))
		if i < len(cells)-1 {
			sb.WriteString(t.sep.Render("|"))
		}
	}
	sb.WriteString("\n")
}
