package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/atikulmunna/colorlog/internal/aggregator"
	"github.com/atikulmunna/colorlog/internal/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// tableStyles holds the lipgloss styles bound to one output's renderer.
type tableStyles struct {
	header lipgloss.Style
	cell   lipgloss.Style
	border lipgloss.Style
	muted  lipgloss.Style
}

func newTableStyles(w io.Writer) tableStyles {
	r := lipgloss.NewRenderer(w)
	return tableStyles{
		header: r.NewStyle().Bold(true).Padding(0, 1),
		cell:   r.NewStyle().Padding(0, 1),
		border: r.NewStyle().Foreground(lipgloss.Color("240")),
		muted:  r.NewStyle().Foreground(lipgloss.Color("245")).Faint(true),
	}
}

func (s tableStyles) styleFunc(row, _ int) lipgloss.Style {
	if row == table.HeaderRow {
		return s.header
	}
	return s.cell
}

// RenderRules writes the rule table. With colored set, each row carries a
// sample line wrapped in that rule's escapes.
func RenderRules(w io.Writer, rules []model.ColorRule, colored bool) error {
	st := newTableStyles(w)

	rows := make([][]string, 0, len(rules))
	for i, r := range rules {
		sample := "sample " + r.Keyword + " line"
		if colored {
			sample = StyleFor(r).Wrap(sample)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			r.Keyword,
			r.Color.String(),
			strconv.FormatBool(r.Bright),
			sample,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(st.border).
		StyleFunc(st.styleFunc).
		Headers("#", "KEYWORD", "COLOR", "BRIGHT", "SAMPLE").
		Rows(rows...)

	return WriteString(w, t.Render()+"\n")
}

// RenderSummary writes per-keyword line counts in rule order.
func RenderSummary(w io.Writer, stats aggregator.Stats) error {
	st := newTableStyles(w)

	rows := make([][]string, 0, len(stats.Keywords)+2)
	for _, kw := range stats.Keywords {
		rows = append(rows, []string{kw, strconv.FormatInt(stats.KeywordCounts[kw], 10)})
	}
	rows = append(rows,
		[]string{"(none)", strconv.FormatInt(stats.Unmatched, 10)},
		[]string{"total", strconv.FormatInt(stats.TotalLines, 10)},
	)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(st.border).
		StyleFunc(st.styleFunc).
		Headers("KEYWORD", "LINES").
		Rows(rows...)

	footer := st.muted.Render(fmt.Sprintf("%d source(s) in %s", stats.Sources, stats.Elapsed))
	return WriteString(w, t.Render()+"\n"+footer+"\n")
}
