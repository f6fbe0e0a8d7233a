package present

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/hetulpatel/marketsnap/internal/analytics"
	"github.com/hetulpatel/marketsnap/internal/markets"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	alertStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	degradedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#9CA3AF")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	edgeStyle     = cellStyle.Foreground(lipgloss.Color("#10B981"))
)

var runnerHeaders = []string{"Runner", "Back", "Lay", "Margin", "Matched", "Jockey", "Trainer"}

// Table renders each snapshot as a lipgloss table. Books whose back overround
// is below Threshold are marked as arbitrage-suggestive.
type Table struct {
	out       io.Writer
	threshold float64
}

// NewTable writes to out. A non-positive threshold disables the marker.
func NewTable(out io.Writer, threshold float64) *Table {
	return &Table{out: out, threshold: threshold}
}

func (t *Table) Present(ctx context.Context, snapshots []markets.MarketSnapshot) error {
	for _, snap := range snapshots {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(t.out, t.Render(snap)+"\n"); err != nil {
			return fmt.Errorf("write snapshot %s: %w", snap.Descriptor.MarketID, err)
		}
	}
	return nil
}

// Render formats one snapshot.
func (t *Table) Render(snap markets.MarketSnapshot) string {
	var b strings.Builder
	d := snap.Descriptor

	title := d.EventName
	if d.MarketName != "" {
		title += " / " + d.MarketName
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString(" ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("[%s] %s", d.MarketID, d.StartTime.Format("2006-01-02 15:04 MST"))))
	b.WriteString("\n")

	tier := "tier " + snap.Book.Tier.String()
	if snap.Book.Tier == markets.TierNone {
		tier = degradedStyle.Render(tier + " (no book data)")
	}
	summary := fmt.Sprintf("%s  back %.2f%%  lay %.2f%%", tier, snap.Analytics.BackOverround, snap.Analytics.LayOverround)
	if snap.Book.TotalMatched != nil {
		summary += fmt.Sprintf("  matched %.2f", *snap.Book.TotalMatched)
	}
	b.WriteString(summary)
	if t.threshold > 0 && analytics.BelowThreshold(snap.Analytics.BackOverround, t.threshold) {
		b.WriteString("  ")
		b.WriteString(alertStyle.Render(fmt.Sprintf("BACK BOOK UNDER %.1f%%", t.threshold)))
	}
	if e := snap.Enrichment; e != nil {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(strings.Join(nonEmpty(e.Course, e.Distance, e.Going, e.RaceType), " | ")))
	}
	b.WriteString("\n")

	rows := make([][]string, 0, len(snap.Runners))
	edges := make(map[int]bool)
	for i, r := range snap.Runners {
		row := []string{r.Descriptor.Name, "-", "-", "-", "-", "", ""}
		if a := r.Analytics; a != nil {
			row[1] = optional(a.BestBack)
			row[2] = optional(a.BestLay)
			row[3] = optional(a.ArbitrageMargin)
			edges[i] = a.ArbitrageMargin != nil
		}
		if r.Book != nil {
			row[4] = optional(r.Book.TotalMatched)
		}
		if r.Enrichment != nil {
			row[5] = r.Enrichment.Jockey
			row[6] = r.Enrichment.Trainer
		}
		rows = append(rows, row)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(mutedStyle).
		Headers(runnerHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 3 && edges[row]:
				return edgeStyle
			default:
				return cellStyle
			}
		})
	b.WriteString(tbl.Render())
	return b.String()
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
