package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tbourn/go-wine-scanner/internal/domain"
	"github.com/tbourn/go-wine-scanner/internal/services"
)

// renderMatches renders ranked matches as a table with one row per wine.
func renderMatches(venue string, matches []domain.WineMatch) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	if venue != "" {
		t.SetTitle(venue)
	}
	t.AppendHeader(table.Row{"#", "Wine", "Producer", "Vintage", "Price", "Rating", "Score"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for i, m := range matches {
		w := m.Wine
		t.AppendRow(table.Row{
			i + 1,
			w.Name,
			w.Producer,
			vintage(w.Vintage),
			fmt.Sprintf("%.2f", w.Price),
			rating(w.AvgRating, w.RatingCount),
			fmt.Sprintf("%.3f", m.Score),
		})
	}
	if len(matches) == 0 {
		t.AppendFooter(table.Row{"", "no match", "", "", "", "", ""})
	}
	return t.Render()
}

// renderOutcome renders a scan outcome: a field table, then the matches.
func renderOutcome(out *services.ScanOutcome) string {
	var b strings.Builder
	if !out.Success {
		b.WriteString(out.Message)
		b.WriteString("\n")
		return b.String()
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Label")
	if a := out.Analysis; a != nil {
		addField(t, "Name", a.Name)
		addField(t, "Producer", a.Producer)
		if a.Vintage > 0 {
			addField(t, "Vintage", strconv.Itoa(a.Vintage))
		}
		addField(t, "Region", a.Region)
		addField(t, "Country", a.Country)
		addField(t, "Grape", a.Grape)
		addField(t, "Type", a.Type)
		addField(t, "Body", a.Body)
		addField(t, "Notes", strings.Join(a.TastingNotes, ", "))
		addField(t, "Pairings", strings.Join(a.FoodPairings, ", "))
	}
	if s := out.Scan; s != nil {
		addField(t, "Confidence", fmt.Sprintf("%.2f", s.Confidence))
	}
	b.WriteString(t.Render())
	b.WriteString("\n")

	if len(out.Matches) > 0 {
		b.WriteString(renderMatches("", out.Matches))
		b.WriteString("\n")
	}
	return b.String()
}

func addField(t table.Writer, k, v string) {
	if v != "" {
		t.AppendRow(table.Row{k, v})
	}
}

func vintage(v *int) string {
	if v == nil || *v == 0 {
		return "NV"
	}
	return strconv.Itoa(*v)
}

func rating(avg float64, n int64) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f (%d)", avg, n)
}
