// Package export renders analytics results as downloadable files.
package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics"
)

// DefaultLocale formats amounts the way the dashboard displays them.
var DefaultLocale = language.Italian

// WriteDashboardCSV serialises the dashboard as consecutive CSV blocks
// separated by blank lines: summary, monthly trend, annual trend and both top lists.
func WriteDashboardCSV(w io.Writer, kpis analytics.DashboardKPIs, locale language.Tag) error {
	p := message.NewPrinter(locale)
	amount := func(v float64) string { return p.Sprintf("%.2f", v) }

	writer := csv.NewWriter(w)
	blocks := [][][]string{
		{
			{"Metric", "Value"},
			{"Year", strconv.Itoa(kpis.Year)},
			{"Current YTD", amount(kpis.CurrentYTD)},
			{"Previous YTD", amount(kpis.PreviousYTD)},
			{"Previous Year Total", amount(kpis.PreviousYearTotal)},
			{"Delta", amount(kpis.Delta)},
			{"Delta %", amount(kpis.DeltaPercentage)},
		},
		monthlyBlock(kpis.MonthlyTrend, kpis.Year, amount),
		annualBlock(kpis.AnnualTrend, amount),
		rankBlock("Top Clients", kpis.TopClients, amount),
		rankBlock("Top Companies", kpis.TopCompanies, amount),
	}
	for i, block := range blocks {
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return err
			}
		}
		if err := writer.WriteAll(block); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func monthlyBlock(points []analytics.MonthPoint, year int, amount func(float64) string) [][]string {
	out := [][]string{{"Month", strconv.Itoa(year), strconv.Itoa(year - 1)}}
	for _, pt := range points {
		out = append(out, []string{pt.Label, amount(pt.Current), amount(pt.Previous)})
	}
	return out
}

func annualBlock(points []analytics.YearPoint, amount func(float64) string) [][]string {
	out := [][]string{{"Year", "Total"}}
	for _, pt := range points {
		out = append(out, []string{strconv.Itoa(pt.Year), amount(pt.Total)})
	}
	return out
}

func rankBlock(title string, items []analytics.RankItem, amount func(float64) string) [][]string {
	out := [][]string{{title, "Amount"}}
	for _, it := range items {
		out = append(out, []string{it.Name, amount(it.Amount)})
	}
	return out
}
