package analytics

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/revenue-dashboard/revenue-dashboard/internal/period"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
)

// Dimension selects which counterpart the mix breakdown groups by.
type Dimension string

const (
	DimensionClient  Dimension = "client"
	DimensionCompany Dimension = "company"
)

const (
	// DefaultTopN is the length of the top client and company lists.
	DefaultTopN = 5
	// AnnualWindow is the number of years in the annual trend, ending at the selected year.
	AnnualWindow = 5
	unknownName  = "Unknown"
)

var hundred = decimal.NewFromInt(100)

// Options parameterise one aggregation run.
type Options struct {
	// SelectedYear defaults to Now.Year() when zero.
	SelectedYear int
	Now          time.Time
	Dimension    Dimension
	TopN         int
	Logger       *slog.Logger
}

// MonthPoint is one month of the selected year against the same month of the previous one.
type MonthPoint struct {
	Month    int     `json:"month"`
	Label    string  `json:"label"`
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
}

// YearPoint is one bar of the annual trend.
type YearPoint struct {
	Year  int     `json:"year"`
	Total float64 `json:"total"`
}

// MixItem is one slice of the mix chart. Value duplicates Amount for chart libraries.
type MixItem struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
	Value      float64 `json:"value"`
}

// RankItem is one entry of a top list.
type RankItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Result holds every figure derived from one pass over the entries.
type Result struct {
	SelectedYear      int          `json:"selected_year"`
	PreviousYear      int          `json:"previous_year"`
	MaxMonth          int          `json:"max_month"`
	LifetimeValue     float64      `json:"lifetime_value"`
	CurrentYTD        float64      `json:"current_ytd"`
	PreviousYTD       float64      `json:"previous_ytd"`
	PreviousYearTotal float64      `json:"previous_year_total"`
	Delta             float64      `json:"delta"`
	DeltaPercentage   float64      `json:"delta_percentage"`
	MonthlyTrend      []MonthPoint `json:"monthly_trend"`
	AnnualTrend       []YearPoint  `json:"annual_trend"`
	Mix               []MixItem    `json:"mix"`
	TopClients        []RankItem   `json:"top_clients"`
	TopCompanies      []RankItem   `json:"top_companies"`
	Skipped           int          `json:"skipped"`
}

type monthSums struct {
	current  decimal.Decimal
	previous decimal.Decimal
}

// Aggregate computes YTD, year-over-year, trend, mix and ranking figures.
// For the running year both YTD sums cover January through the current
// month inclusive, so a partial year is never compared with a full one.
// Past years compare full years.
// Entries with no period or a negative amount are skipped and logged.
func Aggregate(entries []revenues.Entry, opts Options) Result {
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	selected := opts.SelectedYear
	if selected == 0 {
		selected = now.Year()
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	previous := selected - 1
	maxMonth := int(now.Month()) - 1
	if selected < now.Year() {
		maxMonth = 11
	}
	firstAnnual := selected - AnnualWindow + 1

	var (
		lifetime, currentYTD, previousYTD, previousTotal decimal.Decimal
		months                                           [12]monthSums
		annual                                           = make(map[int]decimal.Decimal, AnnualWindow)
		byClient                                         = make(map[string]decimal.Decimal)
		byCompany                                        = make(map[string]decimal.Decimal)
		skipped                                          int
	)

	for _, e := range entries {
		if e.Period.IsZero() || e.Amount.IsNegative() {
			skipped++
			logger.Warn("analytics: skipping malformed revenue entry",
				slog.String("id", e.ID.String()),
				slog.Time("period", e.Period),
				slog.String("amount", e.Amount.String()))
			continue
		}
		p := e.Period.UTC()
		year, month := p.Year(), int(p.Month())-1
		amount := e.Amount

		lifetime = lifetime.Add(amount)
		switch year {
		case selected:
			currentYTD = currentYTD.Add(amount)
			months[month].current = months[month].current.Add(amount)
			clientName := clientName(e.Client)
			byClient[clientName] = byClient[clientName].Add(amount)
			companyName := companyName(e.Company)
			byCompany[companyName] = byCompany[companyName].Add(amount)
		case previous:
			previousTotal = previousTotal.Add(amount)
			if month <= maxMonth {
				previousYTD = previousYTD.Add(amount)
			}
			months[month].previous = months[month].previous.Add(amount)
		}
		if year >= firstAnnual && year <= selected {
			annual[year] = annual[year].Add(amount)
		}
	}

	res := Result{
		SelectedYear:      selected,
		PreviousYear:      previous,
		MaxMonth:          maxMonth,
		LifetimeValue:     lifetime.InexactFloat64(),
		CurrentYTD:        currentYTD.InexactFloat64(),
		PreviousYTD:       previousYTD.InexactFloat64(),
		PreviousYearTotal: previousTotal.InexactFloat64(),
		Delta:             currentYTD.Sub(previousYTD).InexactFloat64(),
		DeltaPercentage:   deltaPercentage(currentYTD, previousYTD),
		MonthlyTrend:      make([]MonthPoint, 12),
		AnnualTrend:       make([]YearPoint, 0, AnnualWindow),
		Skipped:           skipped,
	}
	for m := range months {
		res.MonthlyTrend[m] = MonthPoint{
			Month:    m + 1,
			Label:    period.MonthLabels[m],
			Current:  months[m].current.InexactFloat64(),
			Previous: months[m].previous.InexactFloat64(),
		}
	}
	for y := firstAnnual; y <= selected; y++ {
		res.AnnualTrend = append(res.AnnualTrend, YearPoint{Year: y, Total: annual[y].InexactFloat64()})
	}

	mixSource := byClient
	if opts.Dimension == DimensionCompany {
		mixSource = byCompany
	}
	res.Mix = buildMix(mixSource, lifetime)
	res.TopClients = topList(byClient, topN)
	res.TopCompanies = topList(byCompany, topN)
	return res
}

func deltaPercentage(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	return current.Sub(previous).Div(previous).Mul(hundred).Round(2).InexactFloat64()
}

// Percentage returns part/whole*100 rounded to two decimals, or 0 when whole is zero.
func Percentage(part, whole decimal.Decimal) float64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(hundred).Round(2).InexactFloat64()
}

type ranked struct {
	name   string
	amount decimal.Decimal
}

func sortedByAmount(sums map[string]decimal.Decimal) []ranked {
	out := make([]ranked, 0, len(sums))
	for name, amount := range sums {
		out = append(out, ranked{name: name, amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].amount.Cmp(out[j].amount); c != 0 {
			return c > 0
		}
		return out[i].name < out[j].name
	})
	return out
}

func buildMix(sums map[string]decimal.Decimal, lifetime decimal.Decimal) []MixItem {
	sorted := sortedByAmount(sums)
	mix := make([]MixItem, 0, len(sorted))
	for _, r := range sorted {
		amount := r.amount.InexactFloat64()
		mix = append(mix, MixItem{
			Name:       r.name,
			Amount:     amount,
			Percentage: Percentage(r.amount, lifetime),
			Value:      amount,
		})
	}
	return mix
}

func topList(sums map[string]decimal.Decimal, n int) []RankItem {
	sorted := sortedByAmount(sums)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]RankItem, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, RankItem{Name: r.name, Amount: r.amount.InexactFloat64()})
	}
	return out
}

func clientName(ref *revenues.ClientRef) string {
	if ref == nil || strings.TrimSpace(ref.Name) == "" {
		return unknownName
	}
	return ref.Name
}

func companyName(ref *revenues.CompanyRef) string {
	if ref == nil || strings.TrimSpace(ref.Name) == "" {
		return unknownName
	}
	return ref.Name
}
