package kest

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PeriodSummary is the read-only fold over a security's ledger lines
// within the configured period: the handful of headline figures the
// tax form needs.
type PeriodSummary struct {
	ClosingQuantity decimal.Decimal
	ClosingAvgPrice decimal.Decimal

	// Ausschuettungsgleiche Ertraege (Kennzahl 936/937).
	DistributionIncome decimal.Decimal
	// Anzurechnende auslaendische Quellensteuer (Kennzahl 984/998).
	ForeignTaxCredit decimal.Decimal
	RealizedGains    decimal.Decimal
}

// SummarizePeriod folds the ledger into the period summary. Lines are
// expected in replay order; an empty ledger leaves the closing figures
// equal to the configured starting state.
func SummarizePeriod(cfg *SecurityConfig, lines []LedgerLine) PeriodSummary {
	summary := PeriodSummary{
		ClosingQuantity: cfg.StartingQuantity,
		ClosingAvgPrice: cfg.StartingAvgPrice,
	}

	for _, line := range lines {
		if line.Date.After(cfg.PeriodEnd) {
			break
		}
		summary.ClosingQuantity = line.PostQuantity
		summary.ClosingAvgPrice = line.PostAvgPrice
		summary.DistributionIncome = summary.DistributionIncome.Add(line.DistributionIncome)
		summary.ForeignTaxCredit = summary.ForeignTaxCredit.Add(line.ForeignTaxCredit)
		summary.RealizedGains = summary.RealizedGains.Add(line.Gain)
	}
	return summary
}

// CombinedTotals aggregates the headline figures across securities.
type CombinedTotals struct {
	DistributionIncome decimal.Decimal
	ForeignTaxCredit   decimal.Decimal
	RealizedGains      decimal.Decimal
}

func CombineSummaries(reports []*SecurityReport) CombinedTotals {
	var totals CombinedTotals
	for _, r := range reports {
		totals.DistributionIncome = totals.DistributionIncome.Add(r.Summary.DistributionIncome)
		totals.ForeignTaxCredit = totals.ForeignTaxCredit.Add(r.Summary.ForeignTaxCredit)
		totals.RealizedGains = totals.RealizedGains.Add(r.Summary.RealizedGains)
	}
	return totals
}

// SortReports orders reports by ISIN so repeated runs render the batch
// identically.
func SortReports(reports []*SecurityReport) {
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Config.ISIN < reports[j].Config.ISIN
	})
}
