package kest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/util"
)

type _PrintHelper struct {
	PrintAllDecimals bool
}

func (h _PrintHelper) CurrStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.StringFixed(2)
}

func (h _PrintHelper) QtyStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.StringFixed(3)
}

func (h _PrintHelper) PriceStr(val decimal.Decimal) string {
	if h.PrintAllDecimals {
		return val.String()
	}
	return val.StringFixed(4)
}

func (h _PrintHelper) PlusMinusCurr(val decimal.Decimal, showPlus bool) string {
	if val.IsNegative() {
		return "-" + h.CurrStr(val.Neg())
	}
	plus := ""
	if showPlus {
		plus = "+"
	}
	return plus + h.CurrStr(val)
}

func strOrDash(useStr bool, str string) string {
	if useStr {
		return str
	}
	return "-"
}

type RenderTable struct {
	Header []string
	Rows   [][]string
	Footer []string
	Notes  []string
	Errors []error
}

// RenderLedgerTableModel builds the per-security audit-trail table:
// one row per ledger line, preceded by the configured starting state.
func RenderLedgerTableModel(report *SecurityReport, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"Date", "TX", "Quantity", "Amount", "Fee",
		"Amount (EUR)", "Gain", "Distr. Income", "Foreign Tax", "Balance", "Avg Price"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}
	cfg := report.Config

	table.Rows = append(table.Rows, []string{
		cfg.PeriodStart.String(), "START",
		ph.QtyStr(cfg.StartingQuantity),
		"-", "-", "-", "-", "-", "-",
		ph.QtyStr(cfg.StartingQuantity),
		strOrDash(cfg.StartingQuantity.IsPositive(), ph.PriceStr(cfg.StartingAvgPrice)),
	})

	for _, line := range report.Lines {
		amount := "-"
		if line.Action != FUND_ADJ {
			amount = ph.CurrStr(line.GrossAmount)
			if line.Currency != ReportingCurrency {
				amount = fmt.Sprintf("%s %s", amount, line.Currency)
			}
		}
		row := []string{
			line.Date.String(),
			line.Action.String(),
			strOrDash(line.Action != FUND_ADJ, ph.QtyStr(line.Quantity)),
			amount,
			strOrDash(!line.Fee.IsZero(), ph.CurrStr(line.Fee)),
			strOrDash(line.Action != FUND_ADJ, ph.CurrStr(line.ConvertedAmount)),
			strOrDash(line.Action == SELL, ph.PlusMinusCurr(line.Gain, false)),
			strOrDash(line.Action == FUND_ADJ, ph.CurrStr(line.DistributionIncome)),
			strOrDash(line.Action == FUND_ADJ, ph.CurrStr(line.ForeignTaxCredit)),
			ph.QtyStr(line.PostQuantity),
			strOrDash(line.PostQuantity.IsPositive(), ph.PriceStr(line.PostAvgPrice)),
		}
		table.Rows = append(table.Rows, row)
	}

	table.Footer = []string{"", "", "", "", "", "Total",
		ph.PlusMinusCurr(report.Summary.RealizedGains, false),
		ph.CurrStr(report.Summary.DistributionIncome),
		ph.CurrStr(report.Summary.ForeignTaxCredit),
		ph.QtyStr(report.Summary.ClosingQuantity),
		strOrDash(report.Summary.ClosingQuantity.IsPositive(),
			ph.PriceStr(report.Summary.ClosingAvgPrice)),
	}

	if cfg.Report != nil {
		table.Notes = append(table.Notes, fmt.Sprintf(
			" OeKB factors per share (%s): income %s, foreign tax %s, adjustment %s; ECB rate %s -> EUR at %v: %s",
			cfg.Report.Currency,
			cfg.Report.IncomeFactor, cfg.Report.ForeignTaxFactor, cfg.Report.AdjustmentFactor,
			cfg.Report.Currency, cfg.Report.Date, report.ReportRate))
	}
	if n := report.Drops.Total(); n > 0 {
		table.Notes = append(table.Notes, fmt.Sprintf(
			" Dropped records: %d excluded type, %d outside period, %d invalid quantity",
			report.Drops.ExcludedType, report.Drops.OutOfPeriod, report.Drops.BadQuantity))
	}

	return table
}

/*
RenderSummaryTableModel builds the batch overview:

	| ISIN | Type | Quantity | Avg Price | Distr. Income | Foreign Tax | Gains |
	...one row per security, totals in the footer.
*/
func RenderSummaryTableModel(reports []*SecurityReport, renderFullValues bool) *RenderTable {
	table := &RenderTable{}
	table.Header = []string{"ISIN", "Type", "Quantity", "Avg Price",
		"Distr. Income (936/937)", "Foreign Tax (984/998)", "Capital Gains"}

	ph := _PrintHelper{PrintAllDecimals: renderFullValues}

	for _, r := range reports {
		table.Rows = append(table.Rows, []string{
			r.Config.ISIN,
			r.Config.Type.String(),
			ph.QtyStr(r.Summary.ClosingQuantity),
			strOrDash(r.Summary.ClosingQuantity.IsPositive(),
				ph.PriceStr(r.Summary.ClosingAvgPrice)),
			ph.CurrStr(r.Summary.DistributionIncome),
			ph.CurrStr(r.Summary.ForeignTaxCredit),
			ph.PlusMinusCurr(r.Summary.RealizedGains, false),
		})
	}

	totals := CombineSummaries(reports)
	table.Footer = []string{"Total", "", "", "",
		ph.CurrStr(totals.DistributionIncome),
		ph.CurrStr(totals.ForeignTaxCredit),
		ph.PlusMinusCurr(totals.RealizedGains, false),
	}

	table.Notes = append(table.Notes, util.Tern(len(reports) == 1,
		" Figures rounded for display; FinanzOnline expects 2 decimals.",
		" Figures rounded for display; FinanzOnline expects 2 decimals. Totals cover all listed securities."))

	return table
}
