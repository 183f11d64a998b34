package kest

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/util"
)

var one = decimal.NewFromInt(1)

// ReplayRecords runs one security's full computation: normalize the raw
// feed, merge in the synthetic fund adjustment, replay everything in
// date order against the running state, and fold the ledger into the
// period summary.
//
// Each security's replay is independent of every other; callers may run
// them in parallel as long as the rate provider tolerates concurrent
// lookups.
func ReplayRecords(cfg *SecurityConfig, records []Record, rates RateProvider) (*SecurityReport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	events, drops := NormalizeRecords(cfg, records)

	reportRate := decimal.Zero
	if cfg.Report != nil {
		var err error
		reportRate, err = lookupRate(rates, cfg.ISIN, cfg.Report.Date, cfg.Report.Currency)
		if err != nil {
			return nil, err
		}
		if cfg.Report.Date.Within(cfg.PeriodStart, cfg.PeriodEnd) {
			events = append(events, &Event{
				ISIN:   cfg.ISIN,
				Date:   cfg.Report.Date,
				Action: FUND_ADJ,
			})
			SortEvents(events)
		}
	}

	lines, err := ReplayEvents(cfg, events, reportRate, rates)
	if err != nil {
		return nil, err
	}

	report := &SecurityReport{
		Config:     cfg,
		Lines:      lines,
		Drops:      drops,
		ReportRate: reportRate,
	}
	report.Summary = SummarizePeriod(cfg, lines)
	return report, nil
}

// ReplayEvents replays an already-normalized event sequence and emits
// the itemized ledger. Events must be sorted (see SortEvents).
func ReplayEvents(cfg *SecurityConfig, events []*Event, reportRate decimal.Decimal,
	rates RateProvider) ([]LedgerLine, error) {

	status := SecurityStatus{
		Quantity: cfg.StartingQuantity,
		AvgPrice: cfg.StartingAvgPrice,
	}

	lines := make([]LedgerLine, 0, len(events))
	for _, ev := range events {
		line, newStatus, err := applyEvent(cfg, ev, status, reportRate, rates)
		if err != nil {
			return nil, err
		}
		status = newStatus
		lines = append(lines, line)
	}
	return lines, nil
}

// applyEvent computes the ledger line for one event against the
// pre-event status and returns the post-event status. The input status
// is never mutated; a failed event produces no line.
func applyEvent(cfg *SecurityConfig, ev *Event, pre SecurityStatus,
	reportRate decimal.Decimal, rates RateProvider) (LedgerLine, SecurityStatus, error) {

	line := LedgerLine{
		Date:        ev.Date,
		Action:      ev.Action,
		Quantity:    ev.Quantity,
		GrossAmount: ev.GrossAmount,
		Currency:    ev.Currency,
		Fee:         ev.Fee,
	}
	post := pre

	switch ev.Action {
	case BUY:
		converted, err := convertAmount(rates, ev)
		if err != nil {
			return LedgerLine{}, pre, err
		}
		// Weighted-average blend. The division is exact decimal
		// arithmetic; repeated small savings-plan buys must not drift.
		newQuantity := pre.Quantity.Add(ev.Quantity)
		post.AvgPrice = pre.Quantity.Mul(pre.AvgPrice).Add(converted).Div(newQuantity)
		post.Quantity = newQuantity
		line.ConvertedAmount = converted

	case SELL:
		if ev.Quantity.GreaterThan(pre.Quantity) {
			return LedgerLine{}, pre, NewErrorf(DataIntegrityError, cfg.ISIN, ev.Date,
				"sell of %v exceeds the current holdings (%v)", ev.Quantity, pre.Quantity)
		}
		converted, err := convertAmount(rates, ev)
		if err != nil {
			return LedgerLine{}, pre, err
		}
		// Selling never moves the average cost of the remaining shares.
		line.Gain = converted.Sub(pre.AvgPrice.Mul(ev.Quantity))
		line.ConvertedAmount = converted
		post.Quantity = pre.Quantity.Sub(ev.Quantity)

	case FUND_ADJ:
		util.Assertf(cfg.Report != nil,
			"fund adjustment replayed for %s without report factors", cfg.ISIN)
		if pre.Quantity.IsPositive() {
			line.DistributionIncome = cfg.Report.IncomeFactor.Mul(pre.Quantity).Mul(reportRate)
			line.ForeignTaxCredit = cfg.Report.ForeignTaxFactor.Mul(pre.Quantity).Mul(reportRate)
			post.AvgPrice = pre.AvgPrice.Add(cfg.Report.AdjustmentFactor.Mul(reportRate))
		}
		// Flat at the report date: no deemed income and no basis to adjust.

	default:
		return LedgerLine{}, pre, NewErrorf(ValidationError, cfg.ISIN, ev.Date,
			"unhandled event action %v", ev.Action)
	}

	line.PostQuantity = post.Quantity
	line.PostAvgPrice = post.AvgPrice
	return line, post, nil
}

func convertAmount(rates RateProvider, ev *Event) (decimal.Decimal, error) {
	rate, err := lookupRate(rates, ev.ISIN, ev.Date, ev.Currency)
	if err != nil {
		return decimal.Zero, err
	}
	return ev.GrossAmount.Mul(rate), nil
}

func lookupRate(rates RateProvider, isin string, d date.Date, from Currency) (decimal.Decimal, error) {
	if from == ReportingCurrency {
		return one, nil
	}
	rate, err := rates.Rate(d, from, ReportingCurrency)
	if err != nil {
		var kerr *Error
		if errors.As(err, &kerr) {
			if kerr.ISIN == "" {
				kerr.ISIN = isin
			}
			return decimal.Zero, kerr
		}
		return decimal.Zero, WrapError(RateUnavailableError, isin, d, err)
	}
	return rate, nil
}
