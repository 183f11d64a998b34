package kest

import (
	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
)

type Currency string

const (
	EUR Currency = "EUR"
	USD Currency = "USD"
)

// All ledger figures are kept in the account's reporting currency.
const ReportingCurrency = EUR

// RateProvider converts between currencies at a historical date.
// Implementations must be safe for concurrent use; securities are
// replayed in parallel and all share one provider.
type RateProvider interface {
	// Rate returns the multiplier converting an amount in `from` to `to`
	// on the given date. A missing published rate yields an error with
	// kind RateUnavailableError.
	Rate(d date.Date, from Currency, to Currency) (decimal.Decimal, error)
}

type RecordType int

const (
	NO_TYPE RecordType = iota
	BUY_RECORD
	SELL_RECORD
	SAVINGS_PLAN
	DEPOSIT
	WITHDRAWAL
	FEE
	INTEREST
)

func (t RecordType) String() string {
	switch t {
	case BUY_RECORD:
		return "Buy"
	case SELL_RECORD:
		return "Sell"
	case SAVINGS_PLAN:
		return "Savings plan"
	case DEPOSIT:
		return "Deposit"
	case WITHDRAWAL:
		return "Withdrawal"
	case FEE:
		return "Fee"
	case INTEREST:
		return "Interest"
	default:
		return "Unknown"
	}
}

// IsBuy is true for anything that acquires shares. Savings-plan
// executions are just scheduled buys.
func (t RecordType) IsBuy() bool {
	return t == BUY_RECORD || t == SAVINGS_PLAN
}

func (t RecordType) IsSell() bool {
	return t == SELL_RECORD
}

// Excluded record types are cash movements with no effect on holdings.
func (t RecordType) Excluded() bool {
	switch t {
	case DEPOSIT, WITHDRAWAL, FEE, INTEREST:
		return true
	}
	return false
}

// Record is the canonical transaction shape produced by the ingest
// layer, regardless of whether the source was a broker CSV export or
// the API payload. Only executed trades reach the core.
type Record struct {
	Date        date.Date
	Time        string
	Status      string
	Type        RecordType
	ISIN        string
	Quantity    decimal.Decimal
	GrossAmount decimal.Decimal
	Fee         decimal.Decimal
	Currency    Currency
	// Position in the source feed; tie-break for same-day ordering.
	ReadIndex uint32
}

type EventAction int

const (
	NO_ACTION EventAction = iota
	BUY
	SELL
	// Synthetic OeKB deemed-distribution adjustment, injected by the
	// ledger engine at the fund's report date. Never present in input.
	FUND_ADJ
)

func (a EventAction) String() string {
	switch a {
	case BUY:
		return "BUY"
	case SELL:
		return "SELL"
	case FUND_ADJ:
		return "ADJ"
	default:
		return "NONE"
	}
}

// Event is one entry of a security's chronological replay stream.
// Quantity is strictly positive for BUY/SELL; direction is carried by
// the action, never by a signed magnitude.
type Event struct {
	ISIN        string
	Date        date.Date
	Action      EventAction
	Quantity    decimal.Decimal
	GrossAmount decimal.Decimal
	Fee         decimal.Decimal
	Currency    Currency
	ReadIndex   uint32
}

type SecurityType int

const (
	PlainStock SecurityType = iota
	AccumulatingFund
)

func (t SecurityType) String() string {
	if t == AccumulatingFund {
		return "accumulating_fund"
	}
	return "stock"
}

// FundReport holds the OeKB-published per-share factors for an
// accumulating fund's reporting date. The three factors and the
// currency they are denominated in always travel together.
type FundReport struct {
	Date             date.Date
	IncomeFactor     decimal.Decimal
	ForeignTaxFactor decimal.Decimal
	AdjustmentFactor decimal.Decimal
	Currency         Currency
}

// SecurityConfig describes one ISIN for one tax period. Loaded once
// per run and immutable afterwards.
type SecurityConfig struct {
	ISIN             string
	Type             SecurityType
	PeriodStart      date.Date
	PeriodEnd        date.Date
	StartingQuantity decimal.Decimal
	StartingAvgPrice decimal.Decimal
	// nil for plain stocks, and for funds without a report in the period.
	Report *FundReport
}

func (c *SecurityConfig) Validate() error {
	if c.ISIN == "" {
		return NewErrorf(ValidationError, c.ISIN, date.Date{}, "security config has no ISIN")
	}
	if c.PeriodStart.IsZero() || c.PeriodEnd.IsZero() || c.PeriodEnd.Before(c.PeriodStart) {
		return NewErrorf(ValidationError, c.ISIN, c.PeriodStart,
			"invalid period %v..%v", c.PeriodStart, c.PeriodEnd)
	}
	if c.StartingQuantity.IsNegative() {
		return NewErrorf(ValidationError, c.ISIN, c.PeriodStart,
			"starting quantity is negative (%v)", c.StartingQuantity)
	}
	if c.StartingAvgPrice.IsNegative() {
		return NewErrorf(ValidationError, c.ISIN, c.PeriodStart,
			"starting moving average price is negative (%v)", c.StartingAvgPrice)
	}
	if c.Report != nil {
		if c.Type != AccumulatingFund {
			return NewErrorf(ValidationError, c.ISIN, c.Report.Date,
				"OeKB report factors are only valid for accumulating funds")
		}
		if c.Report.Currency == "" {
			return NewErrorf(ValidationError, c.ISIN, c.Report.Date,
				"OeKB report is missing its currency")
		}
		if c.Report.Date.IsZero() {
			return NewErrorf(ValidationError, c.ISIN, c.Report.Date,
				"OeKB report is missing its date")
		}
		if c.Report.Date.After(c.PeriodEnd) {
			return NewErrorf(ValidationError, c.ISIN, c.Report.Date,
				"OeKB report date %v is after the period end %v", c.Report.Date, c.PeriodEnd)
		}
	}
	return nil
}

// SecurityStatus is the running replay state for one security. There
// are no states beyond holding (quantity > 0) and flat (quantity == 0);
// AvgPrice must not be read while flat.
type SecurityStatus struct {
	Quantity decimal.Decimal
	AvgPrice decimal.Decimal
}

// LedgerLine is one immutable row of the audit trail. Gain is only
// meaningful for SELL lines; DistributionIncome and ForeignTaxCredit
// only for FUND_ADJ lines.
type LedgerLine struct {
	Date            date.Date
	Action          EventAction
	Quantity        decimal.Decimal
	GrossAmount     decimal.Decimal
	Currency        Currency
	Fee             decimal.Decimal
	ConvertedAmount decimal.Decimal

	PostQuantity decimal.Decimal
	PostAvgPrice decimal.Decimal

	Gain               decimal.Decimal
	DistributionIncome decimal.Decimal
	ForeignTaxCredit   decimal.Decimal
}

// SecurityReport bundles everything one security's replay produced.
type SecurityReport struct {
	Config *SecurityConfig
	Lines  []LedgerLine
	Drops  DropStats
	// Rate from the report currency to EUR at the report date.
	// Zero for securities without a fund report.
	ReportRate decimal.Decimal
	Summary    PeriodSummary
}
