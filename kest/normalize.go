package kest

import (
	"sort"
)

// DropStats accounts for records the normalizer rejected. Dropped
// records are reported, never silently ignored, but are not fatal to
// the run.
type DropStats struct {
	ExcludedType uint32
	OutOfPeriod  uint32
	BadQuantity  uint32
	OtherISIN    uint32
}

func (s DropStats) Total() uint32 {
	return s.ExcludedType + s.OutOfPeriod + s.BadQuantity + s.OtherISIN
}

// NormalizeRecords turns the raw record feed into the chronological
// Buy/Sell event stream for one configured security. Pure transform;
// the synthetic fund adjustment is merged in later by the replay.
//
// Records outside [PeriodStart, PeriodEnd] are dropped and counted.
// The configured starting quantity and average already account for
// everything before the period, so earlier history is not replayed.
func NormalizeRecords(cfg *SecurityConfig, records []Record) ([]*Event, DropStats) {
	events := make([]*Event, 0, len(records))
	var drops DropStats

	for _, rec := range records {
		if rec.ISIN != cfg.ISIN {
			drops.OtherISIN++
			continue
		}
		if rec.Type.Excluded() || (!rec.Type.IsBuy() && !rec.Type.IsSell()) {
			drops.ExcludedType++
			continue
		}
		if !rec.Date.Within(cfg.PeriodStart, cfg.PeriodEnd) {
			drops.OutOfPeriod++
			continue
		}
		if !rec.Quantity.IsPositive() {
			drops.BadQuantity++
			continue
		}

		curr := rec.Currency
		if curr == "" {
			curr = ReportingCurrency
		}
		events = append(events, &Event{
			ISIN:        rec.ISIN,
			Date:        rec.Date,
			Action:      actionForRecord(rec.Type),
			Quantity:    rec.Quantity,
			GrossAmount: rec.GrossAmount.Abs(),
			Fee:         rec.Fee,
			Currency:    curr,
			ReadIndex:   rec.ReadIndex,
		})
	}

	SortEvents(events)
	return events, drops
}

func actionForRecord(t RecordType) EventAction {
	if t.IsSell() {
		return SELL
	}
	return BUY
}

// SortEvents orders events by date ascending. On the same day the fund
// adjustment comes first (it is computed on the quantity held before
// any same-day trades), then trades in source-feed order.
func SortEvents(events []*Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if (a.Action == FUND_ADJ) != (b.Action == FUND_ADJ) {
			return a.Action == FUND_ADJ
		}
		return a.ReadIndex < b.ReadIndex
	})
}

// SplitRecordsByISIN groups the raw feed per security.
func SplitRecordsByISIN(records []Record) map[string][]Record {
	recsByISIN := make(map[string][]Record)
	for _, rec := range records {
		if rec.ISIN == "" {
			continue
		}
		recsByISIN[rec.ISIN] = append(recsByISIN[rec.ISIN], rec)
	}
	return recsByISIN
}
