package kest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestcalc/kestcalc/kest"
)

func TestNormalizeFiltersRecords(t *testing.T) {
	rq := require.New(t)
	cfg := stockCfg()

	records := []kest.Record{
		// kept
		buyRec(cfg, mkDate(2022, time.February, 1), "10", "855.00", 0),
		// other security
		{Date: mkDate(2022, time.February, 2), Type: kest.BUY_RECORD, ISIN: "DE0007164600",
			Quantity: dec("1"), GrossAmount: dec("10"), ReadIndex: 1},
		// cash movement
		{Date: mkDate(2022, time.February, 3), Type: kest.DEPOSIT, ISIN: cfg.ISIN,
			GrossAmount: dec("500"), ReadIndex: 2},
		// before the period
		buyRec(cfg, mkDate(2021, time.December, 30), "5", "400.00", 3),
		// after the period
		sellRec(cfg, mkDate(2023, time.January, 2), "5", "400.00", 4),
		// zero quantity
		buyRec(cfg, mkDate(2022, time.February, 4), "0", "10.00", 5),
	}

	events, drops := kest.NormalizeRecords(cfg, records)
	rq.Len(events, 1)
	rq.Equal(kest.BUY, events[0].Action)
	rq.Equal(uint32(1), drops.OtherISIN)
	rq.Equal(uint32(1), drops.ExcludedType)
	rq.Equal(uint32(2), drops.OutOfPeriod)
	rq.Equal(uint32(1), drops.BadQuantity)
	rq.Equal(uint32(5), drops.Total())
}

func TestNormalizeDefaultsCurrencyAndSign(t *testing.T) {
	rq := require.New(t)
	cfg := stockCfg()

	records := []kest.Record{
		// Sells come in with negative amounts in some exports.
		{Date: mkDate(2022, time.May, 1), Type: kest.SELL_RECORD, ISIN: cfg.ISIN,
			Quantity: dec("2"), GrossAmount: dec("-170.00")},
	}
	events, drops := kest.NormalizeRecords(cfg, records)
	rq.Zero(drops.Total())
	rq.Len(events, 1)
	rq.Equal(kest.EUR, events[0].Currency)
	rq.True(events[0].GrossAmount.Equal(dec("170.00")))
}

func TestSortEventsAdjustmentFirstOnSameDay(t *testing.T) {
	rq := require.New(t)
	d := mkDate(2022, time.July, 15)

	events := []*kest.Event{
		{Date: d, Action: kest.BUY, ReadIndex: 0},
		{Date: d, Action: kest.SELL, ReadIndex: 1},
		{Date: mkDate(2022, time.July, 14), Action: kest.BUY, ReadIndex: 2},
		{Date: d, Action: kest.FUND_ADJ},
	}
	kest.SortEvents(events)

	rq.Equal(mkDate(2022, time.July, 14), events[0].Date)
	rq.Equal(kest.FUND_ADJ, events[1].Action)
	rq.Equal(kest.BUY, events[2].Action)
	rq.Equal(kest.SELL, events[3].Action)
}

func TestSortEventsStableWithinDay(t *testing.T) {
	rq := require.New(t)
	d := mkDate(2022, time.March, 3)

	events := []*kest.Event{
		{Date: d, Action: kest.SELL, ReadIndex: 4},
		{Date: d, Action: kest.BUY, ReadIndex: 2},
		{Date: d, Action: kest.BUY, ReadIndex: 7},
	}
	kest.SortEvents(events)
	rq.Equal(uint32(2), events[0].ReadIndex)
	rq.Equal(uint32(4), events[1].ReadIndex)
	rq.Equal(uint32(7), events[2].ReadIndex)
}

func TestSplitRecordsByISIN(t *testing.T) {
	rq := require.New(t)
	cfg := stockCfg()

	records := []kest.Record{
		buyRec(cfg, mkDate(2022, time.February, 1), "1", "10.00", 0),
		{Date: mkDate(2022, time.February, 2), Type: kest.BUY_RECORD, ISIN: "DE0007164600",
			Quantity: dec("1"), GrossAmount: dec("10"), ReadIndex: 1},
		buyRec(cfg, mkDate(2022, time.February, 3), "1", "10.00", 2),
		// no ISIN, e.g. an account-level fee
		{Date: mkDate(2022, time.February, 4), Type: kest.FEE, GrossAmount: dec("1")},
	}
	byISIN := kest.SplitRecordsByISIN(records)
	rq.Len(byISIN, 2)
	rq.Len(byISIN[cfg.ISIN], 2)
	rq.Len(byISIN["DE0007164600"], 1)
}
