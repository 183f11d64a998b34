package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/kest"
	"github.com/kestcalc/kestcalc/log"
)

// The API export wraps the transaction list several levels deep.
// Numbers are decoded as json.Number so amounts never pass through a
// float64.
type payloadRoot struct {
	Data struct {
		Account struct {
			BrokerPortfolio struct {
				MoreTransactions struct {
					Transactions []payloadTx `json:"transactions"`
				} `json:"moreTransactions"`
			} `json:"brokerPortfolio"`
		} `json:"account"`
	} `json:"data"`
}

type payloadTx struct {
	ID                      string      `json:"id"`
	Type                    string      `json:"type"`
	Status                  string      `json:"status"`
	Side                    string      `json:"side"`
	SecurityTransactionType string      `json:"securityTransactionType"`
	LastEventDateTime       string      `json:"lastEventDateTime"`
	ISIN                    string      `json:"isin"`
	Quantity                json.Number `json:"quantity"`
	Amount                  json.Number `json:"amount"`
	Currency                string      `json:"currency"`
}

// ParsePayload flattens the nested API payload into canonical records.
// Only settled security transactions are kept: cash movements,
// transfers and non-executed orders are skipped and counted, matching
// what the broker CSV export would have contained.
func ParsePayload(r io.Reader, errPrinter log.ErrorPrinter) ([]kest.Record, uint32, error) {
	var roots []payloadRoot
	dcdr := json.NewDecoder(r)
	dcdr.UseNumber()
	if err := dcdr.Decode(&roots); err != nil {
		return nil, 0, fmt.Errorf("decoding payload: %v", err)
	}
	if len(roots) == 0 {
		return nil, 0, fmt.Errorf("payload contains no account data")
	}

	var records []kest.Record
	var skipped uint32
	var readIndex uint32
	for _, root := range roots {
		for _, tx := range root.Data.Account.BrokerPortfolio.MoreTransactions.Transactions {
			if tx.Type != "SECURITY_TRANSACTION" || tx.Status != "SETTLED" {
				skipped++
				continue
			}
			rec, err := tx.toRecord()
			if err != nil {
				errPrinter.Ln("Skipping payload transaction:", err)
				skipped++
				continue
			}
			rec.ReadIndex = readIndex
			readIndex++
			records = append(records, rec)
		}
	}
	return records, skipped, nil
}

func (tx payloadTx) toRecord() (kest.Record, error) {
	eventDate, eventTime, err := splitEventDateTime(tx.LastEventDateTime)
	if err != nil {
		return kest.Record{}, fmt.Errorf("transaction %s: %v", tx.ID, err)
	}
	qty, err := decimal.NewFromString(tx.Quantity.String())
	if err != nil {
		return kest.Record{}, fmt.Errorf("transaction %s quantity: %v", tx.ID, err)
	}
	amount, err := decimal.NewFromString(tx.Amount.String())
	if err != nil {
		return kest.Record{}, fmt.Errorf("transaction %s amount: %v", tx.ID, err)
	}

	recType := kest.BUY_RECORD
	if tx.Side == "SELL" {
		recType = kest.SELL_RECORD
	} else if tx.SecurityTransactionType == "SAVINGS_PLAN" {
		recType = kest.SAVINGS_PLAN
	}

	currency := kest.ReportingCurrency
	if c := strings.ToUpper(strings.TrimSpace(tx.Currency)); c != "" {
		currency = kest.Currency(c)
	}

	return kest.Record{
		Date:        eventDate,
		Time:        eventTime,
		Status:      "Executed",
		Type:        recType,
		ISIN:        tx.ISIN,
		Quantity:    qty.Abs(),
		GrossAmount: amount.Abs(),
		Currency:    currency,
	}, nil
}

func splitEventDateTime(iso string) (date.Date, string, error) {
	tm, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		// Some payloads omit the zone suffix.
		tm, err = time.Parse("2006-01-02T15:04:05", iso)
		if err != nil {
			return date.Date{}, "", fmt.Errorf("bad event datetime %q: %v", iso, err)
		}
	}
	return date.NewFromTime(tm), tm.Format("15:04:05"), nil
}

// WriteRecordsCsv renders records back out in the broker CSV layout,
// newest first, so the convert subcommand produces a file the rest of
// the tooling (and the calculator itself) can ingest.
func WriteRecordsCsv(w io.Writer, records []kest.Record) error {
	sorted := make([]kest.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[j].Date.Before(sorted[i].Date)
		}
		return sorted[j].Time < sorted[i].Time
	})

	csvW := csv.NewWriter(w)
	csvW.Comma = csvDelimiter
	header := []string{"date", "time", "status", "reference", "description", "assetType",
		"type", "isin", "shares", "price", "amount", "fee", "tax", "currency"}
	if err := csvW.Write(header); err != nil {
		return err
	}

	for _, rec := range sorted {
		price := decimal.Zero
		if !rec.Quantity.IsZero() {
			price = rec.GrossAmount.Div(rec.Quantity).Abs()
		}
		row := []string{
			rec.Date.String(),
			rec.Time,
			rec.Status,
			"", "", "Security",
			rec.Type.String(),
			rec.ISIN,
			formatEuropean(rec.Quantity),
			formatEuropeanFixed(price, 2),
			formatEuropean(rec.GrossAmount),
			formatEuropeanFixed(rec.Fee, 2),
			"0,00",
			string(rec.Currency),
		}
		if err := csvW.Write(row); err != nil {
			return err
		}
	}
	csvW.Flush()
	return csvW.Error()
}

func formatEuropean(d decimal.Decimal) string {
	return strings.Replace(d.String(), ".", ",", 1)
}

func formatEuropeanFixed(d decimal.Decimal, places int32) string {
	return strings.Replace(d.StringFixed(places), ".", ",", 1)
}
