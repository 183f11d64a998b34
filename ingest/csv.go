package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/kest"
	"github.com/kestcalc/kestcalc/log"
)

// Broker exports use semicolons and European-formatted decimals
// (1.234,56). The column set matches the account activity export.
const csvDelimiter = ';'

const CsvDateFormat = "2006-01-02"

type colParser func(string, *kest.Record) error

var colParserMap = map[string]colParser{
	"date":        parseRecDate,
	"time":        parseRecTime,
	"status":      parseRecStatus,
	"reference":   parseNothing,
	"description": parseNothing,
	"assettype":   parseNothing,
	"type":        parseRecType,
	"isin":        parseRecISIN,
	"shares":      parseRecShares,
	"price":       parseNothing,
	"amount":      parseRecAmount,
	"fee":         parseRecFee,
	"tax":         parseNothing,
	"currency":    parseRecCurrency,
}

var ColNames []string

func init() {
	ColNames = make([]string, 0, len(colParserMap))
	for name := range colParserMap {
		ColNames = append(ColNames, name)
	}
}

// ParseRecordsCsv reads a broker CSV export into canonical records.
// Only executed trades are forwarded; everything else (cancelled or
// pending orders) is counted and skipped, as are rows that fail to
// parse. Skipped rows never abort the whole file.
func ParseRecordsCsv(r io.Reader, desc string, errPrinter log.ErrorPrinter) ([]kest.Record, uint32, error) {
	csvR := csv.NewReader(r)
	csvR.Comma = csvDelimiter
	rows, err := csvR.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse CSV %s: %v", desc, err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("no rows found in %s", desc)
	}

	header := rows[0]
	colParsers := make([]colParser, len(header))
	for i, col := range header {
		sanCol := strings.TrimSpace(strings.ToLower(col))
		if parser, ok := colParserMap[sanCol]; ok {
			colParsers[i] = parser
		} else {
			fmt.Fprintf(os.Stderr, "Warning: Unrecognized column %s\n", sanCol)
			colParsers[i] = parseNothing
		}
	}

	records := make([]kest.Record, 0, len(rows)-1)
	var skipped uint32
	var readIndex uint32
	for i, row := range rows[1:] {
		rec := kest.Record{Currency: kest.ReportingCurrency}
		rowErr := error(nil)
		for j, col := range row {
			if j >= len(colParsers) {
				break
			}
			if err := colParsers[j](col, &rec); err != nil {
				rowErr = fmt.Errorf("%s line %d col %d: %v", desc, i+2, j, err)
				break
			}
		}
		if rowErr != nil {
			errPrinter.Ln("Skipping row:", rowErr)
			skipped++
			continue
		}
		if !statusExecuted(rec.Status) {
			skipped++
			continue
		}
		if rec.Type == kest.NO_TYPE {
			errPrinter.F("Skipping row: %s line %d has unknown transaction type\n", desc, i+2)
			skipped++
			continue
		}
		rec.ReadIndex = readIndex
		readIndex++
		records = append(records, rec)
	}
	return records, skipped, nil
}

func ParseRecordsCsvFile(fname string, errPrinter log.ErrorPrinter) ([]kest.Record, uint32, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, 0, err
	}
	defer fp.Close()
	return ParseRecordsCsv(fp, fname, errPrinter)
}

func statusExecuted(status string) bool {
	switch strings.TrimSpace(strings.ToLower(status)) {
	case "executed", "settled":
		return true
	}
	return false
}

// ParseEuropeanDecimal converts 1.234,56 to an exact decimal. Plain
// 1234.56 is accepted too, for hand-written fixtures.
func ParseEuropeanDecimal(data string) (decimal.Decimal, error) {
	s := strings.TrimSpace(data)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return decimal.NewFromString(s)
}

func parseNothing(data string, rec *kest.Record) error {
	return nil
}

func parseRecDate(data string, rec *kest.Record) error {
	d, err := date.Parse(CsvDateFormat, strings.TrimSpace(data))
	if err != nil {
		return err
	}
	rec.Date = d
	return nil
}

func parseRecTime(data string, rec *kest.Record) error {
	rec.Time = strings.TrimSpace(data)
	return nil
}

func parseRecStatus(data string, rec *kest.Record) error {
	rec.Status = strings.TrimSpace(data)
	return nil
}

func parseRecType(data string, rec *kest.Record) error {
	switch strings.TrimSpace(strings.ToLower(data)) {
	case "buy":
		rec.Type = kest.BUY_RECORD
	case "sell":
		rec.Type = kest.SELL_RECORD
	case "savings plan", "savings_plan":
		rec.Type = kest.SAVINGS_PLAN
	case "deposit":
		rec.Type = kest.DEPOSIT
	case "withdrawal":
		rec.Type = kest.WITHDRAWAL
	case "fee":
		rec.Type = kest.FEE
	case "interest":
		rec.Type = kest.INTEREST
	default:
		rec.Type = kest.NO_TYPE
	}
	return nil
}

func parseRecISIN(data string, rec *kest.Record) error {
	rec.ISIN = strings.TrimSpace(data)
	return nil
}

func parseRecShares(data string, rec *kest.Record) error {
	qty, err := ParseEuropeanDecimal(data)
	if err != nil {
		return fmt.Errorf("error parsing shares: %v", err)
	}
	rec.Quantity = qty
	return nil
}

func parseRecAmount(data string, rec *kest.Record) error {
	amt, err := ParseEuropeanDecimal(data)
	if err != nil {
		return fmt.Errorf("error parsing amount: %v", err)
	}
	rec.GrossAmount = amt
	return nil
}

func parseRecFee(data string, rec *kest.Record) error {
	fee, err := ParseEuropeanDecimal(data)
	if err != nil {
		return fmt.Errorf("error parsing fee: %v", err)
	}
	rec.Fee = fee
	return nil
}

func parseRecCurrency(data string, rec *kest.Record) error {
	if c := strings.ToUpper(strings.TrimSpace(data)); c != "" {
		rec.Currency = kest.Currency(c)
	}
	return nil
}
