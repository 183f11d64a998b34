package fx

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/user"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/log"
)

const csvTimeFormat = "2006-01-02"

// DailyRate is one published reference rate: multiply an amount in the
// foreign currency by Rate to get the reporting-currency amount.
type DailyRate struct {
	Date date.Date
	Rate decimal.Decimal
}

func (r DailyRate) String() string {
	return fmt.Sprintf("%v : %v", r.Date, r.Rate)
}

// RatesCache persists one year of rates for one currency pair, so
// repeated runs do not hit the rate service again.
type RatesCache interface {
	WriteRates(pair string, year int, rates []DailyRate) error
	GetRates(pair string, year int) ([]DailyRate, error)
}

// CsvRatesCache stores each pair-year as a two-column CSV under the
// user's home directory.
type CsvRatesCache struct {
	ErrPrinter log.ErrorPrinter
}

func (c *CsvRatesCache) WriteRates(pair string, year int, rates []DailyRate) error {
	file, err := ratesCsvFile(pair, year, true)
	if err != nil {
		return err
	}
	defer file.Close()
	return writeRatesToCsv(file, rates)
}

func (c *CsvRatesCache) GetRates(pair string, year int) ([]DailyRate, error) {
	file, err := ratesCsvFile(pair, year, false)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return c.getRatesFromCsv(file)
}

func HomeDirFile(fname string) (string, error) {
	const dir = ".kestcalc"
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	dirPath := filepath.Join(usr.HomeDir, dir)
	os.MkdirAll(dirPath, 0700)
	return filepath.Join(dirPath, url.QueryEscape(fname)), err
}

func ratesCsvFile(pair string, year int, write bool) (*os.File, error) {
	preFname := fmt.Sprintf("rates-%s-%d.csv", pair, year)
	fname, err := HomeDirFile(preFname)
	if err != nil {
		return nil, err
	}
	if write {
		return os.OpenFile(fname, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.ModePerm)
	}
	return os.Open(fname)
}

func (c *CsvRatesCache) getRatesFromCsv(r io.Reader) ([]DailyRate, error) {
	csvR := csv.NewReader(r)
	csvR.FieldsPerRecord = 2
	records, err := csvR.ReadAll()
	if err != nil {
		return nil, err
	}

	rates := make([]DailyRate, 0, len(records))
	for _, record := range records {
		d, err := date.Parse(csvTimeFormat, record[0])
		if err != nil {
			c.ErrPrinter.Ln("Unable to parse date:", err)
			continue
		}
		rate, err := decimal.NewFromString(record[1])
		if err != nil {
			c.ErrPrinter.Ln("Unable to parse rate:", err)
			continue
		}
		rates = append(rates, DailyRate{d, rate})
	}
	return rates, nil
}

func writeRatesToCsv(w io.Writer, rates []DailyRate) (err error) {
	csvW := csv.NewWriter(w)
	for _, rate := range rates {
		row := []string{rate.Date.String(), rate.Rate.String()}
		err = csvW.Write(row)
		if err != nil {
			return
		}
	}
	csvW.Flush()
	return
}

// MemRatesCache is an in-memory RatesCache for tests.
type MemRatesCache struct {
	RatesByPairYear map[string][]DailyRate
}

func NewMemRatesCache() *MemRatesCache {
	return &MemRatesCache{RatesByPairYear: make(map[string][]DailyRate)}
}

func memKey(pair string, year int) string {
	return fmt.Sprintf("%s-%d", pair, year)
}

func (c *MemRatesCache) WriteRates(pair string, year int, rates []DailyRate) error {
	c.RatesByPairYear[memKey(pair, year)] = rates
	return nil
}

func (c *MemRatesCache) GetRates(pair string, year int) ([]DailyRate, error) {
	rates, ok := c.RatesByPairYear[memKey(pair, year)]
	if !ok {
		return nil, fmt.Errorf("no cached rates for %s in %d", pair, year)
	}
	return rates, nil
}
