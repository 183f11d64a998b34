package fx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/kest"
	"github.com/kestcalc/kestcalc/log"
	"github.com/kestcalc/kestcalc/util"
)

// ECB reference rates, as republished by frankfurter.app. One request
// covers a whole calendar year for one currency pair.
const ratesJsonUrlFmt = "https://api.frankfurter.app/%d-01-01..%d-12-31?from=%s&to=%s"

// Reference rates are only published on TARGET business days; a date
// falling on a weekend or holiday uses the closest prior publication,
// up to this many days back.
const maxFallbackDays = 7

type ratesJsonRoot struct {
	Rates map[string]map[string]json.Number `json:"rates"`
}

func pairName(from kest.Currency, to kest.Currency) string {
	return fmt.Sprintf("%s-%s", from, to)
}

func getRemoteRatesJson(year int, from kest.Currency, to kest.Currency,
	errPrinter log.ErrorPrinter) ([]DailyRate, error) {

	fmt.Fprintf(os.Stderr, "Fetching %s/%s exchange rates for %d\n", from, to, year)
	url := fmt.Sprintf(ratesJsonUrlFmt, year, year, from, to)
	log.Fverbosef(os.Stderr, "Getting %s\n", url)
	resp, err := http.Get(url)
	if err != nil {
		return nil, fmt.Errorf("error getting %s %s rates: %v", from, to, err)
	} else if resp.StatusCode != 200 {
		return nil, fmt.Errorf("error status: %s", resp.Status)
	}
	defer resp.Body.Close()

	var theJson ratesJsonRoot
	dcdr := json.NewDecoder(resp.Body)
	dcdr.UseNumber()
	err = dcdr.Decode(&theJson)
	if err != nil {
		return nil, err
	}

	rates := make([]DailyRate, 0, len(theJson.Rates))
	for dateStr, vals := range theJson.Rates {
		d, err := date.Parse(csvTimeFormat, dateStr)
		if err != nil {
			errPrinter.Ln("Unable to parse date:", err)
			continue
		}
		val, ok := vals[string(to)]
		if !ok {
			errPrinter.Ln("No", to, "rate published for", d)
			continue
		}
		rate, err := decimal.NewFromString(val.String())
		if err != nil {
			errPrinter.Ln("Failed to parse rate for", d, ":", val)
			continue
		}
		rates = append(rates, DailyRate{d, rate})
	}
	sort.Slice(rates, func(i, j int) bool {
		return rates[i].Date.Before(rates[j].Date)
	})
	return rates, nil
}

// RateLoader looks up reference rates by date, lazily fetching and
// caching one year at a time. Safe for concurrent use; it is shared by
// all security replays of a run.
type RateLoader struct {
	mu            sync.Mutex
	yearRates     map[string]map[date.Date]DailyRate
	forceDownload bool
	cache         RatesCache
	errPrinter    log.ErrorPrinter
}

var _ kest.RateProvider = (*RateLoader)(nil)

func NewRateLoader(forceDownload bool, ratesCache RatesCache, errPrinter log.ErrorPrinter) *RateLoader {
	return &RateLoader{
		yearRates:     make(map[string]map[date.Date]DailyRate),
		forceDownload: forceDownload,
		cache:         ratesCache,
		errPrinter:    errPrinter,
	}
}

// Rate implements kest.RateProvider. Missing publications within the
// fallback window resolve to the closest prior business day.
func (cr *RateLoader) Rate(d date.Date, from kest.Currency, to kest.Currency) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	if d.After(date.Today()) {
		return decimal.Zero, kest.NewErrorf(kest.RateUnavailableError, "", d,
			"no %s/%s rate can exist for a future date", from, to)
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	for i := 0; i <= maxFallbackDays; i++ {
		day := d.AddDays(-i)
		yearRates, err := cr.ratesForYear(day.Year(), from, to)
		if err != nil {
			return decimal.Zero, kest.WrapError(kest.RateUnavailableError, "", d, err)
		}
		if rate, ok := yearRates[day]; ok {
			if i > 0 {
				log.Fverbosef(os.Stderr, "No %s/%s rate on %v; using %v from %v\n",
					from, to, d, rate.Rate, rate.Date)
			}
			return rate.Rate, nil
		}
	}
	return decimal.Zero, kest.NewErrorf(kest.RateUnavailableError, "", d,
		"no %s/%s rate published on %v or the %d preceding days%s",
		from, to, d, maxFallbackDays, cr.surroundingRatesHelp(d, from, to))
}

func (cr *RateLoader) ratesForYear(year int, from kest.Currency, to kest.Currency) (
	map[date.Date]DailyRate, error) {

	key := fmt.Sprintf("%s-%d", pairName(from, to), year)
	if rates, ok := cr.yearRates[key]; ok {
		return rates, nil
	}

	rates, err := cr.getRates(year, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[date.Date]DailyRate, len(rates))
	for _, rate := range rates {
		byDate[rate.Date] = rate
	}
	cr.yearRates[key] = byDate
	return byDate, nil
}

func (cr *RateLoader) getRates(year int, from kest.Currency, to kest.Currency) ([]DailyRate, error) {
	pair := pairName(from, to)
	if !cr.forceDownload {
		rates, err := cr.cache.GetRates(pair, year)
		if err == nil {
			return rates, nil
		}
		log.Fverbosef(os.Stderr, "Could not load cached %s rates for %d: %v\n", pair, year, err)
	}

	rates, err := getRemoteRatesJson(year, from, to, cr.errPrinter)
	if err != nil {
		return nil, err
	}
	if err := cr.cache.WriteRates(pair, year, rates); err != nil {
		cr.errPrinter.Ln("Failed to update exchange rate cache:", err)
	}
	return rates, nil
}

// surroundingRatesHelp suggests nearby published rates when a lookup
// fails, so a mistyped report date is easy to spot.
func (cr *RateLoader) surroundingRatesHelp(d date.Date, from kest.Currency, to kest.Currency) string {
	yearRates, ok := cr.yearRates[fmt.Sprintf("%s-%d", pairName(from, to), d.Year())]
	if !ok {
		return ""
	}

	var before, after util.Optional[DailyRate]
	day := d
	for i := 0; i < maxFallbackDays && !before.Present(); i++ {
		day = day.AddDays(-1)
		if rate, ok := yearRates[day]; ok {
			before.Set(rate)
		}
	}
	day = d
	for i := 0; i < maxFallbackDays && !after.Present(); i++ {
		day = day.AddDays(1)
		if rate, ok := yearRates[day]; ok {
			after.Set(rate)
		}
	}
	if !before.Present() && !after.Present() {
		return ""
	}

	var builder strings.Builder
	builder.WriteString("\nIf the date falls on a day where no rate is published, check " +
		"whether it should be moved to a nearby business day. Published rates around it:")
	if before.Present() {
		builder.WriteString("\n")
		builder.WriteString(before.MustGet().String())
	}
	if after.Present() {
		builder.WriteString("\n")
		builder.WriteString(after.MustGet().String())
	}
	return builder.String()
}
