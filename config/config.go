package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/kest"
)

// One security entry of the config file. Decimal-valued fields are
// read as strings so the YAML decoder never routes them through a
// float64.
type securityYaml struct {
	ISIN             string `yaml:"isin"`
	Type             string `yaml:"type"`
	PeriodStart      string `yaml:"period_start"`
	PeriodEnd        string `yaml:"period_end"`
	StartingQuantity string `yaml:"starting_quantity"`
	StartingAvgPrice string `yaml:"starting_moving_avg_price"`

	ReportDate       string `yaml:"oekb_report_date"`
	IncomeFactor     string `yaml:"oekb_distribution_equivalent_income_factor"`
	ForeignTaxFactor string `yaml:"oekb_taxes_paid_abroad_factor"`
	AdjustmentFactor string `yaml:"oekb_adjustment_factor"`
	ReportCurrency   string `yaml:"oekb_report_currency"`
}

type configYaml struct {
	Securities []securityYaml `yaml:"securities"`
}

// Load reads the security configuration for one tax period. Every
// entry is validated; the invariant that the three OeKB factors and
// their currency appear together (and only on accumulating funds) is
// enforced here, before the core ever sees the config.
func Load(r io.Reader) ([]*kest.SecurityConfig, error) {
	var raw configYaml
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if len(raw.Securities) == 0 {
		return nil, fmt.Errorf("config contains no securities")
	}

	configs := make([]*kest.SecurityConfig, 0, len(raw.Securities))
	seen := make(map[string]bool)
	for i, sec := range raw.Securities {
		cfg, err := sec.toConfig()
		if err != nil {
			return nil, fmt.Errorf("security %d (%s): %w", i+1, sec.ISIN, err)
		}
		if seen[cfg.ISIN] {
			return nil, fmt.Errorf("ISIN %s configured multiple times", cfg.ISIN)
		}
		seen[cfg.ISIN] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

func LoadFile(fname string) ([]*kest.SecurityConfig, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Load(fp)
}

func (s securityYaml) toConfig() (*kest.SecurityConfig, error) {
	secType, err := parseSecurityType(s.Type)
	if err != nil {
		return nil, err
	}

	periodStart, err := parseDate("period_start", s.PeriodStart)
	if err != nil {
		return nil, err
	}
	periodEnd, err := parseDate("period_end", s.PeriodEnd)
	if err != nil {
		return nil, err
	}
	startQty, err := parseDecimal("starting_quantity", s.StartingQuantity)
	if err != nil {
		return nil, err
	}
	startAvg, err := parseDecimal("starting_moving_avg_price", s.StartingAvgPrice)
	if err != nil {
		return nil, err
	}

	cfg := &kest.SecurityConfig{
		ISIN:             strings.TrimSpace(s.ISIN),
		Type:             secType,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		StartingQuantity: startQty,
		StartingAvgPrice: startAvg,
	}

	hasAnyReportField := s.ReportDate != "" || s.IncomeFactor != "" ||
		s.ForeignTaxFactor != "" || s.AdjustmentFactor != "" || s.ReportCurrency != ""
	hasFullReport := s.ReportDate != "" && s.IncomeFactor != "" &&
		s.ForeignTaxFactor != "" && s.AdjustmentFactor != "" && s.ReportCurrency != ""

	if hasAnyReportField && !hasFullReport {
		return nil, fmt.Errorf(
			"the OeKB report date, the three factors and the report currency must be given together")
	}
	if secType == kest.PlainStock && hasAnyReportField {
		return nil, fmt.Errorf("OeKB report fields are not valid for a plain stock")
	}
	if secType == kest.AccumulatingFund && !hasFullReport {
		return nil, fmt.Errorf("an accumulating fund requires the OeKB report fields")
	}

	if hasFullReport {
		reportDate, err := parseDate("oekb_report_date", s.ReportDate)
		if err != nil {
			return nil, err
		}
		income, err := parseDecimal("oekb_distribution_equivalent_income_factor", s.IncomeFactor)
		if err != nil {
			return nil, err
		}
		foreignTax, err := parseDecimal("oekb_taxes_paid_abroad_factor", s.ForeignTaxFactor)
		if err != nil {
			return nil, err
		}
		adjustment, err := parseDecimal("oekb_adjustment_factor", s.AdjustmentFactor)
		if err != nil {
			return nil, err
		}
		cfg.Report = &kest.FundReport{
			Date:             reportDate,
			IncomeFactor:     income,
			ForeignTaxFactor: foreignTax,
			AdjustmentFactor: adjustment,
			Currency:         kest.Currency(strings.ToUpper(strings.TrimSpace(s.ReportCurrency))),
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseSecurityType(data string) (kest.SecurityType, error) {
	switch strings.TrimSpace(strings.ToLower(data)) {
	case "stock":
		return kest.PlainStock, nil
	// accumulating_etf is the legacy spelling from older config files.
	case "accumulating_fund", "accumulating_etf":
		return kest.AccumulatingFund, nil
	default:
		return kest.PlainStock, fmt.Errorf("invalid security type: '%s'", data)
	}
}

func parseDate(field string, data string) (date.Date, error) {
	d, err := date.Parse(date.EuropeanFormat, strings.TrimSpace(data))
	if err != nil {
		return date.Date{}, fmt.Errorf("%s: %v", field, err)
	}
	return d, nil
}

func parseDecimal(field string, data string) (decimal.Decimal, error) {
	if strings.TrimSpace(data) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(data))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %v", field, err)
	}
	return d, nil
}
