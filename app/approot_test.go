package app_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kestcalc/kestcalc/app"
	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/fx"
)

const testConfigYaml = `
securities:
  - isin: IE00B4L5Y983
    type: accumulating_fund
    period_start: 01/01/2022
    period_end: 31/12/2022
    starting_quantity: 8.591
    starting_moving_avg_price: 27.927
    oekb_report_date: 15/07/2022
    oekb_distribution_equivalent_income_factor: 0.8649
    oekb_taxes_paid_abroad_factor: 0.0723
    oekb_adjustment_factor: 0.7609
    oekb_report_currency: USD
  - isin: US0378331005
    type: stock
    period_start: 01/01/2022
    period_end: 31/12/2022
    starting_quantity: 10
    starting_moving_avg_price: 85.50
`

const testRecordsCsv = "date;time;status;reference;description;assetType;type;isin;shares;price;amount;fee;tax;currency\n" +
	"2022-06-01;09:15:42;Executed;r1;Apple Inc;Security;Sell;US0378331005;4;100,00;400,00;0,00;0,00;EUR\n" +
	"2022-03-07;12:30:01;Executed;r2;Vanguard FTSE;Security;Savings Plan;IE00B4L5Y983;0,635;78,74;50,00;0,00;0,00;EUR\n" +
	"2022-02-15;12:30:01;Canceled;r3;Apple Inc;Security;Buy;US0378331005;1;100,00;100,00;0,00;0,00;EUR\n"

type errPrinterBuf struct {
	lines []string
}

func (p *errPrinterBuf) Ln(v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintln(v...))
}

func (p *errPrinterBuf) F(format string, v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, v...))
}

func testRatesCache() *fx.MemRatesCache {
	cache := fx.NewMemRatesCache()
	cache.WriteRates("USD-EUR", 2022, []fx.DailyRate{
		{Date: date.New(2022, time.July, 15), Rate: decimal.RequireFromString("0.92")},
	})
	return cache
}

func TestRunKestAppEndToEnd(t *testing.T) {
	rq := require.New(t)

	var out strings.Builder
	err := app.RunKestApp(
		strings.NewReader(testConfigYaml),
		[]app.DescribedReader{{Desc: "records.csv", Reader: strings.NewReader(testRecordsCsv)}},
		app.Options{},
		testRatesCache(),
		&errPrinterBuf{},
		&out)
	rq.NoError(err)

	rendered := out.String()
	rq.Contains(rendered, "Ledger for IE00B4L5Y983")
	rq.Contains(rendered, "Ledger for US0378331005")
	rq.Contains(rendered, "Period Summary")
	// The stock sell realizes 400 - 4*85.50 = 58.00.
	rq.Contains(rendered, "58.00")
	// The fund ledger carries the OeKB adjustment.
	rq.Contains(rendered, "ADJ")
}

func TestRunKestAppContinuesPastFailingSecurity(t *testing.T) {
	rq := require.New(t)

	// The stock oversells; the fund must still render.
	oversellCsv := strings.Replace(testRecordsCsv,
		"Sell;US0378331005;4;", "Sell;US0378331005;40;", 1)

	var out strings.Builder
	ep := &errPrinterBuf{}
	err := app.RunKestApp(
		strings.NewReader(testConfigYaml),
		[]app.DescribedReader{{Desc: "records.csv", Reader: strings.NewReader(oversellCsv)}},
		app.Options{},
		testRatesCache(),
		ep,
		&out)
	rq.Error(err)

	rendered := out.String()
	rq.Contains(rendered, "Ledger for IE00B4L5Y983")
	rq.NotContains(rendered, "Ledger for US0378331005")
	rq.NotEmpty(ep.lines)
}

func TestRunKestAppBadConfig(t *testing.T) {
	rq := require.New(t)

	var out strings.Builder
	err := app.RunKestApp(
		strings.NewReader("securities: []"),
		nil,
		app.Options{},
		testRatesCache(),
		&errPrinterBuf{},
		&out)
	rq.Error(err)
}

func TestRunConvertApp(t *testing.T) {
	rq := require.New(t)

	payload := `[{"data":{"account":{"brokerPortfolio":{"moreTransactions":{"transactions":[
		{"id":"t1","type":"SECURITY_TRANSACTION","status":"SETTLED","side":"BUY",
		 "securityTransactionType":"SINGLE","lastEventDateTime":"2022-06-01T09:15:42Z",
		 "isin":"US0378331005","quantity":4,"amount":400.00,"currency":"EUR"}
	]}}}}}]`

	var out strings.Builder
	err := app.RunConvertApp(strings.NewReader(payload), &out, &errPrinterBuf{})
	rq.NoError(err)
	rq.Contains(out.String(), "2022-06-01;09:15:42;Executed")
	rq.Contains(out.String(), "US0378331005")
}
