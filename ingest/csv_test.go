package ingest_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/ingest"
	"github.com/kestcalc/kestcalc/kest"
)

const csvHeader = "date;time;status;reference;description;assetType;type;isin;shares;price;amount;fee;tax;currency\n"

// testErrPrinter collects everything printed, so tests can assert on
// skip diagnostics.
type testErrPrinter struct {
	lines []string
}

func (p *testErrPrinter) Ln(v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintln(v...))
}

func (p *testErrPrinter) F(format string, v ...interface{}) {
	p.lines = append(p.lines, fmt.Sprintf(format, v...))
}

func TestParseRecordsCsvBasic(t *testing.T) {
	rq := require.New(t)

	csvData := csvHeader +
		"2022-03-07;12:30:01;Executed;ref1;Vanguard FTSE;Security;Savings Plan;IE00B4L5Y983;0,635;78,74;50,00;0,00;0,00;EUR\n" +
		"2022-06-01;09:15:42;Executed;ref2;Apple Inc;Security;Sell;US0378331005;4;100,00;-400,00;1,50;0,00;EUR\n" +
		"2022-09-12;14:02:11;Executed;ref3;Apple Inc;Security;Buy;US0378331005;10;123,45;1.234,50;0,00;0,00;USD\n"

	ep := &testErrPrinter{}
	records, skipped, err := ingest.ParseRecordsCsv(strings.NewReader(csvData), "test.csv", ep)
	rq.NoError(err)
	rq.Zero(skipped)
	rq.Len(records, 3)

	plan := records[0]
	rq.Equal(date.New(2022, time.March, 7), plan.Date)
	rq.Equal("12:30:01", plan.Time)
	rq.Equal(kest.SAVINGS_PLAN, plan.Type)
	rq.Equal("IE00B4L5Y983", plan.ISIN)
	rq.Equal("0.635", plan.Quantity.String())
	rq.Equal("50", plan.GrossAmount.String())
	rq.Equal(kest.EUR, plan.Currency)
	rq.Equal(uint32(0), plan.ReadIndex)

	sell := records[1]
	rq.Equal(kest.SELL_RECORD, sell.Type)
	rq.Equal("-400", sell.GrossAmount.String())
	rq.Equal("1.5", sell.Fee.String())

	buy := records[2]
	rq.Equal(kest.BUY_RECORD, buy.Type)
	rq.Equal("1234.5", buy.GrossAmount.String())
	rq.Equal(kest.USD, buy.Currency)
	rq.Equal(uint32(2), buy.ReadIndex)
}

func TestParseRecordsCsvSkipsNonExecuted(t *testing.T) {
	rq := require.New(t)

	csvData := csvHeader +
		"2022-03-07;12:30:01;Canceled;r;d;Security;Buy;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n" +
		"2022-03-08;12:30:01;Open;r;d;Security;Buy;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n" +
		"2022-03-09;12:30:01;Executed;r;d;Security;Buy;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n"

	records, skipped, err := ingest.ParseRecordsCsv(strings.NewReader(csvData), "test.csv", &testErrPrinter{})
	rq.NoError(err)
	rq.Equal(uint32(2), skipped)
	rq.Len(records, 1)
	rq.Equal(date.New(2022, time.March, 9), records[0].Date)
	// Indexes are assigned to kept records only.
	rq.Equal(uint32(0), records[0].ReadIndex)
}

func TestParseRecordsCsvSkipsMalformedRows(t *testing.T) {
	rq := require.New(t)

	csvData := csvHeader +
		"not-a-date;12:30:01;Executed;r;d;Security;Buy;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n" +
		"2022-03-09;12:30:01;Executed;r;d;Security;Dividend Reinvest;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n" +
		"2022-03-10;12:30:01;Executed;r;d;Security;Buy;US0378331005;1;10,00;10,00;0,00;0,00;EUR\n"

	ep := &testErrPrinter{}
	records, skipped, err := ingest.ParseRecordsCsv(strings.NewReader(csvData), "test.csv", ep)
	rq.NoError(err)
	rq.Equal(uint32(2), skipped)
	rq.Len(records, 1)
	rq.NotEmpty(ep.lines)
}

func TestParseRecordsCsvEmptyFile(t *testing.T) {
	rq := require.New(t)
	_, _, err := ingest.ParseRecordsCsv(strings.NewReader(""), "empty.csv", &testErrPrinter{})
	rq.Error(err)
}

func TestParseEuropeanDecimal(t *testing.T) {
	rq := require.New(t)

	for _, tc := range []struct {
		in   string
		want string
	}{
		{"1.234,56", "1234.56"},
		{"78,74", "78.74"},
		{"-400,00", "-400"},
		{"1234.56", "1234.56"},
		{"0", "0"},
		{"", "0"},
	} {
		got, err := ingest.ParseEuropeanDecimal(tc.in)
		rq.NoError(err, "input %q", tc.in)
		rq.Equal(tc.want, got.String(), "input %q", tc.in)
	}

	_, err := ingest.ParseEuropeanDecimal("abc")
	rq.Error(err)
}
