package ingest_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestcalc/kestcalc/date"
	"github.com/kestcalc/kestcalc/ingest"
	"github.com/kestcalc/kestcalc/kest"
)

const payloadJson = `[
  {
    "data": {
      "account": {
        "brokerPortfolio": {
          "moreTransactions": {
            "transactions": [
              {
                "id": "t1",
                "type": "SECURITY_TRANSACTION",
                "status": "SETTLED",
                "side": "BUY",
                "securityTransactionType": "SAVINGS_PLAN",
                "lastEventDateTime": "2022-03-07T12:30:01Z",
                "isin": "IE00B4L5Y983",
                "quantity": 0.635,
                "amount": -50.00,
                "currency": "EUR"
              },
              {
                "id": "t2",
                "type": "SECURITY_TRANSACTION",
                "status": "SETTLED",
                "side": "SELL",
                "securityTransactionType": "SINGLE",
                "lastEventDateTime": "2022-06-01T09:15:42Z",
                "isin": "US0378331005",
                "quantity": 4,
                "amount": 400.00,
                "currency": "EUR"
              },
              {
                "id": "t3",
                "type": "SECURITY_TRANSACTION",
                "status": "CANCELLED",
                "side": "BUY",
                "securityTransactionType": "SINGLE",
                "lastEventDateTime": "2022-06-02T10:00:00Z",
                "isin": "US0378331005",
                "quantity": 1,
                "amount": 100.00,
                "currency": "EUR"
              },
              {
                "id": "t4",
                "type": "CASH_TRANSACTION",
                "status": "SETTLED",
                "lastEventDateTime": "2022-06-03T10:00:00Z",
                "amount": 500.00,
                "currency": "EUR"
              }
            ]
          }
        }
      }
    }
  }
]`

func TestParsePayload(t *testing.T) {
	rq := require.New(t)

	records, skipped, err := ingest.ParsePayload(strings.NewReader(payloadJson), &testErrPrinter{})
	rq.NoError(err)
	rq.Equal(uint32(2), skipped)
	rq.Len(records, 2)

	plan := records[0]
	rq.Equal(date.New(2022, time.March, 7), plan.Date)
	rq.Equal("12:30:01", plan.Time)
	rq.Equal(kest.SAVINGS_PLAN, plan.Type)
	rq.Equal("IE00B4L5Y983", plan.ISIN)
	rq.Equal("0.635", plan.Quantity.String())
	// Amounts are normalized to magnitudes; direction lives in the type.
	rq.Equal("50", plan.GrossAmount.String())
	rq.Equal(kest.EUR, plan.Currency)
	rq.Equal("Executed", plan.Status)

	sell := records[1]
	rq.Equal(kest.SELL_RECORD, sell.Type)
	rq.Equal("4", sell.Quantity.String())
	rq.Equal(uint32(1), sell.ReadIndex)
}

func TestParsePayloadRejectsGarbage(t *testing.T) {
	rq := require.New(t)

	_, _, err := ingest.ParsePayload(strings.NewReader("{}"), &testErrPrinter{})
	rq.Error(err)

	_, _, err = ingest.ParsePayload(strings.NewReader("[]"), &testErrPrinter{})
	rq.Error(err)
}

func TestWriteRecordsCsvRoundTrip(t *testing.T) {
	rq := require.New(t)

	records, _, err := ingest.ParsePayload(strings.NewReader(payloadJson), &testErrPrinter{})
	rq.NoError(err)

	var sb strings.Builder
	rq.NoError(ingest.WriteRecordsCsv(&sb, records))
	out := sb.String()

	lines := strings.Split(strings.TrimSpace(out), "\n")
	rq.Len(lines, 3)
	rq.True(strings.HasPrefix(lines[0], "date;time;status;"))
	// Newest first, like the broker's own export.
	rq.True(strings.HasPrefix(lines[1], "2022-06-01;"), "got %q", lines[1])
	rq.True(strings.HasPrefix(lines[2], "2022-03-07;"), "got %q", lines[2])
	rq.Contains(lines[2], "0,635")
	rq.Contains(lines[2], ";50;")

	// The converted output must parse back into the same trades.
	reparsed, skipped, err := ingest.ParseRecordsCsv(strings.NewReader(out), "converted", &testErrPrinter{})
	rq.NoError(err)
	rq.Zero(skipped)
	rq.Len(reparsed, 2)
	rq.Equal(kest.SELL_RECORD, reparsed[0].Type)
	rq.True(reparsed[1].Quantity.Equal(records[0].Quantity))
}
