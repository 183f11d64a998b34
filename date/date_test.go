package date_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestcalc/kestcalc/date"
)

func TestParseFormats(t *testing.T) {
	rq := require.New(t)

	d, err := date.Parse(date.DefaultFormat, "2022-07-15")
	rq.NoError(err)
	rq.Equal(date.New(2022, time.July, 15), d)

	d, err = date.Parse(date.EuropeanFormat, "15/07/2022")
	rq.NoError(err)
	rq.Equal(date.New(2022, time.July, 15), d)

	_, err = date.Parse(date.EuropeanFormat, "2022-07-15")
	rq.Error(err)
}

func TestOrderingAndWithin(t *testing.T) {
	rq := require.New(t)

	start := date.New(2022, time.January, 1)
	end := date.New(2022, time.December, 31)
	mid := date.New(2022, time.July, 15)

	rq.True(mid.After(start))
	rq.True(mid.Before(end))
	rq.True(mid.Within(start, end))
	rq.True(start.Within(start, end))
	rq.True(end.Within(start, end))
	rq.False(start.AddDays(-1).Within(start, end))
	rq.False(end.AddDays(1).Within(start, end))
}

func TestAddDays(t *testing.T) {
	rq := require.New(t)

	d := date.New(2022, time.December, 31)
	rq.Equal(date.New(2023, time.January, 1), d.AddDays(1))
	rq.Equal(date.New(2022, time.December, 24), d.AddDays(-7))
}

func TestStringAndZero(t *testing.T) {
	rq := require.New(t)

	rq.Equal("2022-07-05", date.New(2022, time.July, 5).String())
	rq.True(date.Date{}.IsZero())
	rq.False(date.New(2022, time.July, 5).IsZero())
}
