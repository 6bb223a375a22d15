package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaiveDateOf(t *testing.T) {
	first := NaiveDateOf(utc(2024, 1, 5, 0, 1, 0), time.UTC)
	last := NaiveDateOf(utc(2024, 1, 5, 23, 59, 0), time.UTC)
	next := NaiveDateOf(utc(2024, 1, 6, 0, 0, 1), time.UTC)

	assert.Equal(t, first, last)
	assert.NotEqual(t, last, next)
	assert.Equal(t, NaiveDate{Year: 2024, Month: time.January, Day: 5}, first)
}

func TestNaiveDateOf_UsesCalendarZone(t *testing.T) {
	ts := utc(2024, 1, 5, 23, 30, 0)
	berlin := time.FixedZone("CET", 3600)

	assert.Equal(t, NaiveDate{2024, time.January, 5}, NaiveDateOf(ts, nil))
	assert.Equal(t, NaiveDate{2024, time.January, 6}, NaiveDateOf(ts, berlin))
}

func TestNaiveDate_Compare(t *testing.T) {
	d := NaiveDate{2024, time.June, 1}
	assert.Equal(t, 0, d.Compare(NaiveDate{2024, time.June, 1}))
	assert.Equal(t, -1, d.Compare(NaiveDate{2024, time.June, 2}))
	assert.Equal(t, -1, d.Compare(NaiveDate{2024, time.July, 1}))
	assert.Equal(t, 1, d.Compare(NaiveDate{2023, time.December, 31}))
}

func TestNaiveDate_TextRoundTrip(t *testing.T) {
	d := NaiveDate{Year: 2024, Month: time.March, Day: 9}
	assert.Equal(t, "2024-03-09", d.String())

	b, err := json.Marshal(map[NaiveDate]int{d: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"2024-03-09":1}`, string(b))

	var back NaiveDate
	require.NoError(t, back.UnmarshalText([]byte("2024-03-09")))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalText([]byte("09/03/2024")))
}

func TestHourKey(t *testing.T) {
	ts := utc(2024, 6, 1, 6, 0, 0)
	k := HourKeyOf(ts.In(time.FixedZone("X", -5*3600)))
	assert.Equal(t, HourKey(1717221600), k)
	assert.Equal(t, ts, k.Time())
}
