package analytics_test

import (
	"testing"
	"time"

	"github.com/boddenberg/pos-bfa-go/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonth_Prev(t *testing.T) {
	assert.Equal(t, analytics.Month{Year: 2023, Month: time.December}, analytics.Month{Year: 2024, Month: time.January}.Prev())
	assert.Equal(t, analytics.Month{Year: 2024, Month: time.May}, analytics.Month{Year: 2024, Month: time.June}.Prev())
}

func TestMonth_String(t *testing.T) {
	assert.Equal(t, "2024-06", analytics.Month{Year: 2024, Month: time.June}.String())
	assert.Equal(t, "2024-12", analytics.Month{Year: 2024, Month: time.December}.String())
}

func TestNewMonth_Invalid(t *testing.T) {
	_, err := analytics.NewMonth(2024, 13)
	assert.Error(t, err)
	_, err = analytics.NewMonth(2024, 0)
	assert.Error(t, err)
	_, err = analytics.NewMonth(0, 5)
	assert.Error(t, err)
}

func TestDay_PrevCrossesMonthAndYear(t *testing.T) {
	d, err := analytics.ParseDay("2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-12-31", d.Prev().String())

	d, err = analytics.ParseDay("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", d.Prev().String())
}

func TestParseDay_Invalid(t *testing.T) {
	_, err := analytics.ParseDay("2024-13-40")
	assert.Error(t, err)
	_, err = analytics.ParseDay("")
	assert.Error(t, err)
}

func TestDayOf_IgnoresOffset(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	assert.Equal(t, "2024-06-15", analytics.DayOf(time.Date(2024, 6, 15, 1, 0, 0, 0, loc)).String())
}
