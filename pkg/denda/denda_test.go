package denda

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"peminjaman_alat/pkg/models"
)

func date(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOverdueFine(t *testing.T) {
	rate := decimal.NewFromInt(5000)
	tests := []struct {
		name     string
		due      time.Time
		returned time.Time
		expected int64
	}{
		{name: "returned three days late", due: date("2024-01-10"), returned: date("2024-01-13"), expected: 15000},
		{name: "returned on due date", due: date("2024-01-10"), returned: date("2024-01-10"), expected: 0},
		{name: "returned early", due: date("2024-01-10"), returned: date("2024-01-02"), expected: 0},
		{name: "time of day ignored", due: date("2024-01-10").Add(23 * time.Hour), returned: date("2024-01-11").Add(time.Minute), expected: 5000},
		{name: "across month end", due: date("2024-01-30"), returned: date("2024-02-02"), expected: 15000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverdueFine(tt.due, tt.returned, rate, time.UTC)
			assert.True(t, got.Equal(decimal.NewFromInt(tt.expected)), "got %s", got)
		})
	}
}

func TestOverdueFineMonotonic(t *testing.T) {
	rate := decimal.NewFromInt(2500)
	due := date("2024-03-01")
	prev := decimal.Zero
	for offset := -10; offset <= 30; offset++ {
		got := OverdueFine(due, due.AddDate(0, 0, offset), rate, time.UTC)
		assert.True(t, got.GreaterThanOrEqual(prev), "offset %d decreased fine", offset)
		if offset <= 0 {
			assert.True(t, got.IsZero(), "offset %d should be free", offset)
		}
		prev = got
	}
}

func TestOverdueFineZeroRate(t *testing.T) {
	got := OverdueFine(date("2024-01-10"), date("2024-01-20"), decimal.Zero, time.UTC)
	assert.True(t, got.IsZero())
}

func TestDaysBetweenUsesLocation(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	// 2024-01-09 18:00 UTC is already 2024-01-10 in Jakarta.
	from := time.Date(2024, 1, 9, 18, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 12, 1, 0, 0, 0, jakarta)

	assert.Equal(t, 2, DaysBetween(from, to, jakarta))
	assert.Equal(t, -2, DaysBetween(to, from, jakarta))
	assert.Equal(t, 0, DaysLate(to, from, jakarta))
}

func TestIncidentFine(t *testing.T) {
	assert.True(t, IncidentFine(decimal.NewFromInt(20000)).Equal(decimal.NewFromInt(20000)))
	assert.True(t, IncidentFine(decimal.NewFromInt(-5)).IsZero())
	assert.True(t, IncidentFine(decimal.Zero).IsZero())
}

func TestIncidentStatus(t *testing.T) {
	assert.Equal(t, models.InsidenNone, IncidentStatus(models.KembaliNormal, decimal.NewFromInt(100)))
	assert.Equal(t, models.InsidenDilaporkan, IncidentStatus(models.KembaliRusak, decimal.NewFromInt(100)))
	assert.Equal(t, models.InsidenSelesai, IncidentStatus(models.KembaliHilang, decimal.Zero))
}

func TestComputeDamagedReturn(t *testing.T) {
	b := Compute(Input{
		Due:          date("2024-01-10"),
		Returned:     date("2024-01-10"),
		PerDay:       decimal.NewFromInt(5000),
		Kondisi:      models.KembaliRusak,
		IncidentCost: decimal.NewFromInt(20000),
		Location:     time.UTC,
	})

	assert.True(t, b.Terlambat.IsZero())
	assert.True(t, b.Insiden.Equal(decimal.NewFromInt(20000)))
	assert.True(t, b.Total.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, models.InsidenDilaporkan, b.StatusInsiden)
	assert.Equal(t, models.BayarBelum, b.Pembayaran)
}

func TestComputeIgnoresCostForNormalReturn(t *testing.T) {
	b := Compute(Input{
		Due:          date("2024-01-10"),
		Returned:     date("2024-01-09"),
		PerDay:       decimal.NewFromInt(5000),
		Kondisi:      models.KembaliNormal,
		IncidentCost: decimal.NewFromInt(99000),
		Location:     time.UTC,
	})

	assert.True(t, b.Total.IsZero())
	assert.Equal(t, models.InsidenNone, b.StatusInsiden)
	assert.Equal(t, models.BayarLunas, b.Pembayaran)
}

func TestComputeReusesStoredOverdue(t *testing.T) {
	b := Compute(Input{
		StoredOverdue: decimal.NewFromInt(7000),
		Due:           date("2024-01-10"),
		Returned:      date("2024-01-20"),
		PerDay:        decimal.NewFromInt(5000),
		Kondisi:       models.KembaliNormal,
		Location:      time.UTC,
	})

	assert.True(t, b.Terlambat.Equal(decimal.NewFromInt(7000)))
	assert.True(t, b.Total.Equal(b.Terlambat.Add(b.Insiden)))
}
