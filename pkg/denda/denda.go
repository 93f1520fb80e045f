// Package denda computes loan fines. Every function is pure.
package denda

import (
	"time"

	"github.com/shopspring/decimal"

	"peminjaman_alat/pkg/models"
)

const day = 24 * time.Hour

// DateOnly truncates t to midnight in loc.
func DateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween counts calendar days from from to to, both taken as dates in loc.
// The result is negative when to is before from.
func DaysBetween(from, to time.Time, loc *time.Location) int {
	a, b := DateOnly(from, loc), DateOnly(to, loc)
	// Compare in UTC so a DST shift in loc cannot stretch a day.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / day)
}

// DaysLate is the number of whole days returned is past due, never negative.
func DaysLate(due, returned time.Time, loc *time.Location) int {
	if d := DaysBetween(due, returned, loc); d > 0 {
		return d
	}
	return 0
}

// OverdueFine is DaysLate(due, returned) times perDay.
func OverdueFine(due, returned time.Time, perDay decimal.Decimal, loc *time.Location) decimal.Decimal {
	late := DaysLate(due, returned, loc)
	if late == 0 || !perDay.IsPositive() {
		return decimal.Zero
	}
	return perDay.Mul(decimal.NewFromInt(int64(late)))
}

// IncidentFine returns cost when it is positive and zero otherwise.
func IncidentFine(cost decimal.Decimal) decimal.Decimal {
	if cost.IsPositive() {
		return cost
	}
	return decimal.Zero
}

func TotalFine(overdue, incident decimal.Decimal) decimal.Decimal {
	return overdue.Add(incident)
}

// IncidentStatus closes zero-cost incidents immediately.
func IncidentStatus(kondisi models.KondisiPengembalian, incident decimal.Decimal) models.StatusInsiden {
	switch {
	case kondisi == models.KembaliNormal:
		return models.InsidenNone
	case incident.IsPositive():
		return models.InsidenDilaporkan
	default:
		return models.InsidenSelesai
	}
}

// PaymentStatus is the payment sub-state right after a return.
func PaymentStatus(total decimal.Decimal) models.StatusPembayaran {
	if total.IsPositive() {
		return models.BayarBelum
	}
	return models.BayarLunas
}

// Input holds everything a return needs to price its fines.
type Input struct {
	// StoredOverdue is a previously computed overdue fine; when positive it is reused as is.
	StoredOverdue decimal.Decimal
	Due           time.Time
	Returned      time.Time
	PerDay        decimal.Decimal
	Kondisi       models.KondisiPengembalian
	IncidentCost  decimal.Decimal
	Location      *time.Location
}

// Breakdown is the full fine computation for one return.
type Breakdown struct {
	Terlambat     decimal.Decimal
	Insiden       decimal.Decimal
	Total         decimal.Decimal
	StatusInsiden models.StatusInsiden
	Pembayaran    models.StatusPembayaran
}

func Compute(in Input) Breakdown {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}

	overdue := in.StoredOverdue
	if !overdue.IsPositive() {
		overdue = OverdueFine(in.Due, in.Returned, in.PerDay, loc)
	}

	incident := decimal.Zero
	if in.Kondisi != models.KembaliNormal {
		incident = IncidentFine(in.IncidentCost)
	}

	total := TotalFine(overdue, incident)
	return Breakdown{
		Terlambat:     overdue,
		Insiden:       incident,
		Total:         total,
		StatusInsiden: IncidentStatus(in.Kondisi, incident),
		Pembayaran:    PaymentStatus(total),
	}
}
