package peminjaman

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/denda"
	"peminjaman_alat/pkg/models"
	"peminjaman_alat/pkg/repository"
)

type ReturnInput struct {
	Kondisi        models.KondisiPengembalian
	CatatanInsiden string
	BiayaInsiden   decimal.Decimal
}

// ParseKondisi maps free input to a return condition, defaulting to normal.
func ParseKondisi(s string) models.KondisiPengembalian {
	switch k := models.KondisiPengembalian(strings.ToLower(strings.TrimSpace(s))); k {
	case models.KembaliRusak, models.KembaliHilang:
		return k
	default:
		return models.KembaliNormal
	}
}

// ParseBiaya reads an incident cost; anything unparsable or negative is zero.
func ParseBiaya(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// ReturnItem closes an active loan, prices its fines and puts stock back
// according to the returned condition.
func (s *Service) ReturnItem(ctx context.Context, loanID uint, staff Actor, in ReturnInput) (*models.Peminjaman, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}

	kondisi := ParseKondisi(string(in.Kondisi))
	catatan := strings.TrimSpace(in.CatatanInsiden)
	biaya := in.BiayaInsiden
	if biaya.IsNegative() {
		biaya = decimal.Zero
	}

	var loan *models.Peminjaman
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.LockPeminjaman(ctx, loanID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusDisetujui && p.Status != models.StatusDipinjam {
			return apperr.InvalidState("peminjaman %d is not on loan (status: %s)", p.ID, p.Status)
		}
		if kondisi != models.KembaliNormal && catatan == "" {
			return apperr.Validation("catatan_insiden is required when kondisi is %s", kondisi)
		}
		a, err := tx.LockAlat(ctx, p.AlatID)
		if err != nil {
			return err
		}

		today := s.today()
		fine := denda.Compute(denda.Input{
			StoredOverdue: p.DendaTerlambat,
			Due:           p.TanggalKembali,
			Returned:      today,
			PerDay:        s.finePerDay,
			Kondisi:       kondisi,
			IncidentCost:  biaya,
			Location:      s.loc,
		})

		p.Status = models.StatusDikembalikan
		p.TanggalPengembalian = &today
		p.KondisiPengembalian = kondisi
		p.DendaTerlambat = fine.Terlambat
		p.DendaInsiden = fine.Insiden
		p.Denda = fine.Total
		p.StatusInsiden = fine.StatusInsiden
		p.CatatanInsiden = catatan
		p.StatusPembayaranDenda = fine.Pembayaran
		p.TanggalPembayaranDenda = nil
		if fine.Pembayaran == models.BayarLunas {
			p.TanggalPembayaranDenda = &today
		}
		p.CatatanVerifikasiDenda = ""
		p.DiprosesOleh = &staff.ID

		restoreStock(a, p.Jumlah, kondisi)

		if err := tx.SavePeminjaman(ctx, p); err != nil {
			return err
		}
		if err := tx.SaveAlat(ctx, a); err != nil {
			return err
		}
		loan = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &staff,
		fmt.Sprintf("Memproses pengembalian peminjaman #%d: %d unit, kondisi %s, denda Rp %s",
			loan.ID, loan.Jumlah, loan.KondisiPengembalian, loan.Denda.StringFixed(0)),
		allTopics...)
	return loan, nil
}
