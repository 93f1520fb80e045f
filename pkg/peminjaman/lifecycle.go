package peminjaman

import (
	"context"
	"fmt"
	"strings"
	"time"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/cache"
	"peminjaman_alat/pkg/denda"
	"peminjaman_alat/pkg/models"
	"peminjaman_alat/pkg/repository"
)

type CreateInput struct {
	AlatID         uint
	TanggalPinjam  time.Time
	TanggalKembali time.Time
	Jumlah         int
	Catatan        string
}

// CreateLoan records a pending request by borrower. Stock is untouched until approval.
func (s *Service) CreateLoan(ctx context.Context, borrower Actor, in CreateInput) (*models.Peminjaman, error) {
	if in.AlatID == 0 || in.TanggalPinjam.IsZero() || in.TanggalKembali.IsZero() {
		return nil, apperr.Validation("alat, tanggal_pinjam and tanggal_kembali are required")
	}
	if in.Jumlah < 1 {
		return nil, apperr.Validation("jumlah must be at least 1")
	}

	a, err := s.store.GetAlat(ctx, in.AlatID)
	if err != nil {
		return nil, err
	}
	if avail := availabilityOf(a, in.Jumlah); !avail.Available {
		return nil, apperr.Availability("%s", avail.Reason)
	}

	start := denda.DateOnly(in.TanggalPinjam, s.loc)
	end := denda.DateOnly(in.TanggalKembali, s.loc)
	if start.Before(s.today()) {
		return nil, apperr.Validation("tanggal_pinjam must not be in the past")
	}
	if end.Before(start) {
		return nil, apperr.Validation("tanggal_kembali must not be before tanggal_pinjam")
	}
	if span := denda.DaysBetween(start, end, s.loc); span > s.maxLoanDays {
		return nil, apperr.Validation("loan span of %d days exceeds the maximum of %d days", span, s.maxLoanDays)
	}

	loan := &models.Peminjaman{
		UserID:                borrower.ID,
		AlatID:                in.AlatID,
		Jumlah:                in.Jumlah,
		TanggalPinjam:         start,
		TanggalKembali:        end,
		Status:                models.StatusPending,
		KondisiPengembalian:   models.KembaliNormal,
		StatusInsiden:         models.InsidenNone,
		StatusPembayaranDenda: models.BayarBelum,
		Catatan:               strings.TrimSpace(in.Catatan),
	}
	if err := s.store.CreatePeminjaman(ctx, loan); err != nil {
		return nil, err
	}

	s.committed(ctx, &borrower,
		fmt.Sprintf("Mengajukan peminjaman #%d: %d unit alat #%d (%s s/d %s)",
			loan.ID, loan.Jumlah, loan.AlatID, start.Format("2006-01-02"), end.Format("2006-01-02")),
		allTopics...)
	return loan, nil
}

// Approve moves a pending loan to disetujui and takes its units from stock.
// When stock has run short since the request, the loan is rejected instead
// and an availability error is returned.
func (s *Service) Approve(ctx context.Context, loanID uint, approver Actor) (*models.Peminjaman, error) {
	if err := requireStaff(approver); err != nil {
		return nil, err
	}

	var (
		loan      *models.Peminjaman
		shortfall *apperr.Error
	)
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.LockPeminjaman(ctx, loanID)
		if err != nil {
			return err
		}
		if p.Status != models.StatusPending {
			return apperr.InvalidState("peminjaman %d already processed (status: %s)", p.ID, p.Status)
		}
		a, err := tx.LockAlat(ctx, p.AlatID)
		if err != nil {
			return err
		}

		p.DiprosesOleh = &approver.ID
		if a.Stok < p.Jumlah {
			p.Status = models.StatusDitolak
			shortfall = apperr.Availability("insufficient stock: available %d, requested %d; peminjaman %d rejected",
				a.Stok, p.Jumlah, p.ID)
			loan = p
			return tx.SavePeminjaman(ctx, p)
		}

		p.Status = models.StatusDisetujui
		takeStock(a, p.Jumlah)
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

	if shortfall != nil {
		s.committed(ctx, &approver,
			fmt.Sprintf("Peminjaman #%d ditolak otomatis: stok tidak mencukupi", loan.ID),
			cache.TopicLoanList, cache.TopicDashboardStats)
		return nil, shortfall
	}

	s.committed(ctx, &approver,
		fmt.Sprintf("Menyetujui peminjaman #%d (%d unit alat #%d)", loan.ID, loan.Jumlah, loan.AlatID),
		allTopics...)
	return loan, nil
}

// Reject closes a pending loan without touching stock.
func (s *Service) Reject(ctx context.Context, loanID uint, approver Actor) (*models.Peminjaman, error) {
	if err := requireStaff(approver); err != nil {
		return nil, err
	}
	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if p.Status != models.StatusPending {
			return apperr.InvalidState("peminjaman %d already processed (status: %s)", p.ID, p.Status)
		}
		p.Status = models.StatusDitolak
		p.DiprosesOleh = &approver.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &approver, fmt.Sprintf("Menolak peminjaman #%d", loan.ID),
		cache.TopicLoanList, cache.TopicDashboardStats)
	return loan, nil
}

// Cancel lets the borrower withdraw a request that is still pending.
func (s *Service) Cancel(ctx context.Context, loanID uint, actor Actor) (*models.Peminjaman, error) {
	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if p.UserID != actor.ID {
			return apperr.Authorization("only the borrower may cancel peminjaman %d", p.ID)
		}
		if p.Status != models.StatusPending {
			return apperr.InvalidState("peminjaman %d can no longer be cancelled (status: %s)", p.ID, p.Status)
		}
		p.Status = models.StatusDibatalkan
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &actor, fmt.Sprintf("Membatalkan peminjaman #%d", loan.ID),
		cache.TopicLoanList, cache.TopicDashboardStats)
	return loan, nil
}

// Handover records that approved units left the storeroom.
func (s *Service) Handover(ctx context.Context, loanID uint, staff Actor) (*models.Peminjaman, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}
	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if p.Status != models.StatusDisetujui {
			return apperr.InvalidState("peminjaman %d is not approved (status: %s)", p.ID, p.Status)
		}
		p.Status = models.StatusDipinjam
		p.DiprosesOleh = &staff.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &staff, fmt.Sprintf("Menyerahkan alat untuk peminjaman #%d", loan.ID),
		cache.TopicLoanList, cache.TopicDashboardStats)
	return loan, nil
}

// transition locks one loan, applies change and saves it in a transaction.
func (s *Service) transition(ctx context.Context, loanID uint, change func(p *models.Peminjaman) error) (*models.Peminjaman, error) {
	var loan *models.Peminjaman
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		p, err := tx.LockPeminjaman(ctx, loanID)
		if err != nil {
			return err
		}
		if err := change(p); err != nil {
			return err
		}
		if err := tx.SavePeminjaman(ctx, p); err != nil {
			return err
		}
		loan = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loan, nil
}
