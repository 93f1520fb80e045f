package peminjaman

import (
	"context"
	"fmt"
	"log"
	"strings"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/cache"
	"peminjaman_alat/pkg/models"
)

const cashNotePrefix = "[Tunai] "

var paymentTopics = []cache.Topic{cache.TopicLoanList, cache.TopicDashboardStats}

// finePayable guards every payment action: the loan is returned and owes money.
func finePayable(p *models.Peminjaman) error {
	if p.Status != models.StatusDikembalikan {
		return apperr.InvalidState("peminjaman %d has not been returned (status: %s)", p.ID, p.Status)
	}
	if !p.Denda.IsPositive() {
		return apperr.InvalidState("peminjaman %d has no denda", p.ID)
	}
	return nil
}

// SubmitFineProof attaches a payment proof uploaded by the borrower and puts
// the fine up for verification. A superseded proof file is removed after commit.
func (s *Service) SubmitFineProof(ctx context.Context, loanID uint, borrower Actor, proofPath string) (*models.Peminjaman, error) {
	proofPath = strings.TrimSpace(proofPath)

	var previous string
	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if p.UserID != borrower.ID {
			return apperr.Authorization("only the borrower may pay denda for peminjaman %d", p.ID)
		}
		if err := finePayable(p); err != nil {
			return err
		}
		if p.StatusPembayaranDenda != models.BayarBelum && p.StatusPembayaranDenda != models.BayarDitolak {
			return apperr.InvalidState("denda for peminjaman %d cannot take a new proof (status: %s)",
				p.ID, p.StatusPembayaranDenda)
		}
		if proofPath == "" {
			return apperr.Validation("bukti_pembayaran is required")
		}

		previous = p.BuktiPembayaran
		now := s.now()
		p.BuktiPembayaran = proofPath
		p.StatusPembayaranDenda = models.BayarMenungguVerifikasi
		p.TanggalPembayaranDenda = &now
		p.CatatanVerifikasiDenda = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != "" && previous != proofPath {
		if err := s.files.Remove(previous); err != nil {
			log.Printf("peminjaman: remove old proof %q: %v", previous, err)
		}
	}
	s.committed(ctx, &borrower,
		fmt.Sprintf("Mengunggah bukti pembayaran denda peminjaman #%d (Rp %s)", loan.ID, loan.Denda.StringFixed(0)),
		paymentTopics...)
	return loan, nil
}

// VerifyFinePayment accepts a submitted proof.
func (s *Service) VerifyFinePayment(ctx context.Context, loanID uint, staff Actor, notes string) (*models.Peminjaman, error) {
	return s.settleProof(ctx, loanID, staff, notes, models.BayarLunas, "Memverifikasi pembayaran denda peminjaman #%d")
}

// RejectFinePayment turns a submitted proof down; the borrower may submit again.
func (s *Service) RejectFinePayment(ctx context.Context, loanID uint, staff Actor, notes string) (*models.Peminjaman, error) {
	return s.settleProof(ctx, loanID, staff, notes, models.BayarDitolak, "Menolak bukti pembayaran denda peminjaman #%d")
}

func (s *Service) settleProof(ctx context.Context, loanID uint, staff Actor, notes string,
	outcome models.StatusPembayaran, aktivitas string) (*models.Peminjaman, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)

	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if err := finePayable(p); err != nil {
			return err
		}
		if p.StatusPembayaranDenda != models.BayarMenungguVerifikasi {
			return apperr.InvalidState("denda for peminjaman %d is not awaiting verification (status: %s)",
				p.ID, p.StatusPembayaranDenda)
		}
		p.StatusPembayaranDenda = outcome
		p.CatatanVerifikasiDenda = notes
		p.DiprosesOleh = &staff.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &staff, fmt.Sprintf(aktivitas, loan.ID), paymentTopics...)
	return loan, nil
}

// MarkFinePaidCash settles a fine paid over the counter.
func (s *Service) MarkFinePaidCash(ctx context.Context, loanID uint, staff Actor, notes string) (*models.Peminjaman, error) {
	if err := requireStaff(staff); err != nil {
		return nil, err
	}
	notes = strings.TrimSpace(notes)

	loan, err := s.transition(ctx, loanID, func(p *models.Peminjaman) error {
		if err := finePayable(p); err != nil {
			return err
		}
		if p.StatusPembayaranDenda == models.BayarLunas {
			return apperr.InvalidState("denda for peminjaman %d is already paid", p.ID)
		}
		if notes == "" {
			return apperr.Validation("catatan is required for a cash payment")
		}
		now := s.now()
		p.StatusPembayaranDenda = models.BayarLunas
		p.TanggalPembayaranDenda = &now
		p.CatatanVerifikasiDenda = cashNotePrefix + notes
		p.DiprosesOleh = &staff.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.committed(ctx, &staff,
		fmt.Sprintf("Mencatat pembayaran tunai denda peminjaman #%d (Rp %s)", loan.ID, loan.Denda.StringFixed(0)),
		paymentTopics...)
	return loan, nil
}
