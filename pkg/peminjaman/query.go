package peminjaman

import (
	"context"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
	"peminjaman_alat/pkg/repository"
)

// GetLoan returns one loan. Borrowers only see their own.
func (s *Service) GetLoan(ctx context.Context, loanID uint, actor Actor) (*models.Peminjaman, error) {
	p, err := s.store.GetPeminjaman(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && p.UserID != actor.ID {
		return nil, apperr.Authorization("peminjaman %d belongs to another user", loanID)
	}
	return p, nil
}

// ListLoans pages through loans. For borrowers the filter is pinned to their own id.
func (s *Service) ListLoans(ctx context.Context, actor Actor, f repository.PeminjamanFilter) ([]models.Peminjaman, int64, error) {
	if !actor.IsStaff() {
		id := actor.ID
		f.UserID = &id
	}
	return s.store.ListPeminjaman(ctx, f)
}

func (s *Service) GetAlat(ctx context.Context, alatID uint) (*models.Alat, error) {
	return s.store.GetAlat(ctx, alatID)
}

func (s *Service) ListAlat(ctx context.Context, f repository.AlatFilter) ([]models.Alat, int64, error) {
	return s.store.ListAlat(ctx, f)
}

type Stats struct {
	PerStatus     map[models.StatusPeminjaman]int64 `json:"per_status"`
	TotalLoans    int64                             `json:"total_peminjaman"`
	TotalAlat     int64                             `json:"total_alat"`
	AlatTersedia  int64                             `json:"alat_tersedia"`
	MenungguBayar int64                             `json:"menunggu_verifikasi_denda"`
}

// DashboardStats summarises loans per status and the equipment on hand. Staff only.
func (s *Service) DashboardStats(ctx context.Context, actor Actor) (*Stats, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}

	counts, err := s.store.CountPeminjamanByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{PerStatus: counts}
	for _, n := range counts {
		stats.TotalLoans += n
	}

	one := repository.Page{Page: 1, Size: 1}
	if _, stats.TotalAlat, err = s.store.ListAlat(ctx, repository.AlatFilter{Page: one}); err != nil {
		return nil, err
	}
	if _, stats.AlatTersedia, err = s.store.ListAlat(ctx, repository.AlatFilter{Page: one, OnlyAvailable: true}); err != nil {
		return nil, err
	}

	_, stats.MenungguBayar, err = s.store.ListPeminjaman(ctx, repository.PeminjamanFilter{
		Page:   one,
		Status: []models.StatusPeminjaman{models.StatusDikembalikan},
		Bayar:  []models.StatusPembayaran{models.BayarMenungguVerifikasi},
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
