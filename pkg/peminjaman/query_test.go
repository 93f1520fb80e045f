package peminjaman

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
	"peminjaman_alat/pkg/repository"
)

func TestGetLoanVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addAlat(t, "Kamera", 1)
	p := env.request(t, borrower, a.ID, 1, 2)

	got, err := env.svc.GetLoan(ctx, p.ID, borrower)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = env.svc.GetLoan(ctx, p.ID, petugas)
	assert.NoError(t, err)

	_, err = env.svc.GetLoan(ctx, p.ID, stranger)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)
}

func TestListLoansScopesBorrowers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addAlat(t, "Kamera", 5)
	env.request(t, borrower, a.ID, 1, 2)
	env.request(t, borrower, a.ID, 1, 2)
	env.request(t, stranger, a.ID, 1, 2)

	items, total, err := env.svc.ListLoans(ctx, borrower, repository.PeminjamanFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, p := range items {
		assert.Equal(t, borrower.ID, p.UserID)
	}

	other := stranger.ID
	_, total, err = env.svc.ListLoans(ctx, borrower, repository.PeminjamanFilter{UserID: &other})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total, "a borrower cannot widen the filter")

	_, total, err = env.svc.ListLoans(ctx, petugas, repository.PeminjamanFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestDashboardStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addAlat(t, "Kamera", 3)
	env.addAlat(t, "Tripod", 0)

	env.request(t, borrower, a.ID, 1, 2)
	env.approved(t, a.ID, 1, 2)
	fined := env.approved(t, a.ID, 1, 2)
	_, err := env.svc.ReturnItem(ctx, fined.ID, petugas, ReturnInput{
		Kondisi:        models.KembaliRusak,
		CatatanInsiden: "retak",
		BiayaInsiden:   decimal.NewFromInt(10000),
	})
	require.NoError(t, err)
	_, err = env.svc.SubmitFineProof(ctx, fined.ID, borrower, "x.pdf")
	require.NoError(t, err)

	_, err = env.svc.DashboardStats(ctx, borrower)
	assert.ErrorIs(t, err, apperr.ErrAuthorization)

	stats, err := env.svc.DashboardStats(ctx, petugas)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalLoans)
	assert.Equal(t, int64(1), stats.PerStatus[models.StatusPending])
	assert.Equal(t, int64(1), stats.PerStatus[models.StatusDisetujui])
	assert.Equal(t, int64(1), stats.PerStatus[models.StatusDikembalikan])
	assert.Equal(t, int64(0), stats.PerStatus[models.StatusDibatalkan])
	assert.Equal(t, int64(2), stats.TotalAlat)
	assert.Equal(t, int64(0), stats.AlatTersedia, "the damaged kamera is in maintenance")
	assert.Equal(t, int64(1), stats.MenungguBayar)
}
