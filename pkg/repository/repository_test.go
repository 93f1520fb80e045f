package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newLoan(userID, alatID uint, status models.StatusPeminjaman) *models.Peminjaman {
	start := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	return &models.Peminjaman{
		UserID:                userID,
		AlatID:                alatID,
		Jumlah:                1,
		TanggalPinjam:         start,
		TanggalKembali:        start.AddDate(0, 0, 2),
		Status:                status,
		KondisiPengembalian:   models.KembaliNormal,
		StatusInsiden:         models.InsidenNone,
		StatusPembayaranDenda: models.BayarBelum,
	}
}

func TestGetAlatNotFound(t *testing.T) {
	repo := New(setupTestDB(t))

	_, err := repo.GetAlat(context.Background(), 42)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestLockAlatReadsRowInsideTransaction(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()
	alat := models.Alat{Nama: "Proyektor", Stok: 2, Status: models.AlatTersedia, Kondisi: models.KondisiBaik}
	require.NoError(t, db.Create(&alat).Error)

	err := repo.Transaction(ctx, func(tx Store) error {
		locked, err := tx.LockAlat(ctx, alat.ID)
		if err != nil {
			return err
		}
		locked.Stok--
		return tx.SaveAlat(ctx, locked)
	})
	require.NoError(t, err)

	got, err := repo.GetAlat(ctx, alat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stok)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	ctx := context.Background()
	alat := models.Alat{Nama: "Kamera", Stok: 1, Status: models.AlatTersedia, Kondisi: models.KondisiBaik}
	require.NoError(t, db.Create(&alat).Error)

	boom := errors.New("boom")
	err := repo.Transaction(ctx, func(tx Store) error {
		locked, err := tx.LockAlat(ctx, alat.ID)
		if err != nil {
			return err
		}
		locked.Stok = 0
		if err := tx.SaveAlat(ctx, locked); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repo.GetAlat(ctx, alat.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Stok)
}

func TestNegativeStockRejectedByConstraint(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	alat := models.Alat{Nama: "Tripod", Stok: 1, Status: models.AlatTersedia, Kondisi: models.KondisiBaik}
	require.NoError(t, db.Create(&alat).Error)

	alat.Stok = -1
	err := repo.SaveAlat(context.Background(), &alat)

	assert.ErrorIs(t, err, apperr.ErrInternal)
}

func TestSavePeminjamanEnforcesReturnDateInvariant(t *testing.T) {
	repo := New(setupTestDB(t))
	ctx := context.Background()
	loan := newLoan(1, 1, models.StatusPending)
	require.NoError(t, repo.CreatePeminjaman(ctx, loan))

	loan.Status = models.StatusDikembalikan
	err := repo.SavePeminjaman(ctx, loan)
	assert.ErrorIs(t, err, models.ErrTanggalPengembalian)

	now := time.Now()
	loan.TanggalPengembalian = &now
	assert.NoError(t, repo.SavePeminjaman(ctx, loan))
}

func TestCreatePeminjamanRejectsInvertedRange(t *testing.T) {
	repo := New(setupTestDB(t))
	loan := newLoan(1, 1, models.StatusPending)
	loan.TanggalKembali = loan.TanggalPinjam.AddDate(0, 0, -1)

	err := repo.CreatePeminjaman(context.Background(), loan)

	assert.ErrorIs(t, err, models.ErrRentangTanggal)
}

func TestListPeminjamanFilters(t *testing.T) {
	repo := New(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(1, 1, models.StatusPending)))
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(1, 2, models.StatusDitolak)))
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(2, 1, models.StatusPending)))

	user := uint(1)
	items, total, err := repo.ListPeminjaman(ctx, PeminjamanFilter{UserID: &user})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = repo.ListPeminjaman(ctx, PeminjamanFilter{
		Status: []models.StatusPeminjaman{models.StatusPending},
		Page:   Page{Page: 1, Size: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)

	alat := uint(2)
	items, total, err = repo.ListPeminjaman(ctx, PeminjamanFilter{AlatID: &alat})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, models.StatusDitolak, items[0].Status)
}

func TestListAlatOnlyAvailable(t *testing.T) {
	db := setupTestDB(t)
	repo := New(db)
	require.NoError(t, db.Create(&models.Alat{Nama: "A", Stok: 2, Status: models.AlatTersedia, Kondisi: models.KondisiBaik}).Error)
	require.NoError(t, db.Create(&models.Alat{Nama: "B", Stok: 0, Status: models.AlatDipinjam, Kondisi: models.KondisiBaik}).Error)
	require.NoError(t, db.Create(&models.Alat{Nama: "C", Stok: 3, Status: models.AlatMaintenance, Kondisi: models.KondisiRusakRingan}).Error)

	items, total, err := repo.ListAlat(context.Background(), AlatFilter{OnlyAvailable: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "A", items[0].Nama)

	_, total, err = repo.ListAlat(context.Background(), AlatFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
}

func TestCountPeminjamanByStatus(t *testing.T) {
	repo := New(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(1, 1, models.StatusPending)))
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(2, 1, models.StatusPending)))
	require.NoError(t, repo.CreatePeminjaman(ctx, newLoan(3, 1, models.StatusDibatalkan)))

	counts, err := repo.CountPeminjamanByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[models.StatusPending])
	assert.Equal(t, int64(1), counts[models.StatusDibatalkan])
	assert.Equal(t, int64(0), counts[models.StatusDikembalikan])
	assert.Len(t, counts, len(models.AllStatusPeminjaman))
}

func TestPageNormalize(t *testing.T) {
	assert.Equal(t, Page{Page: 1, Size: 10}, Page{}.Normalize())
	assert.Equal(t, Page{Page: 3, Size: 10}, Page{Page: 3, Size: 500}.Normalize())
	assert.Equal(t, 20, Page{Page: 3, Size: 10}.Offset())
}
