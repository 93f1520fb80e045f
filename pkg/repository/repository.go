// Package repository persists alat and peminjaman records with gorm.
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
)

// Store is the persistence port of the loan core. Implementations returned by
// Transaction operate inside a single database transaction.
type Store interface {
	GetAlat(ctx context.Context, id uint) (*models.Alat, error)
	LockAlat(ctx context.Context, id uint) (*models.Alat, error)
	SaveAlat(ctx context.Context, a *models.Alat) error
	ListAlat(ctx context.Context, f AlatFilter) ([]models.Alat, int64, error)

	GetPeminjaman(ctx context.Context, id uint) (*models.Peminjaman, error)
	LockPeminjaman(ctx context.Context, id uint) (*models.Peminjaman, error)
	CreatePeminjaman(ctx context.Context, p *models.Peminjaman) error
	SavePeminjaman(ctx context.Context, p *models.Peminjaman) error
	ListPeminjaman(ctx context.Context, f PeminjamanFilter) ([]models.Peminjaman, int64, error)
	CountPeminjamanByStatus(ctx context.Context) (map[models.StatusPeminjaman]int64, error)

	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type Page struct {
	Page int
	Size int
}

// Normalize clamps page to >= 1 and size to 1..100 (default 10).
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Size < 1 || p.Size > 100 {
		p.Size = 10
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.Size
}

type AlatFilter struct {
	Page
	OnlyAvailable bool
}

type PeminjamanFilter struct {
	Page
	UserID *uint
	AlatID *uint
	Status []models.StatusPeminjaman
	Bayar  []models.StatusPembayaran
}

type Gorm struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (r *Gorm) GetAlat(ctx context.Context, id uint) (*models.Alat, error) {
	return r.findAlat(r.db.WithContext(ctx), id)
}

func (r *Gorm) LockAlat(ctx context.Context, id uint) (*models.Alat, error) {
	return r.findAlat(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Gorm) findAlat(q *gorm.DB, id uint) (*models.Alat, error) {
	var a models.Alat
	if err := q.First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("alat %d not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("get alat %d", id), err)
	}
	return &a, nil
}

func (r *Gorm) SaveAlat(ctx context.Context, a *models.Alat) error {
	if err := r.db.WithContext(ctx).Save(a).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("save alat %d", a.ID), err)
	}
	return nil
}

func (r *Gorm) ListAlat(ctx context.Context, f AlatFilter) ([]models.Alat, int64, error) {
	page := f.Page.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Alat{})
	if f.OnlyAvailable {
		query = query.Where("status = ? AND stok > 0", models.AlatTersedia)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count alat", err)
	}

	var items []models.Alat
	err := query.Order("id").Offset(page.Offset()).Limit(page.Size).Find(&items).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list alat", err)
	}
	return items, total, nil
}

func (r *Gorm) GetPeminjaman(ctx context.Context, id uint) (*models.Peminjaman, error) {
	return r.findPeminjaman(r.db.WithContext(ctx), id)
}

func (r *Gorm) LockPeminjaman(ctx context.Context, id uint) (*models.Peminjaman, error) {
	return r.findPeminjaman(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Gorm) findPeminjaman(q *gorm.DB, id uint) (*models.Peminjaman, error) {
	var p models.Peminjaman
	if err := q.First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("peminjaman %d not found", id)
		}
		return nil, apperr.Wrap(apperr.KindInternal, fmt.Sprintf("get peminjaman %d", id), err)
	}
	return &p, nil
}

func (r *Gorm) CreatePeminjaman(ctx context.Context, p *models.Peminjaman) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, "create peminjaman", err)
	}
	return nil
}

func (r *Gorm) SavePeminjaman(ctx context.Context, p *models.Peminjaman) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		return apperr.Wrap(apperr.KindInternal, fmt.Sprintf("save peminjaman %d", p.ID), err)
	}
	return nil
}

func (r *Gorm) ListPeminjaman(ctx context.Context, f PeminjamanFilter) ([]models.Peminjaman, int64, error) {
	page := f.Page.Normalize()
	query := r.db.WithContext(ctx).Model(&models.Peminjaman{})
	if f.UserID != nil {
		query = query.Where("user_id = ?", *f.UserID)
	}
	if f.AlatID != nil {
		query = query.Where("alat_id = ?", *f.AlatID)
	}
	if len(f.Status) > 0 {
		query = query.Where("status IN ?", f.Status)
	}
	if len(f.Bayar) > 0 {
		query = query.Where("status_pembayaran_denda IN ?", f.Bayar)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "count peminjaman", err)
	}

	var items []models.Peminjaman
	err := query.Order("created_at DESC, id DESC").Offset(page.Offset()).Limit(page.Size).Find(&items).Error
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.KindInternal, "list peminjaman", err)
	}
	return items, total, nil
}

func (r *Gorm) CountPeminjamanByStatus(ctx context.Context) (map[models.StatusPeminjaman]int64, error) {
	var rows []struct {
		Status models.StatusPeminjaman
		Total  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Peminjaman{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "count peminjaman by status", err)
	}

	counts := make(map[models.StatusPeminjaman]int64, len(models.AllStatusPeminjaman))
	for _, s := range models.AllStatusPeminjaman {
		counts[s] = 0
	}
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// Transaction runs fn inside a database transaction. The Store passed to fn
// must be used for every read and write that belongs to the unit.
func (r *Gorm) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}
