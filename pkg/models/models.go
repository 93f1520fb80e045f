package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatusAlat string

const (
	AlatTersedia    StatusAlat = "tersedia"
	AlatDipinjam    StatusAlat = "dipinjam"
	AlatMaintenance StatusAlat = "maintenance"
)

type KondisiAlat string

const (
	KondisiBaik        KondisiAlat = "baik"
	KondisiRusakRingan KondisiAlat = "rusak_ringan"
	KondisiRusakBerat  KondisiAlat = "rusak_berat"
)

type StatusPeminjaman string

const (
	StatusPending      StatusPeminjaman = "pending"
	StatusDisetujui    StatusPeminjaman = "disetujui"
	StatusDipinjam     StatusPeminjaman = "dipinjam"
	StatusDikembalikan StatusPeminjaman = "dikembalikan"
	StatusDitolak      StatusPeminjaman = "ditolak"
	StatusDibatalkan   StatusPeminjaman = "dibatalkan"
)

// Terminal reports whether no further main-status transition is allowed.
func (s StatusPeminjaman) Terminal() bool {
	return s == StatusDikembalikan || s == StatusDitolak || s == StatusDibatalkan
}

// AllStatusPeminjaman lists every main loan status in lifecycle order.
var AllStatusPeminjaman = []StatusPeminjaman{
	StatusPending, StatusDisetujui, StatusDipinjam, StatusDikembalikan, StatusDitolak, StatusDibatalkan,
}

type KondisiPengembalian string

const (
	KembaliNormal KondisiPengembalian = "normal"
	KembaliRusak  KondisiPengembalian = "rusak"
	KembaliHilang KondisiPengembalian = "hilang"
)

type StatusInsiden string

const (
	InsidenNone       StatusInsiden = "none"
	InsidenDilaporkan StatusInsiden = "dilaporkan"
	InsidenSelesai    StatusInsiden = "selesai"
)

type StatusPembayaran string

const (
	BayarBelum              StatusPembayaran = "belum_bayar"
	BayarMenungguVerifikasi StatusPembayaran = "menunggu_verifikasi"
	BayarLunas              StatusPembayaran = "lunas"
	BayarDitolak            StatusPembayaran = "ditolak"
)

type Alat struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	Nama       string      `gorm:"size:120;not null" json:"nama"`
	KategoriID *uint       `gorm:"index" json:"kategori_id,omitempty"`
	Stok       int         `gorm:"not null;default:0;check:stok >= 0" json:"stok"`
	Status     StatusAlat  `gorm:"size:20;not null;default:'tersedia'" json:"status"`
	Kondisi    KondisiAlat `gorm:"size:20;not null;default:'baik'" json:"kondisi"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

func (Alat) TableName() string { return "alat" }

type Peminjaman struct {
	ID                     uint                `gorm:"primaryKey" json:"id"`
	UserID                 uint                `gorm:"index;not null" json:"user_id"`
	AlatID                 uint                `gorm:"index;not null" json:"alat_id"`
	Jumlah                 int                 `gorm:"not null;check:jumlah >= 1" json:"jumlah"`
	TanggalPinjam          time.Time           `gorm:"not null" json:"tanggal_pinjam"`
	TanggalKembali         time.Time           `gorm:"not null" json:"tanggal_kembali"`
	TanggalPengembalian    *time.Time          `json:"tanggal_pengembalian,omitempty"`
	Status                 StatusPeminjaman    `gorm:"size:20;not null;index;default:'pending'" json:"status"`
	KondisiPengembalian    KondisiPengembalian `gorm:"size:20;not null;default:'normal'" json:"kondisi_pengembalian"`
	StatusInsiden          StatusInsiden       `gorm:"size:20;not null;default:'none'" json:"status_insiden"`
	DendaTerlambat         decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"denda_terlambat"`
	DendaInsiden           decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"denda_insiden"`
	Denda                  decimal.Decimal     `gorm:"type:decimal(14,2);not null;default:0" json:"denda"`
	StatusPembayaranDenda  StatusPembayaran    `gorm:"size:25;not null;default:'belum_bayar'" json:"status_pembayaran_denda"`
	TanggalPembayaranDenda *time.Time          `json:"tanggal_pembayaran_denda,omitempty"`
	BuktiPembayaran        string              `gorm:"size:255" json:"bukti_pembayaran,omitempty"`
	Catatan                string              `gorm:"type:text" json:"catatan,omitempty"`
	CatatanInsiden         string              `gorm:"type:text" json:"catatan_insiden,omitempty"`
	CatatanVerifikasiDenda string              `gorm:"type:text" json:"catatan_verifikasi_denda,omitempty"`
	DiprosesOleh           *uint               `json:"diproses_oleh,omitempty"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

func (Peminjaman) TableName() string { return "peminjaman" }

var (
	ErrRentangTanggal      = errors.New("tanggal_kembali must not be before tanggal_pinjam")
	ErrTanggalPengembalian = errors.New("tanggal_pengembalian must be set exactly when status is dikembalikan")
)

// BeforeSave keeps the row-level invariants that do not depend on configuration.
func (p *Peminjaman) BeforeSave(tx *gorm.DB) error {
	if p.TanggalKembali.Before(p.TanggalPinjam) {
		return ErrRentangTanggal
	}
	if (p.Status == StatusDikembalikan) != (p.TanggalPengembalian != nil) {
		return ErrTanggalPengembalian
	}
	return nil
}

type LogAktivitas struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Aktivitas string    `gorm:"type:text;not null" json:"aktivitas"`
	CreatedAt time.Time `json:"created_at"`
}

func (LogAktivitas) TableName() string { return "log_aktivitas" }

// All returns every model managed by AutoMigrate.
func All() []interface{} {
	return []interface{}{&Alat{}, &Peminjaman{}, &LogAktivitas{}}
}
