package peminjaman

import "peminjaman_alat/pkg/models"

// takeStock applies an approval to a. The caller has checked a.Stok >= jumlah.
func takeStock(a *models.Alat, jumlah int) {
	a.Stok -= jumlah
	if a.Stok == 0 {
		a.Status = models.AlatDipinjam
	}
}

// restoreStock applies a return in the given condition to a.
func restoreStock(a *models.Alat, jumlah int, kondisi models.KondisiPengembalian) {
	switch kondisi {
	case models.KembaliHilang:
		if a.Stok > 0 {
			a.Status = models.AlatTersedia
		} else {
			a.Status = models.AlatMaintenance
		}
	case models.KembaliRusak:
		a.Stok += jumlah
		a.Status = models.AlatMaintenance
		if a.Kondisi != models.KondisiRusakBerat {
			a.Kondisi = models.KondisiRusakRingan
		}
	default:
		a.Stok += jumlah
		if a.Stok > 0 {
			a.Status = models.AlatTersedia
		}
	}
}
