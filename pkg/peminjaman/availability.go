package peminjaman

import (
	"context"
	"errors"
	"fmt"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
)

type Availability struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
	Stok      int    `json:"stok"`
}

// CheckAvailability answers whether jumlah units of alat can be requested now.
// It only reads; approval re-checks stock under a row lock.
func (s *Service) CheckAvailability(ctx context.Context, alatID uint, jumlah int) (Availability, error) {
	a, err := s.store.GetAlat(ctx, alatID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Availability{Reason: fmt.Sprintf("alat %d not found", alatID)}, nil
		}
		return Availability{}, err
	}
	return availabilityOf(a, jumlah), nil
}

func availabilityOf(a *models.Alat, jumlah int) Availability {
	res := Availability{Stok: a.Stok}
	switch {
	case a.Status != models.AlatTersedia:
		res.Reason = fmt.Sprintf("alat unavailable (status: %s)", a.Status)
	case a.Stok <= 0:
		res.Reason = "stock empty"
	case a.Stok < jumlah:
		res.Reason = fmt.Sprintf("insufficient stock: available %d, requested %d", a.Stok, jumlah)
	default:
		res.Available = true
	}
	return res
}
