package main

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"peminjaman_alat/pkg/apperr"
	"peminjaman_alat/pkg/models"
	"peminjaman_alat/pkg/peminjaman"
	"peminjaman_alat/pkg/repository"
)

const dateLayout = "2006-01-02"

var allowedProofExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".pdf": true}

// actorFrom reads the user resolved by the upstream auth layer.
func actorFrom(c *gin.Context) (peminjaman.Actor, bool) {
	rawID := c.GetHeader("X-User-Id")
	if rawID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Id header is required"})
		return peminjaman.Actor{}, false
	}
	id, err := strconv.ParseUint(rawID, 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Id must be a positive number"})
		return peminjaman.Actor{}, false
	}
	role := peminjaman.Role(strings.ToLower(c.GetHeader("X-User-Role")))
	if !role.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-Role must be admin, petugas or peminjam"})
		return peminjaman.Actor{}, false
	}
	return peminjaman.Actor{ID: uint(id), Role: role}, true
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func pageFrom(c *gin.Context) repository.Page {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	return repository.Page{Page: page, Size: size}.Normalize()
}

func respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("%s %s failed: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(kind.HTTPStatus(), gin.H{"error": apperr.Message(err)})
}

func getAlatList(c *gin.Context) {
	page := pageFrom(c)
	items, total, err := svc.ListAlat(c.Request.Context(), repository.AlatFilter{
		Page:          page,
		OnlyAvailable: c.Query("tersedia") == "true",
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page.Page,
		"pageSize":      page.Size,
		"totalElements": total,
		"items":         items,
	})
}

func getAlat(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	alat, err := svc.GetAlat(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, alat)
}

func getKetersediaan(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	jumlah, err := strconv.Atoi(c.DefaultQuery("jumlah", "1"))
	if err != nil || jumlah < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "jumlah must be a positive number"})
		return
	}
	avail, err := svc.CheckAvailability(c.Request.Context(), id, jumlah)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, avail)
}

func getPeminjamanList(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page := pageFrom(c)
	filter := repository.PeminjamanFilter{Page: page}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Status = append(filter.Status, models.StatusPeminjaman(strings.TrimSpace(s)))
		}
	}
	if raw := c.Query("alat_id"); raw != "" {
		alatID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alat_id"})
			return
		}
		id := uint(alatID)
		filter.AlatID = &id
	}

	items, total, err := svc.ListLoans(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"page":          page.Page,
		"pageSize":      page.Size,
		"totalElements": total,
		"items":         items,
	})
}

func getPeminjaman(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	loan, err := svc.GetLoan(c.Request.Context(), id, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

func createPeminjaman(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var request struct {
		AlatID         uint   `json:"alat_id" binding:"required"`
		TanggalPinjam  string `json:"tanggal_pinjam" binding:"required"`
		TanggalKembali string `json:"tanggal_kembali" binding:"required"`
		Jumlah         int    `json:"jumlah" binding:"required"`
		Catatan        string `json:"catatan"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	start, err := time.ParseInLocation(dateLayout, request.TanggalPinjam, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format for tanggal_pinjam"})
		return
	}
	end, err := time.ParseInLocation(dateLayout, request.TanggalKembali, loc)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date format for tanggal_kembali"})
		return
	}

	loan, err := svc.CreateLoan(c.Request.Context(), actor, peminjaman.CreateInput{
		AlatID:         request.AlatID,
		TanggalPinjam:  start,
		TanggalKembali: end,
		Jumlah:         request.Jumlah,
		Catatan:        request.Catatan,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

type loanAction func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error)

// withLoan resolves the actor and the :id param and renders the action result.
func withLoan(action loanAction) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorFrom(c)
		if !ok {
			return
		}
		id, ok := idParam(c)
		if !ok {
			return
		}
		loan, err := action(c, id, actor)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, loan)
	}
}

var approvePeminjaman = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	return svc.Approve(c.Request.Context(), id, actor)
})

var rejectPeminjaman = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	return svc.Reject(c.Request.Context(), id, actor)
})

var cancelPeminjaman = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	return svc.Cancel(c.Request.Context(), id, actor)
})

var handoverPeminjaman = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	return svc.Handover(c.Request.Context(), id, actor)
})

var returnPeminjaman = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	var request struct {
		Kondisi        string          `json:"kondisi"`
		CatatanInsiden string          `json:"catatan_insiden"`
		BiayaInsiden   json.RawMessage `json:"biaya_insiden"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			return nil, apperr.Validation("invalid request: %v", err)
		}
	}
	return svc.ReturnItem(c.Request.Context(), id, actor, peminjaman.ReturnInput{
		Kondisi:        peminjaman.ParseKondisi(request.Kondisi),
		CatatanInsiden: request.CatatanInsiden,
		BiayaInsiden:   peminjaman.ParseBiaya(strings.Trim(string(request.BiayaInsiden), `"`)),
	})
})

// notesFrom reads the optional {"catatan": "..."} body of payment actions.
func notesFrom(c *gin.Context) (string, error) {
	var request struct {
		Catatan string `json:"catatan"`
	}
	if c.Request.ContentLength == 0 {
		return "", nil
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		return "", apperr.Validation("invalid request: %v", err)
	}
	return request.Catatan, nil
}

var verifyDenda = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	notes, err := notesFrom(c)
	if err != nil {
		return nil, err
	}
	return svc.VerifyFinePayment(c.Request.Context(), id, actor, notes)
})

var rejectDenda = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	notes, err := notesFrom(c)
	if err != nil {
		return nil, err
	}
	return svc.RejectFinePayment(c.Request.Context(), id, actor, notes)
})

var cashDenda = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	notes, err := notesFrom(c)
	if err != nil {
		return nil, err
	}
	return svc.MarkFinePaidCash(c.Request.Context(), id, actor, notes)
})

// submitBukti stores the uploaded proof and hands its path to the service.
// The new file is removed again when the service refuses it.
var submitBukti = withLoan(func(c *gin.Context, id uint, actor peminjaman.Actor) (*models.Peminjaman, error) {
	header, err := c.FormFile("bukti_pembayaran")
	if err != nil {
		return nil, apperr.Validation("bukti_pembayaran file is required")
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedProofExt[ext] {
		return nil, apperr.Validation("bukti_pembayaran must be a jpg, png or pdf file")
	}
	if header.Size > cfg.MaxUploadBytes() {
		return nil, apperr.Validation("bukti_pembayaran exceeds %d MB", cfg.MaxUploadMB)
	}

	path := files.NewPath("bukti", ext)
	if err := c.SaveUploadedFile(header, path); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "save upload", err)
	}
	loan, err := svc.SubmitFineProof(c.Request.Context(), id, actor, path)
	if err != nil {
		if rmErr := files.Remove(path); rmErr != nil {
			log.Printf("Failed to remove rejected upload %s: %v", path, rmErr)
		}
		return nil, err
	}
	return loan, nil
})

func getStatistik(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	stats, err := svc.DashboardStats(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func getLogAktivitas(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if !actor.IsStaff() {
		respondError(c, apperr.Authorization("only petugas or admin may read the activity log"))
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	entries, err := recorder.Recent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}
