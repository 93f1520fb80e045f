package main

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"peminjaman_alat/pkg/audit"
	"peminjaman_alat/pkg/cache"
	"peminjaman_alat/pkg/config"
	"peminjaman_alat/pkg/database"
	"peminjaman_alat/pkg/filestore"
	"peminjaman_alat/pkg/peminjaman"
	"peminjaman_alat/pkg/repository"
)

var (
	cfg      *config.Config
	db       *gorm.DB
	svc      *peminjaman.Service
	recorder *audit.Recorder
	files    *filestore.Local
	loc      *time.Location
)

func main() {
	log.Println("Starting peminjaman service...")

	var err error
	cfg, err = config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	loc, err = cfg.Location()
	if err != nil {
		log.Fatalf("Failed to load timezone: %v", err)
	}

	db, err = database.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	if cfg.SeedData {
		if err := database.Seed(db); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
	}

	files, err = filestore.NewLocal(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload dir: %v", err)
	}

	var inv peminjaman.Invalidator = cache.Noop{}
	if cfg.RedisAddr != "" {
		log.Printf("Cache invalidation via redis at %s", cfg.RedisAddr)
		inv = cache.NewRedisInvalidator(cache.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB))
	} else {
		log.Println("REDIS_ADDR not set, cache invalidation disabled")
	}

	recorder = audit.NewRecorder(db)
	svc = peminjaman.NewService(repository.New(db), recorder, inv, files, peminjaman.Options{
		FinePerDay:  cfg.FinePerDay(),
		MaxLoanDays: cfg.MaksHariPinjam,
		Location:    loc,
	})

	server := setupRouter()
	log.Printf("Peminjaman service starting on :%s", cfg.Port)
	if err := server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func setupRouter() *gin.Engine {
	server := gin.Default()
	server.MaxMultipartMemory = cfg.MaxUploadBytes()

	api := server.Group("/api/v1")
	api.GET("/alat", getAlatList)
	api.GET("/alat/:id", getAlat)
	api.GET("/alat/:id/ketersediaan", getKetersediaan)

	api.GET("/peminjaman", getPeminjamanList)
	api.GET("/peminjaman/:id", getPeminjaman)
	api.POST("/peminjaman", createPeminjaman)
	api.POST("/peminjaman/:id/setujui", approvePeminjaman)
	api.POST("/peminjaman/:id/tolak", rejectPeminjaman)
	api.POST("/peminjaman/:id/batal", cancelPeminjaman)
	api.POST("/peminjaman/:id/serahkan", handoverPeminjaman)
	api.POST("/peminjaman/:id/kembalikan", returnPeminjaman)

	api.POST("/peminjaman/:id/denda/bukti", submitBukti)
	api.POST("/peminjaman/:id/denda/verifikasi", verifyDenda)
	api.POST("/peminjaman/:id/denda/tolak", rejectDenda)
	api.POST("/peminjaman/:id/denda/tunai", cashDenda)

	api.GET("/dashboard/statistik", getStatistik)
	api.GET("/log-aktivitas", getLogAktivitas)

	server.GET("/manage/health", healthCheck)
	return server
}

func healthCheck(ctx *gin.Context) {
	sqlDB, err := db.DB()
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database connection failed",
			"error":   err.Error(),
		})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "DOWN",
			"details": "Database ping failed",
			"error":   err.Error(),
		})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{
		"status":  "UP",
		"details": "Host localhost:" + cfg.Port + " is active",
	})
}
