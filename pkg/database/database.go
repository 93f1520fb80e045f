package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"peminjaman_alat/pkg/config"
	"peminjaman_alat/pkg/models"
)

var retryDelay = 5 * time.Second

// Open connects with retries, tunes the pool and migrates every model.
func Open(cfg *config.Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	maxRetries := cfg.DBMaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var db *gorm.DB
	for i := 0; i < maxRetries; i++ {
		db, err = gorm.Open(dialector, &gorm.Config{})
		if err == nil {
			break
		}
		log.Printf("Database connection attempt %d/%d failed: %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.DBDriver == "sqlite" {
		// One writer at a time; sqlite has no row locks.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

func dialectorFor(cfg *config.Config) (gorm.Dialector, error) {
	switch cfg.DBDriver {
	case "postgres":
		log.Printf("Connecting to database: %s@%s:%s/%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName)
		return postgres.Open(PostgresDSN(cfg)), nil
	case "sqlite":
		log.Printf("Opening sqlite database: %s", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

func PostgresDSN(cfg *config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.TimeZone)
}

// Seed inserts a few items for local runs; existing names are left untouched.
func Seed(db *gorm.DB) error {
	items := []models.Alat{
		{Nama: "Proyektor Epson EB-X51", Stok: 3, Status: models.AlatTersedia, Kondisi: models.KondisiBaik},
		{Nama: "Kamera Canon EOS 90D", Stok: 1, Status: models.AlatTersedia, Kondisi: models.KondisiBaik},
		{Nama: "Mikrofon Wireless Shure", Stok: 5, Status: models.AlatTersedia, Kondisi: models.KondisiBaik},
		{Nama: "Tripod Manfrotto", Stok: 2, Status: models.AlatTersedia, Kondisi: models.KondisiRusakRingan},
	}

	for _, item := range items {
		var existing models.Alat
		err := db.Where("nama = ?", item.Nama).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("seed lookup %s: %w", item.Nama, err)
		}
		if err := db.Create(&item).Error; err != nil {
			return fmt.Errorf("seed %s: %w", item.Nama, err)
		}
		log.Printf("Created seed alat: %s (stok %d)", item.Nama, item.Stok)
	}
	log.Println("Alat seed data ready")
	return nil
}
