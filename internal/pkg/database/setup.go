package database

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var DB *gorm.DB

// GetDB returns the process-wide database handle.
func GetDB() *gorm.DB {
	return DB
}

// SetupDatabase connects using DB_DRIVER and migrates the schema. MySQL gets
// a few retries because the container usually starts after the app.
func SetupDatabase() {
	driver := strings.ToLower(env.GetEnv("DB_DRIVER", DriverSQLite))

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = Open(driver, dsnFromEnv(driver))
		if err == nil {
			if err = Migrate(DB); err != nil {
				panic(err)
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if driver == DriverSQLite {
			break
		}
		if i < maxRetries-1 {
			log.Printf("Retrying in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}

// Open creates a gorm handle for the given driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case DriverMySQL:
		return gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn,
			DefaultStringSize:         256,
			DisableDatetimePrecision:  true,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{})
	case DriverSQLite:
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
}

// OpenInMemory returns a migrated SQLite database living in memory. The pool
// is pinned to one connection because every new connection would see an
// empty database.
func OpenInMemory() (*gorm.DB, error) {
	db, err := Open(DriverSQLite, "file::memory:")
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate brings the schema up to date with the models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}

func dsnFromEnv(driver string) string {
	if driver == DriverSQLite {
		// bot and HTTP handlers write concurrently
		return env.GetEnv("DB_PATH", "subscriptions.db") + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	}
	// "user:pass@tcp(127.0.0.1:3306)/dbname?charset=utf8mb4&parseTime=True&loc=Local"
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}
