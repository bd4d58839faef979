package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/GuildPay/app/models"
	"github.com/ManuelReschke/GuildPay/internal/pkg/env"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("postgres", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}

func TestOpenAndMigrate_SQLiteMemory(t *testing.T) {
	db, err := OpenInMemory()
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestDSNFromEnv(t *testing.T) {
	prev := env.Env
	t.Cleanup(func() { env.Env = prev })
	env.Env = map[string]string{
		"DB_USER":     "guildpay",
		"DB_PASSWORD": "secret",
		"DB_HOST":     "db",
		"DB_PORT":     "3307",
		"DB_NAME":     "guildpay_db",
		"DB_PATH":     "/data/guildpay.db",
	}

	assert.Equal(t, "guildpay:secret@tcp(db:3307)/guildpay_db?charset=utf8mb4&parseTime=True&loc=Local", dsnFromEnv(DriverMySQL))
	assert.Equal(t, "/data/guildpay.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsnFromEnv(DriverSQLite))
}
