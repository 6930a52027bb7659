package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "jwt-secret")
	t.Setenv("SHARE_SECRET", "share-secret")
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	setSecrets(t)
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 5001, cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.MaxUploadBytes())
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "jwt-secret", cfg.Secrets.JWTSecret)
	assert.Equal(t, "share-secret", cfg.Secrets.ShareSecret)
	assert.Equal(t, "http://localhost:5173", cfg.Share.FrontendURL)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	setSecrets(t)
	dir := t.TempDir()
	yaml := []byte(`
server:
  port: 8080
database:
  driver: postgres
  host: db.internal
storage:
  bucket: records
share:
  frontend_url: https://app.example.com
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("FRONTEND_URL", "https://share.example.com/")
	t.Setenv("EMAIL_USER", "mailer@example.com")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "records", cfg.Storage.Bucket)
	assert.Equal(t, "https://share.example.com", cfg.Share.FrontendURL)
	assert.Equal(t, "mailer@example.com", cfg.Secrets.MailUser)
}

func TestLoadRequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SHARE_SECRET", "")
	t.Setenv("DATABASE_DRIVER", "memory")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{MaxUploadMB: 10},
			Database: DatabaseConfig{Driver: DriverPostgres},
			Storage:  StorageConfig{Bucket: "b"},
			Share:    ShareConfig{FrontendURL: "https://app.example.com"},
			Secrets:  Secrets{JWTSecret: "a", ShareSecret: "b"},
		}
	}
	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Share.FrontendURL = "app.example.com"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Storage.Bucket = ""
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = valid()
	cfg.Database.Driver = DriverMemory
	cfg.Storage.Bucket = ""
	assert.NoError(t, cfg.Validate())
}
