package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clinicstaff/internal/blob"
	"clinicstaff/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: envMap(nil)})
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, core.StorageSQLite, cfg.StorageSettings().Driver)
	assert.Equal(t, blob.DriverFilesystem, cfg.BlobSettings().Driver)
}

func TestLoadLayersSources(t *testing.T) {
	yamlPath := writeFile(t, "clinicstaff.yml", `
http:
  addr: ":9000"
  shutdown_timeout: 30s
storage:
  driver: mysql
  mysql:
    host: db.hospital.local
    database: plantoes
blob:
  driver: s3
  s3:
    bucket: exports
    path_style: true
redis:
  url: redis://cache:6379/0
  ttl: 2m
log:
  level: debug
`)
	envPath := writeFile(t, ".env", "CLINICSTAFF_MYSQL_USER=app\nCLINICSTAFF_HTTP_ADDR=:9100\nCLINICSTAFF_AUTH_ENABLED=false\n")

	cfg, err := Load(LoadOptions{
		Path:    yamlPath,
		EnvFile: envPath,
		Lookup:  envMap(map[string]string{"CLINICSTAFF_HTTP_ADDR": ":9200", "CLINICSTAFF_REDIS_TTL": "90s"}),
	})
	require.NoError(t, err)

	assert.Equal(t, ":9200", cfg.HTTP.Addr, "environment beats .env and YAML")
	assert.Equal(t, 30*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTP.WriteTimeout, "defaults survive partial YAML")
	assert.Equal(t, "app", cfg.Storage.MySQL.User)
	assert.False(t, cfg.Auth.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.Equal(t, "debug", cfg.Log.Level)

	storage := cfg.StorageSettings()
	assert.Equal(t, core.StorageMySQL, storage.Driver)
	assert.Equal(t, "db.hospital.local", storage.MySQL.Host)
	assert.Equal(t, "plantoes", storage.MySQL.Database)

	b := cfg.BlobSettings()
	assert.Equal(t, blob.DriverS3, b.Driver)
	assert.Equal(t, "exports", b.S3.Bucket)
	assert.True(t, b.S3.PathStyle)
}

func TestLoadDebugSection(t *testing.T) {
	yamlPath := writeFile(t, "clinicstaff.yml", "debug:\n  trace_file: /var/log/clinicstaff/trace.jsonl\n")
	cfg, err := Load(LoadOptions{
		Path:   yamlPath,
		Lookup: envMap(map[string]string{"CLINICSTAFF_DEBUG_VARS": "true"}),
	})
	require.NoError(t, err)
	assert.True(t, cfg.Debug.Vars)
	assert.Equal(t, "/var/log/clinicstaff/trace.jsonl", cfg.Debug.TraceFile)

	_, err = Load(LoadOptions{Lookup: envMap(map[string]string{"CLINICSTAFF_DEBUG_VARS": "sometimes"})})
	require.Error(t, err)
}

func TestLoadMySQLDefaults(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: envMap(map[string]string{"CLINICSTAFF_STORAGE_DRIVER": "mysql"})})
	require.NoError(t, err)
	dsn := cfg.StorageSettings().MySQL.DSN()
	assert.Contains(t, dsn, "tcp(localhost:3306)/clinicstaff")
}

func TestLoadIgnoresMissingEnvFile(t *testing.T) {
	_, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), ".env"), Lookup: envMap(nil)})
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(LoadOptions{Path: filepath.Join(t.TempDir(), "missing.yml")})
	assert.ErrorContains(t, err, "failed to read config")

	_, err = Load(LoadOptions{Path: writeFile(t, "bad.yml", "http: [")})
	assert.ErrorContains(t, err, "failed to parse YAML")

	cases := map[string]map[string]string{
		"duration":        {"CLINICSTAFF_REDIS_TTL": "soon"},
		"bool":            {"CLINICSTAFF_AUTH_ENABLED": "maybe"},
		"int":             {"CLINICSTAFF_EXPORT_QUEUE_SIZE": "many"},
		"storage driver":  {"CLINICSTAFF_STORAGE_DRIVER": "oracle"},
		"postgres dsn":    {"CLINICSTAFF_STORAGE_DRIVER": "postgres"},
		"negative retain": {"CLINICSTAFF_EXPORT_RETAIN": "-5"},
		"blob driver":     {"CLINICSTAFF_BLOB_DRIVER": "ftp"},
		"s3 bucket":       {"CLINICSTAFF_BLOB_DRIVER": "s3"},
		"http addr":       {"CLINICSTAFF_HTTP_ADDR": " "},
		"negative queue":  {"CLINICSTAFF_EXPORT_QUEUE_SIZE": "-1"},
	}
	for name, env := range cases {
		_, err := Load(LoadOptions{Lookup: envMap(env)})
		assert.Error(t, err, name)
	}
}
