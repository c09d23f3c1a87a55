// Package config loads process settings. Sources are layered: built-in
// defaults, an optional YAML file, an optional .env file, CLINICSTAFF_*
// environment variables and finally command-line flags applied by the CLI.
package config

import (
	"clinicstaff/internal/blob"
	"clinicstaff/internal/core"
	"clinicstaff/internal/infra/persistence/mysql"
	"clinicstaff/internal/logging"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CLINICSTAFF_"

// Config is the full process configuration.
type Config struct {
	HTTP    HTTPConfig     `yaml:"http"`
	Storage StorageConfig  `yaml:"storage"`
	Blob    BlobConfig     `yaml:"blob"`
	Redis   RedisConfig    `yaml:"redis"`
	Auth    AuthConfig     `yaml:"auth"`
	Log     logging.Config `yaml:"log"`
	Exports ExportsConfig  `yaml:"exports"`
	Debug   DebugConfig    `yaml:"debug"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver      string      `yaml:"driver"` // memory, sqlite, postgres, mysql
	SQLitePath  string      `yaml:"sqlite_path"`
	PostgresDSN string      `yaml:"postgres_dsn"`
	MySQLDSN    string      `yaml:"mysql_dsn"`
	MySQL       MySQLConfig `yaml:"mysql"`
}

// MySQLConfig assembles a MySQL DSN when MySQLDSN is empty.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// BlobConfig selects where report exports are stored.
type BlobConfig struct {
	Driver    string   `yaml:"driver"` // fs, s3, memory
	FSRoot    string   `yaml:"fs_root"`
	FSBaseURL string   `yaml:"fs_base_url"`
	S3        S3Config `yaml:"s3"`
}

// S3Config configures the S3/MinIO driver.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

// RedisConfig enables the report cache when URL is set.
type RedisConfig struct {
	URL    string        `yaml:"url"`
	TTL    time.Duration `yaml:"ttl"`
	Prefix string        `yaml:"prefix"`
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SessionTTL time.Duration `yaml:"session_ttl"`
	BcryptCost int           `yaml:"bcrypt_cost"`
}

// ExportsConfig tunes the export worker.
type ExportsConfig struct {
	QueueSize int           `yaml:"queue_size"`
	URLExpiry time.Duration `yaml:"url_expiry"`
	// Retain bounds the finished exports listed by the API.
	Retain    int           `yaml:"retain"`
}

// DebugConfig enables diagnostics meant for single-node deployments.
type DebugConfig struct {
	// Vars publishes per-operation counters at /debug/vars.
	Vars bool `yaml:"vars"`
	// TraceFile receives one JSON line per service operation.
	TraceFile string `yaml:"trace_file"`
}

// Default returns the built-in configuration: SQLite storage, filesystem
// exports, no cache, auth enabled.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{Driver: string(core.StorageSQLite), SQLitePath: "clinicstaff.db"},
		Blob:    BlobConfig{Driver: string(blob.DriverFilesystem), FSRoot: "./artifacts"},
		Redis:   RedisConfig{TTL: 5 * time.Minute, Prefix: "clinicstaff"},
		Auth:    AuthConfig{Enabled: true, SessionTTL: 12 * time.Hour},
		Log:     logging.Config{Level: "info", Encoding: "json"},
		Exports: ExportsConfig{QueueSize: 32, URLExpiry: 15 * time.Minute, Retain: 256},
	}
}

// LoadOptions locates the optional sources. Lookup defaults to os.LookupEnv.
type LoadOptions struct {
	Path    string
	EnvFile string
	Lookup  func(string) (string, bool)
}

// Load layers defaults, the YAML file, the .env file and the environment.
// A missing YAML file is an error only when Path was given explicitly; a
// missing .env file is ignored.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()
	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse YAML: %w", err)
		}
	}

	env := map[string]string{}
	if opts.EnvFile != "" {
		values, err := godotenv.Read(opts.EnvFile)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read env file: %w", err)
		}
		for k, v := range values {
			env[k] = v
		}
	}
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(name string) (string, bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := env[EnvPrefix+name]
		return v, ok
	}
	if err := applyEnv(&cfg, get); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type envGetter func(name string) (string, bool)

func applyEnv(cfg *Config, get envGetter) error {
	strs := map[string]*string{
		"HTTP_ADDR":                 &cfg.HTTP.Addr,
		"STORAGE_DRIVER":            &cfg.Storage.Driver,
		"SQLITE_PATH":               &cfg.Storage.SQLitePath,
		"POSTGRES_DSN":              &cfg.Storage.PostgresDSN,
		"MYSQL_DSN":                 &cfg.Storage.MySQLDSN,
		"MYSQL_HOST":                &cfg.Storage.MySQL.Host,
		"MYSQL_PORT":                &cfg.Storage.MySQL.Port,
		"MYSQL_USER":                &cfg.Storage.MySQL.User,
		"MYSQL_PASSWORD":            &cfg.Storage.MySQL.Password,
		"MYSQL_DATABASE":            &cfg.Storage.MySQL.Database,
		"BLOB_DRIVER":               &cfg.Blob.Driver,
		"BLOB_FS_ROOT":              &cfg.Blob.FSRoot,
		"BLOB_FS_BASE_URL":          &cfg.Blob.FSBaseURL,
		"BLOB_S3_BUCKET":            &cfg.Blob.S3.Bucket,
		"BLOB_S3_REGION":            &cfg.Blob.S3.Region,
		"BLOB_S3_ENDPOINT":          &cfg.Blob.S3.Endpoint,
		"BLOB_S3_ACCESS_KEY_ID":     &cfg.Blob.S3.AccessKeyID,
		"BLOB_S3_SECRET_ACCESS_KEY": &cfg.Blob.S3.SecretAccessKey,
		"REDIS_URL":                 &cfg.Redis.URL,
		"REDIS_PREFIX":              &cfg.Redis.Prefix,
		"LOG_LEVEL":                 &cfg.Log.Level,
		"LOG_ENCODING":              &cfg.Log.Encoding,
		"DEBUG_TRACE_FILE":          &cfg.Debug.TraceFile,
	}
	for name, dst := range strs {
		if v, ok := get(name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	durations := map[string]*time.Duration{
		"HTTP_READ_TIMEOUT":     &cfg.HTTP.ReadTimeout,
		"HTTP_WRITE_TIMEOUT":    &cfg.HTTP.WriteTimeout,
		"HTTP_SHUTDOWN_TIMEOUT": &cfg.HTTP.ShutdownTimeout,
		"REDIS_TTL":             &cfg.Redis.TTL,
		"AUTH_SESSION_TTL":      &cfg.Auth.SessionTTL,
		"EXPORT_URL_EXPIRY":     &cfg.Exports.URLExpiry,
	}
	for name, dst := range durations {
		if v, ok := get(name); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}
	bools := map[string]*bool{
		"AUTH_ENABLED":       &cfg.Auth.Enabled,
		"BLOB_S3_PATH_STYLE": &cfg.Blob.S3.PathStyle,
		"DEBUG_VARS":         &cfg.Debug.Vars,
	}
	for name, dst := range bools {
		if v, ok := get(name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}
	ints := map[string]*int{
		"AUTH_BCRYPT_COST":  &cfg.Auth.BcryptCost,
		"EXPORT_QUEUE_SIZE": &cfg.Exports.QueueSize,
		"EXPORT_RETAIN":     &cfg.Exports.Retain,
	}
	for name, dst := range ints {
		if v, ok := get(name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
			}
			*dst = n
		}
	}
	return nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch core.StorageDriver(strings.ToLower(c.Storage.Driver)) {
	case core.StorageMemory, core.StorageSQLite, "":
	case core.StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres driver")
		}
	case core.StorageMySQL:
		// Without a DSN the structured fields apply, each with a default.
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch blob.Driver(strings.ToLower(c.Blob.Driver)) {
	case blob.DriverFilesystem, blob.DriverMemory, "":
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			return errors.New("blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.Exports.QueueSize < 0 {
		return errors.New("exports.queue_size must not be negative")
	}
	if c.Exports.Retain < 0 {
		return errors.New("exports.retain must not be negative")
	}
	return nil
}

// StorageSettings converts the storage section for core.OpenPersistentStore.
func (c Config) StorageSettings() core.StorageConfig {
	return core.StorageConfig{
		Driver:      core.StorageDriver(strings.ToLower(c.Storage.Driver)),
		SQLitePath:  c.Storage.SQLitePath,
		PostgresDSN: c.Storage.PostgresDSN,
		MySQLDSN:    c.Storage.MySQLDSN,
		MySQL: mysql.Options{
			Host:     c.Storage.MySQL.Host,
			Port:     c.Storage.MySQL.Port,
			User:     c.Storage.MySQL.User,
			Password: c.Storage.MySQL.Password,
			Database: c.Storage.MySQL.Database,
		},
	}
}

// BlobSettings converts the blob section for blob.Open.
func (c Config) BlobSettings() blob.Config {
	return blob.Config{
		Driver:    blob.Driver(strings.ToLower(c.Blob.Driver)),
		FSRoot:    c.Blob.FSRoot,
		FSBaseURL: c.Blob.FSBaseURL,
		S3: blob.S3Config{
			Bucket:          c.Blob.S3.Bucket,
			Region:          c.Blob.S3.Region,
			Endpoint:        c.Blob.S3.Endpoint,
			AccessKeyID:     c.Blob.S3.AccessKeyID,
			SecretAccessKey: c.Blob.S3.SecretAccessKey,
			PathStyle:       c.Blob.S3.PathStyle,
		},
	}
}
