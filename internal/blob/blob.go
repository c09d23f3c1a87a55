// Package blob is the entry point for report artifact storage. Callers
// depend on Store and open a backend with Open; only this package imports
// the concrete drivers.
package blob

import (
	"clinicstaff/internal/blob/core"
	"clinicstaff/internal/infra/blob/fs"
	memorystore "clinicstaff/internal/infra/blob/memory"
	infraS3 "clinicstaff/internal/infra/blob/s3"
	"context"
	"fmt"
	"strings"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// SignedURLOptions configures URL pre-signing.
	SignedURLOptions = core.SignedURLOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory

	// DefaultURLExpiry bounds presigned download links.
	DefaultURLExpiry = core.DefaultURLExpiry
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrNotFound    = core.ErrNotFound
	ErrExists      = core.ErrExists
)

// Config selects and parameterizes a blob backend.
type Config struct {
	Driver Driver
	// FSRoot is the directory used by the filesystem driver.
	FSRoot string
	// FSBaseURL prefixes download links produced by the filesystem driver.
	FSBaseURL string
	S3        S3Config
}

// Open constructs the configured backend. An empty driver selects fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	driver := Driver(strings.ToLower(strings.TrimSpace(string(cfg.Driver))))
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return fs.New(cfg.FSRoot, cfg.FSBaseURL)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests returns an S3 store backed by an in-process fake endpoint.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
