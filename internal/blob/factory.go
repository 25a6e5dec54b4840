// Package blob selects a blob store backend for exported populations. It is
// the only package allowed to import the infra blob implementations.
package blob

import (
	"context"
	"fmt"
	"os"
	"strings"

	"simago/internal/blob/core"
	"simago/internal/infra/blob/fs"
	"simago/internal/infra/blob/memory"
	"simago/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 backend explicitly.
	S3Config = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// ErrNotFound reports a missing blob.
var ErrNotFound = core.ErrNotFound

// Open selects a Store implementation using environment variables.
//
//	SIMAGO_BLOB_DRIVER: fs|s3|memory (default fs)
//	SIMAGO_BLOB_FS_ROOT: directory root when driver=fs (default .)
//	SIMAGO_BLOB_S3_*: see internal/infra/blob/s3
func Open(ctx context.Context) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(os.Getenv("SIMAGO_BLOB_DRIVER")))
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("SIMAGO_BLOB_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-memory Store.
func NewMemory() Store { return memory.New() }

// NewS3 constructs an S3-backed Store from explicit configuration.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) { return s3.New(ctx, cfg) }

// NewMockS3ForTests returns an S3 Store served by an in-process fake.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }
