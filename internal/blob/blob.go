// Package blob is the artifact storage facade. Callers depend on Store and
// open a driver through Open; only this package imports the infra drivers.
package blob

import (
	"brickcore/internal/blob/core"
	"brickcore/internal/config"
	fsstore "brickcore/internal/infra/blob/fs"
	memorystore "brickcore/internal/infra/blob/memory"
	s3store "brickcore/internal/infra/blob/s3"
	"context"
	"fmt"
	"strings"
)

type (
	Store            = core.Store
	Driver           = core.Driver
	Info             = core.Info
	PutOptions       = core.PutOptions
	SignedURLOptions = core.SignedURLOptions
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrUnsupported = core.ErrUnsupported
	ErrExists      = core.ErrExists
	ErrNotFound    = core.ErrNotFound
	ErrInvalidKey  = core.ErrInvalidKey
)

// Open returns the driver selected by cfg.Driver (fs when empty).
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	switch Driver(strings.ToLower(strings.TrimSpace(cfg.Driver))) {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverMemory:
		return NewMemory(), nil
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewFilesystem opens a store rooted at root.
func NewFilesystem(root string) (Store, error) { return fsstore.New(root) }

// NewMemory returns an empty process-local store.
func NewMemory() Store { return memorystore.New() }

// NewS3 connects to the bucket described by cfg.
func NewS3(ctx context.Context, cfg config.S3) (Store, error) {
	return s3store.New(ctx, s3store.Config{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		PathStyle:       cfg.PathStyle,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
	})
}
