package storage

import (
	"fmt"

	"certverify/internal/config"
)

// Object key prefixes used when both stores share one bucket.
const (
	UploadsPrefix = "uploads"
	QRCodesPrefix = "qrcodes"
)

// Stores groups the two object stores the service writes to.
type Stores struct {
	Uploads Storage
	QRCodes Storage
}

// Open builds the uploads and QR code stores for the configured backend.
func Open(cfg *config.AppConfig) (*Stores, error) {
	switch cfg.Storage.Backend {
	case "", "local":
		uploads, err := NewLocal(cfg.Storage.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("uploads store: %w", err)
		}
		qrcodes, err := NewLocal(cfg.Storage.QRCodeDir)
		if err != nil {
			return nil, fmt.Errorf("qrcode store: %w", err)
		}
		return &Stores{Uploads: uploads, QRCodes: qrcodes}, nil
	case "minio":
		uploads, err := NewMinIO(cfg.MinIO, UploadsPrefix)
		if err != nil {
			return nil, fmt.Errorf("uploads store: %w", err)
		}
		qrcodes, err := NewMinIO(cfg.MinIO, QRCodesPrefix)
		if err != nil {
			return nil, fmt.Errorf("qrcode store: %w", err)
		}
		return &Stores{Uploads: uploads, QRCodes: qrcodes}, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
