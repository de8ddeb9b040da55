// Package qrcode renders verification URLs as QR code PNGs and stores them
// under the certificate identifier.
package qrcode

import (
	"bytes"
	"context"
	"fmt"

	goqr "github.com/skip2/go-qrcode"

	"certverify/internal/storage"
)

// ModulePixels is the edge length of one QR module in the rendered PNG.
// go-qrcode always adds the standard four-module quiet zone.
const ModulePixels = 10

// Encode renders content as a black-on-white PNG with medium error correction,
// using the smallest QR version that fits. Output is deterministic.
func Encode(content string) ([]byte, error) {
	q, err := goqr.New(content, goqr.Medium)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	// A negative size is interpreted as pixels per module.
	png, err := q.PNG(-ModulePixels)
	if err != nil {
		return nil, fmt.Errorf("render qr png: %w", err)
	}
	return png, nil
}

// ImageKey is the object key of a certificate's code image.
func ImageKey(certificateID string) string {
	return certificateID + ".png"
}

// Generator writes code images into a storage backend.
type Generator struct {
	store storage.Storage
}

func NewGenerator(store storage.Storage) *Generator {
	return &Generator{store: store}
}

// Generate encodes url and stores it as {certificateID}.png, replacing any
// previous image for the same identifier.
func (g *Generator) Generate(ctx context.Context, certificateID, url string) error {
	png, err := Encode(url)
	if err != nil {
		return err
	}
	_, err = g.store.Put(ctx, ImageKey(certificateID), bytes.NewReader(png), storage.PutObjectOptions{
		Size:        int64(len(png)),
		ContentType: "image/png",
		Metadata:    map[string]string{"verification-url": url},
	})
	if err != nil {
		return fmt.Errorf("store qr image %s: %w", certificateID, err)
	}
	return nil
}
