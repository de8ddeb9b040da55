package repository

import (
	"context"

	"certverify/internal/model"
)

// Package repository contains data access layer abstractions.
// Implementations live in subpackages (postgres, cache).

// CertificateRepository defines data access for certificates using SQL queries only.
// No business logic here, only persistence operations.
type CertificateRepository interface {
	// Upsert inserts a certificate or, when the identifier already exists,
	// overwrites every other column in place.
	Upsert(ctx context.Context, cert *model.Certificate) error

	// UpsertBatch upserts all certificates inside one transaction. Either every
	// row is committed or none is.
	UpsertBatch(ctx context.Context, certs []model.Certificate) error

	// FindByID returns a certificate by its identifier, or sql.ErrNoRows.
	FindByID(ctx context.Context, id string) (*model.Certificate, error)
}
