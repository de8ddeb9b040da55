package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"certverify/internal/model"
	"certverify/internal/repository"
)

const upsertSQL = `
	INSERT INTO certificates
		(certificate_id, recipient_name, course_title, issue_date, verification_url, csv_file_path)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (certificate_id) DO UPDATE SET
		recipient_name   = EXCLUDED.recipient_name,
		course_title     = EXCLUDED.course_title,
		issue_date       = EXCLUDED.issue_date,
		verification_url = EXCLUDED.verification_url,
		csv_file_path    = EXCLUDED.csv_file_path,
		updated_at       = now()
`

// CertificatePostgres is a PostgreSQL implementation of repository.CertificateRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CertificatePostgres struct {
	db *sql.DB
}

// NewCertificatePostgres creates a new CertificatePostgres repository.
func NewCertificatePostgres(db *sql.DB) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

var _ repository.CertificateRepository = (*CertificatePostgres)(nil)

// Upsert writes a single certificate outside any explicit transaction.
func (r *CertificatePostgres) Upsert(ctx context.Context, cert *model.Certificate) error {
	_, err := r.db.ExecContext(ctx, upsertSQL, upsertArgs(cert)...)
	return err
}

// UpsertBatch runs one prepared upsert per certificate inside a single
// transaction and rolls everything back on the first failure.
func (r *CertificatePostgres) UpsertBatch(ctx context.Context, certs []model.Certificate) (err error) {
	if len(certs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range certs {
		if _, err = stmt.ExecContext(ctx, upsertArgs(&certs[i])...); err != nil {
			return fmt.Errorf("upsert %s (row %d): %w", certs[i].CertificateID, i+1, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FindByID fetches a single certificate by its identifier.
func (r *CertificatePostgres) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	const q = `
		SELECT certificate_id, recipient_name, course_title, issue_date,
		       verification_url, csv_file_path, created_at, updated_at
		FROM certificates
		WHERE certificate_id = $1
	`
	row := r.db.QueryRowContext(ctx, q, id)
	var c model.Certificate
	if err := row.Scan(
		&c.CertificateID,
		&c.RecipientName,
		&c.CourseTitle,
		&c.IssueDate,
		&c.VerificationURL,
		&c.SourceFile,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func upsertArgs(c *model.Certificate) []any {
	return []any{
		c.CertificateID,
		c.RecipientName,
		c.CourseTitle,
		c.IssueDate,
		c.VerificationURL,
		c.SourceFile,
	}
}
