package service

import (
	"archive/zip"
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"certverify/internal/metrics"
	"certverify/internal/model"
	"certverify/internal/qrcode"
	"certverify/internal/repository"
	"certverify/internal/storage"
	"certverify/internal/tabular"
)

var (
	ErrReaderNil        = errors.New("reader is nil")
	ErrFileRequired     = errors.New("file is required")
	ErrInvalidExtension = errors.New("only .csv files are allowed")
	ErrIDRequired       = errors.New("certificate id is required")
	ErrNotFound         = errors.New("certificate not found")
	ErrSourceNotFound   = errors.New("uploaded file not found")
)

// CSVExtension is the literal suffix an upload's filename must carry.
const CSVExtension = ".csv"

// ExportColumns is the header of a single-certificate download.
var ExportColumns = []string{
	tabular.ColCertificateID,
	tabular.ColRecipientName,
	tabular.ColCourseTitle,
	tabular.ColIssueDate,
	"verification_url",
}

// UploadInput describes one spreadsheet submitted by an operator.
type UploadInput struct {
	Reader   io.Reader
	Filename string
	// BaseURL is the absolute URL verification links are built from. It must end with "/".
	BaseURL string
}

// UploadResult summarizes a committed batch.
type UploadResult struct {
	Filename     string              `json:"filename"`
	Count        int                 `json:"count"`
	Certificates []model.Certificate `json:"certificates"`
}

// Bundle is a zip archive of the QR code images belonging to one uploaded file.
type Bundle struct {
	Filename string
	Data     []byte
	Images   int
}

// CertificateService defines the certificate use cases.
type CertificateService interface {
	// Upload stores the spreadsheet, generates a QR code per row and upserts
	// every row in one transaction.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// Verify returns the certificate stored under id.
	Verify(ctx context.Context, id string) (*model.Certificate, error)

	// ExportCSV renders a single certificate as a one-row CSV document.
	ExportCSV(ctx context.Context, id string) ([]byte, error)

	// BundleQRCodes zips the existing QR code images of every identifier in a
	// previously uploaded file.
	BundleQRCodes(ctx context.Context, filename string) (*Bundle, error)

	// QRCode opens the stored QR code image of a certificate.
	QRCode(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error)
}

// certificateService is a concrete implementation of CertificateService.
type certificateService struct {
	repo    repository.CertificateRepository
	uploads storage.Storage
	qrcodes storage.Storage
	gen     *qrcode.Generator
	metrics *metrics.Certificates
}

// NewCertificateService constructs a new CertificateService. A nil m disables metrics.
func NewCertificateService(repo repository.CertificateRepository, uploads, qrcodes storage.Storage, m *metrics.Certificates) CertificateService {
	if m == nil {
		m = metrics.Nop()
	}
	return &certificateService{
		repo:    repo,
		uploads: uploads,
		qrcodes: qrcodes,
		gen:     qrcode.NewGenerator(qrcodes),
		metrics: m,
	}
}

// VerificationURL builds the link encoded in a certificate's QR code.
func VerificationURL(baseURL, id string) string {
	return baseURL + "verify_download/" + url.PathEscape(id)
}

func (s *certificateService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if in.Reader == nil {
		return nil, ErrReaderNil
	}
	name := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if in.Filename == "" || name == "." || name == "/" {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrFileRequired
	}
	if !strings.HasSuffix(name, CSVExtension) {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeRejected).Inc()
		return nil, ErrInvalidExtension
	}

	data, err := io.ReadAll(in.Reader)
	if err != nil {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("read upload: %w", err)
	}

	// The raw file is kept even when parsing fails.
	stored, err := s.uploads.Put(ctx, name, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: "text/csv",
		Metadata:    map[string]string{"original-filename": in.Filename},
	})
	if err != nil {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, fmt.Errorf("save upload: %w", err)
	}

	rows, err := tabular.Parse(bytes.NewReader(data))
	if err != nil {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	certs := make([]model.Certificate, 0, len(rows))
	for i, row := range rows {
		id := row[tabular.ColCertificateID]
		link := VerificationURL(in.BaseURL, id)

		if err := s.gen.Generate(ctx, id, link); err != nil {
			s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeFailed).Inc()
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		s.metrics.QRCodesGenerated.Inc()

		certs = append(certs, model.Certificate{
			CertificateID:   id,
			RecipientName:   row[tabular.ColRecipientName],
			CourseTitle:     row[tabular.ColCourseTitle],
			IssueDate:       row[tabular.ColIssueDate],
			VerificationURL: link,
			SourceFile:      stored.Key,
		})
	}

	// QR images written above are not removed on failure: they are keyed by
	// identifier and are rewritten identically when the batch is retried.
	if err := s.repo.UpsertBatch(ctx, certs); err != nil {
		s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeRolledBack).Inc()
		return nil, fmt.Errorf("save certificates: %w", err)
	}

	s.metrics.UploadBatches.WithLabelValues(metrics.OutcomeSuccess).Inc()
	s.metrics.Upserted.Add(float64(len(certs)))
	return &UploadResult{Filename: stored.Key, Count: len(certs), Certificates: certs}, nil
}

func (s *certificateService) Verify(ctx context.Context, id string) (*model.Certificate, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.Lookups.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		s.metrics.Lookups.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.Lookups.WithLabelValues("found").Inc()
	return cert, nil
}

func (s *certificateService) ExportCSV(ctx context.Context, id string) ([]byte, error) {
	cert, err := s.Verify(ctx, id)
	if err != nil {
		return nil, err
	}
	row := tabular.Row{
		tabular.ColCertificateID: cert.CertificateID,
		tabular.ColRecipientName: cert.RecipientName,
		tabular.ColCourseTitle:   cert.CourseTitle,
		tabular.ColIssueDate:     cert.IssueDate,
		"verification_url":       cert.VerificationURL,
	}
	var buf bytes.Buffer
	if err := tabular.Encode(&buf, ExportColumns, []tabular.Row{row}); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *certificateService) BundleQRCodes(ctx context.Context, filename string) (*Bundle, error) {
	name := path.Base(filename)
	rc, _, err := s.uploads.Get(ctx, name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, ErrSourceNotFound
		}
		return nil, fmt.Errorf("open upload: %w", err)
	}
	rows, err := tabular.Parse(rc)
	rc.Close()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]struct{}, len(rows))
	images := 0
	for _, row := range rows {
		key := qrcode.ImageKey(row[tabular.ColCertificateID])
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		added, err := s.addImage(ctx, zw, key)
		if err != nil {
			return nil, err
		}
		if added {
			images++
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}

	s.metrics.BundleImages.Add(float64(images))
	return &Bundle{
		Filename: strings.TrimSuffix(name, CSVExtension) + "_qrcodes.zip",
		Data:     buf.Bytes(),
		Images:   images,
	}, nil
}

// addImage copies one stored image into the archive. Missing images are skipped.
func (s *certificateService) addImage(ctx context.Context, zw *zip.Writer, key string) (bool, error) {
	rc, info, err := s.qrcodes.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return false, nil
		}
		return false, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     key,
		Method:   zip.Store,
		Modified: info.LastModified,
	})
	if err != nil {
		return false, fmt.Errorf("add %s: %w", key, err)
	}
	if _, err := io.Copy(w, rc); err != nil {
		return false, fmt.Errorf("copy %s: %w", key, err)
	}
	return true, nil
}

func (s *certificateService) QRCode(ctx context.Context, id string) (io.ReadCloser, storage.ObjectInfo, error) {
	if id == "" {
		return nil, storage.ObjectInfo{}, ErrIDRequired
	}
	rc, info, err := s.qrcodes.Get(ctx, qrcode.ImageKey(id))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, storage.ObjectInfo{}, ErrNotFound
		}
		return nil, storage.ObjectInfo{}, err
	}
	return rc, info, nil
}
