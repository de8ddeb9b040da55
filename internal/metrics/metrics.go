package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Upload outcomes recorded on certverify_upload_batches_total.
const (
	OutcomeSuccess    = "success"
	OutcomeRejected   = "rejected"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

// Certificates holds the domain counters of the certificate service.
type Certificates struct {
	UploadBatches    *prometheus.CounterVec
	Upserted         prometheus.Counter
	QRCodesGenerated prometheus.Counter
	BundleImages     prometheus.Counter
	Lookups          *prometheus.CounterVec
}

// NewCertificates creates the counters and registers them on reg.
func NewCertificates(reg prometheus.Registerer) (*Certificates, error) {
	m := &Certificates{
		UploadBatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_upload_batches_total",
			Help: "Uploaded spreadsheets by outcome.",
		}, []string{"outcome"}),
		Upserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certverify_certificates_upserted_total",
			Help: "Certificates inserted or updated by committed uploads.",
		}),
		QRCodesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certverify_qrcodes_generated_total",
			Help: "QR code images written.",
		}),
		BundleImages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certverify_bundle_images_total",
			Help: "QR code images added to bulk download archives.",
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certverify_lookups_total",
			Help: "Certificate lookups by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{m.UploadBatches, m.Upserted, m.QRCodesGenerated, m.BundleImages, m.Lookups} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Nop returns counters registered nowhere, for tests and tools that do not expose metrics.
func Nop() *Certificates {
	m, _ := NewCertificates(prometheus.NewRegistry())
	return m
}
