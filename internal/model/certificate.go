package model

import "time"

// Certificate is one issued certificate as recorded from an uploaded spreadsheet.
// This is a pure domain model with no database-specific dependencies or tags.
// CertificateID is the unique key; every other field is overwritten when a later
// upload carries the same identifier.
type Certificate struct {
	CertificateID   string    `json:"certificate_id"`
	RecipientName   string    `json:"recipient_name"`
	CourseTitle     string    `json:"course_title"`
	IssueDate       string    `json:"issue_date"`
	VerificationURL string    `json:"verification_url"`
	SourceFile      string    `json:"source_file"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
