package domain

import (
	"strings"
	"time"
)

type DocumentType string
type DocumentStatus string

const (
	DocumentTypeBOL DocumentType = "bol"
	DocumentTypePOD DocumentType = "pod"
)

const (
	DocumentStatusPendingReview DocumentStatus = "pending_review"
	DocumentStatusApproved      DocumentStatus = "approved"
	DocumentStatusRejected      DocumentStatus = "rejected"
)

// LoadDocument is a BOL/POD record attached to a load. An approved document of
// either type gates non-admin fund release.
type LoadDocument struct {
	DocumentID string         `json:"document_id"`
	LoadID     string         `json:"load_id"`
	UploadedBy string         `json:"uploaded_by"`
	DocType    DocumentType   `json:"doc_type"`
	FileURL    string         `json:"file_url"`
	Status     DocumentStatus `json:"status"`
	ReviewedBy string         `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func NormalizeDocumentType(raw string) DocumentType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(DocumentTypeBOL):
		return DocumentTypeBOL
	case string(DocumentTypePOD):
		return DocumentTypePOD
	default:
		return ""
	}
}
