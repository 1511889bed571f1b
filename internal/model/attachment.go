package model

import (
	"strings"
	"time"
)

// Category names an attachment list on the patient record.
type Category string

const (
	CategoryReports Category = "reports"
	CategoryImages  Category = "images"
)

// Categories lists the attachment categories in payload order.
var Categories = []Category{CategoryReports, CategoryImages}

// ParseCategory returns the category named by s.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryReports, CategoryImages:
		return Category(s), true
	}
	return "", false
}

// Accepts reports whether a file with the given content type may be attached
// to the category. Images take image/* only; reports also take documents.
func (c Category) Accepts(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if strings.HasPrefix(ct, "image/") {
		return true
	}
	if c != CategoryReports {
		return false
	}
	switch ct {
	case "application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/plain",
		"text/csv":
		return true
	}
	return false
}

// UploadStatus is the lifecycle state of an attached file.
type UploadStatus string

const (
	UploadPending UploadStatus = "pending"
	UploadDone    UploadStatus = "done"
	UploadRemoved UploadStatus = "removed"
)

// FileRef is one attached file. Handle is the identity used for
// de-duplication within a category; the content lives in staging storage
// under StorageKey until the patient is created.
type FileRef struct {
	Handle      string       `json:"handle"`
	Category    Category     `json:"category"`
	Filename    string       `json:"filename"`
	ContentType string       `json:"content_type"`
	Size        int64        `json:"size"`
	StorageKey  string       `json:"storage_key"`
	Status      UploadStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}
