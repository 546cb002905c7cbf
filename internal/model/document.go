package model

import (
	"time"

	"gorm.io/gorm"
)

// Document statuses. A document is created "pending", flips to "processed"
// once text extraction succeeds, or "failed" when it does not.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusProcessed = "processed"
	DocumentStatusFailed    = "failed"
)

type Document struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	UserID     uint           `json:"user_id" gorm:"not null;index"`
	Title      string         `json:"title" gorm:"not null"`
	FileType   string         `json:"file_type" gorm:"not null"` // "PDF", "Word", "Text", "Unknown"
	StorageKey string         `json:"-" gorm:"not null"`
	Status     string         `json:"status" gorm:"default:'pending'"`
	Content    string         `json:"-" gorm:"type:text"` // extracted text, generation input only
	UploadDate time.Time      `json:"upload_date" gorm:"autoCreateTime"`
	Tests      []Test         `json:"tests,omitempty" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE;"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}
