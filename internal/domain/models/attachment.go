// internal/domain/models/attachment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attachment is a file stored against a case (imaging exports, referral
// letters, lab reports). FilePath is the storage key; PDFPath is set once
// an office document has been converted for in-browser preview.
type Attachment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CaseID      primitive.ObjectID `bson:"case_id" json:"case_id"`
	FilePath    string             `bson:"file_path" json:"-"`
	FileName    string             `bson:"file_name" json:"file_name"`
	Size        int64              `bson:"size" json:"size"`
	ContentType string             `bson:"content_type,omitempty" json:"content_type,omitempty"`
	PDFPath     string             `bson:"pdf_path,omitempty" json:"-"`
	UploadedBy  primitive.ObjectID `bson:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
