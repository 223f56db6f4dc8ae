// internal/domain/models/case.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Case statuses.
const (
	CaseOpen     = "open"
	CaseInReview = "in_review"
	CaseClosed   = "closed"
)

// Case is one patient case brought before the MDT board.
//
// PatientRef is a pseudonymized identifier assigned by the hospital
// information system; no direct patient identity is stored here.
// Summary is rich text and is sanitized before storage.
type Case struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	PatientRef    string               `bson:"patient_ref" json:"patient_ref"`
	Title         string               `bson:"title" json:"title"`
	TitleCI       string               `bson:"title_ci" json:"-"`
	Summary       string               `bson:"summary,omitempty" json:"summary,omitempty"`
	Status        string               `bson:"status" json:"status"` // open | in_review | closed
	DepartmentID  primitive.ObjectID   `bson:"department_id" json:"department_id"`
	CreatedBy     primitive.ObjectID   `bson:"created_by" json:"created_by"`
	SpecialistIDs []primitive.ObjectID `bson:"specialist_ids,omitempty" json:"specialist_ids,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsValidCaseStatus reports whether s is a recognized case status.
func IsValidCaseStatus(s string) bool {
	switch s {
	case CaseOpen, CaseInReview, CaseClosed:
		return true
	}
	return false
}
