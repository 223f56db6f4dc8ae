package casepolicy_test

import (
	"net/http/httptest"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/policy/casepolicy"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCanView(t *testing.T) {
	dept := primitive.NewObjectID()
	otherDept := primitive.NewObjectID()
	specialist := primitive.NewObjectID()

	cs := &models.Case{
		ID:            primitive.NewObjectID(),
		DepartmentID:  dept,
		SpecialistIDs: []primitive.ObjectID{specialist},
		Status:        models.CaseOpen,
	}

	tests := []struct {
		name string
		role string
		uid  primitive.ObjectID
		dept primitive.ObjectID
		want bool
	}{
		{"admin sees everything", "admin", primitive.NewObjectID(), otherDept, true},
		{"coordinator sees everything", "coordinator", primitive.NewObjectID(), otherDept, true},
		{"assigned specialist", "specialist", specialist, otherDept, true},
		{"same-department specialist", "specialist", primitive.NewObjectID(), dept, true},
		{"unrelated specialist", "specialist", primitive.NewObjectID(), otherDept, false},
		{"same-department viewer", "viewer", primitive.NewObjectID(), dept, true},
		{"other-department viewer", "viewer", primitive.NewObjectID(), otherDept, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/cases/x", nil)
			req = auth.WithTestUser(req, &auth.SessionUser{
				ID: tc.uid.Hex(), Role: tc.role, DepartmentID: tc.dept.Hex(),
			})
			if got := casepolicy.CanView(req, cs); got != tc.want {
				t.Errorf("CanView = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestCanView_Anonymous(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/cases/x", nil)
	if casepolicy.CanView(req, &models.Case{}) {
		t.Error("anonymous request should not see cases")
	}
}

func TestCanEdit(t *testing.T) {
	open := &models.Case{Status: models.CaseOpen}
	closed := &models.Case{Status: models.CaseClosed}

	coordinator := httptest.NewRequest("PUT", "/api/cases/x", nil)
	coordinator = auth.WithTestUser(coordinator, &auth.SessionUser{
		ID: primitive.NewObjectID().Hex(), Role: "coordinator",
	})
	specialist := httptest.NewRequest("PUT", "/api/cases/x", nil)
	specialist = auth.WithTestUser(specialist, &auth.SessionUser{
		ID: primitive.NewObjectID().Hex(), Role: "specialist",
	})

	if !casepolicy.CanEdit(coordinator, open) {
		t.Error("coordinator should edit an open case")
	}
	if casepolicy.CanEdit(coordinator, closed) {
		t.Error("closed cases are read-only")
	}
	if casepolicy.CanEdit(specialist, open) {
		t.Error("specialists do not manage cases")
	}
}

func TestCanSubmitOpinion(t *testing.T) {
	specialist := primitive.NewObjectID()
	cs := &models.Case{
		Status:        models.CaseInReview,
		SpecialistIDs: []primitive.ObjectID{specialist},
	}

	assigned := httptest.NewRequest("POST", "/api/cases/x/opinions", nil)
	assigned = auth.WithTestUser(assigned, &auth.SessionUser{
		ID: specialist.Hex(), Role: "specialist",
	})
	if !casepolicy.CanSubmitOpinion(assigned, cs) {
		t.Error("assigned specialist should submit on an in-review case")
	}

	unassigned := httptest.NewRequest("POST", "/api/cases/x/opinions", nil)
	unassigned = auth.WithTestUser(unassigned, &auth.SessionUser{
		ID: primitive.NewObjectID().Hex(), Role: "specialist",
	})
	if casepolicy.CanSubmitOpinion(unassigned, cs) {
		t.Error("unassigned specialist should not submit")
	}

	admin := httptest.NewRequest("POST", "/api/cases/x/opinions", nil)
	admin = auth.WithTestUser(admin, &auth.SessionUser{
		ID: specialist.Hex(), Role: "admin",
	})
	if casepolicy.CanSubmitOpinion(admin, cs) {
		t.Error("admins do not author opinions")
	}

	closedCase := &models.Case{
		Status:        models.CaseClosed,
		SpecialistIDs: []primitive.ObjectID{specialist},
	}
	if casepolicy.CanSubmitOpinion(assigned, closedCase) {
		t.Error("closed cases accept no opinions")
	}
}
