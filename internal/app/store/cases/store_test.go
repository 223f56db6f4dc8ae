package cases_test

import (
	"errors"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/store/cases"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_Defaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cases.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cs, err := store.Create(ctx, models.Case{
		PatientRef:   "HSP-00412",
		Title:        "  Suspected lymphoma ",
		DepartmentID: primitive.NewObjectID(),
		CreatedBy:    primitive.NewObjectID(),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if cs.Status != models.CaseOpen {
		t.Errorf("default status: got %q", cs.Status)
	}
	if cs.Title != "Suspected lymphoma" {
		t.Errorf("title not trimmed: %q", cs.Title)
	}
}

func TestCreate_RequiresPatientRef(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cases.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.Case{Title: "No patient"})
	if err == nil {
		t.Error("expected error for missing patient reference")
	}
}

func TestSetStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cases.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	cs, _ := store.Create(ctx, models.Case{
		PatientRef: "HSP-1", Title: "T", DepartmentID: primitive.NewObjectID(), CreatedBy: primitive.NewObjectID(),
	})

	if err := store.SetStatus(ctx, cs.ID, models.CaseClosed); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := store.GetByID(ctx, cs.ID)
	if got.Status != models.CaseClosed {
		t.Errorf("status: got %q", got.Status)
	}

	if err := store.SetStatus(ctx, cs.ID, "bogus"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestList_BySpecialist(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cases.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	specialist := primitive.NewObjectID()
	dept := primitive.NewObjectID()
	creator := primitive.NewObjectID()

	store.Create(ctx, models.Case{
		PatientRef: "HSP-1", Title: "Mine", DepartmentID: dept, CreatedBy: creator,
		SpecialistIDs: []primitive.ObjectID{specialist},
	})
	store.Create(ctx, models.Case{
		PatientRef: "HSP-2", Title: "Not mine", DepartmentID: dept, CreatedBy: creator,
	})

	got, err := store.List(ctx, cases.ListFilter{SpecialistID: &specialist})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Mine" {
		t.Errorf("specialist filter wrong: %+v", got)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cases.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if !errors.Is(err, cases.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
