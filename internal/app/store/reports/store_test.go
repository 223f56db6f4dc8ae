package reports_test

import (
	"errors"
	"testing"

	"github.com/clarityhealth/claritymdt/internal/app/store/reports"
	"github.com/clarityhealth/claritymdt/internal/app/system/indexes"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"github.com/clarityhealth/claritymdt/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_OnePerCase(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
	store := reports.New(db)
	caseID := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.ConsensusReport{CaseID: caseID, Body: "draft"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	_, err := store.Create(ctx, models.ConsensusReport{CaseID: caseID, Body: "second draft"})
	if !errors.Is(err, reports.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestFinalize_MakesReportImmutable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reports.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	caseID := primitive.NewObjectID()
	boardLead := primitive.NewObjectID()

	if _, err := store.Create(ctx, models.ConsensusReport{CaseID: caseID, Body: "draft"}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := store.UpdateDraft(ctx, caseID, "agreed plan", "chemo then resection"); err != nil {
		t.Fatalf("UpdateDraft failed: %v", err)
	}

	final, err := store.Finalize(ctx, caseID, boardLead)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if !final.Finalized || final.FinalizedBy == nil || *final.FinalizedBy != boardLead {
		t.Errorf("finalize stamp wrong: %+v", final)
	}
	if final.FinalizedAt == nil {
		t.Error("finalized_at missing")
	}

	// No edits and no second finalize after the stamp.
	if err := store.UpdateDraft(ctx, caseID, "sneaky edit", ""); !errors.Is(err, reports.ErrFinalized) {
		t.Errorf("expected ErrFinalized on edit, got %v", err)
	}
	if _, err := store.Finalize(ctx, caseID, boardLead); !errors.Is(err, reports.ErrFinalized) {
		t.Errorf("expected ErrFinalized on re-finalize, got %v", err)
	}
}

func TestUpdateDraft_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := reports.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.UpdateDraft(ctx, primitive.NewObjectID(), "body", "")
	if !errors.Is(err, reports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
