package repository

import (
	"context"
	"testing"

	"github.com/foxzi/smartreach/internal/models"
)

func TestEmailLogRepository_CreateQueued(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEmailLogRepository(db)
	ctx := context.Background()

	lead := &models.Lead{OwnerID: "o1", Name: "Ada", Email: "ada@example.com"}
	if err := NewLeadRepository(db).Upsert(ctx, lead); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	log := &models.EmailLog{
		LeadID:   lead.ID,
		ToEmail:  lead.Email,
		Subject:  "Hello",
		BodyText: "Hi Ada",
		Status:   models.EmailStatusSent,
	}
	if err := repo.CreateQueued(ctx, log); err != nil {
		t.Fatalf("CreateQueued() error = %v", err)
	}
	if log.ID == "" {
		t.Error("CreateQueued() did not set ID")
	}
	if log.Status != models.EmailStatusQueued {
		t.Errorf("Status = %v, want QUEUED", log.Status)
	}

	if err := repo.CreateQueued(ctx, &models.EmailLog{ToEmail: "x@example.com", Subject: "Other"}); err != nil {
		t.Fatalf("CreateQueued() error = %v", err)
	}

	logs, total, err := repo.List(ctx, models.EmailLogFilter{LeadID: lead.ID})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 1 || len(logs) != 1 {
		t.Fatalf("List() = %d (total %d), want 1", len(logs), total)
	}
	if logs[0].BodyText != "Hi Ada" || logs[0].BodyHTML != "" || logs[0].StepIndex != nil {
		t.Errorf("logs[0] = %+v", logs[0])
	}

	queued, _, err := repo.List(ctx, models.EmailLogFilter{Status: models.EmailStatusQueued})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(queued) != 2 {
		t.Errorf("List(QUEUED) = %d, want 2", len(queued))
	}
}

func TestDraftRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDraftRepository(db)
	ctx := context.Background()

	lead := &models.Lead{OwnerID: "o1", Name: "Ada"}
	if err := NewLeadRepository(db).Upsert(ctx, lead); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	draft := &models.EmailDraft{
		LeadID:  lead.ID,
		Subject: "Welcome",
		Body:    "Hi Ada",
		Model:   "gpt-3.5-turbo",
	}
	if err := repo.Create(ctx, draft); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	drafts, err := repo.ListByLead(ctx, lead.ID)
	if err != nil {
		t.Fatalf("ListByLead() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("ListByLead() = %d, want 1", len(drafts))
	}
	if drafts[0].Prompt != "" || drafts[0].Subject != "Welcome" {
		t.Errorf("draft = %+v", drafts[0])
	}

	none, err := repo.ListByLead(ctx, "other")
	if err != nil {
		t.Fatalf("ListByLead() error = %v", err)
	}
	if len(none) != 0 {
		t.Errorf("ListByLead(other) = %d, want 0", len(none))
	}
}
