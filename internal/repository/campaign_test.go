package repository

import (
	"context"
	"testing"

	"github.com/foxzi/smartreach/internal/models"
)

func TestCampaignRepository_CreateAndGet(t *testing.T) {
	repo := NewCampaignRepository(setupTestDB(t))
	ctx := context.Background()

	c := &models.Campaign{
		Name: "Onboarding",
		Steps: []models.CampaignStep{
			{Position: 5, DelayHours: 48, Subject: "Checking in"},
			{Position: 1, DelayHours: 0, Subject: "Welcome {{name}}", Body: "Hi {{name}}"},
		},
	}
	if err := repo.Create(ctx, c); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetByID() returned nil")
	}
	if len(got.Steps) != 2 {
		t.Fatalf("Steps = %d, want 2", len(got.Steps))
	}
	if got.Steps[0].Subject != "Welcome {{name}}" || got.Steps[0].Position != 0 {
		t.Errorf("Steps[0] = %+v, want welcome step at position 0", got.Steps[0])
	}
	if got.Steps[1].DelayHours != 48 || got.Steps[1].Position != 1 {
		t.Errorf("Steps[1] = %+v, want 48h step at position 1", got.Steps[1])
	}
}

func TestCampaignRepository_List(t *testing.T) {
	repo := NewCampaignRepository(setupTestDB(t))
	ctx := context.Background()

	empty := &models.Campaign{Name: "Empty"}
	if err := repo.Create(ctx, empty); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	full := &models.Campaign{
		Name:    "Winback",
		OwnerID: "o1",
		Steps:   []models.CampaignStep{{Subject: "We miss you"}},
	}
	if err := repo.Create(ctx, full); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	campaigns, total, err := repo.List(ctx, models.CampaignListFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	for _, c := range campaigns {
		if c.Steps == nil {
			t.Errorf("campaign %s has nil steps", c.Name)
		}
		if c.ID == full.ID && len(c.Steps) != 1 {
			t.Errorf("Winback steps = %d, want 1", len(c.Steps))
		}
	}

	owned, _, err := repo.List(ctx, models.CampaignListFilter{OwnerID: "o1"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(owned) != 1 || owned[0].ID != full.ID {
		t.Errorf("List(owner) = %v, want only Winback", owned)
	}
}

func TestCampaignRepository_GetByIDNotFound(t *testing.T) {
	repo := NewCampaignRepository(setupTestDB(t))

	got, err := repo.GetByID(context.Background(), "nonexistent")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got != nil {
		t.Error("GetByID() should return nil for nonexistent ID")
	}
}
