package scheduler

import (
	"testing"
	"time"

	"github.com/foxzi/smartreach/internal/models"
)

func TestPlan(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	campaign := models.Campaign{Steps: []models.CampaignStep{
		{Subject: "one", DelayHours: 0},
		{Subject: "two", DelayHours: 24},
		{Subject: "three", DelayHours: 72},
	}}

	tests := []struct {
		name       string
		lastStep   int
		campaign   models.Campaign
		wantIndex  int
		wantLast   int
		wantActive bool
		wantNext   time.Duration
	}{
		{"first step", -1, campaign, 0, 0, true, 24 * time.Hour},
		{"middle step", 0, campaign, 1, 1, true, 72 * time.Hour},
		{"last step", 1, campaign, 2, 2, false, 0},
		{"exhausted", 2, campaign, -1, 2, false, 0},
		{"no steps", -1, models.Campaign{}, -1, -1, false, 0},
		{"corrupt last step", -5, campaign, 0, 0, true, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(models.Enrollment{LastStep: tt.lastStep, Active: true}, tt.campaign, now)

			if got.StepIndex != tt.wantIndex {
				t.Errorf("StepIndex = %d, want %d", got.StepIndex, tt.wantIndex)
			}
			if (got.Step != nil) != (tt.wantIndex >= 0) {
				t.Errorf("Step = %v, want step present %v", got.Step, tt.wantIndex >= 0)
			}
			if got.LastStep != tt.wantLast {
				t.Errorf("LastStep = %d, want %d", got.LastStep, tt.wantLast)
			}
			if got.Active != tt.wantActive {
				t.Errorf("Active = %v, want %v", got.Active, tt.wantActive)
			}
			if tt.wantActive {
				if got.NextSendAt == nil || !got.NextSendAt.Equal(now.Add(tt.wantNext)) {
					t.Errorf("NextSendAt = %v, want %v", got.NextSendAt, now.Add(tt.wantNext))
				}
			} else if got.NextSendAt != nil {
				t.Errorf("NextSendAt = %v, want nil", got.NextSendAt)
			}
		})
	}
}

func TestFirstSendAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	if got := FirstSendAt(models.Campaign{}, now); !got.Equal(now) {
		t.Errorf("FirstSendAt(no steps) = %v, want %v", got, now)
	}
	c := models.Campaign{Steps: []models.CampaignStep{{DelayHours: 2}}}
	if got := FirstSendAt(c, now); !got.Equal(now.Add(2 * time.Hour)) {
		t.Errorf("FirstSendAt() = %v, want +2h", got)
	}
}
