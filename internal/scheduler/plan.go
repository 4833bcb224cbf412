package scheduler

import (
	"time"

	"github.com/foxzi/smartreach/internal/models"
)

// Transition is the planned state change of one due enrollment
type Transition struct {
	// StepIndex is the step to send now, -1 when nothing is sent
	StepIndex int
	Step      *models.CampaignStep

	LastStep   int
	Active     bool
	NextSendAt *time.Time
}

// Plan computes the transition for a due enrollment at now. The current step
// is sent; the following step becomes due after its own delay. When no step
// follows, the enrollment is deactivated.
func Plan(e models.Enrollment, c models.Campaign, now time.Time) Transition {
	idx := e.CurrentStep()
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.Steps) {
		return Transition{StepIndex: -1, LastStep: e.LastStep}
	}

	step := c.Steps[idx]
	t := Transition{StepIndex: idx, Step: &step, LastStep: idx}
	if idx+1 < len(c.Steps) {
		next := now.Add(c.Steps[idx+1].Delay())
		t.Active = true
		t.NextSendAt = &next
	}
	return t
}

// FirstSendAt returns when the first step of c becomes due for an enrollment made at now
func FirstSendAt(c models.Campaign, now time.Time) time.Time {
	if len(c.Steps) == 0 {
		return now
	}
	return now.Add(c.Steps[0].Delay())
}
