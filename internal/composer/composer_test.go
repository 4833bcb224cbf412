package composer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	mock.Mock
}

func (m *mockCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	args := m.Called(ctx, system, user)
	return args.String(0), args.Error(1)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestComposeReturnsModelText(t *testing.T) {
	mc := &mockCompleter{}
	mc.On("Complete", mock.Anything, systemPrompt, mock.AnythingOfType("string")).
		Return("Subject: Hello\n\nHi Ana", nil).Once()

	c := New(mc, testLogger())
	text, err := c.Compose(context.Background(), Request{
		Lead: LeadProfile{Name: "Ana", Type: TypeNew},
	})

	require.NoError(t, err)
	assert.Equal(t, "Subject: Hello\n\nHi Ana", text)
	mc.AssertExpectations(t)
}

func TestComposeEmptyReply(t *testing.T) {
	mc := &mockCompleter{}
	mc.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", nil)

	text, err := New(mc, testLogger()).Compose(context.Background(), Request{
		Lead: LeadProfile{Name: "Ana", Type: TypeReturning},
	})

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestComposeValidation(t *testing.T) {
	tests := []struct {
		name  string
		lead  LeadProfile
		field string
	}{
		{"missing name", LeadProfile{Type: TypeNew}, "lead.name"},
		{"missing type", LeadProfile{Name: "Ana"}, "lead.type"},
		{"unknown type", LeadProfile{Name: "Ana", Type: "vip"}, "lead.type"},
		{"bad email", LeadProfile{Name: "Ana", Type: TypeNew, Email: "nope"}, "lead.email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mc := &mockCompleter{}
			_, err := New(mc, testLogger()).Compose(context.Background(), Request{Lead: tt.lead})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.NotEmpty(t, verr.Fields)
			assert.Equal(t, tt.field, verr.Fields[0].Field)

			mc.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestComposeUpstreamFailure(t *testing.T) {
	cause := errors.New("connection reset")
	mc := &mockCompleter{}
	mc.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", cause)

	_, err := New(mc, testLogger()).Compose(context.Background(), Request{
		Lead: LeadProfile{Name: "Ana", Type: TypeNew},
	})

	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrInvalidInput)
}

func TestBuildPrompt(t *testing.T) {
	t.Run("default prompt", func(t *testing.T) {
		_, user := BuildPrompt(Request{Prompt: "   ", Lead: LeadProfile{Name: "Ana", Type: TypeNew}})
		assert.Contains(t, user, "User Prompt: Create a helpful outreach email.")
		assert.True(t, strings.HasPrefix(user, "Write an email.\n\n"))
	})

	t.Run("custom prompt and indented lead", func(t *testing.T) {
		system, user := BuildPrompt(Request{
			Prompt: "Invite them to the spring sale",
			Lead: LeadProfile{
				Name:            "Bo <Shop>",
				Type:            TypeReturning,
				LastService:     "Brake check",
				LastServiceDate: "2024-03-01",
			},
		})
		assert.Equal(t, systemPrompt, system)
		assert.Contains(t, user, "User Prompt: Invite them to the spring sale")
		assert.Contains(t, user, "Lead JSON:\n{\n  \"name\": \"Bo <Shop>\",")
		assert.Contains(t, user, `"lastService": "Brake check"`)
		assert.Contains(t, user, `"lastServiceDate": "2024-03-01"`)
		assert.False(t, strings.HasSuffix(user, "\n"))
	})

	t.Run("new leads drop service history", func(t *testing.T) {
		_, user := BuildPrompt(Request{Lead: LeadProfile{
			Name:        "Cy",
			Type:        TypeNew,
			LastService: "Oil change",
		}})
		assert.NotContains(t, user, "lastService")
	})

	t.Run("deterministic", func(t *testing.T) {
		req := Request{Prompt: "x", Lead: LeadProfile{Name: "Ana", Type: TypeNew, Query: "tires"}}
		s1, u1 := BuildPrompt(req)
		s2, u2 := BuildPrompt(req)
		assert.Equal(t, s1, s2)
		assert.Equal(t, u1, u2)
	})
}

func TestProfileFromLead(t *testing.T) {
	served := time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC)

	p := ProfileFromLead(models.Lead{
		Name:          "Ana",
		Email:         "ana@example.com",
		Type:          models.LeadTypeReturning,
		Query:         "tires",
		LastService:   "Alignment",
		LastServiceAt: &served,
	})
	assert.Equal(t, LeadProfile{
		Name:            "Ana",
		Email:           "ana@example.com",
		Type:            TypeReturning,
		Query:           "tires",
		LastService:     "Alignment",
		LastServiceDate: "2024-03-01",
	}, p)

	p = ProfileFromLead(models.Lead{Name: "Bo", Type: models.LeadTypeNew, LastService: "ignored"})
	assert.Equal(t, TypeNew, p.Type)
	assert.Empty(t, p.LastService)
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantSubject string
		wantBody    string
	}{
		{"with subject", "Subject: Hello there\n\nHi Ana,\nThanks.", "Hello there", "Hi Ana,\nThanks."},
		{"lowercase label", "subject:Quick note\nBody", "Quick note", "Body"},
		{"no subject", "Hi Ana,\nThanks.", "", "Hi Ana,\nThanks."},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := ParseDraft(tt.text)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
