// Package composer drafts outreach emails with a language model.
package composer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/foxzi/smartreach/internal/models"
	"github.com/go-playground/validator/v10"
)

// Lead profile types
const (
	TypeNew       = "new"
	TypeReturning = "returning"
)

const defaultPrompt = "Create a helpful outreach email."

const systemPrompt = `You are SmartReach, an assistant that writes short, friendly, professional emails.
- Keep it concise (120-180 words) with a clear subject and one CTA.
- Tone depends on lead.type: "new" = welcoming/intro; "returning" = appreciative/check-in.
- If returning and lastService/lastServiceDate are present, reference them naturally.
- Plain text only (no HTML). Do not invent facts.`

// LeadProfile is the lead as presented to the model
type LeadProfile struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	Type            string `json:"type" validate:"required,oneof=new returning"`
	Query           string `json:"query,omitempty"`
	LastService     string `json:"lastService,omitempty"`
	LastServiceDate string `json:"lastServiceDate,omitempty"`
}

// Request is one draft request
type Request struct {
	Prompt string      `json:"prompt,omitempty"`
	Lead   LeadProfile `json:"lead"`
}

// Completer is a text-completion capability
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Composer struct {
	completer Completer
	validate  *validator.Validate
	logger    *slog.Logger
}

func New(completer Completer, logger *slog.Logger) *Composer {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Composer{
		completer: completer,
		validate:  v,
		logger:    logger.With("component", "composer"),
	}
}

// Validate checks a request without calling the model
func (c *Composer) Validate(req Request) error {
	err := c.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Field: "request", Message: err.Error()}}}
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// Compose validates req, asks the model for a draft and returns its reply
// verbatim. An absent reply yields "".
func (c *Composer) Compose(ctx context.Context, req Request) (string, error) {
	if err := c.Validate(req); err != nil {
		return "", err
	}

	system, user := BuildPrompt(req)
	text, err := c.completer.Complete(ctx, system, user)
	if err != nil {
		c.logger.Warn("draft generation failed", "lead_type", req.Lead.Type, "error", err)
		return "", &UpstreamError{Err: err}
	}

	c.logger.Debug("draft generated", "lead_type", req.Lead.Type, "chars", len(text))
	return text, nil
}

// BuildPrompt returns the system directive and user payload for req.
// Output depends only on req.
func BuildPrompt(req Request) (string, string) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = defaultPrompt
	}

	lead := req.Lead
	if lead.Type != TypeReturning {
		lead.LastService = ""
		lead.LastServiceDate = ""
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// a struct of strings always encodes
	_ = enc.Encode(lead)

	user := "Write an email.\n\nUser Prompt: " + prompt + "\n\nLead JSON:\n" +
		strings.TrimSuffix(buf.String(), "\n")
	return systemPrompt, user
}

// ProfileFromLead converts a stored lead into a model profile
func ProfileFromLead(l models.Lead) LeadProfile {
	p := LeadProfile{
		Name:  l.Name,
		Email: l.Email,
		Type:  TypeNew,
		Query: l.Query,
	}
	if l.Type == models.LeadTypeReturning {
		p.Type = TypeReturning
		p.LastService = l.LastService
		if l.LastServiceAt != nil {
			p.LastServiceDate = l.LastServiceAt.Format("2006-01-02")
		}
	}
	return p
}

// ParseDraft splits a leading "Subject:" line from the draft body
func ParseDraft(text string) (string, string) {
	text = strings.TrimSpace(text)
	first, rest, _ := strings.Cut(text, "\n")
	line := strings.TrimSpace(first)
	if len(line) >= 8 && strings.EqualFold(line[:8], "subject:") {
		return strings.TrimSpace(line[8:]), strings.TrimSpace(rest)
	}
	return "", text
}

// fieldPath drops the root struct name: "Request.lead.email" -> "lead.email"
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
