package scheduler

import (
	"regexp"
	"strings"

	"github.com/foxzi/smartreach/internal/models"
)

// variable pattern for template substitution: {{variable_name}}
var varPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// leadVariables builds the substitution map for campaign step templates
func leadVariables(lead models.Lead, campaign models.Campaign) map[string]string {
	vars := map[string]string{
		"name":          lead.Name,
		"first_name":    firstName(lead.Name),
		"email":         lead.Email,
		"company":       lead.Company,
		"query":         lead.Query,
		"last_service":  lead.LastService,
		"campaign":      campaign.Name,
		"campaign_name": campaign.Name,
	}
	if lead.LastServiceAt != nil {
		vars["last_service_date"] = lead.LastServiceAt.Format("2006-01-02")
	}
	return vars
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// renderTemplate substitutes {{variable}} patterns in template string
func renderTemplate(template string, vars map[string]string) string {
	if template == "" {
		return template
	}

	return varPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		if value, ok := vars[name]; ok {
			return value
		}
		// unknown variables stay visible in the queued email
		return match
	})
}
