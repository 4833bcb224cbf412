// Package dashboard derives dashboard aggregates from lead records.
// Every computation takes an explicit reference time and never fails;
// leads with unusable timestamps are left out of date-based figures and
// reported in Metrics.Exclusions.
package dashboard

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/foxzi/smartreach/internal/models"
)

// Suggestion kinds
const (
	SuggestionStaleFollowUp = "stale_follow_up"
	SuggestionReengage      = "re_engage"
	SuggestionAllClear      = "all_clear"
)

// Options holds the tunable constants of the engine
type Options struct {
	WindowDays     int           // length of the current and previous windows in calendar days
	SparkFloor     int           // minimum normalisation maximum for the daily series
	RecentLimit    int           // number of recent leads
	UpcomingWithin time.Duration // look-ahead for upcoming follow-ups
	UpcomingLimit  int
	TopTagsLimit   int
	StaleAfter     time.Duration // age after which a NEW lead needs a follow-up
	StaleLimit     int
	ReengageLimit  int
}

// DefaultOptions returns the dashboard defaults
func DefaultOptions() Options {
	return Options{
		WindowDays:     7,
		SparkFloor:     5,
		RecentLimit:    6,
		UpcomingWithin: 72 * time.Hour,
		UpcomingLimit:  5,
		TopTagsLimit:   7,
		StaleAfter:     72 * time.Hour,
		StaleLimit:     3,
		ReengageLimit:  2,
	}
}

type StatusCounts struct {
	Active       int `json:"active"`
	DoNotContact int `json:"do_not_contact"`
	Lost         int `json:"lost"`
}

type TypeCounts struct {
	New       int `json:"new"`
	Returning int `json:"returning"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type Suggestion struct {
	Kind     string `json:"kind"`
	LeadID   string `json:"lead_id,omitempty"`
	LeadName string `json:"lead_name,omitempty"`
	Message  string `json:"message"`
}

// Exclusion reports a lead left out of a date-based computation
type Exclusion struct {
	LeadID string `json:"lead_id"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Metrics is the full dashboard payload
type Metrics struct {
	Total       int          `json:"total"`
	Status      StatusCounts `json:"status"`
	Types       TypeCounts   `json:"types"`
	NewThisWeek int          `json:"new_this_week"`
	NewLastWeek int          `json:"new_last_week"`
	TrendPct    int          `json:"trend_pct"`

	// Daily[i] counts leads created on local day WindowStart+i
	WindowStart time.Time `json:"window_start"`
	Daily       []int     `json:"daily"`
	SparkMax    int       `json:"spark_max"`
	Spark       []float64 `json:"spark"`

	Recent      []models.Lead `json:"recent"`
	Upcoming    []models.Lead `json:"upcoming"`
	TopTags     []TagCount    `json:"top_tags"`
	Suggestions []Suggestion  `json:"suggestions"`
	Exclusions  []Exclusion   `json:"exclusions"`
}

// Compute derives metrics with DefaultOptions
func Compute(leads []models.Lead, now time.Time) Metrics {
	return ComputeWithOptions(leads, now, DefaultOptions())
}

// ComputeWithOptions derives metrics from leads given in arrival order.
// Calendar days are taken in now's location.
func ComputeWithOptions(leads []models.Lead, now time.Time, opts Options) Metrics {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 1
	}

	today := midnight(now)
	start := today.AddDate(0, 0, -(opts.WindowDays - 1))
	end := today.AddDate(0, 0, 1)
	prevStart := start.AddDate(0, 0, -opts.WindowDays)

	m := Metrics{
		Total:       len(leads),
		WindowStart: start,
		Daily:       make([]int, opts.WindowDays),
		Recent:      []models.Lead{},
		Upcoming:    []models.Lead{},
		TopTags:     []TagCount{},
		Suggestions: []Suggestion{},
		Exclusions:  []Exclusion{},
	}

	var dated []models.Lead
	for _, l := range leads {
		switch l.Status {
		case models.LeadStatusActive:
			m.Status.Active++
		case models.LeadStatusDoNotContact:
			m.Status.DoNotContact++
		case models.LeadStatusLost:
			m.Status.Lost++
		}
		switch l.Type {
		case models.LeadTypeNew:
			m.Types.New++
		case models.LeadTypeReturning:
			m.Types.Returning++
		}

		if l.CreatedAt.IsZero() {
			m.Exclusions = append(m.Exclusions, Exclusion{
				LeadID: l.ID,
				Field:  "created_at",
				Reason: "missing creation timestamp",
			})
		} else {
			dated = append(dated, l)
			created := l.CreatedAt.In(now.Location())
			switch {
			case !created.Before(start) && created.Before(end):
				m.NewThisWeek++
				m.Daily[daysBetween(start, midnight(created))]++
			case !created.Before(prevStart) && created.Before(start):
				m.NewLastWeek++
			}
		}

		if l.NextSuggestedAt != nil && l.NextSuggestedAt.IsZero() {
			m.Exclusions = append(m.Exclusions, Exclusion{
				LeadID: l.ID,
				Field:  "next_suggested_at",
				Reason: "zero next contact timestamp",
			})
		}
	}

	m.TrendPct = Trend(m.NewThisWeek, m.NewLastWeek)
	m.SparkMax, m.Spark = normalize(m.Daily, opts.SparkFloor)
	m.Recent = recent(dated, opts.RecentLimit)
	m.Upcoming = upcoming(leads, now, opts)
	m.TopTags = topTags(leads, opts.TopTagsLimit)
	m.Suggestions = suggestions(leads, now, opts)

	return m
}

// Trend returns the percentage change from previous to current, rounded
// half away from zero. A zero previous count yields 0 or 100.
func Trend(current, previous int) int {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return int(math.Round(float64(current-previous) / float64(previous) * 100))
}

func normalize(buckets []int, floor int) (int, []float64) {
	peak := floor
	for _, b := range buckets {
		if b > peak {
			peak = b
		}
	}
	out := make([]float64, len(buckets))
	if peak <= 0 {
		return peak, out
	}
	for i, b := range buckets {
		out[i] = float64(b) / float64(peak)
	}
	return peak, out
}

func recent(leads []models.Lead, limit int) []models.Lead {
	out := make([]models.Lead, len(leads))
	copy(out, leads)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return truncate(out, limit)
}

func upcoming(leads []models.Lead, now time.Time, opts Options) []models.Lead {
	until := now.Add(opts.UpcomingWithin)
	out := []models.Lead{}
	for _, l := range leads {
		if !hasNextContact(l) {
			continue
		}
		at := *l.NextSuggestedAt
		if at.Before(now) || at.After(until) {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].NextSuggestedAt.Before(*out[j].NextSuggestedAt)
	})
	return truncate(out, opts.UpcomingLimit)
}

func topTags(leads []models.Lead, limit int) []TagCount {
	index := make(map[string]int)
	out := []TagCount{}
	for _, l := range leads {
		for _, tag := range l.Tags {
			i, ok := index[tag]
			if !ok {
				i = len(out)
				index[tag] = i
				out = append(out, TagCount{Tag: tag})
			}
			out[i].Count++
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func suggestions(leads []models.Lead, now time.Time, opts Options) []Suggestion {
	out := []Suggestion{}

	stale := 0
	for _, l := range leads {
		if stale >= opts.StaleLimit {
			break
		}
		if l.Type != models.LeadTypeNew || l.CreatedAt.IsZero() {
			continue
		}
		age := now.Sub(l.CreatedAt)
		if age <= opts.StaleAfter {
			continue
		}
		stale++
		out = append(out, Suggestion{
			Kind:     SuggestionStaleFollowUp,
			LeadID:   l.ID,
			LeadName: l.Name,
			Message:  fmt.Sprintf("Follow up with %s: added %d days ago and not contacted yet.", l.Name, int(age.Hours()/24)),
		})
	}

	reengage := 0
	for _, l := range leads {
		if reengage >= opts.ReengageLimit {
			break
		}
		if l.Type != models.LeadTypeReturning || hasNextContact(l) {
			continue
		}
		reengage++
		out = append(out, Suggestion{
			Kind:     SuggestionReengage,
			LeadID:   l.ID,
			LeadName: l.Name,
			Message:  fmt.Sprintf("Re-engage %s: no next contact is scheduled.", l.Name),
		})
	}

	if len(out) == 0 {
		out = append(out, Suggestion{
			Kind:    SuggestionAllClear,
			Message: "All caught up. No leads need attention right now.",
		})
	}
	return out
}

func hasNextContact(l models.Lead) bool {
	return l.NextSuggestedAt != nil && !l.NextSuggestedAt.IsZero()
}

func truncate(leads []models.Lead, limit int) []models.Lead {
	if limit >= 0 && len(leads) > limit {
		return leads[:limit]
	}
	return leads
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both local midnights
func daysBetween(a, b time.Time) int {
	return int(math.Round(b.Sub(a).Hours() / 24))
}
