package dashboard

import (
	"fmt"
	"testing"
	"time"

	"github.com/foxzi/smartreach/internal/models"
)

var testNow = time.Date(2025, 6, 15, 14, 0, 0, 0, time.UTC)

func lead(id string, created time.Time) models.Lead {
	return models.Lead{
		ID:        id,
		Name:      "Lead " + id,
		Type:      models.LeadTypeNew,
		Status:    models.LeadStatusActive,
		CreatedAt: created,
	}
}

func ptr(t time.Time) *time.Time { return &t }

func ids(leads []models.Lead) []string {
	out := make([]string, len(leads))
	for i, l := range leads {
		out[i] = l.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTrend(t *testing.T) {
	tests := []struct {
		current, previous int
		want              int
	}{
		{5, 0, 100},
		{0, 0, 0},
		{10, 5, 100},
		{3, 6, -50},
		{2, 3, -33},
		{1, 3, -67},
		{3, 8, -63},
		{5, 8, -38},
		{7, 4, 75},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_%d", tt.current, tt.previous), func(t *testing.T) {
			if got := Trend(tt.current, tt.previous); got != tt.want {
				t.Errorf("Trend(%d, %d) = %d, want %d", tt.current, tt.previous, got, tt.want)
			}
		})
	}
}

func TestComputeEmpty(t *testing.T) {
	m := Compute(nil, testNow)

	if m.Total != 0 || m.NewThisWeek != 0 || m.TrendPct != 0 {
		t.Errorf("Compute(nil) = %+v, want zero counts", m)
	}
	if len(m.Daily) != 7 || len(m.Spark) != 7 {
		t.Errorf("Daily/Spark len = %d/%d, want 7", len(m.Daily), len(m.Spark))
	}
	if m.SparkMax != 5 {
		t.Errorf("SparkMax = %d, want 5", m.SparkMax)
	}
	if m.Recent == nil || m.Upcoming == nil || m.TopTags == nil || m.Exclusions == nil {
		t.Error("Compute(nil) returned nil slices")
	}
	if len(m.Suggestions) != 1 || m.Suggestions[0].Kind != SuggestionAllClear {
		t.Errorf("Suggestions = %+v, want one all_clear", m.Suggestions)
	}
}

func TestComputeStatusCounts(t *testing.T) {
	leads := []models.Lead{
		{ID: "1", Status: models.LeadStatusActive, Type: models.LeadTypeNew},
		{ID: "2", Status: models.LeadStatusActive, Type: models.LeadTypeReturning},
		{ID: "3", Status: models.LeadStatusDoNotContact, Type: models.LeadTypeReturning},
		{ID: "4", Status: models.LeadStatusLost},
		{ID: "5", Status: "ARCHIVED"},
		{ID: "6"},
	}

	m := Compute(leads, testNow)

	if m.Total != 6 {
		t.Errorf("Total = %d, want 6", m.Total)
	}
	if m.Status != (StatusCounts{Active: 2, DoNotContact: 1, Lost: 1}) {
		t.Errorf("Status = %+v", m.Status)
	}
	sum := m.Status.Active + m.Status.DoNotContact + m.Status.Lost
	if sum > m.Total {
		t.Errorf("status sum %d exceeds total %d", sum, m.Total)
	}
	if m.Types.Returning != 2 || m.Types.New != 1 {
		t.Errorf("Types = %+v, want 1 new 2 returning", m.Types)
	}

	known := Compute(leads[:4], testNow)
	if got := known.Status.Active + known.Status.DoNotContact + known.Status.Lost; got != known.Total {
		t.Errorf("status sum = %d, want total %d", got, known.Total)
	}
}

func TestComputeWindows(t *testing.T) {
	day := func(offset, hour int) time.Time {
		return time.Date(2025, 6, 15+offset, hour, 0, 0, 0, time.UTC)
	}
	leads := []models.Lead{
		lead("today-early", day(0, 0)),
		lead("today-late", day(0, 13)),
		lead("yesterday", day(-1, 23)),
		lead("window-start", day(-6, 0)),
		lead("prev-end", day(-7, 23)),
		lead("prev-start", day(-13, 0)),
		lead("too-old", day(-14, 12)),
		lead("tomorrow", day(1, 1)),
	}

	m := Compute(leads, testNow)

	if m.NewThisWeek != 4 {
		t.Errorf("NewThisWeek = %d, want 4", m.NewThisWeek)
	}
	if m.NewLastWeek != 2 {
		t.Errorf("NewLastWeek = %d, want 2", m.NewLastWeek)
	}
	if m.TrendPct != 100 {
		t.Errorf("TrendPct = %d, want 100", m.TrendPct)
	}
	if !m.WindowStart.Equal(day(-6, 0)) {
		t.Errorf("WindowStart = %v, want %v", m.WindowStart, day(-6, 0))
	}

	want := []int{1, 0, 0, 0, 0, 1, 2}
	sum := 0
	for i, v := range m.Daily {
		sum += v
		if v != want[i] {
			t.Errorf("Daily = %v, want %v", m.Daily, want)
			break
		}
	}
	if sum != m.NewThisWeek {
		t.Errorf("sum(Daily) = %d, want %d", sum, m.NewThisWeek)
	}
}

func TestComputeLocalDays(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*60*60)
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, loc)

	// 2025-06-14 15:00 UTC is already June 15 in UTC+10
	leads := []models.Lead{
		lead("a", time.Date(2025, 6, 14, 15, 0, 0, 0, time.UTC)),
		lead("b", time.Date(2025, 6, 14, 13, 59, 0, 0, time.UTC)),
	}

	m := Compute(leads, now)

	if m.Daily[6] != 1 || m.Daily[5] != 1 {
		t.Errorf("Daily = %v, want one lead on each of the last two days", m.Daily)
	}
}

func TestComputeSpark(t *testing.T) {
	low := Compute([]models.Lead{lead("a", testNow), lead("b", testNow)}, testNow)
	if low.SparkMax != 5 {
		t.Errorf("SparkMax = %d, want floor 5", low.SparkMax)
	}
	if low.Spark[6] != 0.4 {
		t.Errorf("Spark[6] = %v, want 0.4", low.Spark[6])
	}

	var many []models.Lead
	for i := 0; i < 8; i++ {
		many = append(many, lead(fmt.Sprint(i), testNow.Add(-time.Duration(i)*time.Minute)))
	}
	high := Compute(many, testNow)
	if high.SparkMax != 8 {
		t.Errorf("SparkMax = %d, want 8", high.SparkMax)
	}
	if high.Spark[6] != 1 || high.Spark[0] != 0 {
		t.Errorf("Spark = %v, want last point 1 and first 0", high.Spark)
	}

	opts := DefaultOptions()
	opts.SparkFloor = 0
	flat := ComputeWithOptions(nil, testNow, opts)
	if flat.SparkMax != 0 || flat.Spark[0] != 0 {
		t.Errorf("flat spark = %d %v, want zeros", flat.SparkMax, flat.Spark)
	}
}

func TestComputeRecent(t *testing.T) {
	m := Compute([]models.Lead{
		lead("t-3", testNow.Add(-3*time.Hour)),
		lead("t-1", testNow.Add(-1*time.Hour)),
		lead("t-2", testNow.Add(-2*time.Hour)),
	}, testNow)

	if got := ids(m.Recent); !equalStrings(got, []string{"t-1", "t-2", "t-3"}) {
		t.Errorf("Recent = %v, want [t-1 t-2 t-3]", got)
	}

	var leads []models.Lead
	for i := 0; i < 8; i++ {
		leads = append(leads, lead(fmt.Sprint(i), testNow.Add(-time.Hour)))
	}
	m = Compute(leads, testNow)
	if got := ids(m.Recent); !equalStrings(got, []string{"0", "1", "2", "3", "4", "5"}) {
		t.Errorf("Recent = %v, want first six in arrival order", got)
	}
}

func TestComputeUpcoming(t *testing.T) {
	leads := []models.Lead{
		lead("tomorrow", testNow),
		lead("past", testNow),
		lead("far", testNow),
		lead("now", testNow),
		lead("edge", testNow),
		lead("none", testNow),
	}
	leads[0].NextSuggestedAt = ptr(testNow.Add(24 * time.Hour))
	leads[1].NextSuggestedAt = ptr(testNow.Add(-time.Hour))
	leads[2].NextSuggestedAt = ptr(testNow.Add(4 * 24 * time.Hour))
	leads[3].NextSuggestedAt = ptr(testNow)
	leads[4].NextSuggestedAt = ptr(testNow.Add(72 * time.Hour))

	m := Compute(leads, testNow)

	if got := ids(m.Upcoming); !equalStrings(got, []string{"now", "tomorrow", "edge"}) {
		t.Errorf("Upcoming = %v, want [now tomorrow edge]", got)
	}

	var many []models.Lead
	for i := 0; i < 7; i++ {
		l := lead(fmt.Sprint(i), testNow)
		l.NextSuggestedAt = ptr(testNow.Add(time.Duration(7-i) * time.Hour))
		many = append(many, l)
	}
	m = Compute(many, testNow)
	if got := ids(m.Upcoming); !equalStrings(got, []string{"6", "5", "4", "3", "2"}) {
		t.Errorf("Upcoming = %v, want five soonest ascending", got)
	}
}

func TestComputeTopTags(t *testing.T) {
	l := lead("1", testNow)
	l.Tags = models.StringList{"a", "a", "b"}

	m := Compute([]models.Lead{l}, testNow)

	want := []TagCount{{"a", 2}, {"b", 1}}
	if len(m.TopTags) != len(want) {
		t.Fatalf("TopTags = %v, want %v", m.TopTags, want)
	}
	for i := range want {
		if m.TopTags[i] != want[i] {
			t.Errorf("TopTags = %v, want %v", m.TopTags, want)
		}
	}

	// ties keep first-encountered order, result capped at 7
	var leads []models.Lead
	for i, tags := range [][]string{{"x", "y"}, {"z", "y"}, {"t1", "t2", "t3", "t4", "t5", "t6"}} {
		l := lead(fmt.Sprint(i), testNow)
		l.Tags = tags
		leads = append(leads, l)
	}
	m = Compute(leads, testNow)
	var got []string
	for _, tc := range m.TopTags {
		got = append(got, tc.Tag)
	}
	if !equalStrings(got, []string{"y", "x", "z", "t1", "t2", "t3", "t4"}) {
		t.Errorf("TopTags = %v", got)
	}
}

func TestComputeSuggestions(t *testing.T) {
	t.Run("stale new lead", func(t *testing.T) {
		old := lead("old", testNow.Add(-4*24*time.Hour))
		fresh := lead("fresh", testNow.Add(-time.Hour))

		m := Compute([]models.Lead{fresh, old}, testNow)

		if len(m.Suggestions) != 1 {
			t.Fatalf("Suggestions = %+v, want 1", m.Suggestions)
		}
		s := m.Suggestions[0]
		if s.Kind != SuggestionStaleFollowUp || s.LeadID != "old" {
			t.Errorf("Suggestion = %+v, want stale follow-up for old", s)
		}
	})

	t.Run("fresh only", func(t *testing.T) {
		m := Compute([]models.Lead{lead("fresh", testNow.Add(-time.Hour))}, testNow)

		if len(m.Suggestions) != 1 || m.Suggestions[0].Kind != SuggestionAllClear || m.Suggestions[0].LeadID != "" {
			t.Errorf("Suggestions = %+v, want one all_clear", m.Suggestions)
		}
	})

	t.Run("caps and order", func(t *testing.T) {
		var leads []models.Lead
		for i := 0; i < 3; i++ {
			r := lead(fmt.Sprintf("r%d", i), testNow)
			r.Type = models.LeadTypeReturning
			leads = append(leads, r)
		}
		scheduled := lead("r-scheduled", testNow)
		scheduled.Type = models.LeadTypeReturning
		scheduled.NextSuggestedAt = ptr(testNow.Add(time.Hour))
		leads = append(leads, scheduled)
		for i := 0; i < 5; i++ {
			leads = append(leads, lead(fmt.Sprintf("n%d", i), testNow.Add(-5*24*time.Hour)))
		}

		m := Compute(leads, testNow)

		var got []string
		for _, s := range m.Suggestions {
			got = append(got, s.Kind+":"+s.LeadID)
		}
		want := []string{
			"stale_follow_up:n0", "stale_follow_up:n1", "stale_follow_up:n2",
			"re_engage:r0", "re_engage:r1",
		}
		if !equalStrings(got, want) {
			t.Errorf("Suggestions = %v, want %v", got, want)
		}
	})
}

func TestComputeExclusions(t *testing.T) {
	undated := lead("undated", time.Time{})
	undated.Tags = models.StringList{"vip"}
	badNext := lead("bad-next", testNow)
	badNext.NextSuggestedAt = &time.Time{}
	good := lead("good", testNow)

	m := Compute([]models.Lead{undated, badNext, good}, testNow)

	if m.Total != 3 || m.Status.Active != 3 {
		t.Errorf("Total = %d Active = %d, want 3 and 3", m.Total, m.Status.Active)
	}
	if m.NewThisWeek != 2 {
		t.Errorf("NewThisWeek = %d, want 2", m.NewThisWeek)
	}
	if len(m.TopTags) != 1 || m.TopTags[0].Tag != "vip" {
		t.Errorf("TopTags = %v, want undated lead still counted", m.TopTags)
	}
	if got := ids(m.Recent); !equalStrings(got, []string{"bad-next", "good"}) {
		t.Errorf("Recent = %v, want undated lead excluded", got)
	}
	if len(m.Upcoming) != 0 {
		t.Errorf("Upcoming = %v, want empty", ids(m.Upcoming))
	}

	want := []Exclusion{
		{LeadID: "undated", Field: "created_at", Reason: "missing creation timestamp"},
		{LeadID: "bad-next", Field: "next_suggested_at", Reason: "zero next contact timestamp"},
	}
	if len(m.Exclusions) != len(want) {
		t.Fatalf("Exclusions = %+v, want %+v", m.Exclusions, want)
	}
	for i := range want {
		if m.Exclusions[i] != want[i] {
			t.Errorf("Exclusions[%d] = %+v, want %+v", i, m.Exclusions[i], want[i])
		}
	}
}
