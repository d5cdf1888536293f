package rbac

import (
	"strings"
	"testing"
	"time"

	"github.com/seclab/promptgate/internal/history"
)

var businessHours = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func TestScore_RoleBase(t *testing.T) {
	tests := []struct {
		role string
		want int
	}{
		{"admin", 10},
		{"user", 30},
		{"guest", 50},
		{"ADMIN", 10},
		{"service-account", 50},
		{"", 50},
	}
	for _, tc := range tests {
		s := NewScorer(history.New())
		v := s.Score(tc.role, "hello", "", businessHours)
		if v.RiskScore != tc.want {
			t.Errorf("role %q: expected score %d, got %d", tc.role, tc.want, v.RiskScore)
		}
	}
}

func TestScore_BenignUserRequest(t *testing.T) {
	s := NewScorer(history.New())
	v := s.Score("user", "Qual é a capital do Brasil?", "", businessHours)

	if v.RiskScore != 30 {
		t.Errorf("expected score 30, got %d", v.RiskScore)
	}
	if v.RiskLevel != LevelMedium {
		t.Errorf("expected medium, got %s", v.RiskLevel)
	}
	if v.Action != ActionAllow {
		t.Errorf("expected allow, got %s", v.Action)
	}
	if len(v.Factors) != 1 || v.Factors[0].Name != "role_user" || v.Factors[0].Contribution != 30 {
		t.Errorf("expected single role_user:30 factor, got %+v", v.Factors)
	}
}

func TestScore_OffHours(t *testing.T) {
	tests := []struct {
		hour     int
		offHours bool
	}{
		{7, true},
		{8, false},
		{12, false},
		{18, false},
		{19, true},
		{2, true},
	}
	for _, tc := range tests {
		s := NewScorer(history.New())
		ts := time.Date(2025, 6, 2, tc.hour, 30, 0, 0, time.UTC)
		v := s.Score("admin", "hello", "", ts)

		want := 10
		if tc.offHours {
			want += 20
		}
		if v.RiskScore != want {
			t.Errorf("hour %d: expected score %d, got %d", tc.hour, want, v.RiskScore)
		}
		if tc.offHours && !hasFactor(v, "off_hours", 20) {
			t.Errorf("hour %d: expected off_hours factor, got %+v", tc.hour, v.Factors)
		}
	}
}

func TestScore_LongPromptSaturates(t *testing.T) {
	tests := []struct {
		length int
		want   int // long_prompt contribution
	}{
		{1000, 0},
		{1050, 0},
		{1100, 1},
		{1500, 5},
		{3000, 20},
		{9000, 20},
	}
	for _, tc := range tests {
		s := NewScorer(history.New())
		v := s.Score("admin", strings.Repeat("a", tc.length), "", businessHours)
		if got := v.RiskScore - 10; got != tc.want {
			t.Errorf("length %d: expected long prompt contribution %d, got %d", tc.length, tc.want, got)
		}
	}
}

func TestScore_LongPromptMonotonic(t *testing.T) {
	s := NewScorer(history.New())
	prev := 0
	for length := 1000; length <= 4000; length += 200 {
		v := s.Score("admin", strings.Repeat("a", length), "", businessHours)
		if v.RiskScore < prev {
			t.Fatalf("score decreased with prompt length at %d: %d < %d", length, v.RiskScore, prev)
		}
		prev = v.RiskScore
	}
	if prev != 10+20 {
		t.Errorf("expected saturation at role+20, got %d", prev)
	}
}

func TestScore_FrequencyFactor(t *testing.T) {
	s := NewScorer(history.New())

	// Eleven requests inside the five-minute window: none sees more
	// than ten earlier entries, so none carries a frequency factor.
	var last Verdict
	for i := 0; i < 11; i++ {
		last = s.Score("guest", "hello", "burst-user", businessHours.Add(time.Duration(i)*time.Second))
	}
	if hasFactorName(last, "high_frequency") {
		t.Errorf("11th request should not carry a frequency factor, got %+v", last.Factors)
	}

	// The 12th is the first to see a pre-append count of 11.
	v := s.Score("guest", "hello", "burst-user", businessHours.Add(11*time.Second))
	if !hasFactor(v, "high_frequency", 2) {
		t.Errorf("expected high_frequency:2 on the 12th request, got %+v", v.Factors)
	}
	if v.RiskScore != 52 {
		t.Errorf("expected score 52 (guest 50 + frequency 2), got %d", v.RiskScore)
	}
}

func TestScore_FrequencySaturates(t *testing.T) {
	s := NewScorer(history.New())
	var v Verdict
	for i := 0; i < 40; i++ {
		v = s.Score("admin", "hello", "flood", businessHours.Add(time.Duration(i)*time.Second))
	}
	if !hasFactor(v, "high_frequency", 20) {
		t.Errorf("expected frequency factor saturated at 20, got %+v", v.Factors)
	}
}

func TestScore_AnonymousSkipsHistory(t *testing.T) {
	tracker := history.New()
	s := NewScorer(tracker)

	for i := 0; i < 30; i++ {
		s.Score("guest", "hello", "", businessHours.Add(time.Duration(i)*time.Second))
	}
	if n := tracker.Len(""); n != 0 {
		t.Errorf("anonymous requests must not be recorded, found %d entries", n)
	}
}

func TestScore_ThresholdMapping(t *testing.T) {
	tests := []struct {
		role   string
		hour   int
		length int
		level  RiskLevel
		action Action
	}{
		{"admin", 10, 10, LevelLow, ActionAllow},       // 10
		{"user", 10, 10, LevelMedium, ActionAllow},     // 30
		{"guest", 10, 3000, LevelHigh, ActionStepUp},   // 70
		{"guest", 22, 3000, LevelCritical, ActionBlock}, // 90
	}
	for _, tc := range tests {
		s := NewScorer(history.New())
		ts := time.Date(2025, 6, 2, tc.hour, 0, 0, 0, time.UTC)
		v := s.Score(tc.role, strings.Repeat("a", tc.length), "", ts)
		if v.RiskLevel != tc.level || v.Action != tc.action {
			t.Errorf("role=%s hour=%d len=%d: expected %s/%s, got %s/%s (score %d)",
				tc.role, tc.hour, tc.length, tc.level, tc.action, v.RiskLevel, v.Action, v.RiskScore)
		}
	}
}

func TestScore_ClampedTo100(t *testing.T) {
	s := NewScorer(history.New())
	offHours := time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC)

	var v Verdict
	for i := 0; i < 40; i++ {
		v = s.Score("guest", strings.Repeat("a", 5000), "night-flood", offHours.Add(time.Duration(i)*time.Second))
	}
	// guest 50 + off hours 20 + length 20 + frequency 20 = 110, clamped.
	if v.RiskScore != 100 {
		t.Errorf("expected clamped score 100, got %d", v.RiskScore)
	}
	if v.RiskLevel != LevelCritical || v.Action != ActionBlock {
		t.Errorf("expected critical/block, got %s/%s", v.RiskLevel, v.Action)
	}
}

func hasFactor(v Verdict, name string, contribution int) bool {
	for _, f := range v.Factors {
		if f.Name == name && f.Contribution == contribution {
			return true
		}
	}
	return false
}

func hasFactorName(v Verdict, name string) bool {
	for _, f := range v.Factors {
		if f.Name == name {
			return true
		}
	}
	return false
}
