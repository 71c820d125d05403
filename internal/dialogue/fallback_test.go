package dialogue

import (
	"strings"
	"testing"
)

func TestFallbackSummaryRanksCandidates(t *testing.T) {
	kb := &fakeKB{severities: map[string]EmergencyLevel{
		"sprain": LevelNonEmergency,
		"stroke": LevelUrgent,
	}}

	got := FallbackSummary([]string{"sprain", "stroke"}, kb)
	if !strings.Contains(got, "sprain (non-emergency)") || !strings.Contains(got, "stroke (urgent)") {
		t.Fatalf("summary missing candidates:\n%s", got)
	}
	if !strings.Contains(got, `"urgent"`) {
		t.Fatalf("summary should report the most severe level:\n%s", got)
	}
}

func TestFallbackSummaryWithoutCandidates(t *testing.T) {
	got := FallbackSummary(nil, &fakeKB{})
	if !strings.Contains(got, "could not narrow down") {
		t.Fatalf("unexpected empty-candidate summary:\n%s", got)
	}
}
