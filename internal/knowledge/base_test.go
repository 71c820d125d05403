package knowledge

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medicall/agent/internal/dialogue"
)

func TestSeverityDefaultsToNonEmergency(t *testing.T) {
	b := New([]Entry{{Name: "stroke", EmergencyLevel: dialogue.LevelUrgent}})

	if got := b.Severity("stroke"); got != dialogue.LevelUrgent {
		t.Fatalf("Severity(stroke) = %q", got)
	}
	if got := b.Severity("unknown ailment"); got != dialogue.LevelNonEmergency {
		t.Fatalf("Severity(unknown) = %q, want non-emergency", got)
	}
}

func TestPromptTextKeepsInsertionOrder(t *testing.T) {
	b := New([]Entry{
		{Name: "stroke", EmergencyLevel: dialogue.LevelUrgent, Symptoms: []string{"facial drooping", "slurred speech"}},
		{Name: "sprain", EmergencyLevel: dialogue.LevelNonEmergency},
	})

	got := b.PromptText()
	want := "- stroke (urgent): facial drooping, slurred speech\n- sprain (non-emergency)"
	if got != want {
		t.Fatalf("PromptText() =\n%s\nwant\n%s", got, want)
	}
}

func TestWarningAndProcedureSplit(t *testing.T) {
	b := New(nil)
	b.AddFirstAidDoc("choking", "[warning]\nDo not sweep the mouth.\n\nEncourage coughing.\nGive abdominal thrusts.")

	warning, ok := b.Warning("choking")
	if !ok || warning != "Do not sweep the mouth." {
		t.Fatalf("Warning = (%q, %v)", warning, ok)
	}
	body, ok := b.Procedure("choking")
	if !ok || !strings.Contains(body, "abdominal thrusts") {
		t.Fatalf("Procedure = (%q, %v)", body, ok)
	}
	if strings.Contains(body, "Do not sweep") {
		t.Fatalf("warning leaked into procedure body: %q", body)
	}

	if _, ok := b.Warning("sprain"); ok {
		t.Fatalf("Warning for unknown disease should be absent")
	}
}

func TestSplitWarning(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		warning string
		body    string
	}{
		{
			name:    "no marker",
			in:      "Apply ice for twenty minutes.",
			warning: "",
			body:    "Apply ice for twenty minutes.",
		},
		{
			name:    "leading block",
			in:      "[warning]\nDo not move the limb.\n\nSplint the joint.",
			warning: "Do not move the limb.",
			body:    "Splint the joint.",
		},
		{
			name:    "trailing block",
			in:      "Splint the joint.\nKeep it elevated.\n\n[warning]\nDo not move the limb.",
			warning: "Do not move the limb.",
			body:    "Splint the joint.\nKeep it elevated.",
		},
	}
	for _, tc := range cases {
		warning, body := splitWarning(tc.in)
		if warning != tc.warning || body != tc.body {
			t.Errorf("%s: splitWarning = (%q, %q), want (%q, %q)", tc.name, warning, body, tc.warning, tc.body)
		}
	}
}

func TestLoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	diseases := `[
  {"name": "stroke", "emergency_level": "urgent", "symptoms": ["facial drooping"]},
  {"name": "sprain", "emergency_level": "non-emergency"}
]`
	if err := os.WriteFile(filepath.Join(dir, "diseases.json"), []byte(diseases), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "firstaid"), 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "[warning]\nDo not give food or water.\n\nLay the patient on their side."
	if err := os.WriteFile(filepath.Join(dir, "firstaid", "stroke.txt"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	b, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := b.Severity("stroke"); got != dialogue.LevelUrgent {
		t.Fatalf("Severity(stroke) = %q", got)
	}
	warning, ok := b.Warning("stroke")
	if !ok || warning != "Do not give food or water." {
		t.Fatalf("Warning = (%q, %v)", warning, ok)
	}
	if got := b.Diseases(); len(got) != 2 || got[0] != "stroke" {
		t.Fatalf("Diseases() = %v", got)
	}
}

func TestLoadMissingTable(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatalf("Load() on empty dir should fail")
	}
}

func TestDefaultBaseIsUsable(t *testing.T) {
	b := Default()
	if len(b.Diseases()) == 0 {
		t.Fatalf("default base has no diseases")
	}
	if got := b.Severity("stroke"); got != dialogue.LevelUrgent {
		t.Fatalf("Severity(stroke) = %q", got)
	}
	if _, ok := b.Procedure("choking"); !ok {
		t.Fatalf("default base missing choking procedure")
	}
	if crit := b.EscalationCriteria("fracture"); len(crit[dialogue.LevelUrgent]) == 0 {
		t.Fatalf("fracture escalation criteria missing: %v", crit)
	}
}
