package dialogue

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCurrentStageProgression(t *testing.T) {
	granted := true
	refused := false

	cases := []struct {
		name string
		st   State
		want Stage
	}{
		{"fresh", State{Active: true}, StageInference},
		{"inactive", State{}, StageTerminated},
		{"disease confirmed", State{Active: true, ConfirmedDisease: "stroke"}, StageEscalation},
		{"escalated", State{Active: true, ConfirmedDisease: "stroke", EscalationDone: true}, StageConsent},
		{"consent granted", State{Active: true, ConfirmedDisease: "stroke", EscalationDone: true, ReportConsent: &granted}, StageLocation},
		{"location resolved", State{Active: true, ConfirmedDisease: "stroke", EscalationDone: true, ReportConsent: &granted, FinalLocationText: "Oak Street 21"}, StageDispatch},
		{"report sent", State{Active: true, ConfirmedDisease: "stroke", EscalationDone: true, ReportConsent: &granted, FinalLocationText: "Oak Street 21", ReportSent: true}, StageFirstAid},
		{"consent refused", State{Active: true, ConfirmedDisease: "stroke", EscalationDone: true, ReportConsent: &refused}, StageFirstAid},
	}
	for _, tc := range cases {
		if got := tc.st.CurrentStage(); got != tc.want {
			t.Errorf("%s: CurrentStage() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestAddSymptomsDeduplicates(t *testing.T) {
	st := NewState()
	st.AddSymptoms("chest pain", "  sweating ", "", "chest pain")
	st.AddSymptoms("nausea", "sweating")

	want := []string{"chest pain", "sweating", "nausea"}
	if !reflect.DeepEqual(st.ConfirmedSymptoms, want) {
		t.Fatalf("symptoms = %v, want %v", st.ConfirmedSymptoms, want)
	}
}

func TestWasAskedIsCaseAndSpacingInsensitive(t *testing.T) {
	st := NewState()
	st.MarkAsked(StageConsent, "Shall I report it?  (yes/no)")

	if !st.WasAsked(StageConsent, "shall i REPORT it? (yes/no)") {
		t.Fatalf("equivalent question not recognized")
	}
	if st.WasAsked(StageLocation, "Shall I report it? (yes/no)") {
		t.Fatalf("asked set leaked across stages")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	st := NewState()
	st.InferenceLog = append(st.InferenceLog, Message{Role: RoleUser, Text: "help"})
	st.AddSymptoms("chest pain")
	st.MarkAsked(StageConsent, "Shall I report it?")
	granted := true
	st.ReportConsent = &granted

	c := st.Clone()
	c.InferenceLog[0].Text = "changed"
	c.ConfirmedSymptoms[0] = "changed"
	c.AskedQuestions[StageConsent][0] = "changed"
	*c.ReportConsent = false

	if st.InferenceLog[0].Text != "help" {
		t.Fatalf("clone shares inference log")
	}
	if st.ConfirmedSymptoms[0] != "chest pain" {
		t.Fatalf("clone shares symptom slice")
	}
	if st.AskedQuestions[StageConsent][0] == "changed" {
		t.Fatalf("clone shares asked-question map")
	}
	if !*st.ReportConsent {
		t.Fatalf("clone shares consent pointer")
	}
}

func TestStateJSONRoundTrip(t *testing.T) {
	st := NewState()
	st.ConfirmedDisease = "stroke"
	st.EmergencyLevel = LevelUrgent
	st.EscalationDone = true
	st.PendingContinuation = true
	st.MarkAsked(StageLocation, "Is the location correct?")
	st.InferenceLog = append(st.InferenceLog, Message{Role: RoleAssistant, Text: "q", Tag: tagDiseaseConfirmed})

	blob, err := json.Marshal(st)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got State
	if err := json.Unmarshal(blob, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(&got, st) {
		t.Fatalf("round trip diverged:\n got %+v\nwant %+v", &got, st)
	}
}
