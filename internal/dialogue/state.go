package dialogue

import (
	"slices"
	"strings"
)

// Role identifies who produced a dialogue message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a stage log. Tag marks special assistant
// messages, e.g. a location confirmation bound to its candidate text.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	Tag  string `json:"tag,omitempty"`
}

const (
	tagConsentQuestion  = "consent_question"
	tagConfirmLocation  = "confirm_location"
	tagFirstAidWarning  = "first_aid_warning"
	tagFallbackSummary  = "fallback_summary"
	tagDiseaseConfirmed = "disease_confirmed"
)

// EmergencyLevel is the triage severity attached to a confirmed disease.
type EmergencyLevel string

const (
	LevelUrgent       EmergencyLevel = "urgent"
	LevelEmergency    EmergencyLevel = "emergency"
	LevelNonEmergency EmergencyLevel = "non-emergency"
)

// Rank orders severities so escalation can only ever move upward.
func (l EmergencyLevel) Rank() int {
	switch l {
	case LevelUrgent:
		return 3
	case LevelEmergency:
		return 2
	case LevelNonEmergency:
		return 1
	default:
		return 0
	}
}

// Stage is one phase of the triage dialogue.
type Stage string

const (
	StageInference  Stage = "inference"
	StageEscalation Stage = "escalation"
	StageConsent    Stage = "consent"
	StageLocation   Stage = "location"
	StageDispatch   Stage = "dispatch"
	StageFirstAid   Stage = "first_aid"
	StageTerminated Stage = "terminated"
)

// State is the canonical record of one caller's progress. It is mutated
// only by the Controller, one turn at a time, and round-trips through JSON
// losslessly: the serialized blob is the sole continuation mechanism
// between turns.
type State struct {
	InferenceLog  []Message `json:"inference_log"`
	EscalationLog []Message `json:"escalation_log"`
	ConsentLog    []Message `json:"consent_log"`
	LocationLog   []Message `json:"location_log"`
	FirstAidLog   []Message `json:"first_aid_log"`

	ConfirmedSymptoms    []string       `json:"confirmed_symptoms"`
	LastCandidates       []string       `json:"last_candidates"`
	ConfirmedDisease     string         `json:"confirmed_disease,omitempty"`
	EmergencyLevel       EmergencyLevel `json:"emergency_level,omitempty"`
	TurnCount            int            `json:"turn_count"`
	EscalationDone       bool           `json:"escalation_done"`
	ReportConsent        *bool          `json:"report_consent,omitempty"`
	FinalLocationText    string         `json:"final_location_text,omitempty"`
	LocationConfirmed    *bool          `json:"location_confirmed,omitempty"`
	ReportSent           bool           `json:"report_sent"`
	FirstAidWarningShown bool           `json:"first_aid_warning_shown"`
	Active               bool           `json:"active"`

	// PendingContinuation marks that the previous reply chains straight into
	// the next stage; the transport may submit an empty utterance to advance.
	PendingContinuation bool `json:"pending_continuation,omitempty"`

	// AskedQuestions records canonical question content per stage so a
	// caller is never asked the same disambiguating question twice.
	AskedQuestions map[Stage][]string `json:"asked_questions,omitempty"`
}

// NewState returns the state of a freshly opened call.
func NewState() *State {
	return &State{Active: true}
}

// CurrentStage recomputes the point of resumption purely from state.
// There is no stored stage pointer.
func (s *State) CurrentStage() Stage {
	switch {
	case !s.Active:
		return StageTerminated
	case s.ConfirmedDisease == "":
		return StageInference
	case !s.EscalationDone:
		return StageEscalation
	case s.ReportConsent == nil:
		return StageConsent
	case *s.ReportConsent && s.FinalLocationText == "":
		return StageLocation
	case *s.ReportConsent && !s.ReportSent:
		return StageDispatch
	default:
		return StageFirstAid
	}
}

// AddSymptoms merges newly reported symptoms into the confirmed set,
// preserving insertion order and skipping duplicates. The set never shrinks.
func (s *State) AddSymptoms(symptoms ...string) {
	for _, sym := range symptoms {
		sym = strings.TrimSpace(sym)
		if sym == "" || slices.Contains(s.ConfirmedSymptoms, sym) {
			continue
		}
		s.ConfirmedSymptoms = append(s.ConfirmedSymptoms, sym)
	}
}

// MarkAsked records a question in the per-stage asked set.
func (s *State) MarkAsked(stage Stage, question string) {
	if s.AskedQuestions == nil {
		s.AskedQuestions = make(map[Stage][]string)
	}
	cq := canonicalQuestion(question)
	if !slices.Contains(s.AskedQuestions[stage], cq) {
		s.AskedQuestions[stage] = append(s.AskedQuestions[stage], cq)
	}
}

// WasAsked reports whether an equivalent question was already issued in
// the given stage.
func (s *State) WasAsked(stage Stage, question string) bool {
	return slices.Contains(s.AskedQuestions[stage], canonicalQuestion(question))
}

// Clone returns an independent deep copy of the state.
func (s *State) Clone() *State {
	c := *s
	c.InferenceLog = slices.Clone(s.InferenceLog)
	c.EscalationLog = slices.Clone(s.EscalationLog)
	c.ConsentLog = slices.Clone(s.ConsentLog)
	c.LocationLog = slices.Clone(s.LocationLog)
	c.FirstAidLog = slices.Clone(s.FirstAidLog)
	c.ConfirmedSymptoms = slices.Clone(s.ConfirmedSymptoms)
	c.LastCandidates = slices.Clone(s.LastCandidates)
	if s.ReportConsent != nil {
		v := *s.ReportConsent
		c.ReportConsent = &v
	}
	if s.LocationConfirmed != nil {
		v := *s.LocationConfirmed
		c.LocationConfirmed = &v
	}
	if s.AskedQuestions != nil {
		c.AskedQuestions = make(map[Stage][]string, len(s.AskedQuestions))
		for stage, qs := range s.AskedQuestions {
			c.AskedQuestions[stage] = slices.Clone(qs)
		}
	}
	return &c
}

func canonicalQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}
