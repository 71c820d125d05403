package dialogue

import "context"

// DecisionStatus classifies a reasoning service's structured verdict.
type DecisionStatus string

const (
	DecisionConfirmed  DecisionStatus = "confirmed"
	DecisionFollowUp   DecisionStatus = "follow-up"
	DecisionInProgress DecisionStatus = "in-progress"
	DecisionNone       DecisionStatus = "none"
)

// InferenceDecision is the reasoning service's answer for one inference turn.
type InferenceDecision struct {
	Status           DecisionStatus
	ConfirmedDisease string
	NextQuestion     string
	Symptoms         []string
	Candidates       []string
}

// EscalationDecision is the escalation oracle's answer: either the final
// severity or the next yes/no question.
type EscalationDecision struct {
	Status     DecisionStatus
	FinalLevel EmergencyLevel
	Question   string
}

// LocationDecision carries exactly one of a follow-up question or a final
// location candidate.
type LocationDecision struct {
	FollowUpQuestion  string
	FinalLocationText string
}

// FirstAidDecision is either a branching yes/no question or the matched
// procedure text, which must be surfaced verbatim.
type FirstAidDecision struct {
	Status      DecisionStatus
	Question    string
	MatchedText string
}

// Report is the fixed-shape payload forwarded to emergency responders.
type Report struct {
	Disease        string         `json:"disease"`
	Symptoms       []string       `json:"symptoms"`
	EmergencyLevel EmergencyLevel `json:"emergency_level"`
	Location       string         `json:"location"`
}

// ReasoningClient answers one disease-inference turn from the full
// inference log plus the static disease knowledge text.
type ReasoningClient interface {
	Infer(ctx context.Context, log []Message, knowledgeText string) (InferenceDecision, error)
}

// EscalationOracle decides whether the caller's history satisfies a
// higher-urgency criterion for the confirmed disease. The log already
// contains the caller's latest utterance when one was given.
type EscalationOracle interface {
	Assess(ctx context.Context, disease string, baseLevel EmergencyLevel, log []Message, utterance string) (EscalationDecision, error)
}

// LocationResolver turns the running location conversation into either a
// follow-up question or a final location string.
type LocationResolver interface {
	Resolve(ctx context.Context, log []Message, utterance string) (LocationDecision, error)
}

// FirstAidGuide walks the disease's procedure document, branching on
// yes/no answers until a single procedure matches.
type FirstAidGuide interface {
	Guide(ctx context.Context, disease string, level EmergencyLevel, symptoms []string, log []Message) (FirstAidDecision, error)
}

// DispatchGateway notifies emergency responders. It is called at most once
// per session; delivery is fire-and-forget from the caller's perspective.
type DispatchGateway interface {
	Send(ctx context.Context, report Report) error
}

// KnowledgeBase is the read-only disease knowledge the controller consults.
type KnowledgeBase interface {
	Severity(disease string) EmergencyLevel
	PromptText() string
	Warning(disease string) (string, bool)
}
