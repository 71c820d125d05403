package dialogue

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/medicall/agent/internal/reliability"
)

// Fixed caller-facing messages. Everything else a caller sees comes from the
// reasoning services or the knowledge store.
const (
	openingQuestion      = "Please describe the patient's condition. What symptoms are they showing?"
	emptyInputReprompt   = "No input was detected. Please say that again."
	sessionClosedMessage = "This call has already ended. Please start a new call."
	clientFailureMessage = "I'm sorry, something went wrong on our side. Please say that again."
	consentReprompt      = "Please answer once more. (yes/no)"

	locationOpeningQuestion = "Please tell me the patient's exact location. For example: building and floor, or a nearby landmark."

	ackLocationConfirmed = "Your location is confirmed and the emergency report has been sent."
	ackLocationUnknown   = "Your location could not be pinned down. A responder will call you back, so keep your phone close."
	ackLocationUnset     = "The emergency report has been sent."
	firstAidHandoff      = "I will now walk you through first aid."
)

// Status summarizes the outcome of one controller invocation.
type Status string

const (
	StatusInProgress Status = "in-progress"
	StatusConfirmed  Status = "confirmed"
	StatusFallback   Status = "fallback"
	StatusError      Status = "error"
	StatusClosed     Status = "closed"
)

// Result is what one turn hands back to the transport.
type Result struct {
	Reply    string `json:"reply"`
	Status   Status `json:"status"`
	Stage    Stage  `json:"stage"`
	Terminal bool   `json:"terminal"`
	Prank    bool   `json:"prank"`

	// Continuation means the reply chains into the next stage; the transport
	// may submit an empty follow-up utterance to advance without caller input.
	Continuation bool `json:"continuation"`

	// FailureKind is set on StatusError results.
	FailureKind reliability.Kind `json:"failure_kind,omitempty"`
}

// Config wires the controller's collaborators. CallTimeout bounds each
// external call; MaxInferenceTurns is the inference follow-up ceiling.
type Config struct {
	Reasoner   ReasoningClient
	Oracle     EscalationOracle
	Locator    LocationResolver
	Guide      FirstAidGuide
	Dispatcher DispatchGateway
	Knowledge  KnowledgeBase

	CallTimeout       time.Duration
	MaxInferenceTurns int
}

// Controller is the single canonical stage orchestrator. It is stateless
// between turns: each invocation reconstructs its point of resumption from
// the State value alone, so the transport may persist state server-side or
// round-trip it over the wire.
type Controller struct {
	reasoner   ReasoningClient
	oracle     EscalationOracle
	locator    LocationResolver
	guide      FirstAidGuide
	dispatcher DispatchGateway
	kb         KnowledgeBase

	callTimeout       time.Duration
	maxInferenceTurns int
}

func NewController(cfg Config) *Controller {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 15 * time.Second
	}
	if cfg.MaxInferenceTurns <= 0 {
		cfg.MaxInferenceTurns = 8
	}
	return &Controller{
		reasoner:          cfg.Reasoner,
		oracle:            cfg.Oracle,
		locator:           cfg.Locator,
		guide:             cfg.Guide,
		dispatcher:        cfg.Dispatcher,
		kb:                cfg.Knowledge,
		callTimeout:       cfg.CallTimeout,
		maxInferenceTurns: cfg.MaxInferenceTurns,
	}
}

// Step runs one caller turn. On entry guards and external-call failures the
// state is left exactly as it was, so the transport can re-present the turn.
func (c *Controller) Step(ctx context.Context, st *State, utterance string) Result {
	if !st.Active {
		return Result{Reply: sessionClosedMessage, Status: StatusClosed, Stage: StageTerminated, Terminal: true}
	}

	// Very first contact: fixed opening question, nothing else.
	if len(st.InferenceLog) == 0 {
		st.InferenceLog = append(st.InferenceLog, Message{Role: RoleAssistant, Text: openingQuestion})
		return Result{Reply: openingQuestion, Status: StatusInProgress, Stage: StageInference}
	}

	text := strings.TrimSpace(utterance)
	continuation := st.PendingContinuation
	if text == "" && !continuation {
		return Result{Reply: emptyInputReprompt, Status: StatusInProgress, Stage: st.CurrentStage()}
	}
	st.PendingContinuation = false

	prank := DetectPrank(text, st.ConfirmedSymptoms)
	res := c.stageStep(ctx, st, text)
	if res.Status == StatusError {
		// A failed turn must be a no-op retry point.
		st.PendingContinuation = continuation
	}
	res.Prank = prank
	return res
}

func (c *Controller) stageStep(ctx context.Context, st *State, text string) Result {
	switch st.CurrentStage() {
	case StageInference:
		return c.inferenceStep(ctx, st, text)
	case StageEscalation:
		return c.escalationStep(ctx, st, text)
	case StageConsent:
		return c.consentTurn(ctx, st, text)
	case StageLocation:
		return c.locationStep(ctx, st, text)
	case StageDispatch:
		return c.dispatchStep(ctx, st)
	default:
		return c.firstAidStep(ctx, st, text)
	}
}

// inferenceStep drives disease inference. The caller utterance is committed
// to the log only after a successful reasoning call.
func (c *Controller) inferenceStep(ctx context.Context, st *State, text string) Result {
	turnLog := append(slices.Clone(st.InferenceLog), Message{Role: RoleUser, Text: text})

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	dec, err := c.reasoner.Infer(cctx, turnLog, c.kb.PromptText())
	if err != nil {
		return c.clientFailure(StageInference, "reasoning", err)
	}

	st.InferenceLog = turnLog
	st.AddSymptoms(dec.Symptoms...)
	if len(dec.Candidates) > 0 {
		st.LastCandidates = slices.Clone(dec.Candidates)
	}

	switch {
	case dec.Status == DecisionConfirmed && dec.ConfirmedDisease != "":
		st.ConfirmedDisease = dec.ConfirmedDisease
		st.TurnCount = 0
		st.EmergencyLevel = c.kb.Severity(dec.ConfirmedDisease)
		st.InferenceLog = append(st.InferenceLog, Message{
			Role: RoleAssistant,
			Text: fmt.Sprintf("The suspected condition is %q (base severity: %s).", st.ConfirmedDisease, st.EmergencyLevel),
			Tag:  tagDiseaseConfirmed,
		})
		// Hand off to escalation within the same turn.
		return c.escalationStep(ctx, st, "")

	case dec.Status == DecisionFollowUp && dec.NextQuestion != "":
		st.TurnCount++
		if st.TurnCount >= c.maxInferenceTurns {
			return c.fallback(st)
		}
		st.InferenceLog = append(st.InferenceLog, Message{Role: RoleAssistant, Text: dec.NextQuestion})
		return Result{Reply: dec.NextQuestion, Status: StatusInProgress, Stage: StageInference}

	default:
		// Neither confirmed nor askable: fail closed, without charging the
		// turn budget.
		return c.fallback(st)
	}
}

func (c *Controller) fallback(st *State) Result {
	text := FallbackSummary(st.LastCandidates, c.kb)
	st.InferenceLog = append(st.InferenceLog, Message{Role: RoleAssistant, Text: text, Tag: tagFallbackSummary})
	st.Active = false
	return Result{Reply: text, Status: StatusFallback, Stage: StageInference, Terminal: true}
}

// escalationStep lets the oracle upgrade the base severity through targeted
// yes/no questions. A confirmed verdict can never lower the level.
func (c *Controller) escalationStep(ctx context.Context, st *State, text string) Result {
	turnLog := slices.Clone(st.EscalationLog)
	if hasAssistant(turnLog) && text != "" {
		turnLog = append(turnLog, Message{Role: RoleUser, Text: text})
	}

	base := st.EmergencyLevel
	if base == "" {
		base = LevelNonEmergency
	}

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	dec, err := c.oracle.Assess(cctx, st.ConfirmedDisease, base, turnLog, text)
	if err != nil {
		return c.clientFailure(StageEscalation, "escalation oracle", err)
	}

	switch {
	case dec.Status == DecisionConfirmed:
		st.EscalationLog = turnLog
		final := dec.FinalLevel
		if final == "" {
			final = base
		}
		if final.Rank() > st.EmergencyLevel.Rank() {
			st.EmergencyLevel = final
		}
		st.EscalationDone = true
		return c.consentPrompt(ctx, st)

	case dec.Question != "":
		st.EscalationLog = append(turnLog, Message{Role: RoleAssistant, Text: dec.Question})
		return Result{Reply: dec.Question, Status: StatusInProgress, Stage: StageEscalation}

	default:
		return c.clientFailure(StageEscalation, "escalation oracle",
			reliability.AsContent(fmt.Errorf("decision carries neither verdict nor question")))
	}
}

// consentTurn handles a caller answer to a pending consent question, then
// routes to the consent branch logic.
func (c *Controller) consentTurn(ctx context.Context, st *State, text string) Result {
	if n := len(st.ConsentLog); n > 0 && text != "" {
		last := st.ConsentLog[n-1]
		if last.Role == RoleAssistant && last.Tag == tagConsentQuestion {
			st.ConsentLog = append(st.ConsentLog, Message{Role: RoleUser, Text: text})
			if v, ok := NormalizeYesNo(text); ok {
				st.ReportConsent = &v
			}
		}
	}
	if st.ReportConsent == nil {
		return c.consentPrompt(ctx, st)
	}
	if *st.ReportConsent {
		return c.locationStep(ctx, st, "")
	}
	return c.firstAidStep(ctx, st, "")
}

// consentPrompt branches purely on the emergency level; no external call.
func (c *Controller) consentPrompt(ctx context.Context, st *State) Result {
	switch st.EmergencyLevel {
	case LevelUrgent:
		granted := true
		st.ReportConsent = &granted
		return c.locationStep(ctx, st, "")

	case LevelEmergency:
		q := fmt.Sprintf("The suspected condition is %q and this is an emergency. Shall I report it to the emergency service? (yes/no)", st.ConfirmedDisease)
		if !st.WasAsked(StageConsent, q) {
			st.MarkAsked(StageConsent, q)
			st.ConsentLog = append(st.ConsentLog, Message{Role: RoleAssistant, Text: q, Tag: tagConsentQuestion})
			return Result{Reply: q, Status: StatusInProgress, Stage: StageConsent}
		}
		// Indeterminate answer: re-prompt. There is intentionally no ceiling
		// here; see DESIGN.md.
		st.ConsentLog = append(st.ConsentLog, Message{Role: RoleAssistant, Text: consentReprompt, Tag: tagConsentQuestion})
		return Result{Reply: consentReprompt, Status: StatusInProgress, Stage: StageConsent}

	default:
		refused := false
		st.ReportConsent = &refused
		return c.firstAidStep(ctx, st, "")
	}
}

// locationStep collects and confirms the caller's location, then hands off
// to dispatch. A refused confirmation still resolves the stage: the session
// proceeds with an explicit failure note instead of looping.
func (c *Controller) locationStep(ctx context.Context, st *State, text string) Result {
	if len(st.LocationLog) == 0 {
		st.LocationLog = append(st.LocationLog, Message{Role: RoleAssistant, Text: locationOpeningQuestion})
		return Result{Reply: locationOpeningQuestion, Status: StatusInProgress, Stage: StageLocation}
	}

	turnLog := append(slices.Clone(st.LocationLog), Message{Role: RoleUser, Text: text})

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	dec, err := c.locator.Resolve(cctx, turnLog, text)
	if err != nil {
		return c.clientFailure(StageLocation, "location resolver", err)
	}

	switch {
	case dec.FollowUpQuestion != "":
		st.LocationLog = append(turnLog, Message{Role: RoleAssistant, Text: dec.FollowUpQuestion})
		return Result{Reply: dec.FollowUpQuestion, Status: StatusInProgress, Stage: StageLocation}

	case dec.FinalLocationText != "":
		st.LocationLog = turnLog
		candidate := dec.FinalLocationText
		confirmQ := fmt.Sprintf("Just to confirm: is the location %q? (yes/no)", candidate)

		if !st.WasAsked(StageLocation, confirmQ) {
			st.MarkAsked(StageLocation, confirmQ)
			st.LocationLog = append(st.LocationLog, Message{Role: RoleAssistant, Text: confirmQ, Tag: tagConfirmLocation})
			return Result{Reply: confirmQ, Status: StatusInProgress, Stage: StageLocation}
		}

		v, ok := NormalizeYesNo(text)
		switch {
		case ok && v:
			st.FinalLocationText = candidate
			st.LocationConfirmed = &v
			return c.dispatchStep(ctx, st)
		case ok:
			st.FinalLocationText = "Location could not be confirmed. Last attempted reading: " + candidate
			st.LocationConfirmed = &v
			return c.dispatchStep(ctx, st)
		default:
			// Indeterminate: re-ask the same confirmation, unbounded by
			// design (see DESIGN.md).
			st.LocationLog = append(st.LocationLog, Message{Role: RoleAssistant, Text: confirmQ, Tag: tagConfirmLocation})
			return Result{Reply: confirmQ, Status: StatusInProgress, Stage: StageLocation}
		}

	default:
		return c.clientFailure(StageLocation, "location resolver",
			reliability.AsContent(fmt.Errorf("decision carries neither question nor location")))
	}
}

// dispatchStep sends the emergency report exactly once. Delivery failures
// are logged and never block the caller-facing flow: medical urgency
// outweighs delivery confirmation.
func (c *Controller) dispatchStep(ctx context.Context, st *State) Result {
	if st.ReportSent {
		return c.firstAidStep(ctx, st, "")
	}

	report := Report{
		Disease:        st.ConfirmedDisease,
		Symptoms:       slices.Clone(st.ConfirmedSymptoms),
		EmergencyLevel: st.EmergencyLevel,
		Location:       st.FinalLocationText,
	}
	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	if err := c.dispatcher.Send(cctx, report); err != nil {
		log.Printf("dispatch delivery failed (continuing): %v", err)
	}
	st.ReportSent = true

	var ack string
	switch {
	case st.LocationConfirmed != nil && *st.LocationConfirmed:
		ack = ackLocationConfirmed
	case st.LocationConfirmed != nil:
		ack = ackLocationUnknown
	default:
		ack = ackLocationUnset
	}
	reply := ack + "\n" + firstAidHandoff
	st.LocationLog = append(st.LocationLog, Message{Role: RoleAssistant, Text: reply})
	st.PendingContinuation = true
	return Result{Reply: reply, Status: StatusConfirmed, Stage: StageDispatch, Continuation: true}
}

// firstAidStep shows the disease's precaution banner once, then walks the
// procedure document with the guide until a single procedure matches. The
// matched text is surfaced verbatim.
func (c *Controller) firstAidStep(ctx context.Context, st *State, text string) Result {
	if st.ConfirmedDisease == "" {
		return c.clientFailure(StageFirstAid, "first-aid guide",
			reliability.AsContent(fmt.Errorf("no confirmed disease on entry")))
	}

	if !st.FirstAidWarningShown {
		warning, ok := c.kb.Warning(st.ConfirmedDisease)
		st.FirstAidWarningShown = true
		if ok && warning != "" {
			reply := "Before we begin, keep these precautions in mind.\n[Precautions]\n" + warning +
				"\n\nNow let's begin the first-aid guidance."
			st.FirstAidLog = append(st.FirstAidLog, Message{Role: RoleAssistant, Text: reply, Tag: tagFirstAidWarning})
			st.PendingContinuation = true
			return Result{Reply: reply, Status: StatusInProgress, Stage: StageFirstAid, Continuation: true}
		}
	}

	banner, answers := splitByTag(st.FirstAidLog, tagFirstAidWarning)
	if len(answers) > 0 && text != "" {
		answers = append(slices.Clone(answers), Message{Role: RoleUser, Text: text})
	}

	cctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	dec, err := c.guide.Guide(cctx, st.ConfirmedDisease, st.EmergencyLevel, st.ConfirmedSymptoms, answers)
	if err != nil {
		return c.clientFailure(StageFirstAid, "first-aid guide", err)
	}

	switch {
	case dec.Status == DecisionInProgress && dec.Question != "":
		answers = append(answers, Message{Role: RoleAssistant, Text: dec.Question})
		st.FirstAidLog = append(banner, answers...)
		return Result{Reply: dec.Question, Status: StatusInProgress, Stage: StageFirstAid}

	case dec.Status == DecisionConfirmed && dec.MatchedText != "":
		answers = append(answers, Message{Role: RoleAssistant, Text: dec.MatchedText})
		st.FirstAidLog = append(banner, answers...)
		st.Active = false
		return Result{Reply: dec.MatchedText, Status: StatusConfirmed, Stage: StageFirstAid, Terminal: true}

	default:
		return c.clientFailure(StageFirstAid, "first-aid guide",
			reliability.AsContent(fmt.Errorf("decision carries neither question nor procedure")))
	}
}

func (c *Controller) clientFailure(stage Stage, client string, err error) Result {
	log.Printf("%s failure in %s stage: %v", client, stage, err)
	return Result{
		Reply:       clientFailureMessage,
		Status:      StatusError,
		Stage:       stage,
		FailureKind: reliability.KindOf(err),
	}
}

func hasAssistant(log []Message) bool {
	for _, m := range log {
		if m.Role == RoleAssistant {
			return true
		}
	}
	return false
}

// splitByTag partitions a log into messages carrying the tag and the rest,
// preserving order within each part.
func splitByTag(log []Message, tag string) (tagged, rest []Message) {
	for _, m := range log {
		if m.Tag == tag {
			tagged = append(tagged, m)
		} else {
			rest = append(rest, m)
		}
	}
	return tagged, rest
}
