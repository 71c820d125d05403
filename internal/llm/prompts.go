package llm

import (
	"fmt"
	"strings"

	"github.com/medicall/agent/internal/dialogue"
)

const roleDiseaseInference = `You are an AI emergency-medical triage agent. From the caller's
descriptions you identify which of the known conditions the patient most
likely has. You never invent conditions outside the provided table. You
reply with exactly one line of JSON and nothing else.`

const inferencePromptTemplate = `[Known conditions]
%s

[Dialogue so far]
%s

[Task]
Decide whether a single condition from the table can be confirmed.

Reply with one JSON line in exactly one of these shapes:
- confirmed: {"status":"confirmed","confirmed_disease":"...","symptoms":[...],"candidates":[...]}
- more information needed: {"status":"follow-up","next_question":"...","symptoms":[...],"candidates":[...]}

Rules:
- "symptoms" lists every symptom the caller has reported so far, as short keywords.
- "candidates" lists the conditions still compatible with those symptoms, most likely first.
- A follow-up question asks about exactly one symptom, in one short sentence, answerable yes/no.
- Never repeat a question that was already asked in the dialogue.
- Output the JSON line only: no code fences, no explanations.`

func buildInferencePrompt(log []dialogue.Message, knowledgeText string) string {
	return fmt.Sprintf(inferencePromptTemplate, knowledgeText, transcript(log))
}

const roleEscalation = `You are an AI emergency-medical triage agent finalizing how urgent a
confirmed condition is. You follow the output format exactly.`

func buildEscalationQuestionPrompt(disease, symptom string) string {
	return fmt.Sprintf(`[Condition]
%s

[Severity-upgrade symptom]
%s

Write one short, direct question asking whether the patient currently has
this symptom. Ask about the symptom's presence (good: "Has the patient lost
consciousness?"; bad: "Is the patient conscious?"). Output the single
question sentence only, with no explanations, quotes, or code fences.`, disease, symptom)
}

func buildEscalationAnalysisPrompt(log []dialogue.Message, disease string) string {
	return fmt.Sprintf(`[Condition]
%s

[Dialogue]
%s

Classify the caller's latest answer to the last question as "yes" or "no".
Affirming or describing the symptom counts as yes. Denying it counts as no.
"I don't know" counts as no. Output exactly one word: yes or no.`, disease, transcript(log))
}

const roleLocationAssistant = `You are a location assistant for emergency dispatch. Your goal is a
single sentence that lets responders find the patient. You reply with
exactly one line of JSON and nothing else.

Sufficient location information means either:
1. indoors: building name plus floor or room number, or
2. outdoors: a nearby landmark (large sign, building, intersection) plus
   where the patient is relative to it.

If the dialogue contains sufficient information, reply
{"final_location_text":"..."} with one complete sentence.
Otherwise reply {"followup_question":"..."}: ask for exactly one missing
piece of information, in one short sentence the caller can answer directly.
Never repeat a question already asked in the dialogue, and never rephrase
an earlier question. No vague requests like "please be more specific".`

const roleFirstAidGuide = `You are a first-aid guidance agent. You work strictly from the provided
procedure document: you identify its branch conditions, decide which branch
matches the patient, and when a single branch matches you return its
procedure text verbatim, without summarizing or rewording. You reply with
exactly one line of JSON and nothing else.`

func buildFirstAidPrompt(disease string, level dialogue.EmergencyLevel, symptoms []string, log []dialogue.Message, body string) string {
	symptomText := "none reported"
	if len(symptoms) > 0 {
		symptomText = strings.Join(symptoms, ", ")
	}
	historyText := "none"
	if len(log) > 0 {
		historyText = transcript(log)
	}
	return fmt.Sprintf(`[Condition] %s
[Severity] %s
[Confirmed symptoms] %s
[Answer history]
%s

[Procedure document]
%s

Identify the document's branch conditions (for example "if the patient is
conscious", "if breathing has stopped"). Using the severity, symptoms, and
answer history, decide which branches remain possible.

- If more than one branch remains, find the key condition that separates
  them and reply {"status":"in-progress","question":"..."} with one yes/no
  question about that condition.
- If exactly one branch remains (or the document has no branches), reply
  {"status":"confirmed","matched_text":"..."} where matched_text is that
  branch's procedure copied verbatim from the document.

Output the JSON line only.`, disease, level, symptomText, historyText, body)
}
