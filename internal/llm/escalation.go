package llm

import (
	"context"
	"strings"

	"github.com/medicall/agent/internal/dialogue"
)

// escalationOrder walks the higher level first so the most severe unasked
// criterion is always probed next.
var escalationOrder = []dialogue.EmergencyLevel{dialogue.LevelUrgent, dialogue.LevelEmergency}

// Assess drives severity escalation for a confirmed disease. When the
// caller has answered a pending question, the answer is classified first;
// a confirmed yes resolves the level of the criterion that question probed.
// Otherwise the next unasked criterion becomes a question. With no criteria
// left (or none on file), the base level stands.
func (c *Client) Assess(ctx context.Context, disease string, baseLevel dialogue.EmergencyLevel, log []dialogue.Message, utterance string) (dialogue.EscalationDecision, error) {
	criteria := c.kb.EscalationCriteria(disease)
	if len(criteria) == 0 {
		return dialogue.EscalationDecision{Status: dialogue.DecisionConfirmed, FinalLevel: baseLevel}, nil
	}

	lastQuestion := lastAssistantText(log)
	if utterance != "" && lastQuestion != "" {
		verdict, err := c.complete(ctx, roleEscalation, buildEscalationAnalysisPrompt(log, disease))
		if err != nil {
			return dialogue.EscalationDecision{}, err
		}
		if isAffirmative(verdict) {
			for _, level := range escalationOrder {
				for _, symptom := range criteria[level] {
					if strings.Contains(lastQuestion, symptom) {
						return dialogue.EscalationDecision{Status: dialogue.DecisionConfirmed, FinalLevel: level}, nil
					}
				}
			}
			// Affirmative but unmatchable to a criterion: the base level stands.
			return dialogue.EscalationDecision{Status: dialogue.DecisionConfirmed, FinalLevel: baseLevel}, nil
		}
	}

	asked := assistantTexts(log)
	for _, level := range escalationOrder {
		if level.Rank() <= baseLevel.Rank() {
			continue
		}
		for _, symptom := range criteria[level] {
			if anyContains(asked, symptom) {
				continue
			}
			question, err := c.complete(ctx, roleEscalation, buildEscalationQuestionPrompt(disease, symptom))
			if err != nil {
				return dialogue.EscalationDecision{}, err
			}
			// The criterion rides along so the next answer can be matched
			// back to its level.
			if !strings.Contains(question, symptom) {
				question = question + " (" + symptom + ")"
			}
			return dialogue.EscalationDecision{Status: dialogue.DecisionInProgress, Question: question}, nil
		}
	}

	// Every upgrade symptom has been ruled out.
	return dialogue.EscalationDecision{Status: dialogue.DecisionConfirmed, FinalLevel: baseLevel}, nil
}

func isAffirmative(verdict string) bool {
	v := strings.ToLower(strings.TrimSpace(verdict))
	v = strings.Trim(v, ".\"'")
	return v == "yes" || v == "예"
}

func anyContains(haystacks []string, needle string) bool {
	for _, h := range haystacks {
		if strings.Contains(h, needle) {
			return true
		}
	}
	return false
}
