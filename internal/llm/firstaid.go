package llm

import (
	"context"
	"fmt"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/reliability"
)

type firstAidReply struct {
	Status      string `json:"status"`
	Question    string `json:"question"`
	MatchedText string `json:"matched_text"`
}

// Guide walks the disease's procedure document: it either asks the next
// branching yes/no question or returns the matched procedure verbatim.
func (c *Client) Guide(ctx context.Context, disease string, level dialogue.EmergencyLevel, symptoms []string, log []dialogue.Message) (dialogue.FirstAidDecision, error) {
	body, ok := c.kb.Procedure(disease)
	if !ok {
		return dialogue.FirstAidDecision{}, reliability.AsContent(fmt.Errorf("no first-aid document for %q", disease))
	}

	reply, err := c.complete(ctx, roleFirstAidGuide, buildFirstAidPrompt(disease, level, symptoms, log, body))
	if err != nil {
		return dialogue.FirstAidDecision{}, err
	}

	var parsed firstAidReply
	if err := ExtractJSON(reply, &parsed); err != nil {
		return dialogue.FirstAidDecision{}, err
	}

	dec := dialogue.FirstAidDecision{Question: parsed.Question, MatchedText: parsed.MatchedText}
	switch parsed.Status {
	case "confirmed":
		dec.Status = dialogue.DecisionConfirmed
	case "in-progress":
		dec.Status = dialogue.DecisionInProgress
	default:
		dec.Status = dialogue.DecisionNone
	}
	return dec, nil
}
