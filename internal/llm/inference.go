package llm

import (
	"context"

	"github.com/medicall/agent/internal/dialogue"
)

type inferenceReply struct {
	Status           string   `json:"status"`
	ConfirmedDisease string   `json:"confirmed_disease"`
	NextQuestion     string   `json:"next_question"`
	Symptoms         []string `json:"symptoms"`
	Candidates       []string `json:"candidates"`
}

// Infer answers one disease-inference turn from the full inference log and
// the rendered knowledge table.
func (c *Client) Infer(ctx context.Context, log []dialogue.Message, knowledgeText string) (dialogue.InferenceDecision, error) {
	reply, err := c.complete(ctx, roleDiseaseInference, buildInferencePrompt(log, knowledgeText))
	if err != nil {
		return dialogue.InferenceDecision{}, err
	}

	var parsed inferenceReply
	if err := ExtractJSON(reply, &parsed); err != nil {
		return dialogue.InferenceDecision{}, err
	}

	dec := dialogue.InferenceDecision{
		ConfirmedDisease: parsed.ConfirmedDisease,
		NextQuestion:     parsed.NextQuestion,
		Symptoms:         parsed.Symptoms,
		Candidates:       parsed.Candidates,
	}
	switch parsed.Status {
	case "confirmed":
		dec.Status = dialogue.DecisionConfirmed
	case "follow-up", "followup":
		dec.Status = dialogue.DecisionFollowUp
	default:
		dec.Status = dialogue.DecisionNone
	}
	return dec, nil
}
