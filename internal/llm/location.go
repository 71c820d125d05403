package llm

import (
	"context"
	"fmt"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/reliability"
)

// maxLocationAnswers caps the follow-up loop: after this many caller
// answers the resolver stops asking and packages whatever it has, so the
// report can still carry the raw dialogue for a responder call-back.
const maxLocationAnswers = 5

type locationReply struct {
	FollowupQuestion  string `json:"followup_question"`
	FinalLocationText string `json:"final_location_text"`
}

// Resolve turns the running location dialogue into either a follow-up
// question or a final location sentence. The log already contains the
// caller's latest utterance.
func (c *Client) Resolve(ctx context.Context, log []dialogue.Message, utterance string) (dialogue.LocationDecision, error) {
	reply, err := c.complete(ctx, roleLocationAssistant, transcript(log))
	if err != nil {
		return dialogue.LocationDecision{}, err
	}

	var parsed locationReply
	if err := ExtractJSON(reply, &parsed); err != nil {
		return dialogue.LocationDecision{}, err
	}

	switch {
	case parsed.FinalLocationText != "":
		return dialogue.LocationDecision{FinalLocationText: parsed.FinalLocationText}, nil

	case parsed.FollowupQuestion != "":
		if userTurns(log) >= maxLocationAnswers {
			forced := "The exact location could not be determined; a responder call-back is required.\n\n[Location dialogue]\n" + transcript(log)
			return dialogue.LocationDecision{FinalLocationText: forced}, nil
		}
		return dialogue.LocationDecision{FollowUpQuestion: parsed.FollowupQuestion}, nil

	default:
		return dialogue.LocationDecision{}, reliability.AsContent(fmt.Errorf("location reply carries neither question nor location"))
	}
}

func userTurns(log []dialogue.Message) int {
	n := 0
	for _, m := range log {
		if m.Role == dialogue.RoleUser {
			n++
		}
	}
	return n
}
