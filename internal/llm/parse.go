package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/medicall/agent/internal/reliability"
)

// ExtractJSON parses a single JSON object out of a model reply. Replies are
// expected to be one JSON line, but code fences and stray prose around the
// outermost braces are tolerated. Failures are classified as content
// errors: the model answered, the answer was unusable.
func ExtractJSON(text string, out any) error {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start < 0 || end <= start {
		return reliability.AsContent(fmt.Errorf("no JSON object in reply"))
	}
	if err := json.Unmarshal([]byte(t[start:end+1]), out); err != nil {
		return reliability.AsContent(fmt.Errorf("parse reply JSON: %w", err))
	}
	return nil
}
