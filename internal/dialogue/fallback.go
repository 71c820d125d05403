package dialogue

import (
	"fmt"
	"strings"
)

// FallbackSummary builds the terminal message used when the diagnosis
// cannot converge: it ranks the remaining candidates by severity, reports
// the most urgent one, and instructs the caller to seek help directly.
func FallbackSummary(candidates []string, kb KnowledgeBase) string {
	if len(candidates) == 0 {
		return "I have no further questions to ask, and I could not narrow down a specific condition.\n" +
			"Please visit the nearest hospital or call emergency services directly."
	}

	highest := LevelNonEmergency
	var b strings.Builder
	b.WriteString("I cannot ask any further questions.\n")
	b.WriteString("Based on what you have told me, the following conditions are suspected:\n")
	for _, d := range candidates {
		level := kb.Severity(d)
		fmt.Fprintf(&b, " - %s (%s)\n", d, level)
		if level.Rank() > highest.Rank() {
			highest = level
		}
	}
	fmt.Fprintf(&b, "\nThe most severe suspected level is %q.\n", string(highest))
	b.WriteString("For an accurate assessment, please contact the nearest hospital or emergency services directly.")
	return b.String()
}
