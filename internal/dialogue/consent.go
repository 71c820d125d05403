package dialogue

import "strings"

// Keyword sets cover English plus Korean, matching the call scripts the
// service was piloted with. Negative keywords are checked first so phrases
// like "don't report it" are not caught by the affirmative "report" match.
var noKeywords = []string{
	"no", "nope", "don't", "do not", "not now", "no need", "stop", "leave it",
	"아니", "싫어", "안돼", "필요없", "안해", "하지마", "신고안해", "괜찮아",
}

var yesKeywords = []string{
	"yes", "yeah", "yep", "sure", "ok", "okay", "please", "go ahead",
	"report it", "help me", "do it",
	"예", "네", "응", "그래", "좋아", "부탁", "신고해", "해줘", "해주세요", "도와줘",
}

// NormalizeYesNo maps a free-text answer onto a yes/no verdict. The second
// return is false when the answer is indeterminate, in which case the
// caller's consent state must not change.
func NormalizeYesNo(text string) (bool, bool) {
	t := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(text)), " ", "")
	if t == "" {
		return false, false
	}
	for _, w := range noKeywords {
		if strings.Contains(t, strings.ReplaceAll(w, " ", "")) {
			return false, true
		}
	}
	for _, w := range yesKeywords {
		if strings.Contains(t, strings.ReplaceAll(w, " ", "")) {
			return true, true
		}
	}
	return false, false
}
