package dialogue

import "strings"

// Joking and testing vocabulary seen in hoax calls. Only consulted while no
// symptom has been confirmed yet; a match never blocks stage progression.
var prankKeywords = []string{
	"test", "testing", "just kidding", "kidding", "joke", "joking", "prank",
	"bored", "sing", "dance", "play a game", "lol", "haha",
	"테스트", "장난", "재미", "심심", "놀아줘", "노래", "춤", "게임", "ㅋㅋ", "ㅎㅎ", "농담",
}

// DetectPrank flags a caller utterance as a likely prank. The flag is
// surfaced to the transport for logging and counting only.
func DetectPrank(text string, confirmedSymptoms []string) bool {
	if len(confirmedSymptoms) > 0 {
		return false
	}
	t := strings.ToLower(strings.TrimSpace(text))
	if t == "" {
		return false
	}
	for _, kw := range prankKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}
