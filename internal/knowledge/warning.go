package knowledge

import "strings"

// warningMarker is the fixed section marker that separates a procedure
// document's precaution block from its main body. The block may lead the
// document or trail it.
const warningMarker = "[warning]"

// splitWarning separates a raw procedure document into its warning section
// and main body. A document without the marker is all body.
func splitWarning(text string) (warning, body string) {
	t := strings.TrimSpace(text)
	idx := strings.Index(strings.ToLower(t), warningMarker)
	if idx < 0 {
		return "", t
	}

	before := strings.TrimSpace(t[:idx])
	after := strings.TrimSpace(t[idx+len(warningMarker):])

	if len(before) < len(after) {
		// Warning block leads: it runs until the first blank line.
		if cut := strings.Index(after, "\n\n"); cut >= 0 {
			warning = strings.TrimSpace(after[:cut])
			body = strings.TrimSpace(after[cut:])
		} else {
			warning = after
		}
		if before != "" {
			body = strings.TrimSpace(before + "\n\n" + body)
		}
		return warning, body
	}

	// Warning block trails: everything before the marker is body.
	return after, before
}
