// Package reliability classifies external-collaborator failures. Every
// failure is scoped to a single turn: transport failures (timeouts, broken
// connections) and content failures (unparseable reasoning output) are both
// recoverable, but are counted separately.
package reliability

import (
	"errors"
	"fmt"
)

// Kind labels a classified failure.
type Kind string

const (
	KindTransport Kind = "transport"
	KindContent   Kind = "content"
)

// ErrContent marks failures where the collaborator answered, but the answer
// was unusable. Everything else is treated as a transport failure.
var ErrContent = errors.New("unusable collaborator response")

// AsContent wraps err so KindOf classifies it as a content failure.
func AsContent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrContent, err)
}

// KindOf classifies an external-call failure.
func KindOf(err error) Kind {
	if errors.Is(err, ErrContent) {
		return KindContent
	}
	return KindTransport
}

// IsRetryableHTTPStatus classifies responder-endpoint status codes that are
// worth noting as transient in dispatch delivery logs.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
