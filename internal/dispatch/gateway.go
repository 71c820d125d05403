// Package dispatch forwards confirmed emergency reports to responders.
// Delivery is fire-and-forget from the caller's perspective: the dialogue
// must keep moving whether or not the notification lands.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/medicall/agent/internal/dialogue"
	"github.com/medicall/agent/internal/reliability"
)

// New returns an HTTP gateway when a responder endpoint is configured,
// otherwise a local log sink.
func New(endpointURL string, timeout time.Duration) dialogue.DispatchGateway {
	if strings.TrimSpace(endpointURL) == "" {
		return LogGateway{}
	}
	return NewHTTPGateway(endpointURL, timeout)
}

// HTTPGateway POSTs reports to a responder notification endpoint.
type HTTPGateway struct {
	url    string
	client *http.Client
}

func NewHTTPGateway(url string, timeout time.Duration) *HTTPGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPGateway) Send(ctx context.Context, report dialogue.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build report request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		if reliability.IsRetryableHTTPStatus(resp.StatusCode) {
			return fmt.Errorf("responder endpoint transient failure: status %d", resp.StatusCode)
		}
		return fmt.Errorf("responder endpoint rejected report: status %d", resp.StatusCode)
	}
	return nil
}

// LogGateway records reports locally when no responder endpoint is
// configured, e.g. in development.
type LogGateway struct{}

func (LogGateway) Send(_ context.Context, report dialogue.Report) error {
	log.Printf("emergency report (local sink): disease=%q level=%s symptoms=%d location=%q",
		report.Disease, report.EmergencyLevel, len(report.Symptoms), report.Location)
	return nil
}
