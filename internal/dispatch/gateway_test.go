package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/medicall/agent/internal/dialogue"
)

func TestNewPicksGatewayByConfiguration(t *testing.T) {
	if _, ok := New("", time.Second).(LogGateway); !ok {
		t.Fatalf("empty endpoint should yield LogGateway")
	}
	if _, ok := New("http://responder.local/report", time.Second).(*HTTPGateway); !ok {
		t.Fatalf("configured endpoint should yield HTTPGateway")
	}
}

func TestHTTPGatewaySendsReport(t *testing.T) {
	var got dialogue.Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode report: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	g := NewHTTPGateway(srv.URL, time.Second)
	report := dialogue.Report{
		Disease:        "stroke",
		Symptoms:       []string{"facial droop"},
		EmergencyLevel: dialogue.LevelUrgent,
		Location:       "Oak Street 21",
	}
	if err := g.Send(context.Background(), report); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.Disease != "stroke" || got.Location != "Oak Street 21" {
		t.Fatalf("delivered report = %+v", got)
	}
}

func TestHTTPGatewayClassifiesFailures(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{http.StatusServiceUnavailable, "transient"},
		{http.StatusBadRequest, "rejected"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
		}))
		g := NewHTTPGateway(srv.URL, time.Second)
		err := g.Send(context.Background(), dialogue.Report{})
		srv.Close()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Errorf("status %d: error = %v, want %q in message", tc.status, err, tc.want)
		}
	}
}
