// Package knowledge holds the static, read-only disease knowledge the
// triage dialogue consults: severity by disease, escalation criteria, and
// first-aid procedure documents.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/medicall/agent/internal/dialogue"
)

// Entry describes one disease in the knowledge base.
type Entry struct {
	Name           string                  `json:"name"`
	EmergencyLevel dialogue.EmergencyLevel `json:"emergency_level"`
	Symptoms       []string                `json:"symptoms,omitempty"`
	// Escalation lists, per upgraded level, the symptoms that justify
	// raising the base severity to that level.
	Escalation map[dialogue.EmergencyLevel][]string `json:"escalation,omitempty"`
}

// Base is an immutable snapshot of the knowledge stores, keyed by disease
// name. Safe for concurrent readers.
type Base struct {
	entries  map[string]Entry
	order    []string
	firstAid map[string]document
}

type document struct {
	warning string
	body    string
}

// New builds a Base from in-memory entries. Used by tests and as the
// foundation for Load.
func New(entries []Entry) *Base {
	b := &Base{
		entries:  make(map[string]Entry, len(entries)),
		firstAid: make(map[string]document),
	}
	for _, e := range entries {
		if e.Name == "" {
			continue
		}
		if _, dup := b.entries[e.Name]; !dup {
			b.order = append(b.order, e.Name)
		}
		b.entries[e.Name] = e
	}
	return b
}

// Load reads dir/diseases.json and every dir/firstaid/*.txt procedure
// document. The file stem is the disease name.
func Load(dir string) (*Base, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "diseases.json"))
	if err != nil {
		return nil, fmt.Errorf("read disease table: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("parse disease table: %w", err)
	}
	b := New(entries)

	docs, err := filepath.Glob(filepath.Join(dir, "firstaid", "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("scan first-aid documents: %w", err)
	}
	for _, path := range docs {
		text, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read first-aid document %s: %w", path, err)
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		b.AddFirstAidDoc(name, string(text))
	}
	return b, nil
}

// AddFirstAidDoc registers a raw procedure document for a disease,
// splitting off its warning section.
func (b *Base) AddFirstAidDoc(disease, text string) {
	warning, body := splitWarning(text)
	b.firstAid[disease] = document{warning: warning, body: body}
}

// Severity returns the base emergency level for a disease, defaulting to
// non-emergency for unknown names.
func (b *Base) Severity(disease string) dialogue.EmergencyLevel {
	if e, ok := b.entries[disease]; ok && e.EmergencyLevel != "" {
		return e.EmergencyLevel
	}
	return dialogue.LevelNonEmergency
}

// EscalationCriteria returns the upgrade criteria for a disease, or nil
// when none are known.
func (b *Base) EscalationCriteria(disease string) map[dialogue.EmergencyLevel][]string {
	return b.entries[disease].Escalation
}

// Warning returns a disease's first-aid precaution text, if any.
func (b *Base) Warning(disease string) (string, bool) {
	doc, ok := b.firstAid[disease]
	if !ok || doc.warning == "" {
		return "", false
	}
	return doc.warning, true
}

// Procedure returns a disease's first-aid procedure body, if any.
func (b *Base) Procedure(disease string) (string, bool) {
	doc, ok := b.firstAid[disease]
	if !ok || doc.body == "" {
		return "", false
	}
	return doc.body, true
}

// PromptText renders the disease table for the inference prompt, in
// insertion order.
func (b *Base) PromptText() string {
	var sb strings.Builder
	for _, name := range b.order {
		e := b.entries[name]
		fmt.Fprintf(&sb, "- %s (%s)", name, b.Severity(name))
		if len(e.Symptoms) > 0 {
			fmt.Fprintf(&sb, ": %s", strings.Join(e.Symptoms, ", "))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Diseases lists the known disease names in insertion order.
func (b *Base) Diseases() []string {
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}
