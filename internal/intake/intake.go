// Package intake reads the hand-off written by the application step: who is
// being interviewed and which job requirements drive the questions.
package intake

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
)

// Applicant identifies the person taking the interview. Read-only for the
// whole session.
type Applicant struct {
	ID       string `mapstructure:"applicant_id"`
	FullName string `mapstructure:"full_name"`
	Email    string `mapstructure:"email"`
	Mobile   string `mapstructure:"mobile_number"`
}

// Requirements is the ordered requirement set for the applied position. The
// order drives the one-question-per-requirement interview structure.
type Requirements struct {
	Role  string
	Items []string
}

// Handoff is the combined payload persisted by the application form.
type Handoff struct {
	Applicant    Applicant
	Requirements *Requirements
}

// payload mirrors the raw document written by the application step. The
// requirements arrive as a single newline-joined string because that is how
// the jobs table stores them.
type payload struct {
	JobID           any    `mapstructure:"job_id"`
	JobTitle        string `mapstructure:"job_title"`
	Title           string `mapstructure:"title"`
	JobRequirements string `mapstructure:"job_requirements"`
	FullName        string `mapstructure:"full_name"`
	Email           string `mapstructure:"email"`
	MobileNumber    string `mapstructure:"mobile_number"`
	ApplicantID     string `mapstructure:"applicant_id"`
}

// LoadFile reads a hand-off document from disk. A missing file is not an
// error for the session, so callers should treat os.IsNotExist specially and
// degrade instead of failing.
func LoadFile(path string) (*Handoff, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Parse(data)
}

// Parse decodes a raw hand-off document.
func Parse(data []byte) (*Handoff, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse intake payload: %w", err)
	}

	return decode(raw)
}

func decode(raw map[string]any) (*Handoff, error) {
	var p payload
	cfg := &mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	}

	decoder, _ := mapstructure.NewDecoder(cfg)
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode intake payload: %w", err)
	}

	handoff := &Handoff{
		Applicant: Applicant{
			ID:       strings.TrimSpace(p.ApplicantID),
			FullName: strings.TrimSpace(p.FullName),
			Email:    strings.TrimSpace(p.Email),
			Mobile:   strings.TrimSpace(p.MobileNumber),
		},
	}

	if handoff.Applicant.ID == "" {
		handoff.Applicant.ID = uuid.NewString()
	}

	// The local hand-off writes job_title, the backend session row exposes
	// the jobs table column name.
	role := strings.TrimSpace(p.JobTitle)
	if role == "" {
		role = strings.TrimSpace(p.Title)
	}

	items := SplitRequirements(p.JobRequirements)
	if len(items) > 0 || role != "" {
		handoff.Requirements = &Requirements{
			Role:  role,
			Items: items,
		}
	}

	return handoff, nil
}

// SplitRequirements turns the newline-joined requirement string into an
// ordered list, dropping blank lines. Order is preserved: the prompt numbers
// questions in this exact order.
func SplitRequirements(joined string) []string {
	var items []string
	for _, line := range strings.Split(joined, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" {
			continue
		}
		items = append(items, line)
	}
	return items
}

// Len returns the number of requirements, which is also the question budget.
func (r *Requirements) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Items)
}
