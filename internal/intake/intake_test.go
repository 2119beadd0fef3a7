package intake

import (
	"testing"
)

func TestParsePreservesRequirementOrder(t *testing.T) {
	data := []byte(`{
		"job_id": 7,
		"job_title": "Senior Full Stack Developer",
		"job_requirements": "5+ years of JavaScript experience\nReact framework expertise\n\n  Node.js backend development  \n",
		"full_name": "John Doe",
		"email": "john@example.com",
		"mobile_number": "555-0100",
		"applicant_id": "TEST_123"
	}`)

	handoff, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if handoff.Applicant.ID != "TEST_123" {
		t.Fatalf("unexpected applicant id: %s", handoff.Applicant.ID)
	}

	if handoff.Applicant.FullName != "John Doe" {
		t.Fatalf("unexpected applicant name: %s", handoff.Applicant.FullName)
	}

	reqs := handoff.Requirements
	if reqs == nil {
		t.Fatalf("expected requirements to be present")
	}

	if reqs.Role != "Senior Full Stack Developer" {
		t.Fatalf("unexpected role: %s", reqs.Role)
	}

	want := []string{
		"5+ years of JavaScript experience",
		"React framework expertise",
		"Node.js backend development",
	}

	if len(reqs.Items) != len(want) {
		t.Fatalf("expected %d requirements, got %d", len(want), len(reqs.Items))
	}

	for i, item := range want {
		if reqs.Items[i] != item {
			t.Fatalf("requirement %d: expected %q, got %q", i, item, reqs.Items[i])
		}
	}
}

func TestParseGeneratesApplicantIDWhenMissing(t *testing.T) {
	handoff, err := Parse([]byte(`{"full_name": "Jane Doe"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if handoff.Applicant.ID == "" {
		t.Fatalf("expected a generated applicant id")
	}
}

func TestParseAcceptsBackendSessionRow(t *testing.T) {
	// The backend session row exposes the jobs table column "title" and a
	// numeric applicant uid, both weakly typed.
	data := []byte(`{
		"applicant_id": 42,
		"full_name": "Jane Doe",
		"title": "Backend Engineer",
		"job_requirements": "Go\nSQL"
	}`)

	handoff, err := Parse(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if handoff.Applicant.ID != "42" {
		t.Fatalf("expected weakly decoded applicant id 42, got %q", handoff.Applicant.ID)
	}

	if handoff.Requirements.Role != "Backend Engineer" {
		t.Fatalf("unexpected role: %s", handoff.Requirements.Role)
	}

	if handoff.Requirements.Len() != 2 {
		t.Fatalf("expected 2 requirements, got %d", handoff.Requirements.Len())
	}
}

func TestSplitRequirements(t *testing.T) {
	cases := []struct {
		name   string
		input  string
		expect int
	}{
		{"empty", "", 0},
		{"blank lines only", "\n \n\t\n", 0},
		{"windows line endings", "Go\r\nSQL\r\n", 2},
		{"single", "REST APIs", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := SplitRequirements(tc.input)
			if len(items) != tc.expect {
				t.Fatalf("expected %d items, got %d (%v)", tc.expect, len(items), items)
			}
		})
	}
}

func TestRequirementsLenNilSafe(t *testing.T) {
	var reqs *Requirements
	if reqs.Len() != 0 {
		t.Fatalf("expected 0 for nil requirements")
	}
}
