package score

import (
	"strings"
	"testing"

	"github.com/skillgate/ai-interviewer/internal/intake"
	"github.com/skillgate/ai-interviewer/internal/transcript"
)

func turns(texts ...string) []transcript.Turn {
	out := make([]transcript.Turn, 0, len(texts))
	for i, text := range texts {
		speaker := transcript.SpeakerApplicant
		if i%2 == 0 {
			speaker = transcript.SpeakerAI
		}
		out = append(out, transcript.Turn{Speaker: speaker, Text: text})
	}
	return out
}

func TestSynthesizePassedSession(t *testing.T) {
	reqs := &intake.Requirements{
		Role:  "Backend Developer",
		Items: []string{"Node.js", "SQL", "REST APIs"},
	}
	applicant := intake.Applicant{ID: "42", FullName: "Jane Doe"}
	extraction := &transcript.Extraction{
		Verdict:     transcript.VerdictPass,
		Source:      transcript.SourceMarker,
		MatchedText: "Congratulations Jane, you have PASSED the interview.",
	}
	sessionTurns := turns(
		"Tell me about your node.js experience.",
		"I have built services with node.js and SQL for years.",
		"How do you design REST APIs?",
		"Versioned resources, proper status codes.",
		"Congratulations Jane, you have PASSED the interview.",
	)

	result := Synthesize(extraction, reqs, applicant, sessionTurns)

	if result.OverallResult != transcript.VerdictPass {
		t.Fatalf("expected PASS, got %s", result.OverallResult)
	}
	if result.OverallScore < 70 || result.OverallScore > 99 {
		t.Fatalf("PASS score must land in [70, 99], got %d", result.OverallScore)
	}
	if len(result.Categories) != 3 {
		t.Fatalf("expected one category entry per requirement, got %d", len(result.Categories))
	}
	for _, cat := range result.Categories {
		if cat.Status != StatusPassed {
			t.Fatalf("a PASS verdict passes every category, got %s for %q", cat.Status, cat.Category)
		}
	}
	if result.Position != "Backend Developer" {
		t.Fatalf("expected position carried through, got %q", result.Position)
	}
	if result.EyeContactScore != result.OverallScore-4 {
		t.Fatalf("expected derived eye contact score, got %d vs overall %d", result.EyeContactScore, result.OverallScore)
	}
	if result.Feedback == "" {
		t.Fatalf("expected non-empty feedback")
	}
}

func TestSynthesizeFailedSessionHasTips(t *testing.T) {
	reqs := &intake.Requirements{
		Role:  "Backend Developer",
		Items: []string{"Node.js", "SQL", "REST APIs"},
	}
	extraction := &transcript.Extraction{
		Verdict: transcript.VerdictFail,
		Source:  transcript.SourceDefault,
	}

	result := Synthesize(extraction, reqs, intake.Applicant{ID: "7"}, nil)

	if result.OverallResult != transcript.VerdictFail {
		t.Fatalf("expected FAIL, got %s", result.OverallResult)
	}
	if result.OverallScore != 0 {
		t.Fatalf("FAIL with zero coverage lands on the band floor, got %d", result.OverallScore)
	}
	if result.ImprovementTips == "" {
		t.Fatalf("a failed session must produce improvement tips")
	}
	for _, cat := range result.Categories {
		if cat.Status != StatusFailed {
			t.Fatalf("undiscussed requirements fail under a FAIL verdict, got %s", cat.Status)
		}
	}
}

func TestOverallScoreBands(t *testing.T) {
	cases := []struct {
		name    string
		verdict transcript.Verdict
		covered int
		total   int
		want    int
	}{
		{"pass_full_coverage", transcript.VerdictPass, 3, 3, 99},
		{"pass_zero_coverage", transcript.VerdictPass, 0, 3, 70},
		{"pass_no_requirements", transcript.VerdictPass, 0, 0, 70},
		{"fail_full_coverage", transcript.VerdictFail, 3, 3, 49},
		{"fail_zero_coverage", transcript.VerdictFail, 0, 3, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := overallScore(tc.verdict, tc.covered, tc.total); got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestSynthesizeIsDeterministic(t *testing.T) {
	reqs := &intake.Requirements{Role: "QA Engineer", Items: []string{"Selenium", "Python"}}
	extraction := &transcript.Extraction{Verdict: transcript.VerdictFail, Source: transcript.SourceRecent}
	sessionTurns := turns("Do you know selenium?", "Yes, selenium with python.")

	first := Synthesize(extraction, reqs, intake.Applicant{ID: "1"}, sessionTurns)
	for i := 0; i < 5; i++ {
		next := Synthesize(extraction, reqs, intake.Applicant{ID: "1"}, sessionTurns)
		if next.OverallScore != first.OverallScore || next.Feedback != first.Feedback {
			t.Fatalf("same inputs must synthesize the same result")
		}
	}
}

func TestCoveredRequirementKeepsCategoryPassedUnderFail(t *testing.T) {
	reqs := &intake.Requirements{Items: []string{"Node.js", "Kubernetes"}}
	extraction := &transcript.Extraction{Verdict: transcript.VerdictFail, Source: transcript.SourceRecent}
	sessionTurns := turns("Any node.js work?", "Yes, node.js daily.")

	result := Synthesize(extraction, reqs, intake.Applicant{}, sessionTurns)

	if !result.Categories[0].Covered || result.Categories[0].Status != StatusPassed {
		t.Fatalf("a discussed requirement stays passed under FAIL, got %+v", result.Categories[0])
	}
	if result.Categories[1].Covered || result.Categories[1].Status != StatusFailed {
		t.Fatalf("an undiscussed requirement fails under FAIL, got %+v", result.Categories[1])
	}
}

func TestCategorize(t *testing.T) {
	cases := []struct {
		requirement string
		want        string
	}{
		{"5 years of backend experience", "Experience"},
		{"React framework proficiency", "Frameworks"},
		{"Strong communication skills", "Skills"},
		{"Bachelor's degree in CS", "Background"},
		{"Node.js", "Technical"},
	}

	for _, tc := range cases {
		if got := Categorize(tc.requirement); got != tc.want {
			t.Fatalf("Categorize(%q) = %q, want %q", tc.requirement, got, tc.want)
		}
	}
}

func TestImprovementTipsSurfacesRecommendation(t *testing.T) {
	extraction := &transcript.Extraction{
		Verdict:     transcript.VerdictFail,
		Source:      transcript.SourceMarker,
		MatchedText: "You have FAILED. I recommend studying database indexing before reapplying. Good luck!",
	}
	result := Synthesize(extraction, &intake.Requirements{Items: []string{"SQL"}}, intake.Applicant{}, nil)

	if !strings.Contains(result.ImprovementTips, "recommend studying database indexing") {
		t.Fatalf("expected the agent's recommendation surfaced, got %q", result.ImprovementTips)
	}
}

func TestKeywordsKeepShortTechTokens(t *testing.T) {
	got := keywords("Knows C# and Node.js, plus Go")

	joined := strings.Join(got, " ")
	if !strings.Contains(joined, "c#") {
		t.Fatalf("expected c# kept, got %v", got)
	}
	if !strings.Contains(joined, "node.js") {
		t.Fatalf("expected node.js kept, got %v", got)
	}
	for _, kw := range got {
		if kw == "go" {
			t.Fatalf("short plain words must be dropped, got %v", got)
		}
	}
}
