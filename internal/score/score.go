// Package score turns a verdict into the structured interview result:
// category breakdown, numeric score and feedback text. Every mapping here is
// a pure function of its inputs so results are reproducible and testable.
package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/skillgate/ai-interviewer/internal/intake"
	"github.com/skillgate/ai-interviewer/internal/transcript"
)

// CategoryStatus is the per-category outcome shown to HR.
type CategoryStatus string

const (
	StatusPassed CategoryStatus = "Passed"
	StatusFailed CategoryStatus = "Failed"
)

// CategoryScore is one requirement's outcome. Category carries the
// requirement text, Group the taxonomy bucket used for feedback wording.
type CategoryScore struct {
	Category string
	Group    string
	Covered  bool
	Status   CategoryStatus
}

// InterviewResult is the immutable output of a session, created once at
// session end and handed to the persistence collaborator exactly once.
type InterviewResult struct {
	ApplicantID     string
	ApplicantName   string
	Position        string
	OverallResult   transcript.Verdict
	OverallScore    int
	EyeContactScore int
	Categories      []CategoryScore
	Feedback        string
	ImprovementTips string
}

// Overall score policy: PASS maps into [70, 99], FAIL into [0, 49], with
// transcript coverage moving the score inside the band.
const (
	passFloor = 70
	passSpan  = 29
	failSpan  = 49

	// The eye-contact figure has no dedicated tracking pipeline; it is
	// derived from the overall score with a fixed offset.
	eyeContactOffset = 4
)

// Synthesize builds the interview result. It never fails: missing
// requirements or an empty transcript degrade to the generic shapes below.
func Synthesize(
	extraction *transcript.Extraction,
	reqs *intake.Requirements,
	applicant intake.Applicant,
	turns []transcript.Turn,
) *InterviewResult {
	covered := coveredRequirements(reqs, turns)
	total := reqs.Len()

	result := &InterviewResult{
		ApplicantID:   applicant.ID,
		ApplicantName: applicant.FullName,
		OverallResult: extraction.Verdict,
		OverallScore:  overallScore(extraction.Verdict, len(covered), total),
		Categories:    categoryScores(extraction.Verdict, reqs, covered),
	}

	if reqs != nil {
		result.Position = reqs.Role
	}

	result.EyeContactScore = clamp(result.OverallScore-eyeContactOffset, 0, 100)
	result.Feedback = feedback(result)
	result.ImprovementTips = improvementTips(extraction, result)

	return result
}

// overallScore maps the verdict and requirement coverage into the band for
// that verdict. Zero requirements means zero coverage signal, which lands on
// the band floor.
func overallScore(verdict transcript.Verdict, covered, total int) int {
	ratio := 0.0
	if total > 0 {
		ratio = float64(covered) / float64(total)
	}

	if verdict == transcript.VerdictPass {
		return passFloor + int(math.Round(passSpan*ratio))
	}
	return int(math.Round(failSpan * ratio))
}

// coveredRequirements reports which requirement indexes were discussed:
// a requirement counts as covered when one of its significant keywords
// appears anywhere in the transcript.
func coveredRequirements(reqs *intake.Requirements, turns []transcript.Turn) map[int]bool {
	covered := make(map[int]bool)
	if reqs.Len() == 0 || len(turns) == 0 {
		return covered
	}

	var blob strings.Builder
	for _, turn := range turns {
		blob.WriteString(strings.ToLower(turn.Text))
		blob.WriteString(" ")
	}
	haystack := blob.String()

	for i, req := range reqs.Items {
		for _, keyword := range keywords(req) {
			if strings.Contains(haystack, keyword) {
				covered[i] = true
				break
			}
		}
	}

	return covered
}

// keywords picks the searchable tokens of a requirement: lowercased words of
// four or more characters, keeping dots and sharps so "node.js" and "c#"
// survive.
func keywords(requirement string) []string {
	fields := strings.Fields(strings.ToLower(requirement))

	var out []string
	for _, field := range fields {
		field = strings.Trim(field, ",;:()")
		if len(field) >= 4 || strings.ContainsAny(field, "#.") {
			out = append(out, field)
		}
	}
	return out
}

// categoryScores derives one entry per requirement, in requirement order.
// Every status is a function of the overall verdict plus coverage: a PASS
// verdict passes every category; under FAIL a requirement that was at least
// discussed still shows as passed.
func categoryScores(verdict transcript.Verdict, reqs *intake.Requirements, covered map[int]bool) []CategoryScore {
	if reqs.Len() == 0 {
		return nil
	}

	scores := make([]CategoryScore, 0, reqs.Len())
	for i, req := range reqs.Items {
		status := StatusFailed
		if verdict == transcript.VerdictPass || covered[i] {
			status = StatusPassed
		}

		scores = append(scores, CategoryScore{
			Category: req,
			Group:    Categorize(req),
			Covered:  covered[i],
			Status:   status,
		})
	}

	return scores
}

// Categorize assigns a requirement to a named category by keyword.
func Categorize(requirement string) string {
	req := strings.ToLower(requirement)

	switch {
	case strings.Contains(req, "experience") || strings.Contains(req, "years") || strings.Contains(req, "background"):
		return "Experience"
	case strings.Contains(req, "framework") || strings.Contains(req, "library") || strings.Contains(req, "tool"):
		return "Frameworks"
	case strings.Contains(req, "skill") || strings.Contains(req, "knowledge") || strings.Contains(req, "understanding"):
		return "Skills"
	case strings.Contains(req, "degree") || strings.Contains(req, "education") || strings.Contains(req, "certification"):
		return "Background"
	default:
		return "Technical"
	}
}

func feedback(result *InterviewResult) string {
	var strengths, weaknesses []string
	seen := make(map[string]bool)
	for _, cat := range result.Categories {
		key := cat.Group + string(cat.Status)
		if seen[key] {
			continue
		}
		seen[key] = true

		if cat.Status == StatusPassed {
			strengths = append(strengths, cat.Group)
		} else {
			weaknesses = append(weaknesses, cat.Group)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You scored %d%% overall. ", result.OverallScore)

	if len(strengths) > 0 {
		fmt.Fprintf(&b, "Strong performance in %s. ", strings.Join(strengths, ", "))
	}
	if len(weaknesses) > 0 {
		fmt.Fprintf(&b, "Areas for improvement: %s. ", strings.Join(weaknesses, ", "))
	}

	if result.OverallResult == transcript.VerdictPass {
		b.WriteString("You demonstrate solid technical competency for this role.")
	} else {
		b.WriteString("Consider strengthening your knowledge in the highlighted areas.")
	}

	return b.String()
}

// improvementTips surfaces the agent's own recommendation when the matched
// closing message contains one, otherwise falls back to a generic template.
func improvementTips(extraction *transcript.Extraction, result *InterviewResult) string {
	if tip := recommendClause(extraction.MatchedText); tip != "" {
		return tip
	}

	if result.OverallResult == transcript.VerdictPass {
		return "Keep building depth in the areas covered during the interview."
	}

	position := result.Position
	if position == "" {
		position = "this position"
	}

	return fmt.Sprintf("Review the core requirements for %s and practice concise, example-backed answers.", position)
}

// recommendClause extracts the sentence carrying a "recommend" phrase from
// the AI's closing message.
func recommendClause(text string) string {
	lower := strings.ToLower(text)
	idx := strings.Index(lower, "recommend")
	if idx == -1 {
		return ""
	}

	start := strings.LastIndexAny(lower[:idx], ".!?")
	if start == -1 {
		start = 0
	} else {
		start++
	}

	clause := strings.TrimSpace(text[start:])
	if end := strings.IndexAny(clause, ".!?"); end != -1 {
		clause = clause[:end+1]
	}

	return clause
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
