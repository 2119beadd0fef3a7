package transcript

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/skillgate/ai-interviewer/internal/ai"
)

type stubClassifier struct {
	assessment *ai.VerdictAssessment
	err        error
	calls      int
}

func (s *stubClassifier) Classify(context.Context, string) (*ai.VerdictAssessment, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.assessment, nil
}

func TestExtractPrefersMarkerCache(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAI, "You have PASSED the interview. Please end the call now.")

	classifier := &stubClassifier{}
	e := NewExtractor(log, classifier, zap.NewNop())

	result := e.Extract(context.Background())
	if result.Verdict != VerdictPass {
		t.Fatalf("expected PASS, got %s", result.Verdict)
	}
	if result.Source != SourceMarker {
		t.Fatalf("expected marker source, got %s", result.Source)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier must not run when a marker was cached")
	}
}

func TestExtractRecentScanLooseMatch(t *testing.T) {
	cases := []struct {
		name string
		text string
		want Verdict
	}{
		{"not_passed", "Unfortunately you have not passed this time.", VerdictFail},
		{"did_not_pass", "I am sorry, but you did not pass the interview.", VerdictFail},
		{"not_met", "You have not met our bar for the role.", VerdictFail},
		{"pass_phrase", "Great news, that was a pass for this stage.", VerdictPass},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			log := NewLog()
			log.Append(SpeakerApplicant, "Thanks for the questions.")
			log.Append(SpeakerAI, tc.text)

			e := NewExtractor(log, nil, zap.NewNop())
			result := e.Extract(context.Background())

			if result.Verdict != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, result.Verdict)
			}
			if result.Source != SourceRecent {
				t.Fatalf("expected recent_scan source, got %s", result.Source)
			}
			if result.MatchedText != tc.text {
				t.Fatalf("expected matched text carried through, got %q", result.MatchedText)
			}
		})
	}
}

func TestExtractRecentScanIgnoresOldTurns(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAI, "If all goes well you could pass this interview.")
	for i := 0; i < recentScanWindow; i++ {
		log.Append(SpeakerApplicant, "Some answer.")
	}

	e := NewExtractor(log, nil, zap.NewNop())
	result := e.Extract(context.Background())

	if result.Source != SourceDefault {
		t.Fatalf("verdict talk outside the scan window must not count, got %s", result.Source)
	}
}

func TestExtractFallsBackToInference(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAI, "Thank you for your time today.")
	log.Append(SpeakerApplicant, "Thank you.")

	classifier := &stubClassifier{assessment: &ai.VerdictAssessment{Pass: true, Confidence: 0.9}}
	e := NewExtractor(log, classifier, zap.NewNop())

	result := e.Extract(context.Background())
	if result.Verdict != VerdictPass {
		t.Fatalf("expected PASS from inference, got %s", result.Verdict)
	}
	if result.Source != SourceInference {
		t.Fatalf("expected inference source, got %s", result.Source)
	}
}

func TestExtractDefaultsToFailDeterministically(t *testing.T) {
	for i := 0; i < 10; i++ {
		log := NewLog()
		e := NewExtractor(log, nil, zap.NewNop())

		result := e.Extract(context.Background())
		if result.Verdict != VerdictFail {
			t.Fatalf("empty transcript must always resolve FAIL, got %s", result.Verdict)
		}
		if result.Source != SourceDefault {
			t.Fatalf("expected default source, got %s", result.Source)
		}
	}
}

func TestExtractSurvivesClassifierFailure(t *testing.T) {
	log := NewLog()
	log.Append(SpeakerAI, "Thanks, that concludes our conversation.")

	classifier := &stubClassifier{err: errors.New("quota exhausted")}
	e := NewExtractor(log, classifier, zap.NewNop())

	result := e.Extract(context.Background())
	if result.Verdict != VerdictFail || result.Source != SourceDefault {
		t.Fatalf("classifier failure must fall through to default FAIL, got %s/%s", result.Verdict, result.Source)
	}
}
