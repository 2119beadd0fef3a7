package transcript

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/skillgate/ai-interviewer/internal/ai"
)

// recentScanWindow bounds the loose-match scan to the tail of the
// transcript, where the agent's closing statement lives.
const recentScanWindow = 4

// Extraction sources, logged so fallback activations can be reviewed
// offline.
const (
	SourceMarker    = "marker"
	SourceRecent    = "recent_scan"
	SourceInference = "inference"
	SourceDefault   = "default"
)

// Extraction is the finalized verdict plus where it came from. MatchedText
// carries the AI message that decided the verdict when one exists, for
// downstream feedback generation.
type Extraction struct {
	Verdict     Verdict
	Source      string
	MatchedText string
}

// Extractor finalizes a verdict at session end. The classifier is optional;
// when nil or failing, extraction falls through to the deterministic
// default.
type Extractor struct {
	log        *Log
	classifier ai.Classifier
	logger     *zap.Logger
}

func NewExtractor(log *Log, classifier ai.Classifier, logger *zap.Logger) *Extractor {
	return &Extractor{
		log:        log,
		classifier: classifier,
		logger:     logger,
	}
}

// Extract runs the extraction steps in order and returns the first verdict
// produced. The final step always produces one: a session must conclude
// with some result. The fallback policy is fixed FAIL — a user-facing
// outcome is never randomized.
func (e *Extractor) Extract(ctx context.Context) *Extraction {
	steps := []struct {
		name string
		run  func(ctx context.Context) *Extraction
	}{
		{SourceMarker, e.fromCache},
		{SourceRecent, e.fromRecentTurns},
		{SourceInference, e.fromInference},
	}

	for _, step := range steps {
		if result := step.run(ctx); result != nil {
			e.logger.Info("verdict extracted",
				zap.String("verdict", string(result.Verdict)),
				zap.String("source", step.name),
			)
			return result
		}
	}

	e.logger.Warn("verdict fallback activated",
		zap.String("verdict", string(VerdictFail)),
		zap.String("reason", "no verdict evidence in transcript"),
		zap.Int("turns", e.log.Len()),
	)

	return &Extraction{Verdict: VerdictFail, Source: SourceDefault}
}

func (e *Extractor) fromCache(context.Context) *Extraction {
	verdict, text, ok := e.log.Cached()
	if !ok {
		return nil
	}

	return &Extraction{Verdict: verdict, Source: SourceMarker, MatchedText: text}
}

// fromRecentTurns scans the most recent turns in reverse chronological order
// for the first AI turn with a pass/fail-indicating substring. Matching is
// looser than the marker path.
func (e *Extractor) fromRecentTurns(context.Context) *Extraction {
	turns := e.log.Turns()

	start := len(turns) - recentScanWindow
	if start < 0 {
		start = 0
	}

	for i := len(turns) - 1; i >= start; i-- {
		turn := turns[i]
		if turn.Speaker != SpeakerAI {
			continue
		}

		if v, ok := looseVerdict(turn.Text); ok {
			return &Extraction{Verdict: v, Source: SourceRecent, MatchedText: turn.Text}
		}
	}

	return nil
}

func (e *Extractor) fromInference(ctx context.Context) *Extraction {
	if e.classifier == nil || e.log.Len() == 0 {
		return nil
	}

	assessment, err := e.classifier.Classify(ctx, e.log.Render())
	if err != nil {
		e.logger.Warn("verdict inference failed", zap.Error(err))
		return nil
	}

	verdict := VerdictFail
	if assessment.Pass {
		verdict = VerdictPass
	}

	e.logger.Info("verdict inferred",
		zap.Float64("confidence", assessment.Confidence),
		zap.String("reason", assessment.Reason),
	)

	return &Extraction{Verdict: verdict, Source: SourceInference}
}

// looseVerdict matches failure indicators before success ones so that
// negated phrasings like "you have not passed" or "you did not pass"
// resolve to FAIL.
func looseVerdict(text string) (Verdict, bool) {
	lower := strings.ToLower(text)

	if strings.Contains(lower, "not met") || strings.Contains(lower, "fail") || strings.Contains(lower, "not pass") {
		return VerdictFail, true
	}
	if strings.Contains(lower, "pass") {
		return VerdictPass, true
	}

	return "", false
}
