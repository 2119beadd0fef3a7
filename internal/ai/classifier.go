package ai

import "context"

// VerdictAssessment is an AI model's judgement of an interview transcript
// when no explicit verdict marker was spoken.
type VerdictAssessment struct {
	Pass       bool
	Confidence float64
	Reason     string
	Raw        string
}

// Classifier infers a pass/fail outcome from a rendered transcript. Used as
// a best-effort step before the deterministic fallback, never instead of it.
type Classifier interface {
	Classify(ctx context.Context, transcript string) (*VerdictAssessment, error)
}
