package backend

import (
	"fmt"
)

// ResultSubmission is the payload accepted by the results store.
type ResultSubmission struct {
	ApplicantID     string `json:"applicant_id"`
	ScoreOverall    int    `json:"score_overall"`
	EyeContactScore int    `json:"eye_contact_score"`
	SummaryText     string `json:"summary_text"`
	ImprovementTips string `json:"improvement_tips"`
}

type submitResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// SubmitResult hands the synthesized interview result to the persistence
// collaborator. Fire-and-forget from the session's point of view: the caller
// logs a failure but never retries or unwinds the session over it.
func (c *Client) SubmitResult(sub *ResultSubmission) error {
	var resp submitResponse
	if err := c.postJSON("/api/results/submit", sub, &resp); err != nil {
		return fmt.Errorf("submit result: %w", err)
	}

	if !resp.Success {
		return fmt.Errorf("submit result: backend rejected submission: %s", resp.Error)
	}

	return nil
}
