package backend

import (
	"encoding/json"
	"fmt"

	"github.com/skillgate/ai-interviewer/internal/intake"
)

type sessionResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// FetchSession resolves an intake token into the applicant identity and job
// requirement set. Used when the hand-off file is not available locally.
func (c *Client) FetchSession(token string) (*intake.Handoff, error) {
	var resp sessionResponse
	if err := c.getJSON(fmt.Sprintf("/api/interview/session/%s", token), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch interview session: %w", err)
	}

	if !resp.Success || len(resp.Data) == 0 {
		return nil, fmt.Errorf("fetch interview session: backend returned no data: %s", resp.Error)
	}

	handoff, err := intake.Parse(resp.Data)
	if err != nil {
		return nil, fmt.Errorf("fetch interview session: %w", err)
	}

	return handoff, nil
}
