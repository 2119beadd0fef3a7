// Package backend talks to the interview platform backend: the runtime
// config endpoint, the conversational-agent proxy and the results store.
package backend

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultBaseURL = "http://localhost:3000"
	userAgent      = "skillgate/ai-interviewer"
)

type Client struct {
	// ctx used only for http requests right now
	ctx        context.Context
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	BaseURL    string

	config *SessionConfig
}

func New(ctx context.Context, logger *zap.Logger, baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{
		ctx:     ctx,
		token:   token,
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}
