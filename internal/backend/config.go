package backend

import (
	"errors"
	"fmt"
)

// SessionConfig is the flat credential payload served by the config
// endpoint. Loaded once per session and never mutated afterwards.
type SessionConfig struct {
	AppID      string `json:"AGORA_APPID"`
	RTCToken   string `json:"AGORA_TOKEN"`
	LLMKey     string `json:"GROQ_KEY"`
	TTSGroupID string `json:"TTS_MINIMAX_GROUPID"`
	TTSKey     string `json:"TTS_MINIMAX_KEY"`
	AvatarKey  string `json:"AVATAR_AKOOL_KEY"`
	GeminiKey  string `json:"GEMINI_KEY,omitempty"`
}

// LoadConfig fetches the session credentials. The payload is read once and
// cached for the client's lifetime; subsequent calls return the cached copy.
func (c *Client) LoadConfig() (*SessionConfig, error) {
	if c.config != nil {
		return c.config, nil
	}

	var cfg SessionConfig
	if err := c.getJSON("/config", nil, &cfg); err != nil {
		return nil, fmt.Errorf("load session config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c.config = &cfg
	return c.config, nil
}

// Validate checks the credentials that are fatal to session start. TTS and
// avatar keys are checked by the agent proxy itself, so only transport
// credentials are required here.
func (cfg *SessionConfig) Validate() error {
	if cfg.AppID == "" {
		return errors.New("transport app id is missing from session config")
	}
	if cfg.RTCToken == "" {
		return errors.New("transport token is missing from session config")
	}
	return nil
}
