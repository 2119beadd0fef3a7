package backend

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// AgentStartRequest is the structured payload accepted by the agent-start
// proxy. The shape follows the conversational-agent API: channel membership,
// speech recognition, LLM, TTS voice profile, avatar identity and the
// silence policy.
type AgentStartRequest struct {
	Name       string          `json:"name"`
	Properties AgentProperties `json:"properties"`
}

type AgentProperties struct {
	Channel          string           `json:"channel"`
	AgentRTCUID      string           `json:"agent_rtc_uid"`
	RemoteRTCUIDs    []string         `json:"remote_rtc_uids"`
	IdleTimeout      int              `json:"idle_timeout"`
	AdvancedFeatures AdvancedFeatures `json:"advanced_features"`
	ASR              ASRConfig        `json:"asr"`
	LLM              LLMConfig        `json:"llm"`
	TTS              TTSConfig        `json:"tts"`
	Avatar           AvatarConfig     `json:"avatar"`
	Parameters       AgentParameters  `json:"parameters"`
}

type AdvancedFeatures struct {
	EnableAIVAD bool `json:"enable_aivad"`
	EnableMLLM  bool `json:"enable_mllm"`
	EnableRTM   bool `json:"enable_rtm"`
}

type ASRConfig struct {
	Language string `json:"language"`
}

type LLMConfig struct {
	URL             string          `json:"url"`
	APIKey          string          `json:"api_key"`
	SystemMessages  []SystemMessage `json:"system_messages"`
	GreetingMessage string          `json:"greeting_message"`
	FailureMessage  string          `json:"failure_message"`
	Params          LLMParams       `json:"params"`
}

type SystemMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LLMParams struct {
	Model string `json:"model"`
}

type TTSConfig struct {
	Vendor       string    `json:"vendor"`
	Params       TTSParams `json:"params"`
	SkipPatterns []int     `json:"skip_patterns"`
}

type TTSParams struct {
	URL          string       `json:"url"`
	GroupID      string       `json:"group_id"`
	Key          string       `json:"key"`
	Model        string       `json:"model"`
	VoiceSetting VoiceSetting `json:"voice_setting"`
	AudioSetting AudioSetting `json:"audio_setting"`
}

type VoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
	Emotion string  `json:"emotion"`
}

type AudioSetting struct {
	SampleRate int `json:"sample_rate"`
}

type AvatarConfig struct {
	Vendor string       `json:"vendor"`
	Enable bool         `json:"enable"`
	Params AvatarParams `json:"params"`
}

type AvatarParams struct {
	APIKey   string `json:"api_key"`
	AgoraUID string `json:"agora_uid"`
	AvatarID string `json:"avatar_id"`
}

type AgentParameters struct {
	SilenceConfig SilenceConfig `json:"silence_config"`
}

// SilenceConfig tells the agent what to do when the applicant goes quiet.
type SilenceConfig struct {
	TimeoutMS int    `json:"timeout_ms"`
	Action    string `json:"action"`
	Content   string `json:"content"`
}

type agentStartResponse struct {
	AgentID string `json:"agent_id"`
}

// StartAgent asks the proxy to spin up the conversational agent in the
// channel. Any non-2xx response is fatal to session start and returned to
// the caller untouched.
func (c *Client) StartAgent(req *AgentStartRequest) (string, error) {
	var resp agentStartResponse
	if err := c.postJSON("/api/convo-ai/start", req, &resp); err != nil {
		return "", fmt.Errorf("start agent: %w", err)
	}

	if resp.AgentID == "" {
		return "", errors.New("agent proxy returned empty agent id")
	}

	c.logger.Info("agent started", zap.String("agent_id", resp.AgentID))
	return resp.AgentID, nil
}

// StopAgent asks the proxy to remove the agent from the channel. The
// response body is not consumed; the proxy treats repeated stops for the
// same id as no-ops.
func (c *Client) StopAgent(agentID string) error {
	if agentID == "" {
		return errors.New("agent id is required")
	}

	if err := c.postJSON(fmt.Sprintf("/api/convo-ai/agents/%s/leave", agentID), nil, nil); err != nil {
		return fmt.Errorf("stop agent %s: %w", agentID, err)
	}

	return nil
}
