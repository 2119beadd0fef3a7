// Package agent controls the remote conversational agent's lifecycle: start
// through the backend proxy, avatar discovery, and idempotent stop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skillgate/ai-interviewer/internal/backend"
	"github.com/skillgate/ai-interviewer/internal/rtc"
	"github.com/skillgate/ai-interviewer/internal/utils"
)

// State is the controller's lifecycle position.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateStopped  State = "stopped"
)

const (
	avatarPollInterval = 500 * time.Millisecond
	avatarPollAttempts = 30
)

// ErrAvatarTimeout is a soft failure: the discovery loop exhausted its
// attempts without the avatar joining. The session proceeds without
// guaranteed avatar video.
var ErrAvatarTimeout = errors.New("avatar did not join the channel")

// Proxy is the slice of the backend client the controller depends on.
type Proxy interface {
	StartAgent(req *backend.AgentStartRequest) (string, error)
	StopAgent(agentID string) error
}

// MediaSession is the slice of the media manager the discovery loop uses.
type MediaSession interface {
	Avatar() *rtc.Participant
	SubscribeAvatar(ctx context.Context) error
}

// Controller runs the IDLE → STARTING → RUNNING → STOPPING → STOPPED state
// machine for one agent task.
type Controller struct {
	proxy  Proxy
	media  MediaSession
	logger *zap.Logger

	PollInterval time.Duration
	PollAttempts int

	mu              sync.Mutex
	state           State
	agentID         string
	interviewerLeft bool
}

func NewController(proxy Proxy, media MediaSession, logger *zap.Logger) *Controller {
	return &Controller{
		proxy:        proxy,
		media:        media,
		logger:       logger,
		PollInterval: avatarPollInterval,
		PollAttempts: avatarPollAttempts,
		state:        StateIdle,
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start calls the agent-start proxy and records the returned task id. A
// proxy failure is fatal to session start and is returned without retry.
func (c *Controller) Start(req *backend.AgentStartRequest) error {
	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot start agent from state %s", state)
	}
	c.state = StateStarting
	c.mu.Unlock()

	agentID, err := c.proxy.StartAgent(req)
	if err != nil {
		c.mu.Lock()
		c.state = StateIdle
		c.mu.Unlock()
		return fmt.Errorf("agent start: %w", err)
	}

	c.mu.Lock()
	c.agentID = agentID
	c.state = StateRunning
	c.mu.Unlock()

	return nil
}

// WaitForAvatar polls the participant registry until the avatar shows up,
// then subscribes (idempotent with the media manager's early-subscribe
// path). The attempt ceiling is mandatory: it bounds worst-case session
// start latency. Cancellation is checked every iteration.
func (c *Controller) WaitForAvatar(ctx context.Context) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = avatarPollInterval
	}
	attempts := c.PollAttempts
	if attempts <= 0 {
		attempts = avatarPollAttempts
	}

	for i := 0; i < attempts; i++ {
		if err := utils.WaitFor(ctx, interval); err != nil {
			return err
		}

		if c.media.Avatar() == nil {
			continue
		}

		c.logger.Info("avatar detected", zap.Int("attempt", i+1))

		// A rejected subscription degrades the session the same way a
		// missing avatar does; it never tears down a started agent.
		if err := c.media.SubscribeAvatar(ctx); err != nil {
			c.logger.Warn("avatar subscription failed", zap.Error(err))
		}

		return nil
	}

	return ErrAvatarTimeout
}

// Stop calls the agent-stop proxy with the recorded task id. A no-op when no
// id is recorded, and safe to call multiple times: the remote call happens
// at most once per recorded id.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.agentID == "" {
		c.mu.Unlock()
		return nil
	}
	agentID := c.agentID
	c.agentID = ""
	c.state = StateStopping
	c.mu.Unlock()

	err := c.proxy.StopAgent(agentID)

	c.mu.Lock()
	c.state = StateStopped
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("agent stop: %w", err)
	}

	c.logger.Info("agent stopped", zap.String("agent_id", agentID))
	return nil
}

// NotifyInterviewerLeft records an unexpected interviewer disconnect
// signaled from the media event path. Informational: the session remains
// completable.
func (c *Controller) NotifyInterviewerLeft(uid int) {
	c.mu.Lock()
	c.interviewerLeft = true
	c.mu.Unlock()

	c.logger.Warn("interviewer identity left the channel", zap.Int("uid", uid))
}

// InterviewerLeft reports whether a disconnect signal was received.
func (c *Controller) InterviewerLeft() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interviewerLeft
}

// BuildStartRequest assembles the structured agent-start payload: channel
// membership, speech recognition language, the generated instruction script,
// greeting, TTS voice profile, avatar identity and the silence policy.
func BuildStartRequest(cfg *backend.SessionConfig, channel, script, greeting, failure string) *backend.AgentStartRequest {
	return &backend.AgentStartRequest{
		Name: channel,
		Properties: backend.AgentProperties{
			Channel:       channel,
			AgentRTCUID:   strconv.Itoa(rtc.UIDAgentAudio),
			RemoteRTCUIDs: []string{strconv.Itoa(rtc.UIDApplicant)},
			IdleTimeout:   30,
			AdvancedFeatures: backend.AdvancedFeatures{
				EnableAIVAD: true,
			},
			ASR: backend.ASRConfig{Language: "en-US"},
			LLM: backend.LLMConfig{
				URL:    "https://api.groq.com/openai/v1/chat/completions",
				APIKey: cfg.LLMKey,
				SystemMessages: []backend.SystemMessage{
					{Role: "system", Content: script},
				},
				GreetingMessage: greeting,
				FailureMessage:  failure,
				Params:          backend.LLMParams{Model: "llama-3.3-70b-versatile"},
			},
			TTS: backend.TTSConfig{
				Vendor: "minimax",
				Params: backend.TTSParams{
					URL:     "wss://api.minimax.io/ws/v1/t2a_v2",
					GroupID: cfg.TTSGroupID,
					Key:     cfg.TTSKey,
					Model:   "speech-2.6-turbo",
					VoiceSetting: backend.VoiceSetting{
						VoiceID: "English_Lively_Male_11",
						Speed:   1,
						Vol:     1,
						Emotion: "happy",
					},
					AudioSetting: backend.AudioSetting{SampleRate: 16000},
				},
				SkipPatterns: []int{3, 4},
			},
			Avatar: backend.AvatarConfig{
				Vendor: "akool",
				Enable: true,
				Params: backend.AvatarParams{
					APIKey:   cfg.AvatarKey,
					AgoraUID: strconv.Itoa(rtc.UIDAvatar),
					AvatarID: "dvp_Sean_agora",
				},
			},
			Parameters: backend.AgentParameters{
				SilenceConfig: backend.SilenceConfig{
					TimeoutMS: 10000,
					Action:    "think",
					Content:   "continue conversation",
				},
			},
		},
	}
}
