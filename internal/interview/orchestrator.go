// Package interview drives one applicant's live session end to end: config
// and intake loading, channel join, agent lifecycle, transcript capture and
// final score synthesis. One orchestrator instance owns one session; there
// is no process-wide engine state.
package interview

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skillgate/ai-interviewer/internal/agent"
	"github.com/skillgate/ai-interviewer/internal/ai"
	"github.com/skillgate/ai-interviewer/internal/backend"
	"github.com/skillgate/ai-interviewer/internal/intake"
	"github.com/skillgate/ai-interviewer/internal/prompt"
	"github.com/skillgate/ai-interviewer/internal/rtc"
	"github.com/skillgate/ai-interviewer/internal/score"
	"github.com/skillgate/ai-interviewer/internal/transcript"
)

// Backend is the slice of the platform client the orchestrator consumes.
// *backend.Client satisfies it.
type Backend interface {
	LoadConfig() (*backend.SessionConfig, error)
	StartAgent(req *backend.AgentStartRequest) (string, error)
	StopAgent(agentID string) error
	SubmitResult(sub *backend.ResultSubmission) error
	FetchSession(token string) (*intake.Handoff, error)
}

// Config carries the per-session knobs.
type Config struct {
	// Channel is the logical real-time session id joined by the applicant,
	// agent audio and avatar identities.
	Channel string
	// HandoffFile points to the intake hand-off written by the application
	// step. Optional.
	HandoffFile string
	// IntakeToken resolves the hand-off through the backend instead of the
	// local file. Optional; the file takes precedence.
	IntakeToken string
	// LocalUID is the applicant's rtc identity. Defaults to rtc.UIDApplicant.
	LocalUID int
}

// Orchestrator coordinates the session's independently failing subsystems.
type Orchestrator struct {
	cfg     Config
	backend Backend
	media   *rtc.Manager
	agent   *agent.Controller
	logger  *zap.Logger

	log       *transcript.Log
	extractor *transcript.Extractor

	mu       sync.Mutex
	started  bool
	ended    bool
	handoff  *intake.Handoff
	mediaErr error
}

// New wires an orchestrator for a single session. classifier may be nil; the
// verdict extraction then skips the inference step.
func New(cfg Config, be Backend, transport rtc.Transport, classifier ai.Classifier, logger *zap.Logger) *Orchestrator {
	if cfg.Channel == "" {
		cfg.Channel = "10000"
	}
	if cfg.LocalUID == 0 {
		cfg.LocalUID = rtc.UIDApplicant
	}

	media := rtc.NewManager(transport, logger)
	controller := agent.NewController(be, media, logger)
	media.OnInterviewerLeft(controller.NotifyInterviewerLeft)

	log := transcript.NewLog()

	return &Orchestrator{
		cfg:       cfg,
		backend:   be,
		media:     media,
		agent:     controller,
		logger:    logger,
		log:       log,
		extractor: transcript.NewExtractor(log, classifier, logger),
	}
}

// Start brings the session up: credentials, intake, channel join, local
// publish, agent start and avatar discovery. Transport join and agent start
// failures are fatal and returned; local media denial and avatar timeout
// only degrade the session.
func (o *Orchestrator) Start(ctx context.Context) (err error) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return errors.New("session already started")
	}
	o.started = true
	o.mu.Unlock()

	sessionCfg, err := o.backend.LoadConfig()
	if err != nil {
		return fmt.Errorf("session start: %w", err)
	}

	o.handoff = o.loadIntake()
	script := o.buildScript()

	if err := o.media.Join(ctx, rtc.JoinParams{
		AppID:   sessionCfg.AppID,
		Channel: o.cfg.Channel,
		Token:   sessionCfg.RTCToken,
		UID:     o.cfg.LocalUID,
	}); err != nil {
		return fmt.Errorf("session start: %w", err)
	}

	// From here on a failed start must not leak session-side resources: the
	// agent is stopped (a no-op before one was started) and the channel left.
	defer func() {
		if err != nil {
			if stopErr := o.agent.Stop(); stopErr != nil {
				o.logger.Warn("stopping agent failed", zap.Error(stopErr))
			}
			_ = o.media.Leave(context.WithoutCancel(ctx))
		}
	}()

	if err := o.media.PublishLocal(ctx); err != nil {
		if !errors.Is(err, rtc.ErrLocalMedia) {
			return fmt.Errorf("session start: %w", err)
		}
		// Degraded: the interview proceeds without applicant media. The
		// error stays retrievable for the UI layer.
		o.mu.Lock()
		o.mediaErr = err
		o.mu.Unlock()
		o.logger.Warn("continuing without local media", zap.Error(err))
	}

	req := agent.BuildStartRequest(sessionCfg, o.cfg.Channel, script, prompt.Greeting, prompt.FailureMessage)
	if err := o.agent.Start(req); err != nil {
		return fmt.Errorf("session start: %w", err)
	}

	if err := o.agent.WaitForAvatar(ctx); err != nil {
		if !errors.Is(err, agent.ErrAvatarTimeout) {
			return fmt.Errorf("session start: %w", err)
		}
		o.logger.Warn("proceeding without avatar video", zap.Error(err))
	}

	o.logger.Info("interview session running",
		zap.String("channel", o.cfg.Channel),
		zap.String("applicant", o.handoff.Applicant.FullName),
	)

	return nil
}

// Append feeds a transcribed turn from the external speech pipeline. Turns
// are recorded in observed order.
func (o *Orchestrator) Append(speaker transcript.Speaker, text string) {
	o.log.Append(speaker, text)
}

// MediaError reports the local media failure kept from Start, if any. The
// caller can surface it to the user and retry publication.
func (o *Orchestrator) MediaError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mediaErr
}

// RetryPublish attempts local media publication again after the user fixed
// device permissions.
func (o *Orchestrator) RetryPublish(ctx context.Context) error {
	err := o.media.PublishLocal(ctx)

	o.mu.Lock()
	o.mediaErr = err
	o.mu.Unlock()

	return err
}

// EndInterview finalizes the session: stops the agent, extracts the verdict,
// synthesizes the result and submits it. The transport is left on every exit
// path. The boolean reports persistence success; a submission failure never
// unwinds the session.
func (o *Orchestrator) EndInterview(ctx context.Context) (*score.InterviewResult, bool, error) {
	o.mu.Lock()
	if o.ended {
		o.mu.Unlock()
		return nil, false, errors.New("session already ended")
	}
	o.ended = true
	handoff := o.handoff
	o.mu.Unlock()

	defer func() {
		if err := o.media.Leave(context.WithoutCancel(ctx)); err != nil {
			o.logger.Warn("leaving channel failed", zap.Error(err))
		}
	}()

	if err := o.agent.Stop(); err != nil {
		o.logger.Warn("stopping agent failed", zap.Error(err))
	}

	if handoff == nil {
		handoff = &intake.Handoff{Applicant: intake.Applicant{ID: uuid.NewString()}}
	}

	extraction := o.extractor.Extract(ctx)
	result := score.Synthesize(extraction, handoff.Requirements, handoff.Applicant, o.log.Turns())

	submitted := true
	if err := o.backend.SubmitResult(&backend.ResultSubmission{
		ApplicantID:     result.ApplicantID,
		ScoreOverall:    result.OverallScore,
		EyeContactScore: result.EyeContactScore,
		SummaryText:     result.Feedback,
		ImprovementTips: result.ImprovementTips,
	}); err != nil {
		submitted = false
		o.logger.Error("result submission failed", zap.Error(err))
	}

	o.logger.Info("interview session ended",
		zap.String("applicant_id", result.ApplicantID),
		zap.String("result", string(result.OverallResult)),
		zap.Int("score", result.OverallScore),
		zap.Bool("submitted", submitted),
	)

	return result, submitted, nil
}

// Close aborts the session without producing a result: agent stopped,
// channel left. Safe to call after EndInterview or repeatedly.
func (o *Orchestrator) Close(ctx context.Context) error {
	if err := o.agent.Stop(); err != nil {
		o.logger.Warn("stopping agent failed", zap.Error(err))
	}

	return o.media.Leave(ctx)
}

// loadIntake resolves the hand-off. Every failure here degrades the prompt
// instead of failing the session.
func (o *Orchestrator) loadIntake() *intake.Handoff {
	if o.cfg.HandoffFile != "" {
		handoff, err := intake.LoadFile(o.cfg.HandoffFile)
		if err == nil {
			return handoff
		}

		if os.IsNotExist(err) {
			o.logger.Warn("intake hand-off file not found; using generic interview",
				zap.String("path", o.cfg.HandoffFile),
			)
		} else {
			o.logger.Warn("intake hand-off unreadable; using generic interview", zap.Error(err))
		}
	}

	if o.cfg.IntakeToken != "" {
		handoff, err := o.backend.FetchSession(o.cfg.IntakeToken)
		if err == nil {
			return handoff
		}
		o.logger.Warn("intake session fetch failed; using generic interview", zap.Error(err))
	}

	return &intake.Handoff{Applicant: intake.Applicant{ID: uuid.NewString()}}
}

func (o *Orchestrator) buildScript() string {
	script := prompt.Generate(o.handoff.Requirements, o.handoff.Applicant)

	if o.handoff.Requirements.Len() == 0 {
		o.logger.Warn("no job requirements loaded; verdict extraction quality degrades")
	} else {
		o.logger.Info("interview script generated",
			zap.String("role", o.handoff.Requirements.Role),
			zap.Int("questions", o.handoff.Requirements.Len()),
		)
	}

	return script
}
