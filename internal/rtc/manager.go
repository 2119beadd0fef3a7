package rtc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrLocalMedia marks a failure to acquire or publish the applicant's
// microphone/camera. User-recoverable: the session state stays valid and the
// caller may retry after the user fixes device permissions.
var ErrLocalMedia = errors.New("local media unavailable")

// Manager drives exactly one transport client for one interview session.
type Manager struct {
	transport Transport
	registry  *Registry
	logger    *zap.Logger

	agentUID  int
	avatarUID int

	onInterviewerLeft func(uid int)

	mu     sync.Mutex
	joined bool
	left   bool
}

func NewManager(transport Transport, logger *zap.Logger) *Manager {
	return &Manager{
		transport: transport,
		registry:  NewRegistry(),
		logger:    logger,
		agentUID:  UIDAgentAudio,
		avatarUID: UIDAvatar,
	}
}

// OnInterviewerLeft registers a callback fired when the agent audio or
// avatar identity leaves the channel unexpectedly. A side channel, not a
// failure: the session remains completable.
func (m *Manager) OnInterviewerLeft(fn func(uid int)) {
	m.onInterviewerLeft = fn
}

// Registry exposes the remote participant registry for the discovery loop.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Avatar returns the avatar participant's current state, or nil while it has
// not joined the channel.
func (m *Manager) Avatar() *Participant {
	return m.registry.Get(m.avatarUID)
}

// Join establishes channel membership and starts consuming transport
// events. A join failure is fatal to the whole session.
func (m *Manager) Join(ctx context.Context, params JoinParams) error {
	m.mu.Lock()
	if m.joined {
		m.mu.Unlock()
		return errors.New("already joined")
	}
	m.joined = true
	m.mu.Unlock()

	if err := m.transport.Join(ctx, params); err != nil {
		return fmt.Errorf("join channel %s: %w", params.Channel, err)
	}

	m.logger.Info("joined channel",
		zap.String("channel", params.Channel),
		zap.Int("uid", params.UID),
	)

	go m.consumeEvents()

	return nil
}

// PublishLocal acquires and publishes the applicant's microphone and camera.
// Device denial is surfaced as ErrLocalMedia so the caller can treat it as
// user-recoverable instead of tearing the session down.
func (m *Manager) PublishLocal(ctx context.Context) error {
	if err := m.transport.Publish(ctx, KindAudio, KindVideo); err != nil {
		return fmt.Errorf("%w: %w", ErrLocalMedia, err)
	}

	m.logger.Info("published local tracks")
	return nil
}

// SubscribeOnce subscribes to a (participant, kind) pair at most once across
// the session, no matter how many code paths race for it.
func (m *Manager) SubscribeOnce(ctx context.Context, uid int, kind MediaKind) error {
	if !m.registry.MarkSubscribed(uid, kind) {
		m.logger.Debug("already subscribed",
			zap.Int("uid", uid),
			zap.String("kind", string(kind)),
		)
		return nil
	}

	if err := m.transport.Subscribe(ctx, uid, kind); err != nil {
		return fmt.Errorf("subscribe %d/%s: %w", uid, kind, err)
	}

	m.logger.Info("subscribed to remote media",
		zap.Int("uid", uid),
		zap.String("kind", string(kind)),
	)

	return nil
}

// SubscribeAvatar subscribes to whatever the avatar currently publishes.
// Used by the discovery loop on first sighting; idempotent against the early
// publish-event path.
func (m *Manager) SubscribeAvatar(ctx context.Context) error {
	p := m.registry.Get(m.avatarUID)
	if p == nil {
		return fmt.Errorf("avatar %d is not in the channel", m.avatarUID)
	}

	if p.HasAudio {
		if err := m.SubscribeOnce(ctx, p.UID, KindAudio); err != nil {
			return err
		}
	}

	if p.HasVideo {
		if err := m.SubscribeOnce(ctx, p.UID, KindVideo); err != nil {
			return err
		}
	}

	return nil
}

// Leave releases local tracks and abandons channel membership. Safe to call
// on every exit path, repeatedly.
func (m *Manager) Leave(ctx context.Context) error {
	m.mu.Lock()
	if m.left || !m.joined {
		m.mu.Unlock()
		return nil
	}
	m.left = true
	m.mu.Unlock()

	if err := m.transport.Leave(ctx); err != nil {
		return fmt.Errorf("leave channel: %w", err)
	}

	m.logger.Info("left channel")
	return nil
}

func (m *Manager) consumeEvents() {
	for ev := range m.transport.Events() {
		m.handleEvent(ev)
	}
}

func (m *Manager) handleEvent(ev Event) {
	switch ev.Type {
	case EventPublished:
		m.registry.Published(ev.UID, ev.Kind)
		m.logger.Debug("participant published",
			zap.Int("uid", ev.UID),
			zap.String("kind", string(ev.Kind)),
		)

		// The avatar can publish before the discovery loop ever sees it.
		// Subscribe right away; the loop's later attempt dedups.
		if ev.UID == m.avatarUID && ev.Kind == KindVideo {
			if err := m.SubscribeOnce(context.Background(), ev.UID, ev.Kind); err != nil {
				m.logger.Warn("early avatar subscription failed", zap.Error(err))
			}
		}
	case EventUnpublished:
		m.registry.Unpublished(ev.UID, ev.Kind)
		m.logger.Debug("participant unpublished",
			zap.Int("uid", ev.UID),
			zap.String("kind", string(ev.Kind)),
		)
	case EventLeft:
		known := m.registry.Left(ev.UID)
		m.logger.Debug("participant left", zap.Int("uid", ev.UID))

		if known && (ev.UID == m.agentUID || ev.UID == m.avatarUID) && m.onInterviewerLeft != nil {
			m.onInterviewerLeft(ev.UID)
		}
	}
}
