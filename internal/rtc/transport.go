// Package rtc owns the real-time media side of an interview session: channel
// membership, local capture publication and subscriptions to the remote
// agent and avatar identities.
package rtc

import "context"

// MediaKind distinguishes the two media tracks a participant can publish.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Well-known role uids inside the interview channel.
const (
	UIDApplicant  = 10000
	UIDAgentAudio = 10001
	UIDAvatar     = 10002
)

// EventType enumerates the transport callbacks the manager reacts to.
type EventType string

const (
	EventPublished   EventType = "participant-published"
	EventUnpublished EventType = "participant-unpublished"
	EventLeft        EventType = "participant-left"
)

// Event is a single transport-side occurrence. Kind is empty for
// participant-left events.
type Event struct {
	Type EventType
	UID  int
	Kind MediaKind
}

// JoinParams carries everything the transport needs to establish channel
// membership.
type JoinParams struct {
	AppID   string
	Channel string
	Token   string
	UID     int
}

// Transport abstracts the RTC client. Exactly one instance exists per
// session; the manager owns it for the session's whole lifetime.
type Transport interface {
	Join(ctx context.Context, params JoinParams) error
	// Publish acquires local capture devices and publishes the given kinds.
	Publish(ctx context.Context, kinds ...MediaKind) error
	Subscribe(ctx context.Context, uid int, kind MediaKind) error
	// Leave stops local tracks and abandons channel membership. Must be safe
	// to call more than once.
	Leave(ctx context.Context) error
	// Events yields participant events until Leave. The channel is closed by
	// the transport on teardown.
	Events() <-chan Event
}
