package rtc

import "sync"

// Participant is the tracked media state of one remote channel member.
type Participant struct {
	UID             int
	HasAudio        bool
	HasVideo        bool
	SubscribedAudio bool
	SubscribedVideo bool
}

// Registry tracks remote participants by uid. Mutations come from the
// transport event path; the avatar discovery loop reads it concurrently, so
// access is guarded.
type Registry struct {
	mu    sync.Mutex
	users map[int]*Participant
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[int]*Participant)}
}

// Published records a participant publishing a media kind, creating the
// entry when the uid is new.
func (r *Registry) Published(uid int, kind MediaKind) *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[uid]
	if !ok {
		p = &Participant{UID: uid}
		r.users[uid] = p
	}

	switch kind {
	case KindAudio:
		p.HasAudio = true
	case KindVideo:
		p.HasVideo = true
	}

	return p
}

// Unpublished clears the published flag for a media kind. The participant
// entry stays until it leaves.
func (r *Registry) Unpublished(uid int, kind MediaKind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[uid]
	if !ok {
		return
	}

	switch kind {
	case KindAudio:
		p.HasAudio = false
	case KindVideo:
		p.HasVideo = false
	}
}

// Left removes the participant entry. Returns true when the uid was known.
func (r *Registry) Left(uid int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.users[uid]
	delete(r.users, uid)
	return ok
}

// Get returns a snapshot of the participant state, or nil when unknown.
func (r *Registry) Get(uid int) *Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[uid]
	if !ok {
		return nil
	}

	snapshot := *p
	return &snapshot
}

// MarkSubscribed flips the subscription flag for a (uid, kind) pair and
// reports whether this call was the first to do so. This is the dedup point
// between the early publish-event subscribe path and the discovery loop.
func (r *Registry) MarkSubscribed(uid int, kind MediaKind) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.users[uid]
	if !ok {
		p = &Participant{UID: uid}
		r.users[uid] = p
	}

	switch kind {
	case KindAudio:
		if p.SubscribedAudio {
			return false
		}
		p.SubscribedAudio = true
	case KindVideo:
		if p.SubscribedVideo {
			return false
		}
		p.SubscribedVideo = true
	default:
		return false
	}

	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
