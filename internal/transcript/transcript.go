// Package transcript accumulates interview turns and derives the pass/fail
// verdict from them. Verdict detection is a best-effort classifier over
// free-form speech with a deterministic fallback, never a coin flip.
package transcript

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerApplicant Speaker = "applicant"
	SpeakerAI        Speaker = "ai"
	SpeakerSystem    Speaker = "system"
)

// Verdict is the binary interview outcome.
type Verdict string

const (
	VerdictPass Verdict = "PASS"
	VerdictFail Verdict = "FAIL"
)

// Turn is one transcribed utterance. Turns are append-only for the
// session's lifetime and never mutated after append.
type Turn struct {
	Speaker   Speaker
	Text      string
	Timestamp time.Time
}

// Log is the ordered transcript of one session.
type Log struct {
	mu    sync.Mutex
	turns []Turn

	// Verdict cache is set-once: the first AI turn carrying an unambiguous
	// marker wins, later turns never override it.
	cached     *Verdict
	cachedText string
}

func NewLog() *Log {
	return &Log{}
}

// Append records a turn in observed order. When an AI turn contains an
// unambiguous verdict marker and no verdict is cached yet, the verdict is
// cached immediately.
func (l *Log) Append(speaker Speaker, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = append(l.turns, Turn{
		Speaker:   speaker,
		Text:      text,
		Timestamp: time.Now().UTC(),
	})

	if speaker != SpeakerAI || l.cached != nil {
		return
	}

	if v, ok := markerVerdict(text); ok {
		l.cached = &v
		l.cachedText = text
	}
}

// Cached returns the marker-derived verdict, if one was spoken.
func (l *Log) Cached() (Verdict, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached == nil {
		return "", "", false
	}
	return *l.cached, l.cachedText, true
}

// Turns returns a snapshot of the transcript.
func (l *Log) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Render formats the transcript as speaker-prefixed lines, the shape handed
// to the inference classifier.
func (l *Log) Render() string {
	var b strings.Builder
	for _, turn := range l.Turns() {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(string(turn.Speaker)), turn.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// markerVerdict detects the unambiguous verdict tokens the instruction
// script demands from the agent. A text containing both polarity markers is
// ambiguous and cached by nobody.
func markerVerdict(text string) (Verdict, bool) {
	upper := strings.ToUpper(text)

	pass := strings.Contains(upper, "PASSED")
	fail := strings.Contains(upper, "FAILED") || strings.Contains(upper, "NOT MET THE REQUIREMENTS")

	switch {
	case pass && !fail:
		return VerdictPass, true
	case fail && !pass:
		return VerdictFail, true
	default:
		return "", false
	}
}
