package rtc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// gatewayStub acks every command and records it, optionally rejecting a
// frame type.
type gatewayStub struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	received []frame
	rejects  map[string]string

	conn *websocket.Conn
}

func newGatewayStub() *gatewayStub {
	return &gatewayStub{rejects: make(map[string]string)}
}

func (g *gatewayStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			return
		}

		g.mu.Lock()
		g.received = append(g.received, f)
		reason, reject := g.rejects[f.Type]
		g.mu.Unlock()

		reply := frame{Type: frameOK, Op: f.Type}
		if reject {
			reply = frame{Type: frameError, Op: f.Type, Message: reason}
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}

func (g *gatewayStub) push(t *testing.T, f frame) {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.conn == nil {
		t.Fatalf("no client connected")
	}
	if err := g.conn.WriteJSON(f); err != nil {
		t.Fatalf("push frame: %v", err)
	}
}

func (g *gatewayStub) frames() []frame {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]frame, len(g.received))
	copy(out, g.received)
	return out
}

func newGatewayTransport(t *testing.T) (*WSTransport, *gatewayStub) {
	t.Helper()

	gw := newGatewayStub()
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	tr := NewWSTransport(url, zap.NewNop())
	tr.AckTimeout = time.Second
	return tr, gw
}

func TestWSTransportJoinSendsCredentials(t *testing.T) {
	tr, gw := newGatewayTransport(t)

	err := tr.Join(context.Background(), JoinParams{
		AppID:   "app",
		Channel: "10000",
		Token:   "rtc-token",
		UID:     UIDApplicant,
	})
	if err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tr.Leave(context.Background())

	frames := gw.frames()
	if len(frames) != 1 || frames[0].Type != frameJoin {
		t.Fatalf("expected a single join frame, got %+v", frames)
	}
	join := frames[0]
	if join.AppID != "app" || join.Channel != "10000" || join.Token != "rtc-token" || join.UID != UIDApplicant {
		t.Fatalf("join frame missing credentials: %+v", join)
	}
}

func TestWSTransportCommandRejection(t *testing.T) {
	tr, gw := newGatewayTransport(t)
	gw.rejects[framePublish] = "no media permission"

	if err := tr.Join(context.Background(), JoinParams{Channel: "10000"}); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tr.Leave(context.Background())

	err := tr.Publish(context.Background(), KindAudio, KindVideo)
	if err == nil || !strings.Contains(err.Error(), "no media permission") {
		t.Fatalf("expected gateway rejection surfaced, got %v", err)
	}
}

func TestWSTransportDeliversParticipantEvents(t *testing.T) {
	tr, gw := newGatewayTransport(t)

	if err := tr.Join(context.Background(), JoinParams{Channel: "10000"}); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tr.Leave(context.Background())

	gw.push(t, frame{Type: framePublished, UID: UIDAvatar, Kind: string(KindVideo)})
	gw.push(t, frame{Type: frameLeft, UID: UIDAgentAudio})

	var events []Event
	timeout := time.After(time.Second)
	for len(events) < 2 {
		select {
		case ev := <-tr.Events():
			events = append(events, ev)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %+v", events)
		}
	}

	if events[0].Type != EventPublished || events[0].UID != UIDAvatar || events[0].Kind != KindVideo {
		t.Fatalf("unexpected first event %+v", events[0])
	}
	if events[1].Type != EventLeft || events[1].UID != UIDAgentAudio {
		t.Fatalf("unexpected second event %+v", events[1])
	}
}

func TestWSTransportSubscribeFrame(t *testing.T) {
	tr, gw := newGatewayTransport(t)

	if err := tr.Join(context.Background(), JoinParams{Channel: "10000"}); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tr.Leave(context.Background())

	if err := tr.Subscribe(context.Background(), UIDAvatar, KindVideo); err != nil {
		t.Fatalf("unexpected subscribe error: %v", err)
	}

	frames := gw.frames()
	last := frames[len(frames)-1]
	if last.Type != frameSubscribe || last.UID != UIDAvatar || last.Kind != string(KindVideo) {
		t.Fatalf("unexpected subscribe frame %+v", last)
	}
}

func TestWSTransportCommandBeforeJoin(t *testing.T) {
	tr := NewWSTransport("ws://127.0.0.1:0", zap.NewNop())

	if err := tr.Publish(context.Background(), KindAudio); err == nil {
		t.Fatalf("expected error before join")
	}
}

func TestWSTransportMalformedFramesAreDropped(t *testing.T) {
	gw := newGatewayStub()
	srv := httptest.NewServer(gw)
	t.Cleanup(srv.Close)

	tr := NewWSTransport("ws"+strings.TrimPrefix(srv.URL, "http"), zap.NewNop())
	tr.AckTimeout = time.Second

	if err := tr.Join(context.Background(), JoinParams{Channel: "10000"}); err != nil {
		t.Fatalf("unexpected join error: %v", err)
	}
	defer tr.Leave(context.Background())

	gw.mu.Lock()
	conn := gw.conn
	gw.mu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	gw.push(t, frame{Type: framePublished, UID: UIDAvatar, Kind: string(KindVideo)})

	select {
	case ev := <-tr.Events():
		if ev.UID != UIDAvatar {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("garbage frame must not stall the read loop")
	}
}
