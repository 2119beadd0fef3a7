package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultAckTimeout   = 10 * time.Second
	pingInterval        = 20 * time.Second
)

// frame is the wire format spoken with the RTC signaling gateway. One struct
// covers both directions; unused fields stay empty.
type frame struct {
	Type    string   `json:"type"`
	Op      string   `json:"op,omitempty"`
	AppID   string   `json:"app_id,omitempty"`
	Channel string   `json:"channel,omitempty"`
	Token   string   `json:"token,omitempty"`
	UID     int      `json:"uid,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Kinds   []string `json:"kinds,omitempty"`
	Message string   `json:"message,omitempty"`
}

const (
	frameJoin      = "join"
	framePublish   = "publish"
	frameSubscribe = "subscribe"
	frameLeave     = "leave"

	frameOK    = "ok"
	frameError = "error"

	framePublished   = "published"
	frameUnpublished = "unpublished"
	frameLeft        = "left"
)

// WSTransport implements Transport over a websocket connection to the
// signaling gateway. Commands are serialized and acknowledged; participant
// events arrive interleaved on the same connection.
type WSTransport struct {
	url    string
	logger *zap.Logger
	dialer *websocket.Dialer

	WriteTimeout time.Duration
	AckTimeout   time.Duration

	conn    *websocket.Conn
	writeMu sync.Mutex
	cmdMu   sync.Mutex

	events chan Event
	acks   chan frame
	done   chan struct{}

	closeOnce sync.Once
}

func NewWSTransport(url string, logger *zap.Logger) *WSTransport {
	return &WSTransport{
		url:          url,
		logger:       logger,
		dialer:       websocket.DefaultDialer,
		WriteTimeout: defaultWriteTimeout,
		AckTimeout:   defaultAckTimeout,
		events:       make(chan Event, 16),
		acks:         make(chan frame, 1),
		done:         make(chan struct{}),
	}
}

func (t *WSTransport) Events() <-chan Event {
	return t.events
}

func (t *WSTransport) Join(ctx context.Context, params JoinParams) error {
	conn, resp, err := t.dialer.DialContext(ctx, t.url, nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial signaling gateway: %s: %w", resp.Status, err)
		}
		return fmt.Errorf("dial signaling gateway: %w", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	t.conn = conn

	go t.readLoop()
	go t.pingLoop()

	return t.command(ctx, frame{
		Type:    frameJoin,
		AppID:   params.AppID,
		Channel: params.Channel,
		Token:   params.Token,
		UID:     params.UID,
	})
}

func (t *WSTransport) Publish(ctx context.Context, kinds ...MediaKind) error {
	names := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		names = append(names, string(kind))
	}

	return t.command(ctx, frame{Type: framePublish, Kinds: names})
}

func (t *WSTransport) Subscribe(ctx context.Context, uid int, kind MediaKind) error {
	return t.command(ctx, frame{Type: frameSubscribe, UID: uid, Kind: string(kind)})
}

func (t *WSTransport) Leave(ctx context.Context) error {
	if t.conn == nil {
		return nil
	}

	// Best effort: the gateway drops membership on disconnect anyway.
	if err := t.command(ctx, frame{Type: frameLeave}); err != nil {
		t.logger.Debug("leave command failed", zap.Error(err))
	}

	t.shutdown()
	return nil
}

// command writes one frame and waits for the matching ok/error reply. Only
// one command is in flight at a time; the session drives the transport
// sequentially.
func (t *WSTransport) command(ctx context.Context, f frame) error {
	if t.conn == nil {
		return errors.New("transport is not connected")
	}

	t.cmdMu.Lock()
	defer t.cmdMu.Unlock()

	if err := t.writeFrame(f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Type, err)
	}

	timeout := t.AckTimeout
	if timeout <= 0 {
		timeout = defaultAckTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-t.acks:
		if reply.Type == frameError {
			return fmt.Errorf("%s rejected by gateway: %s", f.Type, reply.Message)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return errors.New("transport closed")
	case <-timer.C:
		return fmt.Errorf("timed out waiting for %s acknowledgement", f.Type)
	}
}

func (t *WSTransport) writeFrame(f frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	writeTimeout := t.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}

	if err := t.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return t.conn.WriteMessage(websocket.TextMessage, data)
}

func (t *WSTransport) readLoop() {
	defer close(t.events)

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			select {
			case <-t.done:
			default:
				t.logger.Debug("signaling read loop ended", zap.Error(err))
			}
			t.shutdown()
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.logger.Warn("dropping malformed signaling frame", zap.Error(err))
			continue
		}

		switch f.Type {
		case frameOK, frameError:
			select {
			case t.acks <- f:
			default:
				t.logger.Debug("dropping unexpected acknowledgement", zap.String("op", f.Op))
			}
		case framePublished:
			t.emit(Event{Type: EventPublished, UID: f.UID, Kind: MediaKind(f.Kind)})
		case frameUnpublished:
			t.emit(Event{Type: EventUnpublished, UID: f.UID, Kind: MediaKind(f.Kind)})
		case frameLeft:
			t.emit(Event{Type: EventLeft, UID: f.UID})
		default:
			t.logger.Debug("ignoring unknown signaling frame", zap.String("type", f.Type))
		}
	}
}

func (t *WSTransport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.done:
	}
}

func (t *WSTransport) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			writeTimeout := t.WriteTimeout
			if writeTimeout <= 0 {
				writeTimeout = defaultWriteTimeout
			}
			if err := t.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				t.logger.Debug("ping failed", zap.Error(err))
				return
			}
		}
	}
}

func (t *WSTransport) shutdown() {
	t.closeOnce.Do(func() {
		close(t.done)

		writeTimeout := t.WriteTimeout
		if writeTimeout <= 0 {
			writeTimeout = defaultWriteTimeout
		}

		t.writeMu.Lock()
		_ = t.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeTimeout),
		)
		t.writeMu.Unlock()

		_ = t.conn.Close()
	})
}
