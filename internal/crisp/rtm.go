package crisp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	// Engine.io packet types (first byte of a text frame).
	eioOpen = '0'
	eioPing = '2'
	eioPong = '3'
	eioMsg  = '4'

	// Socket.io packet types (second byte, inside an engine.io message).
	sioConnect    = '0'
	sioDisconnect = '1'
	sioEvent      = '2'

	readLimit = 1 << 20

	// Reconnect backoff bounds. Delay doubles per failure with jitter,
	// resetting after a connection that stayed up for stableAfter.
	backoffMin  = time.Second
	backoffMax  = 60 * time.Second
	stableAfter = 60 * time.Second

	defaultPingInterval = 25 * time.Second
)

// EventHandler consumes one visitor message event. It must not block the
// listener for long: slow work belongs on the handler's side.
type EventHandler func(ctx context.Context, ev MessageEvent)

// Listener consumes the Crisp RTM websocket and dispatches message:send
// events. Events arriving while disconnected are lost — the stream has no
// replay, reconnection only resumes delivery.
type Listener struct {
	client  *Client
	handler EventHandler
}

func NewListener(client *Client, handler EventHandler) *Listener {
	return &Listener{client: client, handler: handler}
}

// Run connects and consumes until ctx is cancelled, reconnecting with
// bounded exponential backoff. There is at most one active consumer: a new
// connection is only dialed after the previous one is fully torn down.
func (l *Listener) Run(ctx context.Context) error {
	delay := backoffMin
	for {
		start := time.Now()
		err := l.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Since(start) > stableAfter {
			delay = backoffMin
		}

		jittered := delay + time.Duration(rand.Int63n(int64(delay/2)+1))
		slog.Warn("realtime link lost, reconnecting", "error", err, "delay", jittered)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(jittered):
		}
		delay *= 2
		if delay > backoffMax {
			delay = backoffMax
		}
	}
}

// runOnce performs one connect-authenticate-consume cycle.
func (l *Listener) runOnce(ctx context.Context) error {
	endpoint, err := l.client.ConnectEndpoints(ctx)
	if err != nil {
		return fmt.Errorf("resolve rtm endpoint: %w", err)
	}

	wsURL := socketIOURL(endpoint)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("rtm dial: %w", err)
	}
	conn.SetReadLimit(readLimit)
	defer conn.Close(websocket.StatusNormalClosure, "")

	slog.Info("realtime link connected", "endpoint", endpoint)

	pingInterval := defaultPingInterval
	authenticated := false

	for {
		readCtx, cancel := context.WithTimeout(ctx, pingInterval*5/2)
		_, data, err := conn.Read(readCtx)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("rtm read: %w", err)
		}
		if len(data) == 0 {
			continue
		}

		switch data[0] {
		case eioOpen:
			var open struct {
				PingInterval int `json:"pingInterval"`
			}
			if err := json.Unmarshal(data[1:], &open); err == nil && open.PingInterval > 0 {
				pingInterval = time.Duration(open.PingInterval) * time.Millisecond
			}
			// Open the default socket.io namespace.
			if err := conn.Write(ctx, websocket.MessageText, []byte("40")); err != nil {
				return fmt.Errorf("rtm namespace connect: %w", err)
			}

		case eioPing:
			if err := conn.Write(ctx, websocket.MessageText, []byte{eioPong}); err != nil {
				return fmt.Errorf("rtm pong: %w", err)
			}

		case eioMsg:
			if len(data) < 2 {
				continue
			}
			switch data[1] {
			case sioConnect:
				if !authenticated {
					if err := l.authenticate(ctx, conn); err != nil {
						return err
					}
					authenticated = true
				}
			case sioDisconnect:
				return fmt.Errorf("rtm server disconnected namespace")
			case sioEvent:
				l.handleEvent(ctx, data[2:])
			}
		}
	}
}

// authenticate emits the plugin authentication event, subscribing to the
// message stream. Runs again on every reconnect.
func (l *Listener) authenticate(ctx context.Context, conn *websocket.Conn) error {
	payload, err := json.Marshal([]any{"authentication", map[string]any{
		"tier":     "plugin",
		"username": l.client.id,
		"password": l.client.key,
		"events":   []string{"message:send", "session:set_data"},
	}})
	if err != nil {
		return err
	}
	frame := append([]byte("42"), payload...)
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		return fmt.Errorf("rtm authenticate: %w", err)
	}
	slog.Debug("realtime authentication sent")
	return nil
}

// handleEvent decodes a socket.io event frame: ["name", {payload}].
func (l *Listener) handleEvent(ctx context.Context, body []byte) {
	var frame []json.RawMessage
	if err := json.Unmarshal(body, &frame); err != nil || len(frame) == 0 {
		slog.Debug("unparseable rtm event frame", "error", err)
		return
	}

	var name string
	if err := json.Unmarshal(frame[0], &name); err != nil {
		return
	}

	switch name {
	case "message:send":
		if len(frame) < 2 {
			return
		}
		var ev MessageEvent
		if err := json.Unmarshal(frame[1], &ev); err != nil {
			slog.Warn("bad message:send payload", "error", err)
			return
		}
		if ev.WebsiteID != l.client.websiteID {
			return
		}
		l.handler(ctx, ev)
	case "unauthorized":
		slog.Error("realtime authentication rejected", "payload", string(body))
	default:
		slog.Debug("rtm event ignored", "event", name)
	}
}

// socketIOURL converts the relay endpoint into the websocket transport URL.
func socketIOURL(endpoint string) string {
	u := endpoint
	u = strings.Replace(u, "https://", "wss://", 1)
	u = strings.Replace(u, "http://", "ws://", 1)
	return strings.TrimRight(u, "/") + "/socket.io/?EIO=4&transport=websocket"
}
