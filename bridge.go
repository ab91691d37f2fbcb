package voiceagent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Room bridge message types. The worker sends subscribe, speech_config and
// say; the room peer sends joined, transcript, leave and error.
const (
	msgSubscribe    = "subscribe"
	msgJoined       = "joined"
	msgSpeechConfig = "speech_config"
	msgSay          = "say"
	msgTranscript   = "transcript"
	msgLeave        = "leave"
	msgError        = "error"
)

const bridgeLeaveTimeout = time.Second

type bridgeMessage struct {
	Type          string        `json:"type"`
	Room          string        `json:"room,omitempty"`
	AutoSubscribe AutoSubscribe `json:"auto_subscribe,omitempty"`
	STT           string        `json:"stt,omitempty"`
	TTS           string        `json:"tts,omitempty"`
	Text          string        `json:"text,omitempty"`
	Participant   string        `json:"participant,omitempty"`
	Final         bool          `json:"final,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// WebsocketConnector joins a room over the websocket room bridge. It either
// dials URL or uses a connection the worker already accepted.
type WebsocketConnector struct {
	URL    string
	Dialer *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	roomName string
	claimed  bool
}

// NewWebsocketConnector returns a connector that dials url on Connect.
func NewWebsocketConnector(url string) *WebsocketConnector {
	return &WebsocketConnector{URL: url, Dialer: websocket.DefaultDialer}
}

func newAcceptedConnector(conn *websocket.Conn, roomName string) *WebsocketConnector {
	return &WebsocketConnector{conn: conn, roomName: roomName}
}

// Connect sends the subscription request and waits for the peer to confirm
// the join.
func (c *WebsocketConnector) Connect(ctx context.Context, subscribe AutoSubscribe) (Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.claimed {
		return nil, errors.New("room bridge connection already in use")
	}

	conn := c.conn
	if conn == nil {
		dialer := c.Dialer
		if dialer == nil {
			dialer = websocket.DefaultDialer
		}
		dialed, _, err := dialer.DialContext(ctx, c.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("dial room bridge: %w", err)
		}
		conn = dialed
		c.conn = conn
	}

	// Unblock the handshake reads when ctx ends.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := writeMessage(ctx, conn, bridgeMessage{Type: msgSubscribe, AutoSubscribe: subscribe}); err != nil {
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	name := c.roomName
	for {
		var msg bridgeMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("await join: %w", err)
		}
		switch msg.Type {
		case msgJoined:
			if msg.Room != "" {
				name = msg.Room
			}
		case msgError:
			return nil, fmt.Errorf("room rejected join: %s", msg.Error)
		case msgLeave:
			return nil, errors.New("room closed before join completed")
		default:
			continue
		}
		break
	}

	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}

	c.claimed = true
	room := newWebsocketRoom(name, conn)
	go room.readLoop()
	return room, nil
}

// Close releases a connection that was never handed to a room.
func (c *WebsocketConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.claimed {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

type websocketRoom struct {
	name string
	conn *websocket.Conn

	writeMu     sync.Mutex
	transcripts chan Transcript
	done        chan struct{}
	once        sync.Once
}

func newWebsocketRoom(name string, conn *websocket.Conn) *websocketRoom {
	return &websocketRoom{
		name:        name,
		conn:        conn,
		transcripts: make(chan Transcript, 16),
		done:        make(chan struct{}),
	}
}

func (r *websocketRoom) Name() string { return r.name }

func (r *websocketRoom) Transcripts() <-chan Transcript { return r.transcripts }

func (r *websocketRoom) Done() <-chan struct{} { return r.done }

func (r *websocketRoom) ConfigureSpeech(ctx context.Context, cfg SpeechConfig) error {
	return r.send(ctx, bridgeMessage{Type: msgSpeechConfig, STT: cfg.STT, TTS: cfg.TTS})
}

func (r *websocketRoom) Say(ctx context.Context, text string) error {
	return r.send(ctx, bridgeMessage{Type: msgSay, Text: text})
}

// Close tells the peer the agent is leaving and drops the connection.
func (r *websocketRoom) Close() error {
	select {
	case <-r.done:
		return nil
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), bridgeLeaveTimeout)
	defer cancel()
	_ = r.send(ctx, bridgeMessage{Type: msgLeave})
	r.shutdown()
	return nil
}

func (r *websocketRoom) send(ctx context.Context, msg bridgeMessage) error {
	select {
	case <-r.done:
		return fmt.Errorf("room %s: already left", r.name)
	default:
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return writeMessage(ctx, r.conn, msg)
}

func (r *websocketRoom) readLoop() {
	defer close(r.transcripts)
	defer r.shutdown()

	for {
		var msg bridgeMessage
		if err := r.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case msgTranscript:
			transcript := Transcript{Participant: msg.Participant, Text: msg.Text, Final: msg.Final}
			select {
			case r.transcripts <- transcript:
			case <-r.done:
				return
			}
		case msgLeave:
			return
		}
	}
}

func (r *websocketRoom) shutdown() {
	r.once.Do(func() {
		close(r.done)
		_ = r.conn.Close()
	})
}

func writeMessage(ctx context.Context, conn *websocket.Conn, msg bridgeMessage) error {
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Time{}
	}
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
