package voiceagent

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// AutoSubscribe selects which remote tracks are subscribed when a job
// connects to its room.
type AutoSubscribe string

const (
	SubscribeAll  AutoSubscribe = "subscribe_all"
	SubscribeNone AutoSubscribe = "subscribe_none"
	AudioOnly     AutoSubscribe = "audio_only"
	VideoOnly     AutoSubscribe = "video_only"
)

// Valid reports whether a is one of the known subscription modes.
func (a AutoSubscribe) Valid() bool {
	switch a {
	case SubscribeAll, SubscribeNone, AudioOnly, VideoOnly:
		return true
	}
	return false
}

// SpeechConfig tells the room which providers run speech recognition and
// synthesis for the agent.
type SpeechConfig struct {
	STT string `json:"stt"`
	TTS string `json:"tts"`
}

// Transcript is a recognized user utterance.
type Transcript struct {
	Participant string `json:"participant,omitempty"`
	Text        string `json:"text"`
	Final       bool   `json:"final"`
}

// Room is a joined room as seen by the agent. The room peer owns the media:
// it transcribes subscribed audio and speaks the agent's replies.
type Room interface {
	// Name of the room.
	Name() string
	// ConfigureSpeech selects the speech providers for the agent.
	ConfigureSpeech(ctx context.Context, cfg SpeechConfig) error
	// Transcripts streams user utterances. The channel closes when the
	// room is left.
	Transcripts() <-chan Transcript
	// Say speaks text into the room.
	Say(ctx context.Context, text string) error
	// Done is closed once the room has been left.
	Done() <-chan struct{}
	// Close leaves the room.
	Close() error
}

// Connector joins a room on behalf of a job.
type Connector interface {
	Connect(ctx context.Context, subscribe AutoSubscribe) (Room, error)
}

// JobContext is handed to the entrypoint for every job. It is borrowed for
// the duration of the entrypoint call.
type JobContext struct {
	ID       string
	RoomName string

	connector Connector

	mu   sync.Mutex
	room Room
}

// NewJobContext creates a job for roomName that joins through connector.
func NewJobContext(roomName string, connector Connector) *JobContext {
	return &JobContext{
		ID:        "job_" + uuid.NewString(),
		RoomName:  roomName,
		connector: connector,
	}
}

// Connect joins the room with the given subscription mode and waits until
// the room acknowledges. Calling Connect again after success is a no-op.
func (j *JobContext) Connect(ctx context.Context, subscribe AutoSubscribe) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.room != nil {
		return nil
	}
	if !subscribe.Valid() {
		return NewConnectError(j.RoomName, errors.New("invalid auto subscribe mode "+string(subscribe)))
	}
	if j.connector == nil {
		return NewConnectError(j.RoomName, errors.New("job has no connector"))
	}

	room, err := j.connector.Connect(ctx, subscribe)
	if err != nil {
		return NewConnectError(j.RoomName, err)
	}
	j.room = room
	return nil
}

// Room returns the joined room, or nil before Connect succeeds.
func (j *JobContext) Room() Room {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.room
}

// shutdown leaves the room if the entrypoint joined one, and releases the
// connector otherwise.
func (j *JobContext) shutdown() error {
	j.mu.Lock()
	room := j.room
	j.mu.Unlock()

	if room != nil {
		return room.Close()
	}
	if closer, ok := j.connector.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
