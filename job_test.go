package voiceagent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	voiceagent "github.com/paseo/voice-agent"
)

func TestJobContext_Connect(t *testing.T) {
	room := newFakeRoom("lobby")
	connector := &fakeConnector{room: room}
	job := voiceagent.NewJobContext("lobby", connector)

	if !strings.HasPrefix(job.ID, "job_") {
		t.Errorf("expected job id with job_ prefix, got %q", job.ID)
	}
	if job.Room() != nil {
		t.Fatal("room should be nil before connect")
	}

	if err := job.Connect(context.Background(), voiceagent.AudioOnly); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := job.Connect(context.Background(), voiceagent.SubscribeAll); err != nil {
		t.Fatalf("second connect: %v", err)
	}

	if job.Room() != room {
		t.Error("expected job to expose the connected room")
	}
	if diff := cmp.Diff([]voiceagent.AutoSubscribe{voiceagent.AudioOnly}, connector.calls); diff != "" {
		t.Errorf("connector calls mismatch (-want +got):\n%s", diff)
	}
}

func TestJobContext_ConnectErrors(t *testing.T) {
	refused := errors.New("room not found")

	tests := []struct {
		name      string
		connector voiceagent.Connector
		subscribe voiceagent.AutoSubscribe
	}{
		{name: "invalid mode", connector: &fakeConnector{room: newFakeRoom("lobby")}, subscribe: "audio"},
		{name: "no connector", connector: nil, subscribe: voiceagent.AudioOnly},
		{name: "connector failure", connector: &fakeConnector{err: refused}, subscribe: voiceagent.AudioOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := voiceagent.NewJobContext("lobby", tt.connector)
			err := job.Connect(context.Background(), tt.subscribe)
			requireAgentErrorKind(t, err, voiceagent.ConnectErrorKind)
			if job.Room() != nil {
				t.Error("room should stay nil after a failed connect")
			}
		})
	}
}

func TestAutoSubscribe_Valid(t *testing.T) {
	for _, mode := range []voiceagent.AutoSubscribe{
		voiceagent.SubscribeAll,
		voiceagent.SubscribeNone,
		voiceagent.AudioOnly,
		voiceagent.VideoOnly,
	} {
		if !mode.Valid() {
			t.Errorf("expected %q to be valid", mode)
		}
	}
	if voiceagent.AutoSubscribe("everything").Valid() {
		t.Error("expected unknown mode to be invalid")
	}
}
