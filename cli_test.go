package voiceagent_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	voiceagent "github.com/paseo/voice-agent"
)

func noopEntrypoint(context.Context, *voiceagent.JobContext) error { return nil }

func TestNewCommand_Subcommands(t *testing.T) {
	cmd := voiceagent.NewCommand(voiceagent.WorkerOptions{Entrypoint: noopEntrypoint})

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	if diff := cmp.Diff([]string{"connect", "dev", "start"}, names); diff != "" {
		t.Errorf("subcommands mismatch (-want +got):\n%s", diff)
	}
}

func TestNewCommand_ConnectRequiresURL(t *testing.T) {
	cmd := voiceagent.NewCommand(voiceagent.WorkerOptions{Entrypoint: noopEntrypoint})
	cmd.SetArgs([]string{"connect"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without --url")
	}
}

func TestNewCommand_StartRequiresEntrypoint(t *testing.T) {
	cmd := voiceagent.NewCommand(voiceagent.WorkerOptions{})
	cmd.SetArgs([]string{"start", "--addr", "127.0.0.1:0"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error without entrypoint")
	}
}
