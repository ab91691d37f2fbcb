package voiceagent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"github.com/paseo/voice-agent/inference"
	"github.com/rs/zerolog"
)

const sessionCloseTimeout = 5 * time.Second

// ModelResolver turns an LLM selector into a language model.
type ModelResolver func(sel inference.Selector) (llmsdk.LanguageModel, error)

// AgentSession runs an agent in a room: user transcripts go to the language
// model, replies go back to the room to be spoken.
type AgentSession struct {
	stt string
	llm string
	tts string

	resolveModel ModelResolver
	logger       zerolog.Logger

	mu      sync.Mutex
	started bool
	room    Room
	run     *RunSession
	model   llmsdk.LanguageModel
	history []llmsdk.Message
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

type SessionOption func(*AgentSession)

// WithModelResolver overrides how the LLM selector is resolved. The default
// resolves through the inference gateway configured from the environment.
func WithModelResolver(resolve ModelResolver) SessionOption {
	return func(s *AgentSession) {
		s.resolveModel = resolve
	}
}

// WithLogger sets the session logger.
func WithLogger(logger zerolog.Logger) SessionOption {
	return func(s *AgentSession) {
		s.logger = logger
	}
}

// NewAgentSession creates a session using the given provider selectors for
// speech-to-text, the language model and text-to-speech.
func NewAgentSession(stt, llm, tts string, options ...SessionOption) *AgentSession {
	s := &AgentSession{
		stt:    stt,
		llm:    llm,
		tts:    tts,
		logger: zerolog.Nop(),
		done:   make(chan struct{}),
		resolveModel: func(sel inference.Selector) (llmsdk.LanguageModel, error) {
			return inference.GatewayFromEnv(os.Getenv).LanguageModel(sel)
		},
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// STT returns the speech-to-text selector.
func (s *AgentSession) STT() string { return s.stt }

// LLM returns the language model selector.
func (s *AgentSession) LLM() string { return s.llm }

// TTS returns the text-to-speech selector.
func (s *AgentSession) TTS() string { return s.tts }

// Start binds agent to room: it resolves the providers, connects the agent's
// MCP servers, configures speech on the room and starts answering turns.
// Start returns once the session is live; Wait blocks until it ends.
func (s *AgentSession) Start(ctx context.Context, agent *Agent, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return NewInvariantError("session already started")
	}
	if agent == nil {
		return NewInvariantError("session started without an agent")
	}
	if room == nil {
		return NewInvariantError("session started without a room; connect the job first")
	}

	sttSel, err := inference.ParseSelector(inference.KindSTT, s.stt)
	if err != nil {
		return NewInitError(err)
	}
	llmSel, err := inference.ParseSelector(inference.KindLLM, s.llm)
	if err != nil {
		return NewInitError(err)
	}
	ttsSel, err := inference.ParseSelector(inference.KindTTS, s.tts)
	if err != nil {
		return NewInitError(err)
	}

	model, err := s.resolveModel(llmSel)
	if err != nil {
		return NewInitError(err)
	}

	run, err := NewRunSession(ctx, agent, model)
	if err != nil {
		return err
	}

	if err := room.ConfigureSpeech(ctx, SpeechConfig{STT: sttSel.String(), TTS: ttsSel.String()}); err != nil {
		_ = run.Close(context.WithoutCancel(ctx))
		return NewInitError(err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.started = true
	s.room = room
	s.run = run
	s.model = model
	s.cancel = cancel

	s.logger.Debug().
		Str("room", room.Name()).
		Str("stt", sttSel.String()).
		Str("llm", llmSel.String()).
		Str("tts", ttsSel.String()).
		Int("tools", len(run.Tools())).
		Msg("agent session started")

	go s.loop(loopCtx)
	return nil
}

// Wait blocks until the session ends and returns the reason it failed, if any.
// A room that is left normally ends the session without error.
func (s *AgentSession) Wait() error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return NewInvariantError("session not started")
	}

	<-s.done
	return s.err
}

// Close stops a running session and waits for it to release its tools.
func (s *AgentSession) Close() error {
	s.mu.Lock()
	started, cancel := s.started, s.cancel
	s.mu.Unlock()
	if !started {
		return nil
	}

	cancel()
	<-s.done
	if errors.Is(s.err, context.Canceled) {
		return nil
	}
	return s.err
}

// History returns a copy of the conversation so far.
func (s *AgentSession) History() []llmsdk.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llmsdk.Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *AgentSession) loop(ctx context.Context) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Str("room", s.room.Name()).Msg("agent session panicked")
			err = NewSessionError(fmt.Errorf("session panicked: %v", r))
		}
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sessionCloseTimeout)
		defer cancel()
		if cerr := s.run.Close(closeCtx); cerr != nil {
			s.logger.Warn().Err(cerr).Msg("close agent tools")
		}
		s.err = err
		s.cancel()
		close(s.done)
	}()

	transcripts := s.room.Transcripts()
	for {
		select {
		case <-ctx.Done():
			err = ctx.Err()
			return
		case transcript, ok := <-transcripts:
			if !ok {
				s.logger.Debug().Str("room", s.room.Name()).Msg("room closed, ending session")
				return
			}
			if !transcript.Final || strings.TrimSpace(transcript.Text) == "" {
				continue
			}
			if turnErr := s.handleTurn(ctx, transcript); turnErr != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				} else {
					err = NewSessionError(turnErr)
				}
				return
			}
		}
	}
}

func (s *AgentSession) handleTurn(ctx context.Context, transcript Transcript) error {
	span, ctx := newTurnSpan(ctx, s.room.Name(), s.model)

	user := llmsdk.NewUserMessage(llmsdk.Part{TextPart: &llmsdk.TextPart{Text: transcript.Text}})
	s.mu.Lock()
	s.history = append(s.history, user)
	history := make([]llmsdk.Message, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	result, err := s.run.Run(ctx, history)
	if err != nil {
		span.OnError(err)
		return err
	}
	span.OnResponse(result.Usage)

	s.mu.Lock()
	s.history = append(s.history, result.Messages...)
	s.mu.Unlock()

	reply := strings.TrimSpace(result.Text())
	s.logger.Debug().
		Str("participant", transcript.Participant).
		Int("steps", len(result.Messages)).
		Msg("turn answered")
	if reply == "" {
		span.OnEnd()
		return nil
	}

	if err := s.room.Say(ctx, reply); err != nil {
		span.OnError(err)
		return err
	}
	span.OnEnd()
	return nil
}
