package voiceagent

import (
	"context"

	llmsdk "github.com/hoangvvo/llm-sdk/sdk-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Initialize the tracer lazily to allow user to have a chance to configure the global tracer provider
var tracer = otel.Tracer("github.com/paseo/voice-agent")

// turnSpan manages the span for one user turn in a room.
type turnSpan struct {
	room         string
	model        string
	inputTokens  int
	outputTokens int
	span         trace.Span
}

func newTurnSpan(ctx context.Context, room string, model llmsdk.LanguageModel) (*turnSpan, context.Context) {
	newCtx, span := tracer.Start(ctx, "voice_agent.turn")
	s := &turnSpan{room: room, span: span}
	if model != nil {
		s.model = model.ModelID()
	}
	return s, newCtx
}

// OnResponse accumulates token usage from the turn's model calls.
func (s *turnSpan) OnResponse(usage *llmsdk.ModelUsage) {
	if usage == nil {
		return
	}
	s.inputTokens += usage.InputTokens
	s.outputTokens += usage.OutputTokens
}

// OnEnd ends the span and sets the final attributes
func (s *turnSpan) OnEnd() {
	s.span.SetAttributes(
		attribute.String("gen_ai.operation.name", "invoke_agent"),
		attribute.String("gen_ai.request.model", s.model),
		attribute.String("voice_agent.room", s.room),
		attribute.Int64("gen_ai.usage.input_tokens", int64(s.inputTokens)),
		attribute.Int64("gen_ai.usage.output_tokens", int64(s.outputTokens)),
	)
	s.span.End()
}

// OnError records an error and ends the span
func (s *turnSpan) OnError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	s.OnEnd()
}

// startActiveToolSpan creates a span for tool execution
func startActiveToolSpan(
	ctx context.Context,
	toolCallID string,
	toolName string,
	toolDescription string,
	fn func(context.Context) (AgentToolResult, error),
) (AgentToolResult, error) {
	spanCtx, span := tracer.Start(ctx, "voice_agent.tool")
	defer func() {
		// Set attributes following OpenTelemetry semantic conventions
		span.SetAttributes(
			attribute.String("gen_ai.operation.name", "execute_tool"),
			attribute.String("gen_ai.tool.call.id", toolCallID),
			attribute.String("gen_ai.tool.description", toolDescription),
			attribute.String("gen_ai.tool.name", toolName),
			attribute.String("gen_ai.tool.type", "function"),
		)
		span.End()
	}()

	res, err := fn(spanCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return AgentToolResult{}, err
	}

	return res, nil
}
