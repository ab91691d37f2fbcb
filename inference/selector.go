// Package inference parses provider selectors and resolves them to models
// served by the inference gateway.
//
// A selector names a provider and model, optionally followed by a variant:
//
//	assemblyai/universal-streaming:en                      (STT, language "en")
//	openai/gpt-4.1-mini                                    (LLM)
//	cartesia/sonic-2:9626c31c-bec5-4cca-baa8-f8ba9e84c8bc  (TTS, voice ID)
package inference

import (
	"fmt"
	"strings"
)

// Kind is the pipeline stage a selector configures.
type Kind string

const (
	KindSTT Kind = "stt"
	KindLLM Kind = "llm"
	KindTTS Kind = "tts"
)

// Selector is a parsed provider selector.
type Selector struct {
	Kind     Kind
	Provider string
	Model    string
	// Variant is the language for STT and the voice ID for TTS. Empty for LLM.
	Variant string
}

// ParseSelector parses raw as a selector for the given stage.
func ParseSelector(kind Kind, raw string) (Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selector{}, fmt.Errorf("%s selector is empty", kind)
	}

	provider, rest, ok := strings.Cut(raw, "/")
	if !ok || provider == "" {
		return Selector{}, fmt.Errorf("%s selector %q: missing provider", kind, raw)
	}

	model, variant := rest, ""
	if kind != KindLLM {
		model, variant, _ = strings.Cut(rest, ":")
	}
	if model == "" {
		return Selector{}, fmt.Errorf("%s selector %q: missing model", kind, raw)
	}

	return Selector{
		Kind:     kind,
		Provider: provider,
		Model:    model,
		Variant:  variant,
	}, nil
}

// String returns the selector in its wire form.
func (s Selector) String() string {
	out := s.Provider + "/" + s.Model
	if s.Variant != "" {
		out += ":" + s.Variant
	}
	return out
}
