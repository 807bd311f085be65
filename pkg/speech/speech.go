// Copyright Financial Chatbot Authors
// SPDX-License-Identifier: Apache-2.0

// Package speech turns assistant replies into audio via an OpenAI-compatible
// text-to-speech endpoint.
package speech

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownVoice reports a voice outside the accepted set.
var ErrUnknownVoice = errors.New("unknown voice")

// maxInputRunes is the upstream limit on synthesis input. Longer texts are
// truncated with a trailing ellipsis rather than rejected.
const maxInputRunes = 4000

// voices is the set the upstream endpoint accepts.
var voices = map[string]bool{
	"alloy":   true,
	"echo":    true,
	"fable":   true,
	"onyx":    true,
	"nova":    true,
	"shimmer": true,
}

// Client performs one synthesis call against the upstream endpoint.
type Client interface {
	Speech(ctx context.Context, model, voice, input string) ([]byte, error)
}

// Service validates and prepares synthesis requests before handing them to
// the upstream client.
type Service struct {
	client       Client
	model        string
	defaultVoice string
}

// NewService creates a Service. An empty defaultVoice falls back to "alloy".
func NewService(client Client, model, defaultVoice string) *Service {
	if model == "" {
		model = "tts-1"
	}
	if defaultVoice == "" {
		defaultVoice = "alloy"
	}
	return &Service{client: client, model: model, defaultVoice: defaultVoice}
}

// Synthesize renders text as audio. An empty voice uses the service default;
// an unknown voice is rejected. Text over the upstream input limit is
// truncated at a rune boundary with "..." appended.
func (s *Service) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	if voice == "" {
		voice = s.defaultVoice
	}
	if !voices[voice] {
		return nil, fmt.Errorf("%w %q", ErrUnknownVoice, voice)
	}

	audio, err := s.client.Speech(ctx, s.model, voice, Truncate(text))
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return audio, nil
}

// Truncate caps text at the upstream input limit, counting runes so
// multi-byte characters are never split.
func Truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= maxInputRunes {
		return text
	}
	return string(runes[:maxInputRunes]) + "..."
}
