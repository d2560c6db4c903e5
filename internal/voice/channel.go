// Package voice orchestrates one voice interaction: transcribe captured
// audio, drive the dialogue session with the transcript, synthesize the
// reply. It is a thin layer over dialogue — no separate state machine, no
// voice-specific history. The channel never owns a microphone; it only
// consumes already-captured audio bytes.
package voice

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/minqi/banxue/internal/dialogue"
	"github.com/minqi/banxue/internal/persona"
)

// Transcriber is the speech-to-text collaborator.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer is the text-to-speech collaborator.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, v persona.VoiceParams) ([]byte, error)
}

// Result is the outcome of one voice turn. Text is authoritative; Audio
// is nil when synthesis failed.
type Result struct {
	Transcript string
	Turn       dialogue.Turn
	Audio      []byte
}

// Channel wires the two speech collaborators around a dialogue session.
type Channel struct {
	stt Transcriber
	tts Synthesizer
	log *zap.Logger
}

// NewChannel creates a voice channel.
func NewChannel(stt Transcriber, tts Synthesizer, log *zap.Logger) *Channel {
	if log == nil {
		log = zap.NewNop()
	}
	return &Channel{stt: stt, tts: tts, log: log}
}

// Turn runs one voice interaction against the given session:
// transcribe → dialogue turn → synthesize.
//
// Transcription failure (including an empty transcript) aborts before the
// session is touched — zero turns are appended. A dialogue failure returns
// the transcript alongside the error so the caller can retry with
// session.Turn directly. Synthesis failure returns the populated result
// (nil Audio) together with ErrSynthesisFailed.
func (c *Channel) Turn(ctx context.Context, sess *dialogue.Session, audio []byte) (*Result, error) {
	transcript, err := c.stt.Transcribe(ctx, audio)
	if err != nil {
		c.log.Warn("transcription failed", zap.Error(err))
		return nil, &ErrTranscriptionFailed{Err: err}
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, &ErrTranscriptionFailed{}
	}

	turn, err := sess.Turn(ctx, transcript)
	if err != nil {
		return &Result{Transcript: transcript}, err
	}

	audioOut, err := c.tts.Synthesize(ctx, turn.Content, sess.Persona().Voice)
	if err != nil {
		c.log.Warn("synthesis failed, returning text only",
			zap.String("session", sess.ID()), zap.Error(err))
		return &Result{Transcript: transcript, Turn: turn}, &ErrSynthesisFailed{Err: err}
	}

	return &Result{Transcript: transcript, Turn: turn, Audio: audioOut}, nil
}
