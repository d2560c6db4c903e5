package voice

import "fmt"

// ErrTranscriptionFailed indicates the speech-to-text collaborator could
// not produce a transcript. The channel aborts before the dialogue session
// is touched, so no turn is appended.
type ErrTranscriptionFailed struct {
	Err error
}

func (e *ErrTranscriptionFailed) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transcription failed: %v", e.Err)
	}
	return "transcription failed: no speech recognized"
}

func (e *ErrTranscriptionFailed) Unwrap() error { return e.Err }

// ErrSynthesisFailed indicates the text-to-speech collaborator failed.
// The text turn is still returned; audio is best-effort.
type ErrSynthesisFailed struct {
	Err error
}

func (e *ErrSynthesisFailed) Error() string {
	return fmt.Sprintf("speech synthesis failed: %v", e.Err)
}

func (e *ErrSynthesisFailed) Unwrap() error { return e.Err }
