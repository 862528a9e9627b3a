package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
)

// DefaultLocale is the recognition language when none is configured.
const DefaultLocale = "en-US"

// Recognizer runs one non-continuous recognition session and returns the
// final transcript. Failures are *RecognitionError.
type Recognizer interface {
	Recognize(ctx context.Context) (string, error)
}

type RecognitionErrorCode string

const (
	ErrCodeNoSpeech     RecognitionErrorCode = "no-speech"
	ErrCodeAborted      RecognitionErrorCode = "aborted"
	ErrCodeAudioCapture RecognitionErrorCode = "audio-capture"
	ErrCodeNetwork      RecognitionErrorCode = "network"
)

type RecognitionError struct {
	Code RecognitionErrorCode
	Err  error
}

func (e *RecognitionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech: recognition failed: %s", e.Code)
	}
	return fmt.Sprintf("speech: recognition failed: %s: %v", e.Code, e.Err)
}

func (e *RecognitionError) Unwrap() error { return e.Err }

// AudioSource supplies one utterance of raw audio.
type AudioSource interface {
	ReadAudio(ctx context.Context) ([]byte, error)
}

const wavHeaderSize = 44

// FileAudio reads LINEAR16 audio from a file. A canonical WAV header is
// stripped; anything else is passed through as raw samples.
type FileAudio string

func (f FileAudio) ReadAudio(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(string(f))
	if err != nil {
		return nil, fmt.Errorf("speech: read audio file: %w", err)
	}
	return StripWAVHeader(data), nil
}

// StripWAVHeader drops a 44-byte RIFF/WAVE header when present.
func StripWAVHeader(data []byte) []byte {
	if len(data) >= wavHeaderSize && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")) {
		return data[wavHeaderSize:]
	}
	return data
}

// AsRecognitionError reports the code of a recognition failure.
func AsRecognitionError(err error) (RecognitionErrorCode, bool) {
	var recErr *RecognitionError
	if !errors.As(err, &recErr) {
		return "", false
	}
	return recErr.Code, true
}
