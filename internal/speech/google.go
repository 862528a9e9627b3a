package speech

import (
	"context"
	"errors"
	"io"
	"strings"

	gspeech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/googleapis/gax-go/v2"
)

type recognizeAPI interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest, opts ...gax.CallOption) (*speechpb.RecognizeResponse, error)
}

// GoogleRecognizer transcribes LINEAR16 audio with Cloud Speech-to-Text.
type GoogleRecognizer struct {
	api    recognizeAPI
	closer io.Closer
	source AudioSource

	Locale       string
	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

type GoogleOption func(*GoogleRecognizer)

func WithLocale(locale string) GoogleOption {
	return func(g *GoogleRecognizer) {
		if s := strings.TrimSpace(locale); s != "" {
			g.Locale = s
		}
	}
}

// WithAudioSource sets where Recognize reads audio from.
func WithAudioSource(src AudioSource) GoogleOption {
	return func(g *GoogleRecognizer) {
		g.source = src
	}
}

func NewGoogleRecognizer(ctx context.Context, opts ...GoogleOption) (*GoogleRecognizer, error) {
	c, err := gspeech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	g := newGoogleRecognizer(c, opts...)
	g.closer = c
	return g, nil
}

func newGoogleRecognizer(api recognizeAPI, opts ...GoogleOption) *GoogleRecognizer {
	g := &GoogleRecognizer{
		api:          api,
		Locale:       DefaultLocale,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GoogleRecognizer) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer.Close()
}

// Recognize reads one utterance from the audio source and transcribes it.
func (g *GoogleRecognizer) Recognize(ctx context.Context) (string, error) {
	if g.source == nil {
		return "", &RecognitionError{Code: ErrCodeAudioCapture, Err: errors.New("no audio source")}
	}
	audio, err := g.source.ReadAudio(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return "", &RecognitionError{Code: ErrCodeAborted, Err: err}
		}
		return "", &RecognitionError{Code: ErrCodeAudioCapture, Err: err}
	}
	return g.Transcribe(ctx, audio)
}

// Transcribe returns the transcript for audio, joining the highest-confidence
// alternative of each result.
func (g *GoogleRecognizer) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", &RecognitionError{Code: ErrCodeAudioCapture, Err: errors.New("empty audio")}
	}

	resp, err := g.api.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               g.Locale,
			MaxAlternatives:            1,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", &RecognitionError{Code: ErrCodeAborted, Err: err}
		}
		return "", &RecognitionError{Code: ErrCodeNetwork, Err: err}
	}

	// Longer audio comes back as consecutive results, one per segment.
	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		if text := bestAlternative(r); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", &RecognitionError{Code: ErrCodeNoSpeech}
	}
	return strings.Join(parts, " "), nil
}

func bestAlternative(r *speechpb.SpeechRecognitionResult) string {
	var best string
	var bestConf float32 = -1
	for _, alt := range r.GetAlternatives() {
		text := strings.TrimSpace(alt.GetTranscript())
		if text != "" && alt.GetConfidence() > bestConf {
			best = text
			bestConf = alt.GetConfidence()
		}
	}
	return best
}
