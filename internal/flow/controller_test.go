package flow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"eli5/internal/domain"
	"eli5/internal/speech"
	"eli5/internal/usecase"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *recordingNotifier) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) titles() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.notices))
	for _, n := range r.notices {
		out = append(out, n.Title)
	}
	return out
}

type fakeAsker struct {
	mu    sync.Mutex
	calls []usecase.AskInput
	fn    func(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

func (f *fakeAsker) Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
	f.mu.Lock()
	f.calls = append(f.calls, in)
	f.mu.Unlock()
	return f.fn(ctx, in)
}

func (f *fakeAsker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func answering(answer string) *fakeAsker {
	return &fakeAsker{fn: func(_ context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
		if in.OnStage != nil {
			in.OnStage(usecase.StageFetchingContext)
			in.OnStage(usecase.StageSynthesizing)
		}
		return usecase.AskOutput{Answer: answer, Summary: "ctx", HasSummary: in.UseWikipedia}, nil
	}}
}

type blockingRecognizer struct {
	started chan struct{}
	release chan string
}

func (b *blockingRecognizer) Recognize(ctx context.Context) (string, error) {
	close(b.started)
	select {
	case <-ctx.Done():
		return "", &speech.RecognitionError{Code: speech.ErrCodeAborted, Err: ctx.Err()}
	case text := <-b.release:
		return text, nil
	}
}

// lingeringRecognizer keeps running after cancellation until released,
// then reports a transcript anyway.
type lingeringRecognizer struct {
	mu      sync.Mutex
	active  int
	peak    int
	started chan struct{}
	release chan struct{}
}

func (l *lingeringRecognizer) Recognize(ctx context.Context) (string, error) {
	l.mu.Lock()
	l.active++
	if l.active > l.peak {
		l.peak = l.active
	}
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.active--
		l.mu.Unlock()
	}()

	l.started <- struct{}{}
	<-ctx.Done()
	<-l.release
	return "stale words", nil
}

func (l *lingeringRecognizer) peakSessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

type staticRecognizer struct {
	text string
	err  error
}

func (s staticRecognizer) Recognize(context.Context) (string, error) { return s.text, s.err }

type fakeSpeaker struct {
	calls []speech.Utterance
	err   error
}

func (f *fakeSpeaker) Speak(_ context.Context, u speech.Utterance) error {
	f.calls = append(f.calls, u)
	return f.err
}

func newController(t *testing.T, asker Asker, opts ...Option) (*Controller, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	c, err := NewController(asker, append([]Option{WithNotifier(n)}, opts...)...)
	require.NoError(t, err)
	return c, n
}

func TestNewController_Defaults(t *testing.T) {
	_, err := NewController(nil)
	require.Error(t, err)

	c, _ := newController(t, answering("x"))
	v := c.View()
	require.Equal(t, StageIdle, v.Stage)
	require.Equal(t, domain.LevelChild, v.Level)
	require.Equal(t, domain.StyleStandard, v.Style)
	require.True(t, v.UseWikipedia)
	require.False(t, v.Listening)
}

func TestSubmit_HappyPath(t *testing.T) {
	asker := answering("Wings push air down.")
	c, n := newController(t, asker)
	c.SetQuestion("  How do airplanes fly?  ")
	c.SetLevel(domain.LevelExpert)
	c.SetStyle(domain.StyleTechnical)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Wings push air down.", out.Answer)

	v := c.View()
	require.Equal(t, StageReady, v.Stage)
	require.Equal(t, "Wings push air down.", v.Answer)
	require.Equal(t, "ctx", v.Summary)
	require.True(t, v.HasSummary)

	require.Equal(t, "How do airplanes fly?", asker.calls[0].Question)
	require.Equal(t, domain.LevelExpert, asker.calls[0].Level)
	require.Equal(t, domain.StyleTechnical, asker.calls[0].Style)
	require.Equal(t, []string{"Answer generated!"}, n.titles())
}

func TestSubmit_EmptyQuestionIsRejectedWithoutAsking(t *testing.T) {
	for _, q := range []string{"", "   ", "\t\n"} {
		asker := answering("unused")
		c, n := newController(t, asker)
		c.SetQuestion(q)

		_, err := c.Submit(context.Background())
		require.ErrorIs(t, err, ErrEmptyQuestion)
		require.Zero(t, asker.callCount())
		require.Equal(t, StageIdle, c.View().Stage)
		require.Equal(t, []string{"Please enter a question"}, n.titles())
	}
}

func TestSubmit_FailureKeepsPreviousAnswer(t *testing.T) {
	fail := false
	asker := &fakeAsker{fn: func(context.Context, usecase.AskInput) (usecase.AskOutput, error) {
		if fail {
			return usecase.AskOutput{}, errors.New("backend down")
		}
		return usecase.AskOutput{Answer: "first"}, nil
	}}
	c, n := newController(t, asker)
	c.SetQuestion("q")
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = c.Submit(context.Background())
	require.ErrorContains(t, err, "backend down")
	v := c.View()
	require.Equal(t, StageIdle, v.Stage)
	require.Equal(t, "first", v.Answer)
	require.Equal(t, []string{"Answer generated!", "Error"}, n.titles())
}

func TestSubmit_LastSubmissionWins(t *testing.T) {
	firstStarted := make(chan struct{})
	asker := &fakeAsker{fn: func(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
		if in.Question == "slow" {
			close(firstStarted)
			<-ctx.Done()
			return usecase.AskOutput{Answer: "stale"}, nil
		}
		return usecase.AskOutput{Answer: "fresh"}, nil
	}}
	c, _ := newController(t, asker)

	c.SetQuestion("slow")
	errCh := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background())
		errCh <- err
	}()
	<-firstStarted

	c.SetQuestion("fast")
	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, "fresh", out.Answer)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("stale submission was not cancelled")
	}
	require.Equal(t, "fresh", c.View().Answer)
	require.Equal(t, StageReady, c.View().Stage)
}

func TestSubmit_WithoutWikipedia(t *testing.T) {
	asker := answering("ok")
	c, _ := newController(t, asker)
	c.SetQuestion("q")
	c.SetUseWikipedia(false)

	out, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.False(t, out.HasSummary)
	require.False(t, asker.calls[0].UseWikipedia)
}

func TestStartListening_Unsupported(t *testing.T) {
	c, n := newController(t, answering("x"))
	_, err := c.StartListening(context.Background())
	require.ErrorIs(t, err, ErrNotSupported)
	require.Equal(t, []string{"Speech recognition not supported"}, n.titles())
	require.False(t, c.View().Listening)
}

func TestStartListening_TranscriptReplacesQuestion(t *testing.T) {
	rec := staticRecognizer{text: " How do airplanes fly? "}
	c, n := newController(t, answering("x"), WithRecognizer(speech.Available[speech.Recognizer](rec)))
	c.SetQuestion("old")

	text, err := c.StartListening(context.Background())
	require.NoError(t, err)
	require.Equal(t, "How do airplanes fly?", text)
	require.Equal(t, "How do airplanes fly?", c.View().Question)
	require.False(t, c.View().Listening)
	require.Equal(t, []string{"Listening...", "Voice input received"}, n.titles())
}

func TestStartListening_ErrorLeavesQuestion(t *testing.T) {
	rec := staticRecognizer{err: &speech.RecognitionError{Code: speech.ErrCodeNoSpeech}}
	c, n := newController(t, answering("x"), WithRecognizer(speech.Available[speech.Recognizer](rec)))
	c.SetQuestion("typed")

	_, err := c.StartListening(context.Background())
	code, ok := speech.AsRecognitionError(err)
	require.True(t, ok)
	require.Equal(t, speech.ErrCodeNoSpeech, code)
	require.Equal(t, "typed", c.View().Question)
	require.False(t, c.View().Listening)
	require.Equal(t, []string{"Listening...", "Voice input error"}, n.titles())
}

func TestStartListening_OneSessionAtATime(t *testing.T) {
	rec := &blockingRecognizer{started: make(chan struct{}), release: make(chan string)}
	c, _ := newController(t, answering("x"), WithRecognizer(speech.Available[speech.Recognizer](rec)))

	done := make(chan error, 1)
	go func() {
		_, err := c.StartListening(context.Background())
		done <- err
	}()
	<-rec.started
	require.True(t, c.View().Listening)

	_, err := c.StartListening(context.Background())
	require.ErrorIs(t, err, ErrAlreadyListening)

	c.SetQuestion("typed meanwhile")
	_, err = c.Submit(context.Background())
	require.ErrorIs(t, err, ErrListening)

	rec.release <- "spoken"
	require.NoError(t, <-done)
	require.Equal(t, "spoken", c.View().Question)
}

func TestStopListening(t *testing.T) {
	c, _ := newController(t, answering("x"))
	c.StopListening()
	c.StopListening()
	require.False(t, c.View().Listening)

	rec := &blockingRecognizer{started: make(chan struct{}), release: make(chan string)}
	c, n := newController(t, answering("x"), WithRecognizer(speech.Available[speech.Recognizer](rec)))
	done := make(chan error, 1)
	go func() {
		_, err := c.StartListening(context.Background())
		done <- err
	}()
	<-rec.started

	c.StopListening()
	require.False(t, c.View().Listening)
	err := <-done
	code, ok := speech.AsRecognitionError(err)
	require.True(t, ok)
	require.Equal(t, speech.ErrCodeAborted, code)
	require.Contains(t, n.titles(), "Voice input error")
}

func TestStopListening_StoppedSessionBlocksRestartAndIsDiscarded(t *testing.T) {
	rec := &lingeringRecognizer{started: make(chan struct{}, 1), release: make(chan struct{})}
	c, _ := newController(t, answering("x"), WithRecognizer(speech.Available[speech.Recognizer](rec)))

	done := make(chan error, 1)
	go func() {
		_, err := c.StartListening(context.Background())
		done <- err
	}()
	<-rec.started

	c.SetQuestion("typed while listening")
	c.StopListening()
	require.False(t, c.View().Listening)

	_, err := c.StartListening(context.Background())
	require.ErrorIs(t, err, ErrAlreadyListening)

	close(rec.release)
	err = <-done
	code, ok := speech.AsRecognitionError(err)
	require.True(t, ok)
	require.Equal(t, speech.ErrCodeAborted, code)
	require.Equal(t, "typed while listening", c.View().Question)
	require.Equal(t, 1, rec.peakSessions())

	// The finished session no longer blocks a new one.
	go func() {
		_, err := c.StartListening(context.Background())
		done <- err
	}()
	<-rec.started
	c.StopListening()
	require.Error(t, <-done)
	require.Equal(t, 1, rec.peakSessions())
	require.Equal(t, "typed while listening", c.View().Question)
}

func TestSpeak(t *testing.T) {
	c, n := newController(t, answering("Wings push air down."))
	require.ErrorIs(t, c.Speak(context.Background()), ErrNotSupported)
	require.Equal(t, []string{"Text-to-speech not supported"}, n.titles())

	sp := &fakeSpeaker{}
	c, n = newController(t, answering("Wings push air down."), WithSpeaker(speech.Available[speech.Speaker](sp)))
	require.NoError(t, c.Speak(context.Background()))
	require.Empty(t, sp.calls)
	require.Empty(t, n.titles())

	c.SetQuestion("How do airplanes fly?")
	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Speak(context.Background()))
	require.Equal(t, []speech.Utterance{{Text: "Wings push air down.", Rate: 0.8, Pitch: 1}}, sp.calls)
	require.Equal(t, []string{"Answer generated!", "Speaking answer"}, n.titles())
}

func TestSpeak_PlatformError(t *testing.T) {
	sp := &fakeSpeaker{err: errors.New("no audio device")}
	c, n := newController(t, answering("answer"), WithSpeaker(speech.Available[speech.Speaker](sp)))
	c.SetQuestion("q")
	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	require.ErrorContains(t, c.Speak(context.Background()), "no audio device")
	require.NotContains(t, n.titles(), "Speaking answer")
}
