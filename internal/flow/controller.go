package flow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"eli5/internal/domain"
	"eli5/internal/speech"
	"eli5/internal/usecase"
)

// Stage is where the current submission stands.
type Stage string

const (
	StageIdle            Stage = "idle"
	StageValidating      Stage = "validating"
	StageFetchingContext Stage = "fetching_context"
	StageSynthesizing    Stage = "synthesizing"
	StageReady           Stage = "ready"
)

var (
	ErrNotSupported     = errors.New("flow: capability not supported")
	ErrAlreadyListening = errors.New("flow: a recognition session is already active")
	ErrEmptyQuestion    = errors.New("flow: question is empty")
	ErrListening        = errors.New("flow: cannot submit while listening")
	ErrSuperseded       = errors.New("flow: submission superseded by a newer one")
)

// Asker runs the ask pipeline, in process or over HTTP.
type Asker interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

// View is a snapshot of everything a renderer displays.
type View struct {
	Question     string
	Listening    bool
	Stage        Stage
	Summary      string
	HasSummary   bool
	Answer       string
	Level        domain.Level
	Style        domain.Style
	UseWikipedia bool
}

// Controller owns the interaction state of one user session. It is safe
// for concurrent use; recognition and ask calls run outside the lock.
type Controller struct {
	asker      Asker
	recognizer speech.Capability[speech.Recognizer]
	speaker    speech.Capability[speech.Speaker]
	notifier   Notifier
	logger     *slog.Logger

	mu   sync.Mutex
	view View
	// sessionActive stays true until Recognize returns, even after a stop.
	sessionActive bool
	stopped       bool
	stopListen    context.CancelFunc
	seq           uint64
	cancelSubmit  context.CancelFunc
}

type Option func(*Controller)

func WithRecognizer(c speech.Capability[speech.Recognizer]) Option {
	return func(ctl *Controller) { ctl.recognizer = c }
}

func WithSpeaker(c speech.Capability[speech.Speaker]) Option {
	return func(ctl *Controller) { ctl.speaker = c }
}

func WithNotifier(n Notifier) Option {
	return func(ctl *Controller) {
		if n != nil {
			ctl.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// NewController starts idle with the child level, the standard style and
// Wikipedia context enabled. Capabilities default to Unavailable.
func NewController(asker Asker, opts ...Option) (*Controller, error) {
	if asker == nil {
		return nil, errors.New("flow: asker must not be nil")
	}
	c := &Controller{
		asker:      asker,
		recognizer: speech.Unavailable[speech.Recognizer](),
		speaker:    speech.Unavailable[speech.Speaker](),
		notifier:   NotifierFunc(func(Notice) {}),
		logger:     slog.Default(),
		view: View{
			Stage:        StageIdle,
			Level:        domain.LevelChild,
			Style:        domain.StyleStandard,
			UseWikipedia: true,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

func (c *Controller) SetQuestion(q string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Question = q
}

func (c *Controller) SetLevel(l domain.Level) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Level = l
}

func (c *Controller) SetStyle(s domain.Style) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.Style = s
}

func (c *Controller) SetUseWikipedia(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view.UseWikipedia = on
}

// StartListening runs one recognition session and, on success, replaces
// the question with the transcript. Only one session may run at a time,
// and a stopped session counts as running until its recognizer returns.
func (c *Controller) StartListening(ctx context.Context) (string, error) {
	rec, ok := c.recognizer.Get()
	if !ok {
		c.notifier.Notify(noticeRecognitionUnsupported)
		return "", ErrNotSupported
	}

	c.mu.Lock()
	if c.sessionActive {
		c.mu.Unlock()
		return "", ErrAlreadyListening
	}
	listenCtx, cancel := context.WithCancel(ctx)
	c.sessionActive = true
	c.stopped = false
	c.view.Listening = true
	c.stopListen = cancel
	c.mu.Unlock()
	defer cancel()

	c.notifier.Notify(noticeListening)
	transcript, err := rec.Recognize(listenCtx)
	transcript = strings.TrimSpace(transcript)

	c.mu.Lock()
	stopped := c.stopped
	c.sessionActive = false
	c.stopped = false
	c.view.Listening = false
	c.stopListen = nil
	switch {
	case stopped && err == nil:
		err = &speech.RecognitionError{Code: speech.ErrCodeAborted, Err: context.Canceled}
	case err == nil && transcript == "":
		err = &speech.RecognitionError{Code: speech.ErrCodeNoSpeech}
	case err == nil:
		c.view.Question = transcript
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.WarnContext(ctx, "voice input failed", "err", err)
		c.notifier.Notify(noticeVoiceError)
		return "", err
	}
	c.notifier.Notify(noticeVoiceReceived(transcript))
	return transcript, nil
}

// StopListening cancels the active session, if any. Its transcript, if one
// still arrives, is discarded.
func (c *Controller) StopListening() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopListen != nil {
		c.stopListen()
		c.stopListen = nil
	}
	if c.sessionActive {
		c.stopped = true
	}
	c.view.Listening = false
}

// Submit asks the current question. A newer submission cancels this one,
// and a result that arrives after a newer submission started is dropped
// with ErrSuperseded.
func (c *Controller) Submit(ctx context.Context) (usecase.AskOutput, error) {
	c.mu.Lock()
	if c.view.Listening {
		c.mu.Unlock()
		return usecase.AskOutput{}, ErrListening
	}
	prevStage := c.view.Stage
	c.view.Stage = StageValidating
	question := strings.TrimSpace(c.view.Question)
	if question == "" {
		c.view.Stage = prevStage
		c.mu.Unlock()
		c.notifier.Notify(noticeEmptyQuestion)
		return usecase.AskOutput{}, ErrEmptyQuestion
	}

	if c.cancelSubmit != nil {
		c.cancelSubmit()
	}
	c.seq++
	seq := c.seq
	submitCtx, cancel := context.WithCancel(ctx)
	c.cancelSubmit = cancel
	in := usecase.AskInput{
		Question:     question,
		Level:        c.view.Level,
		Style:        c.view.Style,
		UseWikipedia: c.view.UseWikipedia,
	}
	if in.UseWikipedia {
		c.view.Stage = StageFetchingContext
	} else {
		c.view.Stage = StageSynthesizing
	}
	c.mu.Unlock()
	defer cancel()

	in.OnStage = func(s usecase.Stage) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.seq != seq {
			return
		}
		switch s {
		case usecase.StageFetchingContext:
			c.view.Stage = StageFetchingContext
		case usecase.StageSynthesizing:
			c.view.Stage = StageSynthesizing
		}
	}

	out, err := c.asker.Ask(submitCtx, in)

	c.mu.Lock()
	if c.seq != seq {
		c.mu.Unlock()
		c.logger.DebugContext(ctx, "dropping stale answer", "seq", seq)
		return usecase.AskOutput{}, ErrSuperseded
	}
	c.cancelSubmit = nil
	if err != nil {
		c.view.Stage = StageIdle
		c.mu.Unlock()
		c.logger.ErrorContext(ctx, "ask failed", "err", err)
		c.notifier.Notify(noticeAskFailed)
		return usecase.AskOutput{}, err
	}
	c.view.Answer = out.Answer
	c.view.Summary = out.Summary
	c.view.HasSummary = out.HasSummary
	c.view.Stage = StageReady
	c.mu.Unlock()

	c.notifier.Notify(noticeAnswerReady)
	return out, nil
}

// Speak reads the current answer aloud without waiting for playback.
func (c *Controller) Speak(ctx context.Context) error {
	sp, ok := c.speaker.Get()
	if !ok {
		c.notifier.Notify(noticeSpeechUnsupported)
		return ErrNotSupported
	}

	c.mu.Lock()
	answer := c.view.Answer
	c.mu.Unlock()
	if strings.TrimSpace(answer) == "" {
		return nil
	}

	if err := sp.Speak(ctx, speech.Utterance{
		Text:  answer,
		Rate:  speech.DefaultRate,
		Pitch: speech.DefaultPitch,
	}); err != nil {
		c.logger.WarnContext(ctx, "speech playback failed", "err", err)
		return err
	}
	c.notifier.Notify(noticeSpeaking)
	return nil
}
