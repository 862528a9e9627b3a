package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

const (
	DefaultRate  = 0.8
	DefaultPitch = 1.0

	// baseWordsPerMinute is the engine speed at rate 1.
	baseWordsPerMinute = 175
)

// Utterance is one request to read text aloud.
type Utterance struct {
	Text  string
	Rate  float64
	Pitch float64
}

// Speaker starts playback of an utterance and returns without waiting for
// it to finish.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
}

// speakerBinaries are tried in order.
var speakerBinaries = []string{"espeak-ng", "espeak", "say"}

// CommandSpeaker drives a local text-to-speech binary.
type CommandSpeaker struct {
	bin    string
	start  func(name string, args ...string) error
	logger *slog.Logger
}

// DetectSpeaker looks for a supported binary on PATH.
func DetectSpeaker(logger *slog.Logger) Capability[Speaker] {
	return detectSpeaker(exec.LookPath, logger)
}

func detectSpeaker(lookPath func(string) (string, error), logger *slog.Logger) Capability[Speaker] {
	for _, name := range speakerBinaries {
		path, err := lookPath(name)
		if err != nil {
			continue
		}
		return Available[Speaker](NewCommandSpeaker(path, logger))
	}
	return Unavailable[Speaker]()
}

func NewCommandSpeaker(bin string, logger *slog.Logger) *CommandSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	s := &CommandSpeaker{bin: bin, logger: logger}
	s.start = s.startDetached
	return s
}

func (s *CommandSpeaker) Speak(ctx context.Context, u Utterance) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(u.Text) == "" {
		return errors.New("speech: nothing to speak")
	}
	if err := s.start(s.bin, speakerArgs(s.bin, u)...); err != nil {
		return fmt.Errorf("speech: start %s: %w", s.bin, err)
	}
	return nil
}

func (s *CommandSpeaker) startDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() {
		if err := cmd.Wait(); err != nil {
			s.logger.Warn("speech playback ended with error", "bin", name, "err", err)
		}
	}()
	return nil
}

func speakerArgs(bin string, u Utterance) []string {
	rate := u.Rate
	if rate <= 0 {
		rate = DefaultRate
	}
	wpm := strconv.Itoa(int(math.Round(rate * baseWordsPerMinute)))

	if isSay(bin) {
		return []string{"-r", wpm, u.Text}
	}
	pitch := u.Pitch
	if pitch <= 0 {
		pitch = DefaultPitch
	}
	// espeak pitch runs 0-99 with 50 as the voice default.
	p := int(pitch * 50)
	if p > 99 {
		p = 99
	}
	return []string{"-s", wpm, "-p", strconv.Itoa(p), u.Text}
}

func isSay(bin string) bool {
	return bin == "say" || strings.HasSuffix(bin, "/say")
}
