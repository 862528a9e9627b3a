package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"eli5/internal/askclient"
	"eli5/internal/bootstrap"
	"eli5/internal/config"
	"eli5/internal/domain"
	"eli5/internal/flow"
	"eli5/internal/speech"
)

type askOptions struct {
	level       string
	style       string
	noWikipedia bool
	speak       bool
	audioFile   string
	remote      bool
}

func newAskCommand() *cobra.Command {
	opts := askOptions{}
	command := &cobra.Command{
		Use:   "ask [question]",
		Short: "Explain a question, typed or read from an audio file",
		Example: `  eli5 ask "How do airplanes fly?" --level child --style storytelling
  eli5 ask --audio question.wav --speak
  eli5 ask --remote "What is entropy?" --level expert`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), opts, strings.Join(args, " "))
		},
	}
	command.Flags().StringVar(&opts.level, "level", "child", "difficulty: child, intermediate or expert")
	command.Flags().StringVar(&opts.style, "style", "standard", "answer style: standard, storytelling or technical")
	command.Flags().BoolVar(&opts.noWikipedia, "no-wikipedia", false, "skip the Wikipedia summary")
	command.Flags().BoolVar(&opts.speak, "speak", false, "read the answer aloud")
	command.Flags().StringVar(&opts.audioFile, "audio", "", "LINEAR16 16kHz WAV/raw file to transcribe as the question")
	command.Flags().BoolVar(&opts.remote, "remote", false, "ask the backend at ELI5_API_URL instead of running in process")
	return command
}

func runAsk(ctx context.Context, opts askOptions, question string) error {
	level, err := domain.ParseLevel(opts.level)
	if err != nil {
		return err
	}
	style, err := domain.ParseStyle(opts.style)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := config.NewLogger(cfg.Log.Level, os.Stderr)
	out := newConsole(os.Stdout)

	asker, closeAsker, err := newAsker(ctx, cfg, opts.remote, logger)
	if err != nil {
		return err
	}
	defer closeAsker()

	recognizer := speech.Unavailable[speech.Recognizer]()
	if opts.audioFile != "" {
		rec, err := speech.NewGoogleRecognizer(ctx,
			speech.WithLocale(cfg.Speech.Locale),
			speech.WithAudioSource(speech.FileAudio(opts.audioFile)),
		)
		if err != nil {
			logger.Warn("speech recognition unavailable", "err", err)
		} else {
			defer func() { _ = rec.Close() }()
			recognizer = speech.Available[speech.Recognizer](rec)
		}
	}

	ctl, err := flow.NewController(asker,
		flow.WithRecognizer(recognizer),
		flow.WithSpeaker(speech.DetectSpeaker(logger)),
		flow.WithNotifier(out),
		flow.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	ctl.SetLevel(level)
	ctl.SetStyle(style)
	ctl.SetUseWikipedia(!opts.noWikipedia)

	if opts.audioFile != "" {
		if _, err := ctl.StartListening(ctx); err != nil {
			return err
		}
	} else {
		ctl.SetQuestion(question)
	}

	if _, err := ctl.Submit(ctx); err != nil {
		return err
	}
	out.Render(ctl.View())

	if opts.speak {
		if err := ctl.Speak(ctx); err != nil && !errors.Is(err, flow.ErrNotSupported) {
			return err
		}
	}
	return nil
}

func newAsker(ctx context.Context, cfg *config.Config, remote bool, logger *slog.Logger) (flow.Asker, func(), error) {
	if remote {
		return askclient.New(cfg.Client.APIURL), func() {}, nil
	}
	svc, err := bootstrap.BuildServices(ctx, cfg, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build services: %w", err)
	}
	return svc.Ask, func() { _ = svc.Close() }, nil
}

func newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend at ELI5_API_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			h, err := askclient.New(cfg.Client.APIURL).Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (synthesizer: %s", h.Status, h.Synthesizer)
			if h.Model != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", model: %s", h.Model)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
			return nil
		},
	}
}
