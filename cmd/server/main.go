package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"eli5/internal/bootstrap"
	"eli5/internal/config"
	"eli5/internal/server"
	"eli5/internal/speech"
)

var (
	configFile string
	transcribe bool
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "eli5-server",
		Short:         "ELI5 question answering HTTP server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
	rootCmd.Flags().StringVar(&configFile, "config", "", "config file path")
	rootCmd.Flags().BoolVar(&transcribe, "transcribe", false, "mount /api/transcribe backed by Google Speech-to-Text")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg.Log.Level, os.Stdout)
	slog.SetDefault(logger)

	app := bootstrap.NewApp()

	svc, err := bootstrap.BuildServices(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("build services: %w", err)
	}
	app.AddShutdownHook(func(context.Context) error { return svc.Close() })

	deps := server.Deps{
		Ask:            svc.Ask,
		Logger:         logger,
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	}
	if transcribe {
		rec, err := speech.NewGoogleRecognizer(ctx, speech.WithLocale(cfg.Speech.Locale))
		if err != nil {
			return errors.Join(fmt.Errorf("create speech client: %w", err), app.Shutdown(ctx))
		}
		app.AddShutdownHook(func(context.Context) error { return rec.Close() })
		deps.Transcriber = rec
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := server.NewRouter(deps)
	if err != nil {
		return errors.Join(err, app.Shutdown(ctx))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	app.AddShutdownHook(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	return app.Run(ctx, func(context.Context) error {
		logger.Info("starting server", "addr", srv.Addr, "synthesizer", svc.Ask.Health().Synthesizer)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
}
