package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"runvox/internal/ai"
	"runvox/internal/assistant"
	"runvox/internal/audio"
	"runvox/internal/audio/duck"
	"runvox/internal/bus"
	"runvox/internal/config"
	"runvox/internal/console"
	"runvox/internal/ipc"
	"runvox/internal/notify"
	"runvox/internal/store"
	"runvox/internal/tts"
	"runvox/internal/watcher"
	"runvox/pkg/audioconv"
	"runvox/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", config.DefaultPath, "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      logLevelMap[*logLevel],
		TimeFormat: time.Kitchen,
	})))

	log.Info("Booting up")

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "path", *envFile, "err", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	answerer, err := ai.Dial(endpoint(cfg))
	if err != nil {
		return err
	}
	log.Debug("Loaded API client", "model", cfg.AIModel)

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: cfg.STTLanguage})
	if err != nil {
		return fmt.Errorf("init whisper: %w", err)
	}
	defer whisper.Close()
	log.Debug("Loaded whisper", "model", cfg.WhisperModel)

	speaker := tts.NewSpeaker(cfg.TTSVoice)
	if cfg.DuckAudio {
		speaker.Ducker = duck.New([]string{"espeak", "espeak-ng", "runvox"}, 10, 0.3, 300*time.Millisecond)
	}

	var publisher watcher.Publisher
	if cfg.BusURL != "" {
		p, err := bus.Dial(cfg.BusURL)
		if err != nil {
			log.Warn("Bus unavailable, continuing without it", "url", cfg.BusURL, "err", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	var commands <-chan string
	ctl, err := ipc.Listen(cfg.ControlSocket, 4)
	if err != nil {
		log.Warn("Control socket unavailable", "path", cfg.ControlSocket, "err", err)
	} else {
		defer ctl.Close()
		commands = ctl.Commands()
	}

	var cue assistant.Cue
	if _, err := os.Stat(cfg.CueSound); err == nil {
		cue = notify.NewCue(cfg.CueSound)
	} else {
		log.Warn("Cue sound not found, recording silently", "path", cfg.CueSound)
	}

	var saveCapture func([]float32) error
	if cfg.CapturePath != "" {
		saveCapture = func(pcm []float32) error {
			return audioconv.WriteWAV(cfg.CapturePath, pcm)
		}
	}

	// The store is opened last: from here on the assistant owns it and
	// closes it however Run returns.
	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}

	w := watcher.New(watcher.Config{
		Source:    st,
		Speaker:   speaker,
		Publisher: publisher,
		Start:     time.Now(),
	})

	a := assistant.New(assistant.Config{
		Mic:           rec,
		Transcriber:   whisper,
		Store:         st,
		AI:            answerer,
		Speaker:       speaker,
		Watcher:       w,
		Cue:           cue,
		Console:       console.New(os.Stdout),
		Publisher:     publisher,
		Commands:      commands,
		SaveCapture:   saveCapture,
		Phrases:       assistant.Phrases{Trigger: cfg.TriggerPhrase, Stop: cfg.StopPhrase},
		ListenTimeout: cfg.ListenTimeout,
	})

	log.Info("Boot up - successful")

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Bye")
	return nil
}

func endpoint(cfg *config.Config) ai.Endpoint {
	return ai.Endpoint{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		ProxyAddr: cfg.ProxyAddr,
		Timeout:   cfg.AITimeout,
	}
}
