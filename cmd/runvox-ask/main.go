package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	"runvox/internal/ai"
	"runvox/internal/assistant"
	"runvox/internal/config"
	"runvox/internal/console"
	"runvox/internal/store"
	"runvox/internal/tts"
	"runvox/pkg/stt"
)

func main() {
	envFile := cli.StringP("env", "e", config.DefaultPath, "Config file path")
	audioFile := cli.StringP("file", "f", "", "Audio file holding the question (wav, mp3, ogg)")
	speak := cli.BoolP("speak", "s", false, "Read the answer aloud")
	verbose := cli.BoolP("verbose", "v", false, "Debug logging")
	cli.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: runvox-ask [flags] [question...]")
		cli.PrintDefaults()
	}
	cli.Parse()

	level := log.LevelWarn
	if *verbose {
		level = log.LevelDebug
	}
	log.SetDefault(log.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level})))

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Error("Failed to load config", "path", *envFile, "err", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.AITimeout)
	defer cancel()

	question := strings.TrimSpace(strings.Join(cli.Args(), " "))
	if *audioFile != "" {
		question, err = transcribeFile(ctx, cfg, *audioFile)
		if err != nil {
			log.Error("Failed to transcribe", "file", *audioFile, "err", err)
			os.Exit(1)
		}
	}
	if question == "" {
		cli.Usage()
		os.Exit(2)
	}

	out := console.New(os.Stdout)
	out.Heard(question)

	answer, err := ask(ctx, cfg, question)
	if err != nil {
		log.Error("Failed to answer", "err", err)
		os.Exit(1)
	}
	out.Response(answer)

	if *speak {
		if err := tts.NewSpeaker(cfg.TTSVoice).Speak(answer); err != nil {
			log.Error("Failed to voice out", "err", err)
			os.Exit(1)
		}
	}
}

var errNoSpeech = errors.New("no speech recognized")

func transcribeFile(ctx context.Context, cfg *config.Config, path string) (string, error) {
	whisper, err := stt.NewTranscriber(cfg.WhisperModel, stt.Options{Language: cfg.STTLanguage})
	if err != nil {
		return "", err
	}
	defer whisper.Close()

	text, err := whisper.TranscribeFile(ctx, path)
	if err != nil {
		return "", err
	}
	text = assistant.Clean(text)
	if assistant.Normalize(text) == "" {
		return "", errNoSpeech
	}
	return text, nil
}

func ask(ctx context.Context, cfg *config.Config, question string) (string, error) {
	model, err := ai.Dial(ai.Endpoint{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.AIBaseURL,
		Model:     cfg.AIModel,
		ProxyAddr: cfg.ProxyAddr,
		Timeout:   cfg.AITimeout,
	})
	if err != nil {
		return "", err
	}

	st, err := store.Open(ctx, cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return "", err
	}
	defer st.Close()

	return assistant.Ask(ctx, st, model, question, time.Now())
}
