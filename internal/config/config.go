// Package config loads runvox settings from a key/value file, with process
// environment variables taking precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"runvox/internal/ipc"
)

const DefaultPath = "config/setup.env"

type Config struct {
	APIKey    string
	AIBaseURL string
	AIModel   string
	AITimeout time.Duration

	DBDriver string
	DBDSN    string

	TriggerPhrase string
	StopPhrase    string
	ListenTimeout time.Duration

	WhisperModel string
	STTLanguage  string
	TTSVoice     string
	CueSound     string
	CapturePath  string
	DuckAudio    bool

	ProxyAddr     string
	BusURL        string
	ControlSocket string
}

// Load reads path (a missing file is not an error) and applies defaults.
func Load(path string) (*Config, error) {
	file := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			file = m
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}

	src := source{file: file}
	cfg := &Config{
		APIKey:    src.get("API_KEY", ""),
		AIBaseURL: src.get("AI_BASE_URL", ""),
		AIModel:   src.get("AI_MODEL", "gpt-4o-mini"),
		AITimeout: src.duration("AI_TIMEOUT", 60*time.Second),

		DBDriver: src.get("DB_DRIVER", "sqlserver"),
		DBDSN:    src.get("DB_DSN", ""),

		TriggerPhrase: strings.ToLower(src.get("TRIGGER_PHRASE", "hey")),
		StopPhrase:    strings.ToLower(src.get("STOP_PHRASE", "exit")),
		ListenTimeout: src.duration("LISTEN_TIMEOUT", 5*time.Second),

		WhisperModel: src.get("WHISPER_MODEL", "models/ggml-base.en.bin"),
		STTLanguage:  src.get("STT_LANGUAGE", "en"),
		TTSVoice:     src.get("TTS_VOICE", "en"),
		CueSound:     src.get("CUE_SOUND", "beep.mp3"),
		CapturePath:  src.get("CAPTURE_PATH", ""),
		DuckAudio:    src.bool("DUCK_AUDIO", false),

		ProxyAddr:     src.get("PROXY_ADDR", ""),
		BusURL:        src.get("BUS_URL", ""),
		ControlSocket: src.get("CONTROL_SOCKET", ipc.DefaultSocket),
	}
	if src.err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", src.err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("API_KEY cannot be empty")
	}
	if c.DBDSN == "" {
		return errors.New("DB_DSN cannot be empty")
	}
	switch c.DBDriver {
	case "sqlserver", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER %q is not supported (sqlserver, sqlite)", c.DBDriver)
	}
	if strings.TrimSpace(c.TriggerPhrase) == "" || strings.TrimSpace(c.StopPhrase) == "" {
		return errors.New("TRIGGER_PHRASE and STOP_PHRASE cannot be empty")
	}
	if c.TriggerPhrase == c.StopPhrase {
		return errors.New("TRIGGER_PHRASE and STOP_PHRASE must differ")
	}
	if c.ListenTimeout <= 0 {
		return errors.New("LISTEN_TIMEOUT must be > 0")
	}
	if c.AITimeout <= 0 {
		return errors.New("AI_TIMEOUT must be > 0")
	}
	return nil
}

// source looks a key up in the environment first, then in the file. Keys
// are matched case-insensitively in the file so "api_key" works as well.
type source struct {
	file map[string]string
	err  error
}

func (s *source) lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v, true
	}
	if v, ok := s.file[key]; ok {
		return v, true
	}
	for k, v := range s.file {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func (s *source) get(key, fallback string) string {
	if v, ok := s.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (s *source) duration(key string, fallback time.Duration) time.Duration {
	v := s.get(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		s.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func (s *source) bool(key string, fallback bool) bool {
	v := s.get(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		s.fail(fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func (s *source) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}
