// Package config loads the voice client settings from the environment and
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL     = "http://127.0.0.1:5000"
	DefaultHTTPTimeout = 30 * time.Second
	DefaultLogFile     = "ema-voice.log"
)

const (
	BackendRemote    = "remote"
	BackendDeepgram  = "deepgram"
	BackendOpenAI    = "openai"
	BackendMiniaudio = "miniaudio"
	BackendPortaudio = "portaudio"
)

type Config struct {
	// BaseURL is where the /transcribe, /chat and /tts endpoints live.
	BaseURL      string
	STTBackend   string
	TTSBackend   string
	AudioBackend string

	DeepgramAPIKey string
	DeepgramVoice  string
	OpenAIAPIKey   string

	HTTPTimeout time.Duration
	LogFile     string
	Debug       bool
}

// Load reads the given .env files (".env" when none are named) without
// overriding variables already set, then builds the Config from the process
// environment. Missing files are not an error.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds and validates a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		BaseURL:        getEnv(getenv, "BOTHEALTH_BASE_URL", DefaultBaseURL),
		STTBackend:     strings.ToLower(getEnv(getenv, "VOICE_STT_BACKEND", BackendRemote)),
		TTSBackend:     strings.ToLower(getEnv(getenv, "VOICE_TTS_BACKEND", BackendRemote)),
		AudioBackend:   strings.ToLower(getEnv(getenv, "VOICE_AUDIO_BACKEND", BackendMiniaudio)),
		DeepgramAPIKey: getenv("DEEPGRAM_API_KEY"),
		DeepgramVoice:  getenv("DEEPGRAM_VOICE"),
		OpenAIAPIKey:   getenv("OPENAI_API_KEY"),
		HTTPTimeout:    DefaultHTTPTimeout,
		LogFile:        getEnv(getenv, "VOICE_LOG_FILE", DefaultLogFile),
		Debug:          getenv("VOICE_DEBUG") != "",
	}

	if raw := getenv("VOICE_HTTP_TIMEOUT"); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil || timeout <= 0 {
			return Config{}, fmt.Errorf("invalid VOICE_HTTP_TIMEOUT %q", raw)
		}
		cfg.HTTPTimeout = timeout
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	var errs []error

	switch c.STTBackend {
	case BackendRemote, BackendOpenAI:
	case BackendDeepgram:
		if c.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required for the deepgram transcription backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VOICE_STT_BACKEND %q", c.STTBackend))
	}
	if c.STTBackend == BackendOpenAI && c.OpenAIAPIKey == "" {
		errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai transcription backend"))
	}

	switch c.TTSBackend {
	case BackendRemote:
	case BackendDeepgram:
		if c.DeepgramAPIKey == "" {
			errs = append(errs, errors.New("DEEPGRAM_API_KEY is required for the deepgram synthesis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown VOICE_TTS_BACKEND %q", c.TTSBackend))
	}

	switch c.AudioBackend {
	case BackendMiniaudio, BackendPortaudio:
	default:
		errs = append(errs, fmt.Errorf("unknown VOICE_AUDIO_BACKEND %q", c.AudioBackend))
	}

	return errors.Join(errs...)
}

func getEnv(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}
