// Command ema-voice is a terminal client for the BotHealth dialogue service
// with a typed chat and a push-to-talk voice toggle.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	orchestration "github.com/fbicca/ai-heart-failure-predictor/core"
	"github.com/fbicca/ai-heart-failure-predictor/core/audio"
	"github.com/fbicca/ai-heart-failure-predictor/core/audio/miniaudio"
	"github.com/fbicca/ai-heart-failure-predictor/core/audio/portaudio"
	chatremote "github.com/fbicca/ai-heart-failure-predictor/core/conversations/remote"
	"github.com/fbicca/ai-heart-failure-predictor/core/speechtotext"
	sttdeepgram "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/deepgram"
	sttopenai "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/openai"
	sttremote "github.com/fbicca/ai-heart-failure-predictor/core/speechtotext/remote"
	"github.com/fbicca/ai-heart-failure-predictor/core/texttospeech"
	ttsdeepgram "github.com/fbicca/ai-heart-failure-predictor/core/texttospeech/deepgram"
	ttsremote "github.com/fbicca/ai-heart-failure-predictor/core/texttospeech/remote"
	"github.com/fbicca/ai-heart-failure-predictor/internal/config"
	"github.com/fbicca/ai-heart-failure-predictor/internal/httpc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "ema-voice:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logFile, err := tea.LogToFile(cfg.LogFile, "ema-voice")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	if cfg.Debug {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
		log.Printf("Config: base=%s stt=%s tts=%s audio=%s timeout=%s",
			cfg.BaseURL, cfg.STTBackend, cfg.TTSBackend, cfg.AudioBackend, cfg.HTTPTimeout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := newAudioDevice(cfg)
	if err != nil {
		// Text chat still works without a microphone; capture reports the
		// missing device when voice is toggled.
		log.Printf("Audio device unavailable: %v", err)
	} else {
		defer device.Close()
	}

	httpClient := httpc.New(cfg.HTTPTimeout)
	transcriber, err := newTranscriber(cfg, httpClient)
	if err != nil {
		return err
	}
	synthesizer, err := newSynthesizer(cfg, httpClient, device)
	if err != nil {
		return err
	}
	chat, err := chatremote.NewChatClient(cfg.BaseURL, httpClient)
	if err != nil {
		return err
	}

	var program atomic.Pointer[tea.Program]
	send := func(msg tea.Msg) {
		if p := program.Load(); p != nil {
			p.Send(msg)
		}
	}

	opts := []orchestration.OrchestratorOption{
		orchestration.WithContext(ctx),
		orchestration.WithTranscriber(transcriber),
		orchestration.WithConversation(chat),
		orchestration.WithSynthesizer(synthesizer),
		orchestration.WithTextDisplay(orchestration.TextDisplayFunc(func(reply string) {
			send(voiceReplyMsg(reply))
		})),
		orchestration.WithStatusCallback(func(status orchestration.Status) {
			log.Printf("[voice] status: %s (%s)", status.State, status.Message())
			send(statusMsg(status))
		}),
	}
	if device != nil {
		opts = append(opts,
			orchestration.WithAudioInput(device),
			orchestration.WithAudioOutput(device),
		)
	}

	orchestrator := orchestration.NewOrchestrator(opts...)
	defer orchestrator.Close()

	p := tea.NewProgram(newModel(ctx, orchestrator), tea.WithAltScreen(), tea.WithContext(ctx))
	program.Store(p)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal ui failed: %w", err)
	}
	return nil
}

type audioDevice interface {
	orchestration.AudioInputWithEncoding
	orchestration.AudioOutput
	Close()
}

func newAudioDevice(cfg config.Config) (audioDevice, error) {
	if cfg.AudioBackend == config.BackendPortaudio {
		client, err := portaudio.NewClient(512)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	client, err := miniaudio.NewClient()
	if err != nil {
		return nil, err
	}
	return client, nil
}

func newTranscriber(cfg config.Config, httpClient *http.Client) (speechtotext.Transcriber, error) {
	switch cfg.STTBackend {
	case config.BackendDeepgram:
		return sttdeepgram.NewTranscriptionClient(cfg.DeepgramAPIKey)
	case config.BackendOpenAI:
		return sttopenai.NewTranscriptionClient(cfg.OpenAIAPIKey,
			[]sttopenai.ClientOption{sttopenai.WithHTTPClient(httpClient)})
	default:
		return sttremote.NewTranscriptionClient(cfg.BaseURL, httpClient)
	}
}

func newSynthesizer(cfg config.Config, httpClient *http.Client, device audioDevice) (texttospeech.Synthesizer, error) {
	switch cfg.TTSBackend {
	case config.BackendDeepgram:
		encoding := audio.GetDefaultEncodingInfo()
		if device != nil {
			encoding = device.EncodingInfo()
		}
		voice, ok := ttsdeepgram.ParseVoice(cfg.DeepgramVoice)
		if !ok && cfg.DeepgramVoice != "" {
			return nil, fmt.Errorf("%w: %s", ttsdeepgram.ErrInvalidVoice, cfg.DeepgramVoice)
		}
		return ttsdeepgram.NewTextToSpeechClient(cfg.DeepgramAPIKey, voice,
			texttospeech.WithEncodingInfo(encoding))
	default:
		return ttsremote.NewSynthesisClient(cfg.BaseURL, httpClient)
	}
}
