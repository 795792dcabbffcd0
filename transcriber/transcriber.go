package transcriber

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var ErrEmptyAudio = errors.New("no audio to transcribe")

type NetworkMetrics struct {
	DNS         time.Duration
	ConnWait    time.Duration
	TCP         time.Duration
	TLS         time.Duration
	ReqHeaders  time.Duration
	ReqBody     time.Duration
	TTFB        time.Duration
	Download    time.Duration
	Total       time.Duration
	ConnReused  bool
	TLSProtocol string
}

func (m *NetworkMetrics) Sum() time.Duration {
	return m.ConnWait + m.DNS + m.TCP + m.TLS + m.ReqHeaders + m.ReqBody + m.TTFB + m.Download
}

func (m *NetworkMetrics) String() string {
	if m == nil {
		return "n/a"
	}
	return fmt.Sprintf("total=%s ttfb=%s upload=%s reused=%v", m.Total.Round(time.Millisecond),
		m.TTFB.Round(time.Millisecond), m.ReqBody.Round(time.Millisecond), m.ConnReused)
}

func firstNonEmpty(h http.Header, keys ...string) string {
	for _, k := range keys {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return "?"
}

// Audio is one complete encoded recording.
type Audio struct {
	Data   []byte
	Format string // "wav" or "flac"
}

type Result struct {
	Text       string
	Metrics    *NetworkMetrics
	RateLimit  string
	Confidence float64
	Duration   float64 // seconds of audio, when the provider reports it
}

// Transcriber turns one recording into text. Implementations must honor ctx
// cancellation and must be safe for concurrent use.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio Audio) (*Result, error)
}

// Warmer is implemented by providers that can pre-open their connection.
type Warmer interface {
	Warm(ctx context.Context) error
}

const (
	ProviderWhisper  = "whisper"
	ProviderOpenAI   = "openai"
	ProviderGroq     = "groq"
	ProviderDeepgram = "deepgram"
	ProviderFake     = "fake"
)

const (
	DefaultWhisperEndpoint = "http://localhost:2022/v1/audio/transcriptions"
	DefaultWhisperModel    = "whisper-1"
)

type Config struct {
	Provider string
	Endpoint string // overrides the provider's default URL
	Model    string
	Language string
	APIKey   string
}

func New(cfg Config) (Transcriber, error) {
	switch cfg.Provider {
	case ProviderWhisper, "":
		return NewWhisper(cfg.Endpoint, cfg.Model, cfg.APIKey, cfg.Language), nil
	case ProviderGroq:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("groq: set GROQ_API_KEY")
		}
		return NewGroq(cfg.APIKey, cfg.Model, cfg.Language), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai: set OPENAI_API_KEY")
		}
		return NewOpenAI(cfg.APIKey, cfg.Endpoint, cfg.Model, cfg.Language), nil
	case ProviderDeepgram:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("deepgram: set DEEPGRAM_API_KEY")
		}
		return NewDeepgram(cfg.APIKey, cfg.Endpoint, cfg.Model, cfg.Language), nil
	case ProviderFake:
		return NewEcho(), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}
