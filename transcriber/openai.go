package transcriber

import (
	"bytes"
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"ptt/encoder"
)

// OpenAI uses the official API through go-openai. A custom endpoint may point
// it at any OpenAI-compatible base URL (".../v1").
type OpenAI struct {
	client *openai.Client
	traced *TracedClient
	model  string
	lang   string
}

func NewOpenAI(apiKey, baseURL, model, lang string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	traced := NewTracedClient(cfg.BaseURL + "/models")
	cfg.HTTPClient = traced.client
	if model == "" {
		model = openai.Whisper1
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		traced: traced,
		model:  model,
		lang:   lang,
	}
}

func (o *OpenAI) Name() string { return ProviderOpenAI }

func (o *OpenAI) Warm(ctx context.Context) error { return o.traced.Warm(ctx) }

func (o *OpenAI) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	ctx, t := withTrace(ctx)
	resp, err := o.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    o.model,
		FilePath: "audio" + encoder.Ext(audio.Format),
		Reader:   bytes.NewReader(audio.Data),
		Language: o.lang,
		Format:   openai.AudioResponseFormatJSON,
	})
	metrics := t.finish()
	if err != nil {
		return nil, fmt.Errorf("openai transcription: %w", err)
	}

	h := resp.Header()
	remaining := firstNonEmpty(h, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(h, "x-ratelimit-limit-requests")
	return &Result{
		Text:      resp.Text,
		Metrics:   metrics,
		RateLimit: remaining + "/" + limit,
		Duration:  resp.Duration,
	}, nil
}
