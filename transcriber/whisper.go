package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"ptt/encoder"
)

const groqURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// Whisper speaks the OpenAI-compatible multipart transcription protocol
// used by local whisper servers and by Groq.
type Whisper struct {
	name           string
	client         *TracedClient
	apiURL         string
	apiKey         string
	model          string
	lang           string
	responseFormat string
}

func NewWhisper(endpoint, model, apiKey, lang string) *Whisper {
	if endpoint == "" {
		endpoint = DefaultWhisperEndpoint
	}
	if model == "" {
		model = DefaultWhisperModel
	}
	return &Whisper{
		name:           ProviderWhisper,
		client:         NewTracedClient(endpoint),
		apiURL:         endpoint,
		apiKey:         apiKey,
		model:          model,
		lang:           lang,
		responseFormat: "json",
	}
}

func NewGroq(apiKey, model, lang string) *Whisper {
	if model == "" {
		model = "whisper-large-v3-turbo"
	}
	w := NewWhisper(groqURL, model, apiKey, lang)
	w.name = ProviderGroq
	w.responseFormat = "verbose_json"
	return w
}

func (w *Whisper) Name() string { return w.name }

func (w *Whisper) Warm(ctx context.Context) error { return w.client.Warm(ctx) }

type whisperResponse struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
}

func (w *Whisper) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "audio"+encoder.Ext(audio.Format))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(audio.Data); err != nil {
		return nil, err
	}
	writer.WriteField("model", w.model)
	writer.WriteField("response_format", w.responseFormat)
	if w.lang != "" {
		writer.WriteField("language", w.lang)
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.apiURL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if w.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+w.apiKey)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", w.name, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error %d: %s", w.name, resp.StatusCode, truncateBody(resp.Body))
	}

	var wr whisperResponse
	if err := json.Unmarshal(resp.Body, &wr); err != nil {
		return nil, fmt.Errorf("%s response parse error: %w", w.name, err)
	}

	remaining := firstNonEmpty(resp.Header, "x-ratelimit-remaining-requests")
	limit := firstNonEmpty(resp.Header, "x-ratelimit-limit-requests")
	return &Result{
		Text:      wr.Text,
		Metrics:   resp.Metrics,
		RateLimit: remaining + "/" + limit,
		Duration:  wr.Duration,
	}, nil
}

func truncateBody(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
