package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"ptt/encoder"
)

const deepgramAPIURL = "https://api.deepgram.com/v1/listen"

// Deepgram uses the prerecorded REST endpoint with the raw file as body.
type Deepgram struct {
	apiKey string
	apiURL string
	client *TracedClient
	model  string
	lang   string
}

func NewDeepgram(apiKey, endpoint, model, lang string) *Deepgram {
	if endpoint == "" {
		endpoint = deepgramAPIURL
	}
	if model == "" {
		model = "nova-3"
	}
	return &Deepgram{
		apiKey: apiKey,
		apiURL: endpoint,
		client: NewTracedClient(endpoint),
		model:  model,
		lang:   lang,
	}
}

func (d *Deepgram) Name() string { return ProviderDeepgram }

func (d *Deepgram) Warm(ctx context.Context) error { return d.client.Warm(ctx) }

type deepgramResponse struct {
	Metadata struct {
		Duration float64 `json:"duration"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

func (d *Deepgram) requestURL() (string, error) {
	u, err := url.Parse(d.apiURL)
	if err != nil {
		return "", fmt.Errorf("deepgram endpoint: %w", err)
	}
	q := u.Query()
	q.Set("model", d.model)
	q.Set("smart_format", "true")
	if d.lang != "" {
		q.Set("language", d.lang)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Deepgram) Transcribe(ctx context.Context, audio Audio) (*Result, error) {
	if len(audio.Data) == 0 {
		return nil, ErrEmptyAudio
	}
	u, err := d.requestURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(audio.Data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Token "+d.apiKey)
	req.Header.Set("Content-Type", encoder.ContentType(audio.Format))

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("deepgram request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("deepgram API error %d: %s", resp.StatusCode, truncateBody(resp.Body))
	}

	var dg deepgramResponse
	if err := json.Unmarshal(resp.Body, &dg); err != nil {
		return nil, fmt.Errorf("deepgram response parse error: %w", err)
	}

	r := &Result{Metrics: resp.Metrics, Duration: dg.Metadata.Duration}
	if len(dg.Results.Channels) > 0 && len(dg.Results.Channels[0].Alternatives) > 0 {
		alt := dg.Results.Channels[0].Alternatives[0]
		r.Text = alt.Transcript
		r.Confidence = alt.Confidence
	}
	remaining := firstNonEmpty(resp.Header, "x-dg-ratelimit-remaining", "x-ratelimit-remaining", "ratelimit-remaining")
	limit := firstNonEmpty(resp.Header, "x-dg-ratelimit-limit", "x-ratelimit-limit", "ratelimit-limit")
	r.RateLimit = remaining + "/" + limit
	return r, nil
}
