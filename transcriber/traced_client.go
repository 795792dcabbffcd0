package transcriber

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type TracedClient struct {
	client *http.Client
	url    string
}

func NewTracedClient(url string) *TracedClient {
	return &TracedClient{
		url: url,
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        2,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
	}
}

type TracedResponse struct {
	Body       []byte
	StatusCode int
	Header     http.Header
	Metrics    *NetworkMetrics
}

// tracer records phase timings for one request. The transport calls the
// trace hooks from its read and write loops, so every field is guarded by mu.
type tracer struct {
	mu sync.Mutex
	m  NetworkMetrics

	start, getConn, dns, tcp, tlsStart      time.Time
	gotConn, wroteHeaders, wrote, firstByte time.Time
}

func (t *tracer) with(fn func()) {
	t.mu.Lock()
	fn()
	t.mu.Unlock()
}

// withTrace attaches a tracer to ctx. Any request made with the returned
// context, including ones built inside third-party SDKs, is measured.
func withTrace(ctx context.Context) (context.Context, *tracer) {
	t := &tracer{start: time.Now()}
	ct := &httptrace.ClientTrace{
		GetConn: func(string) { t.with(func() { t.getConn = time.Now() }) },
		GotConn: func(info httptrace.GotConnInfo) {
			t.with(func() {
				t.gotConn = time.Now()
				t.m.ConnWait = t.gotConn.Sub(t.getConn)
				t.m.ConnReused = info.Reused
			})
		},
		DNSStart:          func(httptrace.DNSStartInfo) { t.with(func() { t.dns = time.Now() }) },
		DNSDone:           func(httptrace.DNSDoneInfo) { t.with(func() { t.m.DNS = time.Since(t.dns) }) },
		ConnectStart:      func(_, _ string) { t.with(func() { t.tcp = time.Now() }) },
		ConnectDone:       func(_, _ string, _ error) { t.with(func() { t.m.TCP = time.Since(t.tcp) }) },
		TLSHandshakeStart: func() { t.with(func() { t.tlsStart = time.Now() }) },
		TLSHandshakeDone: func(cs tls.ConnectionState, _ error) {
			t.with(func() {
				t.m.TLS = time.Since(t.tlsStart)
				t.m.TLSProtocol = tls.VersionName(cs.Version)
			})
		},
		WroteHeaders: func() {
			t.with(func() {
				t.wroteHeaders = time.Now()
				t.m.ReqHeaders = t.wroteHeaders.Sub(t.gotConn)
			})
		},
		WroteRequest: func(httptrace.WroteRequestInfo) {
			t.with(func() {
				t.wrote = time.Now()
				t.m.ReqBody = t.wrote.Sub(t.wroteHeaders)
			})
		},
		GotFirstResponseByte: func() {
			t.with(func() {
				t.firstByte = time.Now()
				// the server may answer before the body is fully written
				if !t.wrote.IsZero() {
					t.m.TTFB = t.firstByte.Sub(t.wrote)
				} else {
					t.m.TTFB = t.firstByte.Sub(t.start)
				}
			})
		},
	}
	return httptrace.WithClientTrace(ctx, ct), t
}

func (t *tracer) finish() *NetworkMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.firstByte.IsZero() {
		t.m.Download = time.Since(t.firstByte)
	}
	t.m.Total = time.Since(t.start)
	m := t.m
	return &m
}

func (c *TracedClient) Do(req *http.Request) (*TracedResponse, error) {
	ctx, t := withTrace(req.Context())
	resp, err := c.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return &TracedResponse{
		Body:       body,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Metrics:    t.finish(),
	}, nil
}

// Warm opens a connection to the endpoint so the first real request skips
// DNS, TCP and TLS setup. Any HTTP status counts as reachable.
func (c *TracedClient) Warm(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("warming %s: %w", c.url, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
