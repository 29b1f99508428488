package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Payload carries the encoded image bytes for one channel together with the
// source-reported filename metadata, when present.
type Payload struct {
	Body     []byte
	Filename string
}

// Fetcher defines the channel fetch operation used by the orchestrator.
type Fetcher interface {
	FetchImage(ctx context.Context, nominal time.Time, channel int) (*Payload, error)
}

// Client retrieves encoded channel images from the observation source API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

var _ Fetcher = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a source client.
func New(baseURL, userAgent string, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("source base url required")
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  strings.TrimSpace(userAgent),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FetchImage requests the encoded image closest to the nominal instant for one
// channel. The nominal timestamp is truncated to second precision and sent as
// UTC. Errors identify the channel so the orchestrator can attribute partial
// failures.
func (c *Client) FetchImage(ctx context.Context, nominal time.Time, channel int) (*Payload, error) {
	endpoint, err := url.Parse(c.baseURL + "/getJP2Image/")
	if err != nil {
		return nil, fmt.Errorf("channel %d: parse source url: %w", channel, err)
	}
	params := url.Values{}
	params.Set("date", nominal.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z"))
	params.Set("sourceId", strconv.Itoa(channel))
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("channel %d: build request: %w", channel, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("channel %d: execute request (latency=%v): %w", channel, latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("channel %d: source returned %d (latency=%v)", channel, resp.StatusCode, latency)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("channel %d: read body: %w", channel, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("channel %d: source returned empty body", channel)
	}

	return &Payload{
		Body:     body,
		Filename: dispositionFilename(resp.Header.Get("Content-Disposition")),
	}, nil
}

// dispositionFilename extracts the filename parameter from a
// Content-Disposition header. Missing or malformed headers yield "".
func dispositionFilename(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(header); err == nil {
		if name, ok := params["filename"]; ok {
			return name
		}
	}
	// Some servers emit unquoted filenames mime.ParseMediaType rejects.
	if idx := strings.Index(header, "filename="); idx >= 0 {
		name := header[idx+len("filename="):]
		if end := strings.IndexByte(name, ';'); end >= 0 {
			name = name[:end]
		}
		return strings.Trim(strings.TrimSpace(name), `"`)
	}
	return ""
}
