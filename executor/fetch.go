package executor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultMaxDownloadBytes caps media downloads
const DefaultMaxDownloadBytes = 25 << 20

// FetcherOptions configures a Fetcher
type FetcherOptions struct {
	// BearerToken is sent as Authorization for private chat-platform file URLs
	BearerToken string
	MaxBytes    int64
	RetryMax    int
	RetryWait   time.Duration
	Logger      hclog.Logger
}

// Fetcher downloads media with retries
type Fetcher struct {
	client   *retryablehttp.Client
	token    string
	maxBytes int64
}

// NewFetcher creates a Fetcher. Defaults are 3 attempts with 2-10s backoff.
func NewFetcher(opts FetcherOptions) *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 2 * time.Second
	client.RetryWaitMax = 10 * time.Second
	if opts.RetryMax > 0 {
		client.RetryMax = opts.RetryMax
	}
	if opts.RetryWait > 0 {
		client.RetryWaitMin = opts.RetryWait
		client.RetryWaitMax = opts.RetryWait
	}
	client.Logger = nil
	if opts.Logger != nil {
		client.Logger = opts.Logger.Named("fetch")
	}

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxDownloadBytes
	}
	return &Fetcher{client: client, token: opts.BearerToken, maxBytes: maxBytes}
}

// Fetch downloads url and returns its body
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("fetching %s: larger than %d bytes", url, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetching %s: empty body", url)
	}
	return data, nil
}
