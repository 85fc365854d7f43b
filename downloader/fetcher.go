package downloader

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrProbeUnsupported is returned by Probe when the server rejects HEAD requests
var ErrProbeUnsupported = errors.New("server does not support metadata requests")

// FetcherOptions configures the HTTP fetcher
type FetcherOptions struct {
	// Timeout bounds a whole request including the body read.
	// Default: 5m
	Timeout time.Duration

	// ConnectTimeout bounds dialing and the TLS handshake.
	// Default: 30s
	ConnectTimeout time.Duration

	// ProbeRetries is the number of retries for a failed probe.
	// Default: 2
	ProbeRetries int

	// RetryBackoff is the initial delay between probe attempts.
	// Default: 500ms
	RetryBackoff time.Duration

	// UserAgent is sent with every request
	UserAgent string
}

// DefaultFetcherOptions returns options with sensible defaults
func DefaultFetcherOptions() FetcherOptions {
	return FetcherOptions{
		Timeout:        5 * time.Minute,
		ConnectTimeout: 30 * time.Second,
		ProbeRetries:   2,
		RetryBackoff:   500 * time.Millisecond,
		UserAgent:      "go-fetch-bot/1.0",
	}
}

// HTTPFetcher implements Fetcher on top of net/http
type HTTPFetcher struct {
	client *http.Client
	opts   FetcherOptions
}

// NewHTTPFetcher creates a fetcher with its own connection pool
func NewHTTPFetcher(opts FetcherOptions) *HTTPFetcher {
	dialer := &net.Dialer{
		Timeout:   opts.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ConnectTimeout,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Probe performs a HEAD request, retrying transport faults and server errors
func (f *HTTPFetcher) Probe(ctx context.Context, url string) (*ResourceInfo, error) {
	var info *ResourceInfo

	operation := func() error {
		req, err := f.newRequest(ctx, http.MethodHead, url)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			de := classifyTransportError(err, "probe request failed")
			if de.Type != ErrorNetworkFailure || ctx.Err() != nil {
				return backoff.Permanent(de)
			}
			return de
		}
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented:
			return backoff.Permanent(ErrProbeUnsupported)
		case resp.StatusCode >= 500:
			return NewRemoteError(resp.StatusCode)
		case !isSuccess(resp.StatusCode):
			return backoff.Permanent(NewRemoteError(resp.StatusCode))
		}

		info = resourceInfo(resp)
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(f.newBackOff(), uint64(f.opts.ProbeRetries)), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		if errors.Is(err, ErrProbeUnsupported) {
			return nil, err
		}
		return nil, classifyTransportError(err, "probe request failed")
	}
	return info, nil
}

// Open performs a streaming GET. The caller must close the returned body.
func (f *HTTPFetcher) Open(ctx context.Context, url string) (*Resource, error) {
	req, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(err, "download request failed")
	}

	if !isSuccess(resp.StatusCode) {
		resp.Body.Close()
		return nil, NewRemoteError(resp.StatusCode)
	}

	return &Resource{
		Info: *resourceInfo(resp),
		Body: resp.Body,
	}, nil
}

func (f *HTTPFetcher) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, NewDownloadErrorWithCause(ErrorInvalidURL, "failed to build request", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	return req, nil
}

func (f *HTTPFetcher) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if f.opts.RetryBackoff > 0 {
		b.InitialInterval = f.opts.RetryBackoff
	}
	b.MaxElapsedTime = 0
	return b
}

func resourceInfo(resp *http.Response) *ResourceInfo {
	length := resp.ContentLength
	if length < 0 {
		length = 0
	}
	return &ResourceInfo{
		StatusCode:         resp.StatusCode,
		ContentLength:      length,
		ContentType:        resp.Header.Get("Content-Type"),
		ContentDisposition: resp.Header.Get("Content-Disposition"),
	}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
