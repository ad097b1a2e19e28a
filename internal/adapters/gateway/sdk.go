package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"redline/internal/adapters/http/perf"
)

// maxSDKBytes caps the gateway script we are willing to buffer.
const maxSDKBytes = 2 << 20

// SDKSource provides the gateway's browser script.
type SDKSource interface {
	// Load returns the script body. Concurrent callers share one fetch.
	Load(ctx context.Context) ([]byte, error)
}

// SDKLoader fetches the gateway SDK once per process. A successful fetch is
// memoised; a failed one is not, so the next caller tries again.
type SDKLoader struct {
	url       string
	client    *http.Client
	log       *zap.Logger
	collector *perf.Collector

	group singleflight.Group
	mu    sync.RWMutex
	body  []byte
}

// NewSDKLoader creates a loader for url with a per-fetch timeout.
func NewSDKLoader(url string, timeout time.Duration, log *zap.Logger, collector *perf.Collector) *SDKLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &SDKLoader{
		url:       url,
		client:    &http.Client{Timeout: timeout},
		log:       log.Named("sdk"),
		collector: collector,
	}
}

// Load returns the cached script or fetches it.
func (l *SDKLoader) Load(ctx context.Context) ([]byte, error) {
	l.mu.RLock()
	body := l.body
	l.mu.RUnlock()
	if body != nil {
		return body, nil
	}

	// The shared fetch must not die with whichever request started it.
	ch := l.group.DoChan("sdk", func() (any, error) {
		return l.fetch(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func (l *SDKLoader) fetch(ctx context.Context) ([]byte, error) {
	l.mu.RLock()
	cached := l.body
	l.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	done := l.collector.Track("sdk.fetch")
	body, err := l.download(ctx)
	done(err)
	if err != nil {
		l.log.Warn("sdk_load_failed", zap.String("url", l.url), zap.Error(err))
		return nil, err
	}

	l.mu.Lock()
	l.body = body
	l.mu.Unlock()
	l.log.Info("sdk_loaded", zap.Int("bytes", len(body)))
	return body, nil
}

func (l *SDKLoader) download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build sdk request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sdk: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch sdk: unexpected status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSDKBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read sdk: %w", err)
	}
	if len(body) > maxSDKBytes {
		return nil, errors.New("sdk exceeds size limit")
	}
	if len(body) == 0 {
		return nil, errors.New("sdk is empty")
	}
	return body, nil
}

// StaticSDK serves a fixed script. The sandbox gateway never runs it.
type StaticSDK []byte

// Load returns the script.
func (s StaticSDK) Load(context.Context) ([]byte, error) {
	return s, nil
}
